// Package memory provides an in-process GraphStore.
//
// Mutations are staged until Commit and every call is journaled, which makes
// the store convenient for tests that assert on the exact sequence of store
// operations, and for dry runs of the command line tool.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/tidwall/btree"

	"github.com/zero-day-ai/docgraph/store"
)

// Op names a journaled store call.
type Op string

const (
	OpAddNode Op = "add_node"
	OpAddEdge Op = "add_edge"
	OpCommit  Op = "commit"
	OpDelete  Op = "delete"
	OpQuery   Op = "query"
)

// Call is one journaled store call. Only the fields relevant to Op are set.
type Call struct {
	Op         Op
	Handle     store.NodeHandle
	Label      string
	Properties map[string]any
	From       store.NodeHandle
	Name       string
	To         store.NodeHandle
	Query      string
}

type nodeEntry struct {
	seq  uint64
	node store.Node
}

type edgeEntry struct {
	seq  uint64
	edge store.Edge
}

// Store is an in-memory GraphStore. Committed nodes and edges are kept in
// creation order. It is safe for concurrent use.
type Store struct {
	mu sync.Mutex

	logger  *slog.Logger
	failure func(Call) error

	staged        store.Batch
	pendingDelete bool

	seq     uint64
	nodes   *btree.BTreeG[nodeEntry]
	edges   *btree.BTreeG[edgeEntry]
	handles map[store.NodeHandle]uint64

	journal []Call
	closed  bool
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithFailure installs a hook consulted before each call is applied. A
// non-nil error fails the call; the call is still journaled. Calls rejected
// by validation fail before the hook and are not journaled.
func WithFailure(fn func(Call) error) Option {
	return func(s *Store) {
		s.failure = fn
	}
}

// FailOn returns a failure hook that fails the n-th call (1-based) with op.
func FailOn(op Op, n int, err error) func(Call) error {
	var mu sync.Mutex
	seen := 0
	return func(c Call) error {
		if c.Op != op {
			return nil
		}
		mu.Lock()
		defer mu.Unlock()
		seen++
		if seen == n {
			return err
		}
		return nil
	}
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		logger: slog.Default(),
	}
	s.resetCommitted()
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) resetCommitted() {
	s.nodes = btree.NewBTreeG[nodeEntry](func(a, b nodeEntry) bool { return a.seq < b.seq })
	s.edges = btree.NewBTreeG[edgeEntry](func(a, b edgeEntry) bool { return a.seq < b.seq })
	s.handles = make(map[store.NodeHandle]uint64)
}

// record journals c and runs the failure hook. Callers hold s.mu.
func (s *Store) record(c Call) error {
	if s.closed {
		return store.ErrClosed
	}
	s.journal = append(s.journal, c)
	if s.failure != nil {
		if err := s.failure(c); err != nil {
			return fmt.Errorf("%w: %s: %w", store.ErrStorageFailed, c.Op, err)
		}
	}
	return nil
}

// AddNode stages a node and returns its handle.
func (s *Store) AddNode(ctx context.Context, label string, properties map[string]any) (store.NodeHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", store.ErrClosed
	}

	handle := store.NodeHandle(uuid.Must(uuid.NewV7()).String())
	node := store.Node{Handle: handle, Label: label, Properties: store.CopyProperties(properties)}
	if err := node.Validate(); err != nil {
		return "", fmt.Errorf("%w: %w", store.ErrStorageFailed, err)
	}

	if err := s.record(Call{Op: OpAddNode, Handle: handle, Label: label, Properties: node.Properties}); err != nil {
		return "", err
	}
	if err := s.staged.AddNode(node); err != nil {
		return "", fmt.Errorf("%w: %w", store.ErrStorageFailed, err)
	}
	return handle, nil
}

// AddEdge stages an edge between two staged or committed nodes.
func (s *Store) AddEdge(ctx context.Context, from store.NodeHandle, name string, to store.NodeHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return store.ErrClosed
	}

	committed := func(h store.NodeHandle) bool {
		if s.pendingDelete {
			return false
		}
		_, ok := s.handles[h]
		return ok
	}
	edge := store.Edge{From: from, Name: name, To: to}
	if err := s.staged.CheckEdge(edge, committed); err != nil {
		return fmt.Errorf("%w: %w", store.ErrStorageFailed, err)
	}

	if err := s.record(Call{Op: OpAddEdge, From: from, Name: name, To: to}); err != nil {
		return err
	}
	if err := s.staged.AddEdge(edge, committed); err != nil {
		return fmt.Errorf("%w: %w", store.ErrStorageFailed, err)
	}
	return nil
}

// Commit applies a pending Delete and then every staged mutation.
func (s *Store) Commit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.record(Call{Op: OpCommit}); err != nil {
		return err
	}

	if s.pendingDelete {
		s.resetCommitted()
		s.pendingDelete = false
	}

	nodes, edges := s.staged.Snapshot()
	for _, n := range nodes {
		s.seq++
		s.nodes.Set(nodeEntry{seq: s.seq, node: n})
		s.handles[n.Handle] = s.seq
	}
	for _, e := range edges {
		s.seq++
		s.edges.Set(edgeEntry{seq: s.seq, edge: e})
	}
	s.staged.Reset()

	s.logger.Debug("memory store committed",
		"nodes", len(nodes),
		"edges", len(edges),
	)
	return nil
}

// Delete drops everything staged and removes the committed graph on the
// next Commit.
func (s *Store) Delete(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.record(Call{Op: OpDelete}); err != nil {
		return err
	}
	s.staged.Reset()
	s.pendingDelete = true
	return nil
}

// Query answers the inspection queries described by store.ListQuery. Any
// other query fails with store.ErrUnsupported.
func (s *Store) Query(ctx context.Context, q string, params map[string]any) (*store.QueryResult, error) {
	s.mu.Lock()
	err := s.record(Call{Op: OpQuery, Query: q})
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	lq, ok := store.ParseListQuery(q)
	if !ok {
		return nil, fmt.Errorf("%w: query %q", store.ErrUnsupported, q)
	}
	return lq.Run(s.Nodes(), s.Edges()), nil
}

// Ping fails once the store is closed.
func (s *Store) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return store.ErrClosed
	}
	return nil
}

// Close marks the store closed. Later calls fail with store.ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Nodes returns the committed nodes in creation order.
func (s *Store) Nodes() []store.Node {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]store.Node, 0, s.nodes.Len())
	s.nodes.Scan(func(e nodeEntry) bool {
		out = append(out, e.node)
		return true
	})
	return out
}

// Edges returns the committed edges in creation order.
func (s *Store) Edges() []store.Edge {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]store.Edge, 0, s.edges.Len())
	s.edges.Scan(func(e edgeEntry) bool {
		out = append(out, e.edge)
		return true
	})
	return out
}

// Node returns the committed node with handle h.
func (s *Store) Node(h store.NodeHandle) (store.Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq, ok := s.handles[h]
	if !ok {
		return store.Node{}, false
	}
	e, ok := s.nodes.Get(nodeEntry{seq: seq})
	return e.node, ok
}

// Pending returns the number of staged mutations.
func (s *Store) Pending() int {
	return s.staged.Len()
}

// Journal returns a copy of every call made so far, in order.
func (s *Store) Journal() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Call, len(s.journal))
	copy(out, s.journal)
	return out
}

// Ops returns the journaled operations in order, filtered to ops when given.
func (s *Store) Ops(ops ...Op) []Op {
	want := make(map[Op]bool, len(ops))
	for _, op := range ops {
		want[op] = true
	}

	var out []Op
	for _, c := range s.Journal() {
		if len(want) == 0 || want[c.Op] {
			out = append(out, c.Op)
		}
	}
	return out
}

var (
	_ store.GraphStore = (*Store)(nil)
	_ store.Deleter    = (*Store)(nil)
	_ store.Querier    = (*Store)(nil)
	_ store.Pinger     = (*Store)(nil)
)
