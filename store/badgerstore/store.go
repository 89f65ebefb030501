// Package badgerstore implements store.GraphStore on an embedded Badger
// database.
//
// Every graph lives under its own key prefix:
//
//	g/<graph>/n/<handle>   JSON encoded store.Node
//	g/<graph>/e/<ordinal>  JSON encoded store.Edge
//
// Handles and edge ordinals come from one Badger sequence per graph and are
// zero padded, so iterating a prefix yields creation order.
package badgerstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/zero-day-ai/docgraph/store"
)

// Options configures a Store.
type Options struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps all data in memory. Used by tests and dry runs.
	InMemory bool

	// Graph namespaces the keys. Defaults to "docgraph".
	Graph string

	// SyncWrites makes each commit durable before it returns.
	SyncWrites bool

	// Logger receives debug output. Defaults to slog.Default().
	Logger *slog.Logger
}

// Store is a Badger-backed GraphStore.
type Store struct {
	db     *badger.DB
	seq    *badger.Sequence
	graph  string
	prefix []byte
	logger *slog.Logger
	ownsDB bool

	mu            sync.Mutex
	staged        store.Batch
	edgeOrdinals  []uint64
	pendingDelete bool
	closed        bool
}

// Open opens (or creates) the database described by opts.
func Open(opts Options) (*Store, error) {
	if !opts.InMemory && opts.Path == "" {
		return nil, fmt.Errorf("badger path is required unless in-memory")
	}

	bopts := badger.DefaultOptions(opts.Path)
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	}
	bopts.Logger = nil
	bopts.SyncWrites = opts.SyncWrites

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	s, err := NewFromDB(db, opts.Graph, opts.Logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.ownsDB = true
	return s, nil
}

// NewFromDB uses an already open database. The caller keeps ownership of db.
func NewFromDB(db *badger.DB, graph string, logger *slog.Logger) (*Store, error) {
	if graph == "" {
		graph = "docgraph"
	}
	if logger == nil {
		logger = slog.Default()
	}

	seq, err := db.GetSequence([]byte("seq/"+graph), 64)
	if err != nil {
		return nil, fmt.Errorf("failed to open handle sequence: %w", err)
	}

	return &Store{
		db:     db,
		seq:    seq,
		graph:  graph,
		prefix: []byte("g/" + graph + "/"),
		logger: logger,
	}, nil
}

func (s *Store) nodeKey(h store.NodeHandle) []byte {
	return append(append([]byte(nil), s.prefix...), "n/"+string(h)...)
}

func (s *Store) edgeKey(ordinal uint64) []byte {
	return append(append([]byte(nil), s.prefix...), fmt.Sprintf("e/%020d", ordinal)...)
}

func (s *Store) next() (uint64, error) {
	n, err := s.seq.Next()
	if err != nil {
		return 0, fmt.Errorf("%w: next sequence: %w", store.ErrStorageFailed, err)
	}
	return n, nil
}

// AddNode stages a node.
func (s *Store) AddNode(ctx context.Context, label string, properties map[string]any) (store.NodeHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", store.ErrClosed
	}

	n, err := s.next()
	if err != nil {
		return "", err
	}
	handle := store.NodeHandle(fmt.Sprintf("%020d", n))

	if err := s.staged.AddNode(store.Node{Handle: handle, Label: label, Properties: store.CopyProperties(properties)}); err != nil {
		return "", err
	}
	return handle, nil
}

// AddEdge stages an edge. Endpoints may be staged or already committed.
func (s *Store) AddEdge(ctx context.Context, from store.NodeHandle, name string, to store.NodeHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return store.ErrClosed
	}

	if err := s.staged.AddEdge(store.Edge{From: from, Name: name, To: to}, s.committed); err != nil {
		return err
	}

	n, err := s.next()
	if err != nil {
		return err
	}
	s.edgeOrdinals = append(s.edgeOrdinals, n)
	return nil
}

// committed reports whether h exists in the database. Callers hold s.mu.
func (s *Store) committed(h store.NodeHandle) bool {
	if s.pendingDelete {
		return false
	}
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(s.nodeKey(h))
		return err
	})
	return err == nil
}

// Commit applies a pending Delete and then writes every staged node and
// edge in one transaction.
func (s *Store) Commit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return store.ErrClosed
	}

	if s.pendingDelete {
		if err := s.db.DropPrefix(s.prefix); err != nil {
			return fmt.Errorf("%w: drop graph %s: %w", store.ErrStorageFailed, s.graph, err)
		}
		s.pendingDelete = false
	}

	nodes, edges := s.staged.Snapshot()
	if len(nodes)+len(edges) == 0 {
		return nil
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		for _, n := range nodes {
			data, err := json.Marshal(n)
			if err != nil {
				return fmt.Errorf("failed to marshal node: %w", err)
			}
			if err := txn.Set(s.nodeKey(n.Handle), data); err != nil {
				return err
			}
		}
		for i, e := range edges {
			data, err := json.Marshal(e)
			if err != nil {
				return fmt.Errorf("failed to marshal edge: %w", err)
			}
			if err := txn.Set(s.edgeKey(s.edgeOrdinals[i]), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, badger.ErrTxnTooBig) {
			return fmt.Errorf("%w: %d nodes and %d edges exceed one transaction: %w",
				store.ErrStorageFailed, len(nodes), len(edges), err)
		}
		return fmt.Errorf("%w: commit graph %s: %w", store.ErrStorageFailed, s.graph, err)
	}

	s.staged.Reset()
	s.edgeOrdinals = nil

	s.logger.Debug("badger commit",
		"graph", s.graph,
		"nodes", len(nodes),
		"edges", len(edges),
	)
	return nil
}

// Delete drops staged mutations and removes the graph on the next Commit.
func (s *Store) Delete(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return store.ErrClosed
	}
	s.staged.Reset()
	s.edgeOrdinals = nil
	s.pendingDelete = true
	return nil
}

// Nodes reads the committed nodes in creation order.
func (s *Store) Nodes() ([]store.Node, error) {
	var out []store.Node
	err := s.scan("n/", func(v []byte) error {
		n, err := store.DecodeNode(v)
		if err != nil {
			return err
		}
		out = append(out, n)
		return nil
	})
	return out, err
}

// Edges reads the committed edges in creation order.
func (s *Store) Edges() ([]store.Edge, error) {
	var out []store.Edge
	err := s.scan("e/", func(v []byte) error {
		var e store.Edge
		if err := json.Unmarshal(v, &e); err != nil {
			return err
		}
		out = append(out, e)
		return nil
	})
	return out, err
}

func (s *Store) scan(kind string, fn func(v []byte) error) error {
	prefix := append(append([]byte(nil), s.prefix...), kind...)

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := it.Item().Value(fn); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: read graph %s: %w", store.ErrStorageFailed, s.graph, err)
	}
	return nil
}

// Query answers the inspection queries described by store.ListQuery.
func (s *Store) Query(ctx context.Context, q string, params map[string]any) (*store.QueryResult, error) {
	lq, ok := store.ParseListQuery(q)
	if !ok {
		return nil, fmt.Errorf("%w: query %q", store.ErrUnsupported, q)
	}

	nodes, err := s.Nodes()
	if err != nil {
		return nil, err
	}
	var edges []store.Edge
	if lq.Edges {
		if edges, err = s.Edges(); err != nil {
			return nil, err
		}
	}
	return lq.Run(nodes, edges), nil
}

// Ping fails once the database is closed.
func (s *Store) Ping(ctx context.Context) error {
	if s.db.IsClosed() {
		return store.ErrClosed
	}
	return nil
}

// Close releases the sequence and, when the Store opened the database,
// closes it.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	err := s.seq.Release()
	if s.ownsDB {
		err = errors.Join(err, s.db.Close())
	}
	return err
}

var (
	_ store.GraphStore = (*Store)(nil)
	_ store.Deleter    = (*Store)(nil)
	_ store.Querier    = (*Store)(nil)
	_ store.Pinger     = (*Store)(nil)
)
