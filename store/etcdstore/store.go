// Package etcdstore implements store.GraphStore on etcd.
//
// Nodes and edges are JSON values under a per-graph key prefix:
//
//	/<namespace>/<graph>/n/<handle>
//	/<namespace>/<graph>/e/<edge id>
//
// Handles and edge ids are UUIDv7 strings, so reading a prefix in key order
// yields creation order. Commit writes staged keys in transactions of at
// most MaxTxnOps operations; a commit larger than that is not atomic.
package etcdstore

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/zero-day-ai/docgraph/store"
)

// MaxTxnOps is the number of operations sent in one etcd transaction. It
// matches the etcd server default for --max-txn-ops.
const MaxTxnOps = 128

// Config configures the etcd connection.
type Config struct {
	// Endpoints lists the etcd cluster members.
	Endpoints []string

	// Namespace is the first key segment. Defaults to "docgraph".
	Namespace string

	// Graph is the second key segment. Defaults to "docgraph".
	Graph string

	// DialTimeout bounds connection setup. Defaults to 5s.
	DialTimeout time.Duration

	// Username and Password enable etcd authentication when set.
	Username string
	Password string

	// TLS enables client TLS when set.
	TLS *tls.Config

	// Logger receives debug output. Defaults to slog.Default().
	Logger *slog.Logger
}

// Store is an etcd-backed GraphStore.
//
// Thread-safety: All methods are safe for concurrent use.
type Store struct {
	client *clientv3.Client
	prefix string
	logger *slog.Logger

	mu            sync.Mutex
	staged        store.Batch
	edgeIDs       []string
	pendingDelete bool
	closed        bool
}

// New connects to etcd and verifies connectivity with a read.
func New(cfg Config) (*Store, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, fmt.Errorf("etcd endpoints cannot be empty")
	}

	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}

	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: dialTimeout,
		Username:    cfg.Username,
		Password:    cfg.Password,
		TLS:         cfg.TLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create etcd client: %w", err)
	}

	// Verify connectivity with a quick health check
	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	if _, err := cli.Get(ctx, "health-check"); err != nil {
		cli.Close()
		return nil, fmt.Errorf("etcd health check failed: %w", err)
	}

	return NewFromClient(cli, cfg.Namespace, cfg.Graph, cfg.Logger), nil
}

// NewFromClient wraps an existing client. The Store closes cli on Close.
func NewFromClient(cli *clientv3.Client, namespace, graph string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		client: cli,
		prefix: graphPrefix(namespace, graph),
		logger: logger,
	}
}

func graphPrefix(namespace, graph string) string {
	if namespace == "" {
		namespace = "docgraph"
	}
	if graph == "" {
		graph = "docgraph"
	}
	return "/" + strings.Trim(namespace, "/") + "/" + strings.Trim(graph, "/") + "/"
}

// Prefix returns the key prefix holding the graph.
func (s *Store) Prefix() string { return s.prefix }

func (s *Store) nodeKey(h store.NodeHandle) string { return s.prefix + "n/" + string(h) }

func (s *Store) edgeKey(id string) string { return s.prefix + "e/" + id }

func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// AddNode stages a node.
func (s *Store) AddNode(ctx context.Context, label string, properties map[string]any) (store.NodeHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", store.ErrClosed
	}

	handle := store.NodeHandle(newID())
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

	var lookupErr error
	committed := func(h store.NodeHandle) bool {
		if s.pendingDelete {
			return false
		}
		resp, err := s.client.Get(ctx, s.nodeKey(h), clientv3.WithCountOnly())
		if err != nil {
			lookupErr = err
			return false
		}
		return resp.Count > 0
	}

	if err := s.staged.AddEdge(store.Edge{From: from, Name: name, To: to}, committed); err != nil {
		if lookupErr != nil {
			return fmt.Errorf("%w: look up node: %w", store.ErrStorageFailed, lookupErr)
		}
		return err
	}
	s.edgeIDs = append(s.edgeIDs, newID())
	return nil
}

// buildOps renders staged mutations as etcd puts. Callers hold s.mu.
func (s *Store) buildOps(nodes []store.Node, edges []store.Edge) ([]clientv3.Op, error) {
	ops := make([]clientv3.Op, 0, len(nodes)+len(edges))
	for _, n := range nodes {
		data, err := json.Marshal(n)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal node: %w", err)
		}
		ops = append(ops, clientv3.OpPut(s.nodeKey(n.Handle), string(data)))
	}
	for i, e := range edges {
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal edge: %w", err)
		}
		ops = append(ops, clientv3.OpPut(s.edgeKey(s.edgeIDs[i]), string(data)))
	}
	return ops, nil
}

// chunkOps splits ops into slices of at most size operations.
func chunkOps(ops []clientv3.Op, size int) [][]clientv3.Op {
	var out [][]clientv3.Op
	for len(ops) > 0 {
		n := size
		if len(ops) < n {
			n = len(ops)
		}
		out = append(out, ops[:n])
		ops = ops[n:]
	}
	return out
}

// Commit applies a pending Delete and then writes every staged key.
func (s *Store) Commit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return store.ErrClosed
	}

	if s.pendingDelete {
		if _, err := s.client.Delete(ctx, s.prefix, clientv3.WithPrefix()); err != nil {
			return fmt.Errorf("%w: delete %s: %w", store.ErrStorageFailed, s.prefix, err)
		}
		s.pendingDelete = false
	}

	nodes, edges := s.staged.Snapshot()
	ops, err := s.buildOps(nodes, edges)
	if err != nil {
		return fmt.Errorf("%w: %w", store.ErrStorageFailed, err)
	}

	for i, chunk := range chunkOps(ops, MaxTxnOps) {
		if _, err := s.client.Txn(ctx).Then(chunk...).Commit(); err != nil {
			return fmt.Errorf("%w: commit %s (transaction %d): %w", store.ErrStorageFailed, s.prefix, i+1, err)
		}
	}

	s.staged.Reset()
	s.edgeIDs = nil

	s.logger.Debug("etcd commit",
		"prefix", s.prefix,
		"nodes", len(nodes),
		"edges", len(edges),
	)
	return nil
}

// Delete drops staged mutations and removes the graph prefix on the next
// Commit.
func (s *Store) Delete(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return store.ErrClosed
	}
	s.staged.Reset()
	s.edgeIDs = nil
	s.pendingDelete = true
	return nil
}

func (s *Store) list(ctx context.Context, kind string) ([][]byte, error) {
	resp, err := s.client.Get(ctx, s.prefix+kind,
		clientv3.WithPrefix(),
		clientv3.WithSort(clientv3.SortByKey, clientv3.SortAscend),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", store.ErrStorageFailed, s.prefix, err)
	}
	out := make([][]byte, len(resp.Kvs))
	for i, kv := range resp.Kvs {
		out[i] = kv.Value
	}
	return out, nil
}

// Nodes reads the committed nodes in creation order.
func (s *Store) Nodes(ctx context.Context) ([]store.Node, error) {
	values, err := s.list(ctx, "n/")
	if err != nil {
		return nil, err
	}
	out := make([]store.Node, 0, len(values))
	for _, v := range values {
		n, err := store.DecodeNode(v)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// Edges reads the committed edges in creation order.
func (s *Store) Edges(ctx context.Context) ([]store.Edge, error) {
	values, err := s.list(ctx, "e/")
	if err != nil {
		return nil, err
	}
	out := make([]store.Edge, 0, len(values))
	for _, v := range values {
		var e store.Edge
		if err := json.Unmarshal(v, &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal edge: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}

// Query answers the inspection queries described by store.ListQuery.
func (s *Store) Query(ctx context.Context, q string, params map[string]any) (*store.QueryResult, error) {
	lq, ok := store.ParseListQuery(q)
	if !ok {
		return nil, fmt.Errorf("%w: query %q", store.ErrUnsupported, q)
	}

	nodes, err := s.Nodes(ctx)
	if err != nil {
		return nil, err
	}
	var edges []store.Edge
	if lq.Edges {
		if edges, err = s.Edges(ctx); err != nil {
			return nil, err
		}
	}
	return lq.Run(nodes, edges), nil
}

// Ping asks the first endpoint for its status.
func (s *Store) Ping(ctx context.Context) error {
	endpoints := s.client.Endpoints()
	if len(endpoints) == 0 {
		return fmt.Errorf("%w: no etcd endpoints", store.ErrStorageFailed)
	}
	if _, err := s.client.Status(ctx, endpoints[0]); err != nil {
		return fmt.Errorf("%w: status %s: %w", store.ErrStorageFailed, endpoints[0], err)
	}
	return nil
}

// Close closes the etcd client.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.client.Close()
}

var (
	_ store.GraphStore = (*Store)(nil)
	_ store.Deleter    = (*Store)(nil)
	_ store.Querier    = (*Store)(nil)
	_ store.Pinger     = (*Store)(nil)
)
