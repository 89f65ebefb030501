// Package redisgraph implements store.GraphStore on RedisGraph.
//
// Nodes and edges are buffered locally and sent on Commit as one
// GRAPH.QUERY carrying a single CREATE statement. Edges may only connect
// nodes staged since the last Commit, because RedisGraph assigns node ids on
// the server and the buffered aliases do not survive the query.
package redisgraph

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/zero-day-ai/docgraph/store"
	"github.com/zero-day-ai/docgraph/store/cypher"
)

// Options configures the RedisGraph connection.
type Options struct {
	// URL is the Redis connection string (e.g., "redis://localhost:6379")
	URL string

	// Graph is the RedisGraph key. Defaults to "docgraph".
	Graph string

	// TLS configuration for secure connections
	TLS *tls.Config

	// ConnectTimeout is the maximum time to wait for connection establishment
	ConnectTimeout time.Duration

	// ReadTimeout is the maximum time to wait for read operations
	ReadTimeout time.Duration

	// WriteTimeout is the maximum time to wait for write operations
	WriteTimeout time.Duration

	// Logger receives debug output. Defaults to slog.Default().
	Logger *slog.Logger
}

// Store is a RedisGraph-backed GraphStore.
type Store struct {
	client *redis.Client
	graph  string
	logger *slog.Logger

	mu     sync.Mutex
	staged store.Batch
	closed bool
}

// New connects to Redis and returns a Store for opts.Graph.
func New(opts Options) (*Store, error) {
	if opts.URL == "" {
		opts.URL = "redis://localhost:6379"
	}

	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}

	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 30 * time.Second
	}

	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 5 * time.Second
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	if opts.TLS != nil {
		redisOpts.TLSConfig = opts.TLS
	}
	redisOpts.DialTimeout = opts.ConnectTimeout
	redisOpts.ReadTimeout = opts.ReadTimeout
	redisOpts.WriteTimeout = opts.WriteTimeout

	client := redis.NewClient(redisOpts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewFromClient(client, opts.Graph, opts.Logger), nil
}

// NewFromClient wraps an existing client. The Store takes ownership of
// client and closes it on Close.
func NewFromClient(client *redis.Client, graph string, logger *slog.Logger) *Store {
	if graph == "" {
		graph = "docgraph"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		client: client,
		graph:  graph,
		logger: logger,
	}
}

// Graph returns the RedisGraph key.
func (s *Store) Graph() string { return s.graph }

// AddNode stages a node. Its handle is valid until the next Commit.
func (s *Store) AddNode(ctx context.Context, label string, properties map[string]any) (store.NodeHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", store.ErrClosed
	}
	if label == "" {
		return "", fmt.Errorf("%w: cypher cannot create a node with an empty label", store.ErrInvalidLabel)
	}

	handle := store.NodeHandle(uuid.NewString())
	if err := s.staged.AddNode(store.Node{Handle: handle, Label: label, Properties: store.CopyProperties(properties)}); err != nil {
		return "", err
	}
	return handle, nil
}

// AddEdge stages an edge between two nodes staged since the last Commit.
func (s *Store) AddEdge(ctx context.Context, from store.NodeHandle, name string, to store.NodeHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return store.ErrClosed
	}
	if name == "" {
		return fmt.Errorf("%w: cypher cannot create an edge with an empty name", store.ErrInvalidLabel)
	}
	return s.staged.AddEdge(store.Edge{From: from, Name: name, To: to}, nil)
}

// alias maps a handle to a Cypher identifier.
func alias(h store.NodeHandle) string {
	return "n" + strings.ReplaceAll(string(h), "-", "")
}

// CreateQuery renders the CREATE statement for everything staged. It
// returns "" when nothing is staged.
func (s *Store) CreateQuery() (string, error) {
	nodes, edges := s.staged.Snapshot()
	return buildCreate(nodes, edges)
}

func buildCreate(nodes []store.Node, edges []store.Edge) (string, error) {
	patterns := make([]string, 0, len(nodes)+len(edges))
	for _, n := range nodes {
		p, err := cypher.NodePattern(alias(n.Handle), n.Label, n.Properties)
		if err != nil {
			return "", fmt.Errorf("node %q: %w", n.Label, err)
		}
		patterns = append(patterns, p)
	}
	for _, e := range edges {
		patterns = append(patterns, cypher.EdgePattern(alias(e.From), e.Name, alias(e.To)))
	}
	return cypher.BuildCreate(patterns), nil
}

// Commit sends every staged node and edge in one CREATE query. Nothing is
// sent when nothing is staged. The buffer is cleared only on success.
func (s *Store) Commit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return store.ErrClosed
	}

	nodes, edges := s.staged.Snapshot()
	q, err := buildCreate(nodes, edges)
	if err != nil {
		return fmt.Errorf("%w: %w", store.ErrStorageFailed, err)
	}
	if q == "" {
		return nil
	}

	res, err := s.query(ctx, q)
	if err != nil {
		return fmt.Errorf("%w: commit to graph %s: %w", store.ErrStorageFailed, s.graph, err)
	}
	s.staged.Reset()

	s.logger.Debug("redisgraph commit",
		"graph", s.graph,
		"nodes", len(nodes),
		"edges", len(edges),
		"stats", res.Stats,
	)
	return nil
}

// Delete drops the whole graph key and any staged mutations.
func (s *Store) Delete(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return store.ErrClosed
	}

	s.staged.Reset()
	if err := s.client.Do(ctx, "GRAPH.DELETE", s.graph).Err(); err != nil {
		if isMissingGraph(err) {
			return nil
		}
		return fmt.Errorf("%w: delete graph %s: %w", store.ErrStorageFailed, s.graph, err)
	}
	return nil
}

func isMissingGraph(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "empty key") || strings.Contains(msg, "invalid graph operation on empty key")
}

// Query runs q against the graph. Params are sent in a CYPHER header.
func (s *Store) Query(ctx context.Context, q string, params map[string]any) (*store.QueryResult, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, store.ErrClosed
	}

	prefix, err := cypher.ParamsPrefix(params)
	if err != nil {
		return nil, err
	}

	res, err := s.query(ctx, prefix+q)
	if err != nil {
		return nil, fmt.Errorf("%w: query graph %s: %w", store.ErrStorageFailed, s.graph, err)
	}
	return res, nil
}

func (s *Store) query(ctx context.Context, q string) (*store.QueryResult, error) {
	s.logger.Debug("redisgraph query", "graph", s.graph, "query", q)

	reply, err := s.client.Do(ctx, "GRAPH.QUERY", s.graph, q).Slice()
	if err != nil {
		return nil, err
	}
	return parseReply(reply)
}

// Ping checks the Redis connection.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: ping: %w", store.ErrStorageFailed, err)
	}
	return nil
}

// Close closes the Redis connection.
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
