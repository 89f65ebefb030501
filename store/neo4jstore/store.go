// Package neo4jstore implements store.GraphStore on Neo4j.
//
// Every node carries two bookkeeping properties, HandleProperty and
// GraphProperty, so that edges can be matched to nodes created by earlier
// commits and Delete can drop one graph without touching the rest of the
// database. Query strips them from returned nodes.
//
// Neo4j only stores homogeneous lists, so a list property mixing value types
// fails at Commit.
package neo4jstore

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/config"

	"github.com/zero-day-ai/docgraph/store"
	"github.com/zero-day-ai/docgraph/store/cypher"
)

const (
	// HandleProperty holds the node's store handle.
	HandleProperty = "_docgraph_handle"

	// GraphProperty holds the graph name the node belongs to.
	GraphProperty = "_docgraph_graph"
)

// Config configures the Neo4j connection.
type Config struct {
	// URI is the Bolt or Neo4j URI (e.g., "neo4j://localhost:7687").
	URI string

	// Username and Password are used for basic auth when Username is set.
	Username string
	Password string

	// Database selects the target database. Empty uses the server default.
	Database string

	// Graph scopes nodes written by this store. Defaults to "docgraph".
	Graph string

	// TLS overrides the driver's TLS configuration for encrypted URIs.
	TLS *tls.Config

	// Logger receives debug output. Defaults to slog.Default().
	Logger *slog.Logger
}

// Validate checks required fields.
func (c Config) Validate() error {
	if c.URI == "" {
		return fmt.Errorf("neo4j URI cannot be empty")
	}
	if c.Password != "" && c.Username == "" {
		return fmt.Errorf("neo4j password set without username")
	}
	return nil
}

// Store is a Neo4j-backed GraphStore.
type Store struct {
	driver   neo4j.DriverWithContext
	database string
	graph    string
	logger   *slog.Logger

	mu            sync.Mutex
	staged        store.Batch
	known         map[store.NodeHandle]bool
	pendingDelete bool
	closed        bool
}

// New creates a driver and verifies connectivity.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	auth := neo4j.NoAuth()
	if cfg.Username != "" {
		auth = neo4j.BasicAuth(cfg.Username, cfg.Password, "")
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URI, auth, func(c *config.Config) {
		if cfg.TLS != nil {
			c.TlsConfig = cfg.TLS
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("failed to connect to neo4j: %w", err)
	}

	return NewFromDriver(driver, cfg.Database, cfg.Graph, cfg.Logger), nil
}

// NewFromDriver wraps an existing driver. The Store closes it on Close.
func NewFromDriver(driver neo4j.DriverWithContext, database, graph string, logger *slog.Logger) *Store {
	if graph == "" {
		graph = "docgraph"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		driver:   driver,
		database: database,
		graph:    graph,
		logger:   logger,
		known:    make(map[store.NodeHandle]bool),
	}
}

// Graph returns the graph name written to GraphProperty.
func (s *Store) Graph() string { return s.graph }

// AddNode stages a node.
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

// AddEdge stages an edge. Endpoints may be staged or committed by this Store.
func (s *Store) AddEdge(ctx context.Context, from store.NodeHandle, name string, to store.NodeHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return store.ErrClosed
	}
	if name == "" {
		return fmt.Errorf("%w: cypher cannot create an edge with an empty name", store.ErrInvalidLabel)
	}
	return s.staged.AddEdge(store.Edge{From: from, Name: name, To: to}, func(h store.NodeHandle) bool {
		return !s.pendingDelete && s.known[h]
	})
}

type statement struct {
	query  string
	params map[string]any
}

// deleteStatement removes every node of graph with its relationships.
func deleteStatement(graph string) statement {
	return statement{
		query:  fmt.Sprintf("MATCH (n {%s: $graph}) DETACH DELETE n", GraphProperty),
		params: map[string]any{"graph": graph},
	}
}

// nodeStatement creates n with its properties and bookkeeping fields.
func nodeStatement(graph string, n store.Node) statement {
	props := store.CopyProperties(n.Properties)
	if props == nil {
		props = make(map[string]any, 2)
	}
	props[HandleProperty] = string(n.Handle)
	props[GraphProperty] = graph

	return statement{
		query:  fmt.Sprintf("CREATE (n:%s) SET n = $props", cypher.QuoteIdentifier(n.Label)),
		params: map[string]any{"props": props},
	}
}

// edgeStatement connects two nodes of graph by handle.
func edgeStatement(graph string, e store.Edge) statement {
	return statement{
		query: fmt.Sprintf(
			"MATCH (a {%[1]s: $graph, %[2]s: $from}), (b {%[1]s: $graph, %[2]s: $to}) CREATE (a)-[:%[3]s]->(b)",
			GraphProperty, HandleProperty, cypher.QuoteIdentifier(e.Name),
		),
		params: map[string]any{"graph": graph, "from": string(e.From), "to": string(e.To)},
	}
}

func (s *Store) statements(nodes []store.Node, edges []store.Edge) []statement {
	out := make([]statement, 0, len(nodes)+len(edges)+1)
	if s.pendingDelete {
		out = append(out, deleteStatement(s.graph))
	}
	for _, n := range nodes {
		out = append(out, nodeStatement(s.graph, n))
	}
	for _, e := range edges {
		out = append(out, edgeStatement(s.graph, e))
	}
	return out
}

// Commit runs a pending Delete and every staged mutation in one write
// transaction.
func (s *Store) Commit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return store.ErrClosed
	}

	nodes, edges := s.staged.Snapshot()
	stmts := s.statements(nodes, edges)
	if len(stmts) == 0 {
		return nil
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: s.database,
	})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, st := range stmts {
			res, err := tx.Run(ctx, st.query, st.params)
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("%w: commit graph %s: %w", store.ErrStorageFailed, s.graph, err)
	}

	if s.pendingDelete {
		s.known = make(map[store.NodeHandle]bool)
		s.pendingDelete = false
	}
	for _, n := range nodes {
		s.known[n.Handle] = true
	}
	s.staged.Reset()

	s.logger.Debug("neo4j commit",
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
	s.pendingDelete = true
	return nil
}

// Query runs q as a read query. Nodes and relationships in the result are
// converted to store.Node and store.Edge.
func (s *Store) Query(ctx context.Context, q string, params map[string]any) (*store.QueryResult, error) {
	result, err := neo4j.ExecuteQuery(ctx, s.driver, q, params,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(s.database),
		neo4j.ExecuteQueryWithReadersRouting(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %w", store.ErrStorageFailed, err)
	}

	rows := make([][]any, len(result.Records))
	for i, rec := range result.Records {
		rows[i] = rec.Values
	}
	res := convertRows(result.Keys, rows)

	if result.Summary != nil {
		c := result.Summary.Counters()
		res.Stats = append(res.Stats,
			fmt.Sprintf("Nodes created: %d", c.NodesCreated()),
			fmt.Sprintf("Relationships created: %d", c.RelationshipsCreated()),
		)
	}
	return res, nil
}

// convertRows maps driver values onto store types. Relationship endpoints
// are resolved to handles through the nodes present in the same result.
func convertRows(keys []string, rows [][]any) *store.QueryResult {
	handles := make(map[string]store.NodeHandle)
	for _, row := range rows {
		for _, v := range row {
			if n, ok := v.(neo4j.Node); ok {
				if h, ok := n.Props[HandleProperty].(string); ok {
					handles[n.ElementId] = store.NodeHandle(h)
				}
			}
		}
	}

	resolve := func(elementID string) store.NodeHandle {
		if h, ok := handles[elementID]; ok {
			return h
		}
		return store.NodeHandle(elementID)
	}

	res := &store.QueryResult{Columns: keys}
	for _, row := range rows {
		out := make([]any, len(row))
		for i, v := range row {
			switch x := v.(type) {
			case neo4j.Node:
				out[i] = toNode(x)
			case neo4j.Relationship:
				out[i] = store.Edge{From: resolve(x.StartElementId), Name: x.Type, To: resolve(x.EndElementId)}
			default:
				out[i] = v
			}
		}
		res.Rows = append(res.Rows, out)
	}
	return res
}

func toNode(n neo4j.Node) store.Node {
	out := store.Node{Handle: store.NodeHandle(n.ElementId)}
	if len(n.Labels) > 0 {
		out.Label = n.Labels[0]
	}
	props := make(map[string]any, len(n.Props))
	for k, v := range n.Props {
		switch k {
		case HandleProperty:
			if h, ok := v.(string); ok {
				out.Handle = store.NodeHandle(h)
			}
		case GraphProperty:
		default:
			props[k] = v
		}
	}
	if len(props) > 0 {
		out.Properties = props
	}
	return out
}

// Ping verifies connectivity to the server.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.driver.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("%w: %w", store.ErrStorageFailed, err)
	}
	return nil
}

// Close closes the driver.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.driver.Close(context.Background())
}

var (
	_ store.GraphStore = (*Store)(nil)
	_ store.Deleter    = (*Store)(nil)
	_ store.Querier    = (*Store)(nil)
	_ store.Pinger     = (*Store)(nil)
)
