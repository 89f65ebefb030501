package persist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/zero-day-ai/docgraph/decompose"
	"github.com/zero-day-ai/docgraph/store"
)

// ErrNilStore is returned by New when no store is given.
var ErrNilStore = errors.New("graph store is nil")

// Stats counts what a Persister did since creation or the last Reset.
type Stats struct {
	// Nodes is the number of AddNode calls.
	Nodes int `json:"nodes"`

	// Edges is the number of AddEdge calls.
	Edges int `json:"edges"`

	// Reused is the number of vertices resolved to an existing node by dedup.
	Reused int `json:"reused"`

	// Pruned is the number of vertices rejected by the filter. Their
	// descendants are not counted.
	Pruned int `json:"pruned"`

	// Skipped is the number of scalar passthroughs found among edge targets.
	Skipped int `json:"skipped"`
}

// Sub returns s minus o field by field.
func (s Stats) Sub(o Stats) Stats {
	return Stats{
		Nodes:   s.Nodes - o.Nodes,
		Edges:   s.Edges - o.Edges,
		Reused:  s.Reused - o.Reused,
		Pruned:  s.Pruned - o.Pruned,
		Skipped: s.Skipped - o.Skipped,
	}
}

type identityKey struct {
	label    string
	identity string
}

// Persister writes VertexNode trees to a GraphStore in depth-first pre-order:
// a child's node is created, then the edge from its parent, then the child's
// own subtree, before the next sibling is visited.
//
// A store error aborts the walk at once. Mutations already issued are left
// in place; rolling them back is up to the store or the caller, as is
// calling Commit.
//
// A Persister may be reused for many trees. Calls are serialized.
type Persister struct {
	store            store.GraphStore
	logger           *slog.Logger
	tracer           trace.Tracer
	metrics          *persistMetrics
	observers        []Observer
	dedup            bool
	identityProperty string
	filter           *Filter

	mu    sync.Mutex
	seen  map[identityKey]store.NodeHandle
	stats Stats
}

// New creates a Persister writing to s.
func New(s store.GraphStore, opts ...Option) (*Persister, error) {
	if s == nil {
		return nil, ErrNilStore
	}

	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.tracer == nil {
		cfg.tracer = tracenoop.NewTracerProvider().Tracer("docgraph")
	}
	if cfg.meter == nil {
		cfg.meter = metricnoop.NewMeterProvider().Meter("docgraph")
	}

	metrics, err := newPersistMetrics(cfg.meter)
	if err != nil {
		return nil, err
	}

	p := &Persister{
		store:            s,
		logger:           cfg.logger,
		tracer:           cfg.tracer,
		metrics:          metrics,
		observers:        cfg.observers,
		dedup:            cfg.dedup,
		identityProperty: cfg.identityProperty,
		seen:             make(map[identityKey]store.NodeHandle),
	}

	if cfg.filter != "" {
		p.filter, err = CompileFilter(cfg.filter)
		if err != nil {
			return nil, err
		}
	}

	return p, nil
}

// Persist creates node as a new root and persists its whole tree. A root
// rejected by the filter persists nothing and returns "" without error.
func (p *Persister) Persist(ctx context.Context, node *decompose.VertexNode) (store.NodeHandle, error) {
	if node == nil {
		return "", fmt.Errorf("cannot persist nil vertex")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ctx, span := p.startSpan(ctx, node.Label)
	before, start := p.stats, time.Now()

	handle, err := p.persistRoot(ctx, node)
	p.finishSpan(ctx, span, node.Label, before, start, err)
	return handle, err
}

func (p *Persister) persistRoot(ctx context.Context, node *decompose.VertexNode) (store.NodeHandle, error) {
	allowed, err := p.allow(ctx, node)
	if err != nil {
		return "", err
	}
	if !allowed {
		return "", nil
	}

	if h, ok := p.lookup(node); ok {
		p.reused(ctx, h, node)
		return h, nil
	}

	h, err := p.persistVertex(ctx, node)
	if err != nil {
		return "", err
	}
	if err := p.persistChildren(ctx, h, node); err != nil {
		return h, err
	}
	return h, nil
}

// PersistWith persists the subtree of node under handle, which the caller
// already created for node. No AddNode is issued for node itself and the
// filter is not applied to it.
func (p *Persister) PersistWith(ctx context.Context, node *decompose.VertexNode, handle store.NodeHandle) error {
	if node == nil {
		return fmt.Errorf("cannot persist nil vertex")
	}
	if handle == "" {
		return fmt.Errorf("cannot persist %q vertex with empty handle", node.Label)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ctx, span := p.startSpan(ctx, node.Label)
	before, start := p.stats, time.Now()

	if p.dedup {
		p.seen[identityKey{node.Label, node.Identity}] = handle
	}
	err := p.persistChildren(ctx, handle, node)
	p.finishSpan(ctx, span, node.Label, before, start, err)
	return err
}

// PersistVertex creates exactly one node for node and returns its handle.
// Children are not visited.
func (p *Persister) PersistVertex(ctx context.Context, node *decompose.VertexNode) (store.NodeHandle, error) {
	if node == nil {
		return "", fmt.Errorf("cannot persist nil vertex")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.persistVertex(ctx, node)
}

// PersistEdgeGroup persists every target of group and connects each to
// from, in group order and then list order. An empty group does nothing.
func (p *Persister) PersistEdgeGroup(ctx context.Context, from store.NodeHandle, group decompose.EdgeGroup) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.persistEdgeGroup(ctx, from, group)
}

// Stats returns the counters accumulated so far.
func (p *Persister) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Reset clears the counters and forgets the vertices remembered for dedup.
func (p *Persister) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats = Stats{}
	p.seen = make(map[identityKey]store.NodeHandle)
}

func (p *Persister) persistVertex(ctx context.Context, node *decompose.VertexNode) (store.NodeHandle, error) {
	props := node.Properties
	if p.identityProperty != "" {
		props = make(map[string]any, len(node.Properties)+1)
		for k, v := range node.Properties {
			props[k] = v
		}
		props[p.identityProperty] = node.Identity
	}

	h, err := p.store.AddNode(ctx, node.Label, props)
	if err != nil {
		return "", storageError(err, "add %q node", node.Label)
	}

	p.stats.Nodes++
	if p.dedup {
		p.seen[identityKey{node.Label, node.Identity}] = h
	}

	p.metrics.nodesCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("label", node.Label)))
	p.logger.Debug("created node",
		"handle", h,
		"label", node.Label,
		"identity", node.Identity,
		"properties", len(props),
	)

	event := NodeEvent{Handle: h, Label: node.Label, Identity: node.Identity, Properties: props}
	for _, o := range p.observers {
		o.NodeCreated(ctx, event)
	}
	return h, nil
}

func (p *Persister) persistChildren(ctx context.Context, h store.NodeHandle, node *decompose.VertexNode) error {
	for _, group := range node.Children {
		if err := p.persistEdgeGroup(ctx, h, group); err != nil {
			return err
		}
	}
	return nil
}

func (p *Persister) persistEdgeGroup(ctx context.Context, from store.NodeHandle, group decompose.EdgeGroup) error {
	var err error
	group.Range(func(name string, target decompose.Result) bool {
		err = p.persistTarget(ctx, from, name, target)
		return err == nil
	})
	return err
}

// persistTarget handles one edge group entry. Nested lists are walked in
// order; scalars carried through a mixed list have no node to point at and
// are skipped.
func (p *Persister) persistTarget(ctx context.Context, from store.NodeHandle, name string, target decompose.Result) error {
	switch target.Kind() {
	case decompose.ResultVertex:
		return p.persistChild(ctx, from, name, target.Vertex())

	case decompose.ResultList:
		for _, item := range target.List() {
			if err := p.persistTarget(ctx, from, name, item); err != nil {
				return err
			}
		}
		return nil

	default:
		p.stats.Skipped++
		p.logger.Debug("skipped scalar edge target",
			"from", from,
			"edge", name,
			"value", target.Scalar(),
		)
		return nil
	}
}

func (p *Persister) persistChild(ctx context.Context, from store.NodeHandle, name string, child *decompose.VertexNode) error {
	allowed, err := p.allow(ctx, child)
	if err != nil {
		return err
	}
	if !allowed {
		return nil
	}

	if h, ok := p.lookup(child); ok {
		p.reused(ctx, h, child)
		return p.addEdge(ctx, from, name, h)
	}

	h, err := p.persistVertex(ctx, child)
	if err != nil {
		return err
	}
	if err := p.addEdge(ctx, from, name, h); err != nil {
		return err
	}
	return p.persistChildren(ctx, h, child)
}

// storageError wraps a store error with the failing operation, adding
// store.ErrStorageFailed only when the backend has not already done so.
func storageError(err error, format string, args ...any) error {
	op := fmt.Sprintf(format, args...)
	if errors.Is(err, store.ErrStorageFailed) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %w", store.ErrStorageFailed, op, err)
}

func (p *Persister) addEdge(ctx context.Context, from store.NodeHandle, name string, to store.NodeHandle) error {
	if err := p.store.AddEdge(ctx, from, name, to); err != nil {
		return storageError(err, "add %q edge", name)
	}

	p.stats.Edges++
	p.metrics.edgesCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("edge", name)))
	p.logger.Debug("created edge",
		"from", from,
		"edge", name,
		"to", to,
	)

	event := EdgeEvent{From: from, Name: name, To: to}
	for _, o := range p.observers {
		o.EdgeCreated(ctx, event)
	}
	return nil
}

func (p *Persister) allow(ctx context.Context, node *decompose.VertexNode) (bool, error) {
	if p.filter == nil {
		return true, nil
	}

	ok, err := p.filter.Allow(ctx, node)
	if err != nil {
		return false, err
	}
	if !ok {
		p.stats.Pruned++
		p.logger.Debug("pruned vertex",
			"label", node.Label,
			"identity", node.Identity,
		)
	}
	return ok, nil
}

func (p *Persister) lookup(node *decompose.VertexNode) (store.NodeHandle, bool) {
	if !p.dedup {
		return "", false
	}
	h, ok := p.seen[identityKey{node.Label, node.Identity}]
	return h, ok
}

func (p *Persister) reused(ctx context.Context, h store.NodeHandle, node *decompose.VertexNode) {
	p.stats.Reused++
	p.logger.Debug("reused node",
		"handle", h,
		"label", node.Label,
		"identity", node.Identity,
	)

	event := NodeEvent{Handle: h, Label: node.Label, Identity: node.Identity, Properties: node.Properties, Reused: true}
	for _, o := range p.observers {
		o.NodeCreated(ctx, event)
	}
}
