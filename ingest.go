package docgraph

import (
	"context"
	"errors"
	"time"

	"github.com/zero-day-ai/docgraph/decompose"
	"github.com/zero-day-ai/docgraph/document"
	"github.com/zero-day-ai/docgraph/persist"
	"github.com/zero-day-ai/docgraph/store"
)

// Report summarizes one ingested document.
type Report struct {
	// RootLabel is the label of the root vertex.
	RootLabel string `json:"root_label"`

	// RootIdentity is the fingerprint of the root vertex.
	RootIdentity string `json:"root_identity"`

	// RootHandle is the store handle of the root node. It is empty when the
	// filter rejected the root.
	RootHandle store.NodeHandle `json:"root_handle,omitempty"`

	// Nodes and Edges count the mutations issued for this document.
	Nodes int `json:"nodes"`
	Edges int `json:"edges"`

	// Reused counts vertices resolved to existing nodes by dedup.
	Reused int `json:"reused,omitempty"`

	// Pruned counts vertices rejected by the filter.
	Pruned int `json:"pruned,omitempty"`

	// Committed reports whether the store was committed.
	Committed bool `json:"committed"`

	// Duration is the wall time of decomposition, persistence and commit.
	Duration time.Duration `json:"duration"`
}

// Ingester runs the decompose, persist and commit pipeline against one
// store. Dedup state is shared by every document it ingests.
//
// Thread-safety: Ingest is safe for concurrent use, but the counts in
// concurrent reports may overlap. Use one Ingester per goroutine when exact
// per-document counts matter.
type Ingester struct {
	store      store.GraphStore
	decomposer *decompose.Decomposer
	persister  *persist.Persister
	cfg        *ingestConfig
}

// NewIngester creates an Ingester writing to s.
func NewIngester(s store.GraphStore, opts ...Option) (*Ingester, error) {
	if s == nil {
		return nil, NewValidationError("NewIngester", persist.ErrNilStore)
	}

	cfg := defaultIngestConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	var dopts []decompose.Option
	if cfg.fingerprint != nil {
		dopts = append(dopts, decompose.WithFingerprint(cfg.fingerprint))
	}
	dopts = append(dopts, decompose.WithStrictLists(cfg.strictLists))

	popts := []persist.Option{
		persist.WithLogger(cfg.logger),
		persist.WithTracer(cfg.tracer),
		persist.WithMeter(cfg.meter),
		persist.WithDedup(cfg.dedup),
		persist.WithIdentityProperty(cfg.identityProperty),
		persist.WithFilter(cfg.filter),
	}
	for _, o := range cfg.observers {
		popts = append(popts, persist.WithObserver(o))
	}

	p, err := persist.New(s, popts...)
	if err != nil {
		return nil, NewConfigurationError("NewIngester", err)
	}

	return &Ingester{
		store:      s,
		decomposer: decompose.New(dopts...),
		persister:  p,
		cfg:        cfg,
	}, nil
}

// Ingest decomposes doc under label, persists the tree and commits the
// store unless WithCommit(false) was given. A store failure aborts the walk;
// mutations already issued are neither committed nor rolled back.
func (i *Ingester) Ingest(ctx context.Context, doc document.Value, label string) (*Report, error) {
	start := time.Now()

	if label == "" {
		return nil, NewValidationError("Ingest", errors.New("root label cannot be empty"))
	}

	root, err := i.decomposer.DecomposeVertex(doc, label)
	if err != nil {
		if errors.Is(err, decompose.ErrNotAMapping) {
			return nil, NewValidationError("Ingest.Decompose", err)
		}
		return nil, NewDecomposeError("Ingest.Decompose", err)
	}

	before := i.persister.Stats()
	handle, err := i.persister.Persist(ctx, root)
	delta := i.persister.Stats().Sub(before)

	report := &Report{
		RootLabel:    root.Label,
		RootIdentity: root.Identity,
		RootHandle:   handle,
		Nodes:        delta.Nodes,
		Edges:        delta.Edges,
		Reused:       delta.Reused,
		Pruned:       delta.Pruned,
	}

	if err != nil {
		report.Duration = time.Since(start)
		op := "Ingest.Persist"
		if errors.Is(err, persist.ErrFilterFailed) {
			return report, NewValidationError(op, err)
		}
		return report, NewStorageError(op, err).WithContext(map[string]any{
			"label": label,
			"nodes": delta.Nodes,
			"edges": delta.Edges,
		})
	}

	if i.cfg.commit {
		if err := i.store.Commit(ctx); err != nil {
			report.Duration = time.Since(start)
			return report, NewStorageError("Ingest.Commit", err)
		}
		report.Committed = true
	}

	report.Duration = time.Since(start)

	i.cfg.logger.Info("document ingested",
		"label", label,
		"identity", root.Identity,
		"nodes", report.Nodes,
		"edges", report.Edges,
		"committed", report.Committed,
		"duration", report.Duration,
	)
	return report, nil
}

// Stats returns totals over every document ingested so far.
func (i *Ingester) Stats() persist.Stats {
	return i.persister.Stats()
}

// Ingest is a one-shot NewIngester followed by Ingest.
//
// Example:
//
//	doc, _ := document.DecodeJSON([]byte(`{"name":"Ada","friends":[{"name":"Alan"}]}`))
//	report, err := docgraph.Ingest(ctx, memory.New(), doc, "person")
func Ingest(ctx context.Context, s store.GraphStore, doc document.Value, label string, opts ...Option) (*Report, error) {
	ing, err := NewIngester(s, opts...)
	if err != nil {
		return nil, err
	}
	return ing.Ingest(ctx, doc, label)
}
