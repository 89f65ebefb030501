package persist

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// persistMetrics holds the metric instruments, created once in New.
type persistMetrics struct {
	// nodesCounter counts AddNode calls
	nodesCounter metric.Int64Counter

	// edgesCounter counts AddEdge calls
	edgesCounter metric.Int64Counter

	// durationHistogram records Persist duration in milliseconds
	durationHistogram metric.Float64Histogram
}

func newPersistMetrics(meter metric.Meter) (*persistMetrics, error) {
	m := &persistMetrics{}
	var err error

	m.nodesCounter, err = meter.Int64Counter(
		"docgraph.nodes.created",
		metric.WithDescription("Number of graph nodes created"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create nodes counter: %w", err)
	}

	m.edgesCounter, err = meter.Int64Counter(
		"docgraph.edges.created",
		metric.WithDescription("Number of graph edges created"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create edges counter: %w", err)
	}

	m.durationHistogram, err = meter.Float64Histogram(
		"docgraph.persist.duration",
		metric.WithDescription("Duration of one tree persist in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("create duration histogram: %w", err)
	}

	return m, nil
}

// startSpan opens the span covering one tree walk.
func (p *Persister) startSpan(ctx context.Context, label string) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, "docgraph.persist",
		trace.WithAttributes(attribute.String("docgraph.root_label", label)),
	)
}

// finishSpan records the walk's counts, duration and outcome.
func (p *Persister) finishSpan(ctx context.Context, span trace.Span, label string, before Stats, start time.Time, err error) {
	delta := p.stats.Sub(before)

	span.SetAttributes(
		attribute.Int("docgraph.nodes", delta.Nodes),
		attribute.Int("docgraph.edges", delta.Edges),
		attribute.Int("docgraph.reused", delta.Reused),
		attribute.Int("docgraph.pruned", delta.Pruned),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()

	status := "ok"
	if err != nil {
		status = "error"
	}
	p.metrics.durationHistogram.Record(ctx, float64(time.Since(start).Milliseconds()),
		metric.WithAttributes(
			attribute.String("root_label", label),
			attribute.String("status", status),
		),
	)
}
