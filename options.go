package docgraph

import (
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/zero-day-ai/docgraph/fingerprint"
	"github.com/zero-day-ai/docgraph/persist"
)

// Option configures an Ingester.
type Option func(*ingestConfig)

// ingestConfig holds configuration for an Ingester.
type ingestConfig struct {
	logger           *slog.Logger
	tracer           trace.Tracer
	meter            metric.Meter
	fingerprint      fingerprint.Generator
	strictLists      bool
	dedup            bool
	identityProperty string
	filter           string
	observers        []persist.Observer
	commit           bool
}

func defaultIngestConfig() *ingestConfig {
	return &ingestConfig{
		logger: slog.Default(),
		commit: true,
	}
}

// WithLogger sets a custom logger.
// If not provided, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(c *ingestConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTracer sets an OpenTelemetry tracer for the persist spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *ingestConfig) {
		c.tracer = tracer
	}
}

// WithMeter sets an OpenTelemetry meter for the node and edge counters.
func WithMeter(meter metric.Meter) Option {
	return func(c *ingestConfig) {
		c.meter = meter
	}
}

// WithFingerprint sets the generator computing vertex identities.
// Defaults to fingerprint.SHA256().
func WithFingerprint(gen fingerprint.Generator) Option {
	return func(c *ingestConfig) {
		c.fingerprint = gen
	}
}

// WithStrictLists makes decomposition reject lists whose elements do not all
// share the first element's classification.
func WithStrictLists(strict bool) Option {
	return func(c *ingestConfig) {
		c.strictLists = strict
	}
}

// WithDedup reuses the node already created for a vertex with the same
// label and identity instead of creating another one.
func WithDedup(enabled bool) Option {
	return func(c *ingestConfig) {
		c.dedup = enabled
	}
}

// WithIdentityProperty stores each vertex identity on its node under name.
func WithIdentityProperty(name string) Option {
	return func(c *ingestConfig) {
		c.identityProperty = name
	}
}

// WithFilter prunes vertices for which the CEL expression is false.
func WithFilter(expr string) Option {
	return func(c *ingestConfig) {
		c.filter = expr
	}
}

// WithObserver registers an observer notified of every node and edge.
func WithObserver(o persist.Observer) Option {
	return func(c *ingestConfig) {
		c.observers = append(c.observers, o)
	}
}

// WithCommit controls whether Ingest commits the store after persisting.
// Defaults to true.
func WithCommit(commit bool) Option {
	return func(c *ingestConfig) {
		c.commit = commit
	}
}
