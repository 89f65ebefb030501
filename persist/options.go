package persist

import (
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Option configures a Persister.
type Option func(*config)

type config struct {
	logger           *slog.Logger
	tracer           trace.Tracer
	meter            metric.Meter
	observers        []Observer
	dedup            bool
	identityProperty string
	filter           string
}

// WithLogger sets a custom logger for the persister.
// If not provided, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithTracer sets an OpenTelemetry tracer. Each Persist call is recorded as
// one span.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *config) {
		c.tracer = tracer
	}
}

// WithMeter sets an OpenTelemetry meter for node, edge and duration metrics.
func WithMeter(meter metric.Meter) Option {
	return func(c *config) {
		c.meter = meter
	}
}

// WithObserver adds an observer notified after every node and edge.
func WithObserver(o Observer) Option {
	return func(c *config) {
		if o != nil {
			c.observers = append(c.observers, o)
		}
	}
}

// WithDedup enables content addressing: a vertex whose label and identity
// match one already persisted by this Persister is not created again. The
// edge points at the existing node and the subtree is not walked a second
// time.
//
// Dedup is off by default, and every vertex becomes its own node.
func WithDedup(enabled bool) Option {
	return func(c *config) {
		c.dedup = enabled
	}
}

// WithIdentityProperty stores each vertex identity as a node property with
// the given name. An empty name disables it, which is the default.
func WithIdentityProperty(name string) Option {
	return func(c *config) {
		c.identityProperty = name
	}
}

// WithFilter prunes vertices for which the CEL expression is false. See
// Filter for the available variables. An empty expression disables
// filtering.
func WithFilter(expr string) Option {
	return func(c *config) {
		c.filter = expr
	}
}
