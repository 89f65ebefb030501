package docgraph

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/zero-day-ai/docgraph/fingerprint"
	"github.com/zero-day-ai/docgraph/persist"
)

func TestIngestOptions(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := defaultIngestConfig()

		if cfg.logger == nil {
			t.Error("expected default logger to be set")
		}
		if !cfg.commit {
			t.Error("expected commit to default to true")
		}
		if cfg.dedup || cfg.strictLists {
			t.Error("expected dedup and strict lists to default to false")
		}
	})

	t.Run("WithLogger", func(t *testing.T) {
		logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
		cfg := defaultIngestConfig()
		WithLogger(logger)(cfg)

		if cfg.logger != logger {
			t.Error("expected logger to be set")
		}
	})

	t.Run("WithLogger nil keeps default", func(t *testing.T) {
		cfg := defaultIngestConfig()
		WithLogger(nil)(cfg)

		if cfg.logger == nil {
			t.Error("expected default logger to be kept")
		}
	})

	t.Run("WithTracer", func(t *testing.T) {
		cfg := defaultIngestConfig()
		WithTracer(nil)(cfg)

		if cfg.tracer != nil {
			t.Error("expected tracer to be nil")
		}
	})

	t.Run("WithFingerprint", func(t *testing.T) {
		cfg := defaultIngestConfig()
		WithFingerprint(fingerprint.XXHash())(cfg)

		gen, ok := cfg.fingerprint.(*fingerprint.HashGenerator)
		if !ok || gen.Name() != "xxhash" {
			t.Errorf("expected xxhash generator, got %v", cfg.fingerprint)
		}
	})

	t.Run("WithStrictLists", func(t *testing.T) {
		cfg := defaultIngestConfig()
		WithStrictLists(true)(cfg)

		if !cfg.strictLists {
			t.Error("expected strict lists to be enabled")
		}
	})

	t.Run("WithDedup", func(t *testing.T) {
		cfg := defaultIngestConfig()
		WithDedup(true)(cfg)

		if !cfg.dedup {
			t.Error("expected dedup to be enabled")
		}
	})

	t.Run("WithIdentityProperty", func(t *testing.T) {
		cfg := defaultIngestConfig()
		WithIdentityProperty("_id")(cfg)

		if cfg.identityProperty != "_id" {
			t.Errorf("expected identity property '_id', got %s", cfg.identityProperty)
		}
	})

	t.Run("WithFilter", func(t *testing.T) {
		cfg := defaultIngestConfig()
		WithFilter(`label != "secret"`)(cfg)

		if cfg.filter != `label != "secret"` {
			t.Errorf("unexpected filter %q", cfg.filter)
		}
	})

	t.Run("WithObserver appends", func(t *testing.T) {
		cfg := defaultIngestConfig()
		noop := persist.ObserverFuncs{Node: func(context.Context, persist.NodeEvent) {}}
		WithObserver(noop)(cfg)
		WithObserver(noop)(cfg)

		if len(cfg.observers) != 2 {
			t.Errorf("expected 2 observers, got %d", len(cfg.observers))
		}
	})

	t.Run("WithCommit", func(t *testing.T) {
		cfg := defaultIngestConfig()
		WithCommit(false)(cfg)

		if cfg.commit {
			t.Error("expected commit to be disabled")
		}
	})
}
