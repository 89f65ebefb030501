package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/zero-day-ai/docgraph/decompose"
	"github.com/zero-day-ai/docgraph/fingerprint"
	"github.com/zero-day-ai/docgraph/persist"
	"github.com/zero-day-ai/docgraph/store"
	"github.com/zero-day-ai/docgraph/store/badgerstore"
	"github.com/zero-day-ai/docgraph/store/etcdstore"
	"github.com/zero-day-ai/docgraph/store/memory"
	"github.com/zero-day-ai/docgraph/store/neo4jstore"
	"github.com/zero-day-ai/docgraph/store/redisgraph"
)

// Store is what Open returns: a GraphStore that must be closed.
type Store interface {
	store.GraphStore
	io.Closer
}

// Open connects to the backend selected by cfg.Store.
func Open(ctx context.Context, cfg *Config, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	sc := cfg.Store

	tlsConfig, err := sc.TLS.ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	switch sc.Type {
	case StoreMemory, "":
		return memory.New(memory.WithLogger(logger)), nil

	case StoreRedisGraph:
		return opened[*redisgraph.Store](redisgraph.New(redisgraph.Options{
			URL:            sc.URL,
			Graph:          sc.Graph,
			TLS:            tlsConfig,
			ConnectTimeout: sc.GetDialTimeout(),
			Logger:         logger,
		}))

	case StoreBadger:
		return opened[*badgerstore.Store](badgerstore.Open(badgerstore.Options{
			Path:     sc.Path,
			InMemory: sc.InMemory,
			Graph:    sc.Graph,
			Logger:   logger,
		}))

	case StoreEtcd:
		return opened[*etcdstore.Store](etcdstore.New(etcdstore.Config{
			Endpoints:   sc.Endpoints,
			Namespace:   sc.Namespace,
			Graph:       sc.Graph,
			DialTimeout: sc.GetDialTimeout(),
			Username:    sc.Username,
			Password:    sc.Password,
			TLS:         tlsConfig,
			Logger:      logger,
		}))

	case StoreNeo4j:
		dialCtx, cancel := context.WithTimeout(ctx, sc.GetDialTimeout())
		defer cancel()
		return opened[*neo4jstore.Store](neo4jstore.New(dialCtx, neo4jstore.Config{
			URI:      sc.URL,
			Username: sc.Username,
			Password: sc.Password,
			Database: sc.Database,
			Graph:    sc.Graph,
			TLS:      tlsConfig,
			Logger:   logger,
		}))

	default:
		return nil, fmt.Errorf("%w: unknown store.type %q", ErrInvalidConfig, sc.Type)
	}
}

// opened drops the typed nil a failed constructor returns.
func opened[S Store](s S, err error) (Store, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}

// DecomposeOptions returns the decomposer options described by cfg.Ingest.
func (c *Config) DecomposeOptions() ([]decompose.Option, error) {
	gen, err := fingerprint.ByName(c.Ingest.Fingerprint)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return []decompose.Option{
		decompose.WithFingerprint(gen),
		decompose.WithStrictLists(c.Ingest.StrictLists),
	}, nil
}

// PersistOptions returns the persister options described by cfg.Ingest.
func (c *Config) PersistOptions(logger *slog.Logger) []persist.Option {
	opts := []persist.Option{
		persist.WithLogger(logger),
		persist.WithDedup(c.Ingest.Dedup),
	}
	if c.Ingest.IdentityProperty != "" {
		opts = append(opts, persist.WithIdentityProperty(c.Ingest.IdentityProperty))
	}
	if c.Ingest.Filter != "" {
		opts = append(opts, persist.WithFilter(c.Ingest.Filter))
	}
	return opts
}

// NewLogger builds a slog logger writing to w (os.Stderr when nil).
func NewLogger(cfg LogConfig, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
