// Package config provides loading and parsing of docgraph.yaml configuration
// files. A configuration selects the graph store backend, the ingest policy
// and the log output of the docgraph command.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zero-day-ai/docgraph/fingerprint"
	"github.com/zero-day-ai/docgraph/persist"
)

// ErrInvalidConfig indicates a configuration that failed validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// Store backend types.
const (
	StoreMemory     = "memory"
	StoreRedisGraph = "redisgraph"
	StoreBadger     = "badger"
	StoreEtcd       = "etcd"
	StoreNeo4j      = "neo4j"
)

// Config represents a docgraph.yaml configuration file.
type Config struct {
	Store  StoreConfig  `yaml:"store"`
	Ingest IngestConfig `yaml:"ingest"`
	Log    LogConfig    `yaml:"log"`
}

// StoreConfig selects and configures the graph store backend.
type StoreConfig struct {
	// Type is one of memory, redisgraph, badger, etcd or neo4j.
	// Default: memory
	Type string `yaml:"type"`

	// Graph names the graph inside the backend.
	// Default: "docgraph"
	Graph string `yaml:"graph,omitempty"`

	// URL is the redisgraph or neo4j connection URL.
	URL string `yaml:"url,omitempty"`

	// Path is the badger database directory.
	Path string `yaml:"path,omitempty"`

	// InMemory runs badger without a directory.
	InMemory bool `yaml:"in_memory,omitempty"`

	// Endpoints lists etcd cluster members.
	Endpoints []string `yaml:"endpoints,omitempty"`

	// Namespace is the etcd key prefix.
	// Default: "docgraph"
	Namespace string `yaml:"namespace,omitempty"`

	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`

	// Database selects the neo4j database.
	Database string `yaml:"database,omitempty"`

	// DialTimeout bounds connection setup.
	// Format: Go duration string (e.g., "5s")
	// Default: 5s
	DialTimeout string `yaml:"dial_timeout,omitempty"`

	// TLS enables client certificates for network backends.
	TLS *TLSConfig `yaml:"tls,omitempty"`
}

// GetDialTimeout parses the dial timeout string and returns a duration.
// Returns the default value if not set or invalid.
func (s *StoreConfig) GetDialTimeout() time.Duration {
	if s == nil || s.DialTimeout == "" {
		return 5 * time.Second
	}
	d, err := time.ParseDuration(s.DialTimeout)
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}

// IngestConfig holds the decomposition and persistence policy.
type IngestConfig struct {
	// RootLabel labels the root vertex of each document.
	// Default: "root"
	RootLabel string `yaml:"root_label,omitempty"`

	// Fingerprint names the identity hash: sha256, md5 or xxhash.
	// Default: sha256
	Fingerprint string `yaml:"fingerprint,omitempty"`

	// Dedup reuses an existing node for a repeated (label, identity).
	Dedup bool `yaml:"dedup,omitempty"`

	// IdentityProperty stores each vertex identity under this property name.
	IdentityProperty string `yaml:"identity_property,omitempty"`

	// StrictLists rejects lists whose elements do not share one kind.
	StrictLists bool `yaml:"strict_lists,omitempty"`

	// Filter is a CEL expression over label and properties. Vertices for
	// which it is false are not persisted.
	Filter string `yaml:"filter,omitempty"`
}

// LogConfig controls the command's log output.
type LogConfig struct {
	// Level is debug, info, warn or error.
	// Default: info
	Level string `yaml:"level,omitempty"`

	// Format is text or json.
	// Default: text
	Format string `yaml:"format,omitempty"`
}

// Default returns a configuration using the in-memory store.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Type:  StoreMemory,
			Graph: "docgraph",
		},
		Ingest: IngestConfig{
			RootLabel:   "root",
			Fingerprint: "sha256",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Parse decodes data over Default and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads and parses a docgraph.yaml file from the given path.
// If the path is a directory, it looks for docgraph.yaml or docgraph.yml in that directory.
func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path: %w", err)
	}

	configPath := path
	if info.IsDir() {
		configPath = ""
		for _, name := range []string{"docgraph.yaml", "docgraph.yml"} {
			candidate := filepath.Join(path, name)
			if _, err := os.Stat(candidate); err == nil {
				configPath = candidate
				break
			}
		}
		if configPath == "" {
			return nil, fmt.Errorf("no docgraph.yaml or docgraph.yml found in %s", path)
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// fillDefaults restores defaults for fields explicitly set empty.
func (c *Config) fillDefaults() {
	def := Default()
	if c.Store.Type == "" {
		c.Store.Type = def.Store.Type
	}
	if c.Store.Graph == "" {
		c.Store.Graph = def.Store.Graph
	}
	if c.Ingest.RootLabel == "" {
		c.Ingest.RootLabel = def.Ingest.RootLabel
	}
	if c.Ingest.Fingerprint == "" {
		c.Ingest.Fingerprint = def.Ingest.Fingerprint
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = def.Log.Format
	}
}

// ApplyEnv overrides fields from DOCGRAPH_* environment variables:
//
//	DOCGRAPH_STORE_TYPE      store.type
//	DOCGRAPH_STORE_URL       store.url
//	DOCGRAPH_STORE_PATH      store.path
//	DOCGRAPH_ETCD_ENDPOINTS  store.endpoints (comma-separated)
//	DOCGRAPH_GRAPH           store.graph
//	DOCGRAPH_LOG_LEVEL       log.level
func (c *Config) ApplyEnv() {
	if v := os.Getenv("DOCGRAPH_STORE_TYPE"); v != "" {
		c.Store.Type = v
	}
	if v := os.Getenv("DOCGRAPH_STORE_URL"); v != "" {
		c.Store.URL = v
	}
	if v := os.Getenv("DOCGRAPH_STORE_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("DOCGRAPH_ETCD_ENDPOINTS"); v != "" {
		var endpoints []string
		for _, ep := range strings.Split(v, ",") {
			if ep = strings.TrimSpace(ep); ep != "" {
				endpoints = append(endpoints, ep)
			}
		}
		c.Store.Endpoints = endpoints
	}
	if v := os.Getenv("DOCGRAPH_GRAPH"); v != "" {
		c.Store.Graph = v
	}
	if v := os.Getenv("DOCGRAPH_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// Validate checks the configuration. Every error wraps ErrInvalidConfig.
func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Type {
	case StoreMemory:
	case StoreRedisGraph, StoreNeo4j:
		if c.Store.URL == "" {
			errs = append(errs, fmt.Errorf("store.url is required for %s", c.Store.Type))
		}
	case StoreBadger:
		if c.Store.Path == "" && !c.Store.InMemory {
			errs = append(errs, fmt.Errorf("store.path is required for badger unless store.in_memory is set"))
		}
	case StoreEtcd:
		if len(c.Store.Endpoints) == 0 {
			errs = append(errs, fmt.Errorf("store.endpoints is required for etcd"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store.type %q", c.Store.Type))
	}

	if c.Store.DialTimeout != "" {
		if _, err := time.ParseDuration(c.Store.DialTimeout); err != nil {
			errs = append(errs, fmt.Errorf("store.dial_timeout: %w", err))
		}
	}
	if err := c.Store.TLS.validate(); err != nil {
		errs = append(errs, err)
	}

	if c.Ingest.RootLabel == "" {
		errs = append(errs, fmt.Errorf("ingest.root_label cannot be empty"))
	}
	if _, err := fingerprint.ByName(c.Ingest.Fingerprint); err != nil {
		errs = append(errs, fmt.Errorf("ingest.fingerprint: %w", err))
	}
	if c.Ingest.Filter != "" {
		if _, err := persist.CompileFilter(c.Ingest.Filter); err != nil {
			errs = append(errs, fmt.Errorf("ingest.filter: %w", err))
		}
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log.format %q", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
