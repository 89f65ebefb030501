// Command docgraph decomposes JSON and YAML documents into property graphs
// and writes them to a configured graph store.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/zero-day-ai/docgraph"
	"github.com/zero-day-ai/docgraph/config"
	"github.com/zero-day-ai/docgraph/decompose"
	"github.com/zero-day-ai/docgraph/document"
	"github.com/zero-day-ai/docgraph/fingerprint"
	"github.com/zero-day-ai/docgraph/health"
	"github.com/zero-day-ai/docgraph/persist"
	"github.com/zero-day-ai/docgraph/store"
	"github.com/zero-day-ai/docgraph/store/cypher"
)

const usage = `Usage: docgraph [-config file] [-store type] [-graph name] <command> [arguments]
Commands:
  ingest [-label L] [-commit=true] <file>...
  query [-label L] [-edges] [cypher]
  drop
  check
  decompose [-label L] <file>
  demo [-keep]
`

// errUsage reports a malformed command line. The message was already printed.
var errUsage = errors.New("invalid usage")

// seedDocument is the document ingested by the demo command.
const seedDocument = `{
  "a": "A",
  "girl": {"g": "G"},
  "boy": {"b": "B", "friend": [{"f": "F1"}, {"f": "F2"}]}
}`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// env carries what every command needs.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	stdout io.Writer
	stderr io.Writer
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	global := flag.NewFlagSet("docgraph", flag.ContinueOnError)
	global.SetOutput(stderr)
	global.Usage = func() { fmt.Fprint(stderr, usage) }

	configPath := global.String("config", "", "path to docgraph.yaml or a directory containing it")
	storeType := global.String("store", "", "store type override (memory, redisgraph, badger, etcd, neo4j)")
	graph := global.String("graph", "", "graph name override")
	logLevel := global.String("log-level", "", "log level override")

	if err := global.Parse(args); err != nil {
		return errUsage
	}
	if global.NArg() < 1 {
		fmt.Fprint(stderr, usage)
		return errUsage
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	cfg.ApplyEnv()
	if *storeType != "" {
		cfg.Store.Type = *storeType
	}
	if *graph != "" {
		cfg.Store.Graph = *graph
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	e := &env{
		cfg:    cfg,
		logger: config.NewLogger(cfg.Log, stderr),
		stdout: stdout,
		stderr: stderr,
	}

	cmd, cmdArgs := global.Arg(0), global.Args()[1:]
	switch cmd {
	case "ingest":
		return e.ingest(ctx, cmdArgs)
	case "query":
		return e.query(ctx, cmdArgs)
	case "drop":
		return e.drop(ctx, cmdArgs)
	case "check":
		return e.check(ctx, cmdArgs)
	case "decompose":
		return e.decompose(cmdArgs)
	case "demo":
		return e.demo(ctx, cmdArgs)
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(stderr, usage)
		return errUsage
	}
}

func (e *env) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	return fs
}

func (e *env) open(ctx context.Context) (config.Store, error) {
	s, err := config.Open(ctx, e.cfg, e.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", e.cfg.Store.Type, err)
	}
	return s, nil
}

// ingestOptions maps the ingest section of the configuration onto Ingester
// options.
func (e *env) ingestOptions() ([]docgraph.Option, error) {
	gen, err := fingerprint.ByName(e.cfg.Ingest.Fingerprint)
	if err != nil {
		return nil, err
	}
	return []docgraph.Option{
		docgraph.WithLogger(e.logger),
		docgraph.WithFingerprint(gen),
		docgraph.WithStrictLists(e.cfg.Ingest.StrictLists),
		docgraph.WithDedup(e.cfg.Ingest.Dedup),
		docgraph.WithIdentityProperty(e.cfg.Ingest.IdentityProperty),
		docgraph.WithFilter(e.cfg.Ingest.Filter),
	}, nil
}

func (e *env) ingest(ctx context.Context, args []string) error {
	fs := e.flagSet("ingest")
	label := fs.String("label", e.cfg.Ingest.RootLabel, "label of each document's root vertex")
	commit := fs.Bool("commit", true, "commit the store after each document")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(e.stderr, "Usage: docgraph ingest [-label L] [-commit=true] <file>...")
		return errUsage
	}

	opts, err := e.ingestOptions()
	if err != nil {
		return err
	}
	opts = append(opts, docgraph.WithCommit(*commit))

	s, err := e.open(ctx)
	if err != nil {
		return err
	}
	defer docgraph.CloseWithLog(s, e.logger, "graph store")

	ing, err := docgraph.NewIngester(s, opts...)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(e.stdout)
	for _, path := range fs.Args() {
		doc, err := document.Load(path)
		if err != nil {
			return err
		}
		report, err := ing.Ingest(ctx, doc, *label)
		if err != nil {
			return fmt.Errorf("ingest %s: %w", path, err)
		}
		if err := enc.Encode(struct {
			File string `json:"file"`
			*docgraph.Report
		}{path, report}); err != nil {
			return err
		}
	}
	return nil
}

func (e *env) query(ctx context.Context, args []string) error {
	fs := e.flagSet("query")
	label := fs.String("label", "", "list nodes with this label")
	edges := fs.Bool("edges", false, "list every edge with its endpoints")
	asJSON := fs.Bool("json", false, "print the result as JSON")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	var q string
	switch {
	case fs.NArg() > 0:
		q = strings.Join(fs.Args(), " ")
	case *edges:
		q = cypher.EdgeQuery
	default:
		q = cypher.BuildNodeQuery(*label)
	}

	s, err := e.open(ctx)
	if err != nil {
		return err
	}
	defer docgraph.CloseWithLog(s, e.logger, "graph store")

	querier, ok := s.(store.Querier)
	if !ok {
		return fmt.Errorf("%w: %s store cannot run queries", store.ErrUnsupported, e.cfg.Store.Type)
	}
	res, err := querier.Query(ctx, q, nil)
	if err != nil {
		return err
	}

	if *asJSON {
		enc := json.NewEncoder(e.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	return printResult(e.stdout, res)
}

func (e *env) drop(ctx context.Context, args []string) error {
	fs := e.flagSet("drop")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	s, err := e.open(ctx)
	if err != nil {
		return err
	}
	defer docgraph.CloseWithLog(s, e.logger, "graph store")

	if err := dropGraph(ctx, s); err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "Graph %s dropped.\n", e.cfg.Store.Graph)
	return nil
}

func dropGraph(ctx context.Context, s store.GraphStore) error {
	deleter, ok := s.(store.Deleter)
	if !ok {
		return fmt.Errorf("%w: store cannot delete its graph", store.ErrUnsupported)
	}
	if err := deleter.Delete(ctx); err != nil {
		return err
	}
	return s.Commit(ctx)
}

func (e *env) check(ctx context.Context, args []string) error {
	fs := e.flagSet("check")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	var checks []health.Status
	sc := e.cfg.Store
	switch sc.Type {
	case config.StoreRedisGraph, config.StoreNeo4j:
		checks = append(checks, health.AddressCheck(ctx, sc.URL))
	case config.StoreEtcd:
		for _, ep := range sc.Endpoints {
			checks = append(checks, health.AddressCheck(ctx, ep))
		}
	case config.StoreBadger:
		if !sc.InMemory {
			checks = append(checks, health.FileCheck(sc.Path))
		}
	}

	s, err := e.open(ctx)
	if err != nil {
		checks = append(checks, health.Unhealthy("store unavailable", map[string]any{"error": err.Error()}))
	} else {
		defer docgraph.CloseWithLog(s, e.logger, "graph store")
		checks = append(checks, health.StoreCheck(ctx, s))
	}

	status := health.Combine(checks...)
	enc := json.NewEncoder(e.stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(status); err != nil {
		return err
	}
	if status.IsUnhealthy() {
		return fmt.Errorf("store %s is unhealthy: %s", sc.Type, status.Message)
	}
	return nil
}

func (e *env) decompose(args []string) error {
	fs := e.flagSet("decompose")
	label := fs.String("label", e.cfg.Ingest.RootLabel, "label of the root vertex")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(e.stderr, "Usage: docgraph decompose [-label L] <file>")
		return errUsage
	}

	doc, err := document.Load(fs.Arg(0))
	if err != nil {
		return err
	}
	opts, err := e.cfg.DecomposeOptions()
	if err != nil {
		return err
	}
	root, err := decompose.New(opts...).DecomposeVertex(doc, *label)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(e.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(root)
}

// demo ingests the seed document as "parent", prints every edge and node,
// then drops the graph unless -keep is given.
func (e *env) demo(ctx context.Context, args []string) error {
	fs := e.flagSet("demo")
	keep := fs.Bool("keep", false, "keep the graph after printing it")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	doc, err := document.DecodeJSON([]byte(seedDocument))
	if err != nil {
		return err
	}
	dopts, err := e.cfg.DecomposeOptions()
	if err != nil {
		return err
	}
	root, err := decompose.New(dopts...).DecomposeVertex(doc, "parent")
	if err != nil {
		return err
	}

	s, err := e.open(ctx)
	if err != nil {
		return err
	}
	defer docgraph.CloseWithLog(s, e.logger, "graph store")

	p, err := persist.New(s, e.cfg.PersistOptions(e.logger)...)
	if err != nil {
		return err
	}
	if _, err := p.Persist(ctx, root); err != nil {
		return err
	}
	if err := s.Commit(ctx); err != nil {
		return err
	}

	querier, ok := s.(store.Querier)
	if !ok {
		return fmt.Errorf("%w: %s store cannot run queries", store.ErrUnsupported, e.cfg.Store.Type)
	}
	for _, q := range []string{cypher.EdgeQuery, cypher.BuildNodeQuery("")} {
		res, err := querier.Query(ctx, q, nil)
		if err != nil {
			return err
		}
		fmt.Fprintln(e.stdout, q)
		if err := printResult(e.stdout, res); err != nil {
			return err
		}
	}

	if *keep {
		return nil
	}
	return dropGraph(ctx, s)
}

// printResult writes one line per row, cells separated by a space.
func printResult(w io.Writer, res *store.QueryResult) error {
	for _, row := range res.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cell, err := formatValue(v)
			if err != nil {
				return err
			}
			cells[i] = cell
		}
		if _, err := fmt.Fprintln(w, strings.Join(cells, " ")); err != nil {
			return err
		}
	}
	for _, line := range res.Stats {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func formatValue(v any) (string, error) {
	switch val := v.(type) {
	case store.Node:
		props, err := cypher.MapLiteral(val.Properties)
		if err != nil {
			return "", err
		}
		if props == "" {
			return "(" + val.Label + ")", nil
		}
		return "(" + val.Label + " " + props + ")", nil
	case store.Edge:
		return "[:" + val.Name + "]", nil
	case nil:
		return "null", nil
	default:
		return fmt.Sprint(val), nil
	}
}
