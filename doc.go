// Package docgraph converts nested documents into labeled property graphs and
// writes them to a graph store.
//
// A document is a tree of mappings, lists and scalars. Decomposition splits
// each mapping into simple fields, which become properties of a vertex, and
// complex fields, which become child vertices reached through an edge named
// after the field. Every vertex receives a deterministic identity computed
// from its properties alone. Persistence then walks the vertex tree depth
// first and issues node and edge mutations against a store.GraphStore.
//
// # Core Concepts
//
//   - document: the tagged, order-preserving input value (JSON, YAML or protobuf)
//   - decompose: the pure Decomposer producing VertexNode trees
//   - fingerprint: identity generators over canonical property encodings
//   - persist: the Persister issuing store mutations in pre-order
//   - store: the GraphStore boundary and its backends (memory, redisgraph,
//     badger, etcd, neo4j)
//
// # Getting Started
//
//	doc, err := document.DecodeJSON([]byte(`{
//		"name": "Ada",
//		"friends": [{"name": "Alan"}, {"name": "Grace"}]
//	}`))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	s := memory.New()
//	report, err := docgraph.Ingest(ctx, s, doc, "person")
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(report.Nodes, report.Edges) // 3 2
//
// Ingest decomposes, persists and commits in one call. Use decompose.New and
// persist.New directly to inspect the vertex tree or to control commits.
//
// # Error Handling
//
// Errors returned by Ingest are *Error values carrying the failing stage in
// Kind. The package sentinels of each stage remain reachable through
// errors.Is:
//
//	if errors.Is(err, store.ErrStorageFailed) {
//		// the walk was aborted; issued mutations were not rolled back
//	}
//
// # Observability
//
// Persistence records one OpenTelemetry span per document and counts nodes
// and edges through an OpenTelemetry meter. Both default to no-ops; pass
// WithTracer and WithMeter to export them.
package docgraph
