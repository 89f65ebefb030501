// Package store defines the GraphStore capability that decomposed documents
// are written through, plus the records and errors shared by its backends.
//
// A GraphStore creates nodes and directed named edges and commits them:
//
//	h1, _ := s.AddNode(ctx, "parent", map[string]any{"a": "A"})
//	h2, _ := s.AddNode(ctx, "child", map[string]any{"c": "C"})
//	_ = s.AddEdge(ctx, h1, "child", h2)
//	_ = s.Commit(ctx)
//
// Optional capabilities are discovered with type assertions: Deleter for
// teardown, Querier for read queries and Pinger for health checks.
//
// Labels and edge names come from document keys and may be empty. The
// Cypher backends cannot express an empty label and return ErrInvalidLabel;
// the others store it unchanged.
//
// # Backends
//
//   - memory: in-process, journals every call; used by tests and dry runs
//   - redisgraph: RedisGraph over go-redis, one CREATE query per commit
//   - badgerstore: embedded Badger database, one transaction per commit
//   - etcdstore: etcd keys written in transactions per commit
//   - neo4jstore: Neo4j over Bolt, one write transaction per commit
package store
