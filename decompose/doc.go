// Package decompose splits a nested document into a tree of vertices.
//
// Every mapping becomes a VertexNode. Its simple fields (scalars, and lists
// whose first element is simple) become vertex properties; its complex fields
// (mappings, and lists of mappings) become children reached through an edge
// named after the field:
//
//	{"a": "A", "b": {"c": "C"}}
//
// decomposes into a vertex labeled by the caller with properties {a: A} and
// one edge "b" to a vertex labeled "b" with properties {c: C}.
//
// Each vertex carries an identity computed from its properties alone, so two
// mappings with equal simple fields share an identity wherever they appear.
// Decomposition performs no I/O; see package persist for writing a tree to a
// graph store.
package decompose
