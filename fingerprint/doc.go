// Package fingerprint computes deterministic, content-derived vertex
// identities.
//
// An identity is derived from a vertex's properties alone: the property map
// is serialized canonically (JSON with sorted keys) and hashed. Two vertices
// with identical properties receive the same identity regardless of the key
// order of their source documents or of their labels.
//
// # Algorithms
//
//   - sha256 (default): hex SHA-256 digest, 64 characters
//   - md5: hex MD5 digest, 32 characters, over CompatCanonical (spaced
//     separators, ASCII-only escapes), reproducing identities produced by
//     earlier tooling
//   - xxhash: hex xxhash64 digest, 16 characters, fast and non-cryptographic
//
// The exact algorithm is not part of the identity contract; determinism and
// key-order independence are.
//
// # Usage
//
//	gen := fingerprint.SHA256()
//	a, _ := gen.Generate(map[string]any{"a": 1, "b": 2})
//	b, _ := gen.Generate(map[string]any{"b": 2, "a": 1})
//	// a == b
//
// Custom strategies plug in through the Generator interface or Func.
package fingerprint
