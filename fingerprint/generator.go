package fingerprint

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"hash"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Generator computes the identity of a vertex from its properties.
type Generator interface {
	// Generate returns a deterministic fingerprint of properties.
	//
	// The result depends only on the property names and values, never on
	// the order in which the keys were supplied. An error is returned when a
	// value cannot be serialized canonically.
	Generate(properties map[string]any) (string, error)
}

// Func adapts an ordinary function to the Generator interface.
type Func func(properties map[string]any) (string, error)

// Generate calls f(properties).
func (f Func) Generate(properties map[string]any) (string, error) {
	return f(properties)
}

// HashGenerator fingerprints the canonical serialization of the properties
// with a hash function and renders the digest as lowercase hex.
//
// Algorithm:
//  1. Serialize properties as JSON with keys sorted (see Canonical and
//     CompatCanonical)
//  2. Hash the serialized bytes
//  3. Hex encode the full digest
type HashGenerator struct {
	name      string
	newHash   func() hash.Hash
	canonical func(map[string]any) ([]byte, error)
}

// SHA256 returns the default generator.
func SHA256() *HashGenerator {
	return &HashGenerator{name: "sha256", newHash: sha256.New, canonical: Canonical}
}

// MD5 returns a generator reproducing the identities of earlier MD5-based
// tooling: it hashes CompatCanonical rather than Canonical. Prefer SHA256 for
// new graphs.
func MD5() *HashGenerator {
	return &HashGenerator{name: "md5", newHash: md5.New, canonical: CompatCanonical}
}

// XXHash returns a fast non-cryptographic 64-bit generator.
func XXHash() *HashGenerator {
	return &HashGenerator{name: "xxhash", newHash: func() hash.Hash { return xxhash.New() }, canonical: Canonical}
}

// ByName resolves a generator by its configuration name: "sha256", "md5" or
// "xxhash". The empty name selects SHA256.
func ByName(name string) (*HashGenerator, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "sha256":
		return SHA256(), nil
	case "md5":
		return MD5(), nil
	case "xxhash", "xxh64":
		return XXHash(), nil
	default:
		return nil, fmt.Errorf("unknown fingerprint algorithm %q", name)
	}
}

// Name returns the algorithm name.
func (g *HashGenerator) Name() string {
	return g.name
}

// Generate hashes the canonical form of properties.
func (g *HashGenerator) Generate(properties map[string]any) (string, error) {
	canonical, err := g.canonical(properties)
	if err != nil {
		return "", err
	}

	h := g.newHash()
	h.Write(canonical)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Canonical serializes properties as compact JSON with object keys sorted at
// every level. A nil map serializes as an empty object.
func Canonical(properties map[string]any) ([]byte, error) {
	if properties == nil {
		properties = map[string]any{}
	}

	// encoding/json writes map keys in sorted order, which is exactly the
	// canonical ordering needed here.
	out, err := json.Marshal(properties)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize properties canonically: %w", err)
	}
	return out, nil
}
