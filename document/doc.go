// Package document models untyped nested input as a closed set of shapes.
//
// A Value is exactly one of:
//   - a scalar: nil, string, int64, float64 or bool
//   - a list: an ordered sequence of values
//   - a map: string keys in source order mapped to values
//
// Values come from decoded Go data (FromAny), from JSON or YAML text
// (DecodeJSON, DecodeYAML, Load) or from protobuf messages (see the protoconv
// sub-package). Decoding from text preserves the key order of every mapping,
// which later determines the order of edges created for a document.
//
// Inputs with no JSON representation, such as binary blobs, timestamps or
// non-finite floats, are rejected with ErrInvalidDocument instead of being
// coerced.
//
// # Usage
//
//	doc, err := document.DecodeJSON([]byte(`{"a": "A", "child": {"c": "C"}}`))
//	if err != nil {
//	    return err
//	}
//	doc.Map().Keys() // ["a", "child"]
package document
