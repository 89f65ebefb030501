package store

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DecodeNode decodes a JSON encoded Node. Integer properties come back as
// int64 instead of float64.
func DecodeNode(data []byte) (Node, error) {
	var n Node
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		return Node{}, fmt.Errorf("failed to decode node: %w", err)
	}
	for k, v := range n.Properties {
		n.Properties[k] = fromNumber(v)
	}
	return n, nil
}

func fromNumber(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		f, _ := x.Float64()
		return f
	case []any:
		for i, e := range x {
			x[i] = fromNumber(e)
		}
		return x
	default:
		return v
	}
}
