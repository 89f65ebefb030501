package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DecodeJSON parses a JSON document keeping the key order of every object.
// Integers that fit in int64 decode as int64, other numbers as float64.
// Duplicate keys keep their first position and the last value.
func DecodeJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeJSONValue(dec, "$")
	if err != nil {
		return Value{}, err
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Value{}, fmt.Errorf("%w: trailing data after top-level value", ErrInvalidDocument)
	}
	return v, nil
}

func decodeJSONValue(dec *json.Decoder, path string) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, fmt.Errorf("%w: %s: %v", ErrInvalidDocument, path, err)
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			m := NewMap()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Value{}, fmt.Errorf("%w: %s: %v", ErrInvalidDocument, path, err)
				}
				key, ok := keyTok.(string)
				if !ok {
					return Value{}, fmt.Errorf("%w: %s: object key %v is not a string", ErrInvalidDocument, path, keyTok)
				}
				fv, err := decodeJSONValue(dec, path+"."+key)
				if err != nil {
					return Value{}, err
				}
				m.Set(key, fv)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, fmt.Errorf("%w: %s: %v", ErrInvalidDocument, path, err)
			}
			return Object(m), nil

		case '[':
			elems := []Value{}
			for dec.More() {
				ev, err := decodeJSONValue(dec, path+"["+strconv.Itoa(len(elems))+"]")
				if err != nil {
					return Value{}, err
				}
				elems = append(elems, ev)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, fmt.Errorf("%w: %s: %v", ErrInvalidDocument, path, err)
			}
			return List(elems...), nil
		}
		return Value{}, fmt.Errorf("%w: %s: unexpected delimiter %q", ErrInvalidDocument, path, t)

	case json.Number:
		return fromNumber(t, path)
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case nil:
		return Null(), nil
	}

	return Value{}, fmt.Errorf("%w: %s: unexpected token %v", ErrInvalidDocument, path, tok)
}

// DecodeYAML parses a YAML document keeping mapping key order. Mapping keys
// must be strings; binary and timestamp scalars are rejected. Documents that
// expand aliases excessively or that contain a self-referencing anchor are
// rejected.
func DecodeYAML(data []byte) (Value, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return Value{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	d := &yamlDecoder{active: make(map[*yaml.Node]bool)}
	return d.decode(&root, "$")
}

// yamlDecoder expands a yaml.Node tree. Decoding into yaml.Node bypasses the
// alias limits yaml.v3 applies when decoding into Go values, so they are
// enforced here with the same ratio.
type yamlDecoder struct {
	// values counts every value produced.
	values int

	// aliased counts values produced while expanding an alias.
	aliased int

	// aliasDepth is the number of aliases being expanded.
	aliasDepth int

	// active holds the anchors currently being expanded.
	active map[*yaml.Node]bool
}

// allowedAliasRatio mirrors yaml.v3: small documents may be almost entirely
// aliases, large ones only a tenth.
func allowedAliasRatio(values int) float64 {
	switch {
	case values <= 400_000:
		return 0.99
	case values >= 4_000_000:
		return 0.10
	default:
		return 0.99 - 0.89*(float64(values-400_000)/3_600_000)
	}
}

func (d *yamlDecoder) count(path string) error {
	d.values++
	if d.aliasDepth > 0 {
		d.aliased++
	}
	if d.aliased > 100 && d.values > 1000 && float64(d.aliased)/float64(d.values) > allowedAliasRatio(d.values) {
		return fmt.Errorf("%w: %s: document contains excessive aliasing", ErrInvalidDocument, path)
	}
	return nil
}

func (d *yamlDecoder) decode(n *yaml.Node, path string) (Value, error) {
	switch n.Kind {
	case 0:
		return Null(), nil

	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return Null(), nil
		}
		return d.decode(n.Content[0], path)

	case yaml.AliasNode:
		if n.Alias == nil {
			return Value{}, fmt.Errorf("%w: %s: unknown anchor %q (line %d)", ErrInvalidDocument, path, n.Value, n.Line)
		}
		if d.active[n.Alias] {
			return Value{}, fmt.Errorf("%w: %s: anchor %q contains itself (line %d)", ErrInvalidDocument, path, n.Value, n.Line)
		}
		d.active[n.Alias] = true
		d.aliasDepth++
		v, err := d.decode(n.Alias, path)
		d.aliasDepth--
		delete(d.active, n.Alias)
		return v, err
	}

	if err := d.count(path); err != nil {
		return Value{}, err
	}

	switch n.Kind {
	case yaml.MappingNode:
		if n.Anchor != "" {
			d.active[n] = true
			defer delete(d.active, n)
		}
		m := NewMap()
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			if k.Kind != yaml.ScalarNode || k.ShortTag() != "!!str" {
				return Value{}, fmt.Errorf("%w: %s: mapping key %q is not a string (line %d)", ErrInvalidDocument, path, k.Value, k.Line)
			}
			fv, err := d.decode(v, path+"."+k.Value)
			if err != nil {
				return Value{}, err
			}
			m.Set(k.Value, fv)
		}
		return Object(m), nil

	case yaml.SequenceNode:
		if n.Anchor != "" {
			d.active[n] = true
			defer delete(d.active, n)
		}
		elems := make([]Value, 0, len(n.Content))
		for i, c := range n.Content {
			ev, err := d.decode(c, path+"["+strconv.Itoa(i)+"]")
			if err != nil {
				return Value{}, err
			}
			elems = append(elems, ev)
		}
		return List(elems...), nil

	case yaml.ScalarNode:
		return yamlScalar(n, path)
	}

	return Value{}, fmt.Errorf("%w: %s: unsupported yaml node kind %d", ErrInvalidDocument, path, n.Kind)
}

func yamlScalar(n *yaml.Node, path string) (Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return Null(), nil
	case "!!str":
		return String(n.Value), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return Value{}, fmt.Errorf("%w: %s: %v", ErrInvalidDocument, path, err)
		}
		return Bool(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			return Value{}, fmt.Errorf("%w: %s: %v", ErrInvalidDocument, path, err)
		}
		return Int(i), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return Value{}, fmt.Errorf("%w: %s: %v", ErrInvalidDocument, path, err)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return Value{}, fmt.Errorf("%w: non-finite number at %s", ErrInvalidDocument, path)
		}
		return Float(f), nil
	}

	return Value{}, fmt.Errorf("%w: %s: unsupported scalar tag %s (line %d)", ErrInvalidDocument, path, n.ShortTag(), n.Line)
}

// Load reads a document from a file. The format follows the extension:
// .yaml and .yml decode as YAML, everything else as JSON.
func Load(path string) (Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Value{}, fmt.Errorf("failed to read document %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return DecodeYAML(data)
	default:
		return DecodeJSON(data)
	}
}
