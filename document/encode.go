package document

import (
	"bytes"
	"encoding/json"
)

// MarshalJSON encodes v as JSON with mapping keys in source order.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) encode(buf *bytes.Buffer) error {
	switch v.kind {
	case KindList:
		buf.WriteByte('[')
		for i, e := range v.list {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := e.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil

	case KindMap:
		buf.WriteByte('{')
		for i, k := range v.fields.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := v.fields.values[k].encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil

	default:
		b, err := json.Marshal(v.scalar)
		if err != nil {
			return err
		}
		buf.Write(b)
		return nil
	}
}

// UnmarshalJSON decodes JSON into v preserving key order.
func (v *Value) UnmarshalJSON(data []byte) error {
	decoded, err := DecodeJSON(data)
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}
