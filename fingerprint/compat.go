package fingerprint

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// CompatCanonical serializes properties in the sorted-key JSON form hashed by
// the MD5 identities of earlier tooling: ", " and ": " separators, every
// non-ASCII or control character escaped as \uXXXX (surrogate pairs above
// U+FFFF), no HTML escaping, and floats always carrying a fraction or an
// exponent (1.0, 1e+20, 1.5e-07).
//
// Example:
//
//	CompatCanonical(map[string]any{"b": 2, "a": "A"}) // Returns: {"a": "A", "b": 2}
func CompatCanonical(properties map[string]any) ([]byte, error) {
	if properties == nil {
		properties = map[string]any{}
	}

	var buf bytes.Buffer
	if err := writeCompat(&buf, properties); err != nil {
		return nil, fmt.Errorf("failed to serialize properties canonically: %w", err)
	}
	return buf.Bytes(), nil
}

func writeCompat(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		buf.WriteString(strconv.FormatBool(val))
	case string:
		writeCompatString(buf, val)
	case int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case int8:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case int16:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case int32:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
	case uint:
		buf.WriteString(strconv.FormatUint(uint64(val), 10))
	case uint8:
		buf.WriteString(strconv.FormatUint(uint64(val), 10))
	case uint16:
		buf.WriteString(strconv.FormatUint(uint64(val), 10))
	case uint32:
		buf.WriteString(strconv.FormatUint(uint64(val), 10))
	case uint64:
		buf.WriteString(strconv.FormatUint(val, 10))
	case float32:
		return writeCompatFloat(buf, float64(val))
	case float64:
		return writeCompatFloat(buf, val)
	case json.Number:
		buf.WriteString(val.String())
	case []any:
		buf.WriteByte('[')
		for i, e := range val {
			if i > 0 {
				buf.WriteString(", ")
			}
			if err := writeCompat(buf, e); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteString(", ")
			}
			writeCompatString(buf, k)
			buf.WriteString(": ")
			if err := writeCompat(buf, val[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return writeCompatReflect(buf, v)
	}
	return nil
}

// writeCompatReflect covers typed slices such as []string.
func writeCompatReflect(buf *bytes.Buffer, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return fmt.Errorf("unsupported value of type %T", v)
	}

	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return writeCompat(buf, items)
}

// writeCompatFloat renders the shortest round-tripping form, switching to
// exponent notation below 1e-4 and from 1e16.
func writeCompatFloat(buf *bytes.Buffer, f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("unsupported value: %v", f)
	}
	if f == 0 {
		if math.Signbit(f) {
			buf.WriteString("-0.0")
		} else {
			buf.WriteString("0.0")
		}
		return nil
	}

	sci := strconv.FormatFloat(f, 'e', -1, 64)
	exp, err := strconv.Atoi(sci[strings.IndexByte(sci, 'e')+1:])
	if err != nil {
		return err
	}
	if exp < -4 || exp >= 16 {
		buf.WriteString(sci)
		return nil
	}

	s := strconv.FormatFloat(f, 'f', -1, 64)
	buf.WriteString(s)
	if !strings.ContainsRune(s, '.') {
		buf.WriteString(".0")
	}
	return nil
}

const hexDigits = "0123456789abcdef"

func writeCompatString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		i += size

		switch {
		case r == '"':
			buf.WriteString(`\"`)
		case r == '\\':
			buf.WriteString(`\\`)
		case r == '\n':
			buf.WriteString(`\n`)
		case r == '\r':
			buf.WriteString(`\r`)
		case r == '\t':
			buf.WriteString(`\t`)
		case r == '\b':
			buf.WriteString(`\b`)
		case r == '\f':
			buf.WriteString(`\f`)
		case r >= 0x20 && r < 0x7f:
			buf.WriteRune(r)
		case r > 0xffff:
			hi, lo := utf16.EncodeRune(r)
			writeUnicodeEscape(buf, hi)
			writeUnicodeEscape(buf, lo)
		default:
			writeUnicodeEscape(buf, r)
		}
	}
	buf.WriteByte('"')
}

func writeUnicodeEscape(buf *bytes.Buffer, r rune) {
	buf.WriteString(`\u`)
	buf.WriteByte(hexDigits[r>>12&0xf])
	buf.WriteByte(hexDigits[r>>8&0xf])
	buf.WriteByte(hexDigits[r>>4&0xf])
	buf.WriteByte(hexDigits[r&0xf])
}
