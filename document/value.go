package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
)

// ErrInvalidDocument indicates the input contains a value that has no JSON
// representation (binary data, timestamps, structs, non-finite floats, ...).
var ErrInvalidDocument = errors.New("invalid document")

// Kind identifies which variant a Value holds.
type Kind int

const (
	// KindScalar is a string, number, bool or null.
	KindScalar Kind = iota

	// KindList is an ordered sequence of values.
	KindList

	// KindMap is a mapping from string keys to values with source key order.
	KindMap
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a closed variant over the document shapes. The zero Value is the
// null scalar.
//
// Scalars are normalized on construction: every integer type becomes int64,
// float32 becomes float64.
type Value struct {
	kind   Kind
	scalar any
	list   []Value
	fields *Map
}

// Null returns the null scalar.
func Null() Value { return Value{} }

// String returns a string scalar.
func String(s string) Value { return Value{kind: KindScalar, scalar: s} }

// Int returns an integer scalar.
func Int(i int64) Value { return Value{kind: KindScalar, scalar: i} }

// Float returns a floating point scalar.
func Float(f float64) Value { return Value{kind: KindScalar, scalar: f} }

// Bool returns a boolean scalar.
func Bool(b bool) Value { return Value{kind: KindScalar, scalar: b} }

// List returns a list holding the given elements in order.
func List(elems ...Value) Value {
	if elems == nil {
		elems = []Value{}
	}
	return Value{kind: KindList, list: elems}
}

// Object wraps a Map as a Value. A nil map yields an empty mapping.
func Object(m *Map) Value {
	if m == nil {
		m = NewMap()
	}
	return Value{kind: KindMap, fields: m}
}

// Kind reports the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsScalar reports whether v is a scalar.
func (v Value) IsScalar() bool { return v.kind == KindScalar }

// IsList reports whether v is a list.
func (v Value) IsList() bool { return v.kind == KindList }

// IsMap reports whether v is a mapping.
func (v Value) IsMap() bool { return v.kind == KindMap }

// IsNull reports whether v is the null scalar.
func (v Value) IsNull() bool { return v.kind == KindScalar && v.scalar == nil }

// Scalar returns the scalar payload: nil, string, int64, float64 or bool.
// It returns nil for lists and maps.
func (v Value) Scalar() any {
	if v.kind != KindScalar {
		return nil
	}
	return v.scalar
}

// List returns the elements of a list value, or nil for other kinds.
func (v Value) List() []Value {
	if v.kind != KindList {
		return nil
	}
	return v.list
}

// Map returns the fields of a mapping value, or nil for other kinds.
func (v Value) Map() *Map {
	if v.kind != KindMap {
		return nil
	}
	return v.fields
}

// Len returns the number of elements of a list or fields of a mapping.
// Scalars have length zero.
func (v Value) Len() int {
	switch v.kind {
	case KindList:
		return len(v.list)
	case KindMap:
		return v.fields.Len()
	default:
		return 0
	}
}

// Interface converts v back into plain Go values: map[string]any, []any and
// scalars.
func (v Value) Interface() any {
	switch v.kind {
	case KindList:
		out := make([]any, len(v.list))
		for i, e := range v.list {
			out[i] = e.Interface()
		}
		return out
	case KindMap:
		out := make(map[string]any, v.fields.Len())
		for _, k := range v.fields.keys {
			out[k] = v.fields.values[k].Interface()
		}
		return out
	default:
		return v.scalar
	}
}

// Map is an insertion-ordered mapping from string keys to values.
type Map struct {
	keys   []string
	values map[string]Value
}

// NewMap returns an empty mapping.
func NewMap() *Map {
	return &Map{values: make(map[string]Value)}
}

// Set stores value under key and returns the map for chaining. Replacing an
// existing key keeps its original position.
func (m *Map) Set(key string, value Value) *Map {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
	return m
}

// Get returns the value stored under key.
func (m *Map) Get(key string) (Value, bool) {
	if m == nil {
		return Value{}, false
	}
	v, ok := m.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of keys.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Range calls fn for each key in insertion order until fn returns false.
func (m *Map) Range(fn func(key string, value Value) bool) {
	if m == nil {
		return
	}
	for _, k := range m.keys {
		if !fn(k, m.values[k]) {
			return
		}
	}
}

// FromAny converts a decoded Go value into a Value.
//
// Accepted inputs are nil, strings, booleans, integer and float types,
// json.Number, slices and arrays other than byte slices, and maps keyed by
// strings. Go maps carry no order, so their keys are sorted lexically.
// Anything else wraps ErrInvalidDocument and names the offending path.
func FromAny(v any) (Value, error) {
	return fromAny(v, "$")
}

func fromAny(v any, path string) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Null(), nil
	case Value:
		return x, nil
	case string:
		return String(x), nil
	case bool:
		return Bool(x), nil
	case int:
		return Int(int64(x)), nil
	case int8:
		return Int(int64(x)), nil
	case int16:
		return Int(int64(x)), nil
	case int32:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case uint:
		return fromUint(uint64(x), path)
	case uint8:
		return Int(int64(x)), nil
	case uint16:
		return Int(int64(x)), nil
	case uint32:
		return Int(int64(x)), nil
	case uint64:
		return fromUint(x, path)
	case float32:
		return fromFloat(float64(x), path)
	case float64:
		return fromFloat(x, path)
	case json.Number:
		return fromNumber(x, path)
	case []byte:
		return Value{}, fmt.Errorf("%w: binary data at %s", ErrInvalidDocument, path)
	case []any:
		elems := make([]Value, len(x))
		for i, e := range x {
			ev, err := fromAny(e, path+"["+strconv.Itoa(i)+"]")
			if err != nil {
				return Value{}, err
			}
			elems[i] = ev
		}
		return List(elems...), nil
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		m := NewMap()
		for _, k := range keys {
			fv, err := fromAny(x[k], path+"."+k)
			if err != nil {
				return Value{}, err
			}
			m.Set(k, fv)
		}
		return Object(m), nil
	}

	return fromReflect(reflect.ValueOf(v), path)
}

// fromReflect handles typed slices and maps such as []string or
// map[string]int that the type switch above does not enumerate.
func fromReflect(rv reflect.Value, path string) (Value, error) {
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return Value{}, fmt.Errorf("%w: binary data at %s", ErrInvalidDocument, path)
		}
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return List(), nil
		}
		elems := make([]Value, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			ev, err := fromAny(rv.Index(i).Interface(), path+"["+strconv.Itoa(i)+"]")
			if err != nil {
				return Value{}, err
			}
			elems[i] = ev
		}
		return List(elems...), nil

	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return Value{}, fmt.Errorf("%w: map with %s keys at %s", ErrInvalidDocument, rv.Type().Key(), path)
		}
		keys := make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		m := NewMap()
		for _, k := range keys {
			fv, err := fromAny(rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key())).Interface(), path+"."+k)
			if err != nil {
				return Value{}, err
			}
			m.Set(k, fv)
		}
		return Object(m), nil

	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Null(), nil
		}
		return fromAny(rv.Elem().Interface(), path)
	}

	return Value{}, fmt.Errorf("%w: unsupported value of type %s at %s", ErrInvalidDocument, rv.Type(), path)
}

func fromUint(u uint64, path string) (Value, error) {
	if u > math.MaxInt64 {
		return Value{}, fmt.Errorf("%w: integer %d overflows int64 at %s", ErrInvalidDocument, u, path)
	}
	return Int(int64(u)), nil
}

func fromFloat(f float64, path string) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}, fmt.Errorf("%w: non-finite number at %s", ErrInvalidDocument, path)
	}
	return Float(f), nil
}

func fromNumber(n json.Number, path string) (Value, error) {
	if i, err := n.Int64(); err == nil {
		return Int(i), nil
	}
	f, err := n.Float64()
	if err != nil {
		return Value{}, fmt.Errorf("%w: malformed number %q at %s", ErrInvalidDocument, n.String(), path)
	}
	return fromFloat(f, path)
}
