// Package protoconv converts protobuf messages into documents so that typed
// proto payloads can be decomposed into graphs the same way as JSON or YAML.
package protoconv

import (
	"fmt"
	"math"
	"sort"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/zero-day-ai/docgraph/document"
)

// Well-known message types that carry time values. They have no JSON
// document shape of their own and are rejected.
var rejectedMessages = map[protoreflect.FullName]bool{
	"google.protobuf.Timestamp": true,
	"google.protobuf.Duration":  true,
}

// FromProto converts a proto message to a document mapping.
//
// Only fields that are set are included, in field declaration order, keyed
// by their proto field names. Conversion rules:
//   - string, bool and numeric fields become scalars (integers as int64)
//   - enums become the name of their value
//   - repeated fields become lists
//   - nested messages become mappings
//   - map fields become mappings with keys sorted lexically
//   - google.protobuf.Struct, Value and ListValue take their JSON shape
//
// Bytes fields, Timestamp and Duration messages, and uint64 values above
// the int64 range wrap document.ErrInvalidDocument.
func FromProto(msg proto.Message) (document.Value, error) {
	if msg == nil {
		return document.Value{}, fmt.Errorf("proto message is nil")
	}
	return convertMessage(msg.ProtoReflect(), string(msg.ProtoReflect().Descriptor().FullName()))
}

func convertMessage(refl protoreflect.Message, path string) (document.Value, error) {
	desc := refl.Descriptor()
	if rejectedMessages[desc.FullName()] {
		return document.Value{}, fmt.Errorf("%w: %s message at %s", document.ErrInvalidDocument, desc.FullName(), path)
	}

	// Struct, Value and ListValue already describe JSON; use their native form.
	switch m := refl.Interface().(type) {
	case *structpb.Struct:
		return document.FromAny(m.AsMap())
	case *structpb.Value:
		return document.FromAny(m.AsInterface())
	case *structpb.ListValue:
		return document.FromAny(m.AsSlice())
	}

	out := document.NewMap()
	fields := desc.Fields()
	for i := 0; i < fields.Len(); i++ {
		field := fields.Get(i)
		if !refl.Has(field) {
			continue
		}

		name := string(field.Name())
		fieldPath := path + "." + name
		value := refl.Get(field)

		var (
			converted document.Value
			err       error
		)
		switch {
		case field.IsMap():
			converted, err = convertMap(field, value.Map(), fieldPath)
		case field.IsList():
			converted, err = convertList(field, value.List(), fieldPath)
		default:
			converted, err = convertSingular(field, value, fieldPath)
		}
		if err != nil {
			return document.Value{}, err
		}
		out.Set(name, converted)
	}

	return document.Object(out), nil
}

func convertList(field protoreflect.FieldDescriptor, list protoreflect.List, path string) (document.Value, error) {
	elems := make([]document.Value, 0, list.Len())
	for i := 0; i < list.Len(); i++ {
		ev, err := convertSingular(field, list.Get(i), fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return document.Value{}, err
		}
		elems = append(elems, ev)
	}
	return document.List(elems...), nil
}

func convertMap(field protoreflect.FieldDescriptor, m protoreflect.Map, path string) (document.Value, error) {
	keys := make([]protoreflect.MapKey, 0, m.Len())
	m.Range(func(k protoreflect.MapKey, _ protoreflect.Value) bool {
		keys = append(keys, k)
		return true
	})
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

	out := document.NewMap()
	for _, k := range keys {
		key := k.String()
		ev, err := convertSingular(field.MapValue(), m.Get(k), path+"."+key)
		if err != nil {
			return document.Value{}, err
		}
		out.Set(key, ev)
	}
	return document.Object(out), nil
}

// convertSingular converts one non-repeated value of field's kind.
func convertSingular(field protoreflect.FieldDescriptor, value protoreflect.Value, path string) (document.Value, error) {
	switch field.Kind() {
	case protoreflect.StringKind:
		return document.String(value.String()), nil

	case protoreflect.BoolKind:
		return document.Bool(value.Bool()), nil

	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind,
		protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		return document.Int(value.Int()), nil

	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind,
		protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		u := value.Uint()
		if u > math.MaxInt64 {
			return document.Value{}, fmt.Errorf("%w: integer %d overflows int64 at %s", document.ErrInvalidDocument, u, path)
		}
		return document.Int(int64(u)), nil

	case protoreflect.FloatKind, protoreflect.DoubleKind:
		f := value.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return document.Value{}, fmt.Errorf("%w: non-finite number at %s", document.ErrInvalidDocument, path)
		}
		return document.Float(f), nil

	case protoreflect.EnumKind:
		num := value.Enum()
		if ev := field.Enum().Values().ByNumber(num); ev != nil {
			return document.String(string(ev.Name())), nil
		}
		return document.Int(int64(num)), nil

	case protoreflect.BytesKind:
		return document.Value{}, fmt.Errorf("%w: bytes field at %s", document.ErrInvalidDocument, path)

	case protoreflect.MessageKind, protoreflect.GroupKind:
		return convertMessage(value.Message(), path)
	}

	return document.Value{}, fmt.Errorf("%w: unsupported field kind %v at %s", document.ErrInvalidDocument, field.Kind(), path)
}
