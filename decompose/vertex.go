package decompose

import (
	"bytes"
	"encoding/json"
)

// VertexNode is one decomposed mapping: the simple fields become properties
// and the complex fields become child vertices grouped by edge name.
//
// A VertexNode tree is built once per decomposition and is not modified
// afterwards.
type VertexNode struct {
	// Label classifies the vertex: the key it was nested under, or the root
	// label supplied by the caller.
	Label string

	// Identity is the fingerprint of Properties. Vertices with identical
	// properties share an identity regardless of label or children.
	Identity string

	// Properties holds the simple fields, values unchanged.
	Properties map[string]any

	// Children holds the edge groups built from the complex fields.
	// Decomposition always produces exactly one group, possibly empty.
	Children []EdgeGroup

	propertyKeys []string
}

// PropertyKeys returns the property names in source order.
func (v *VertexNode) PropertyKeys() []string {
	out := make([]string, len(v.propertyKeys))
	copy(out, v.propertyKeys)
	return out
}

// EdgeNames returns the edge names of all groups in order.
func (v *VertexNode) EdgeNames() []string {
	var out []string
	for _, g := range v.Children {
		out = append(out, g.Names()...)
	}
	return out
}

// MarshalJSON encodes the vertex with properties and edges in source order.
func (v *VertexNode) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"label":`)
	if err := writeJSON(&buf, v.Label); err != nil {
		return nil, err
	}
	buf.WriteString(`,"identity":`)
	if err := writeJSON(&buf, v.Identity); err != nil {
		return nil, err
	}
	buf.WriteString(`,"properties":{`)
	for i, k := range v.propertyKeys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSON(&buf, k); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := writeJSON(&buf, v.Properties[k]); err != nil {
			return nil, err
		}
	}
	buf.WriteString(`},"children":`)
	if err := writeJSON(&buf, v.Children); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// EdgeGroup maps edge names to their targets, keeping source order.
type EdgeGroup struct {
	names   []string
	targets map[string]Result
}

// NewEdgeGroup returns an empty group.
func NewEdgeGroup() EdgeGroup {
	return EdgeGroup{targets: make(map[string]Result)}
}

// Add appends an edge name and its target. Adding an existing name replaces
// its target in place.
func (g *EdgeGroup) Add(name string, target Result) {
	if g.targets == nil {
		g.targets = make(map[string]Result)
	}
	if _, ok := g.targets[name]; !ok {
		g.names = append(g.names, name)
	}
	g.targets[name] = target
}

// Len returns the number of edge names in the group.
func (g EdgeGroup) Len() int { return len(g.names) }

// Names returns the edge names in source order.
func (g EdgeGroup) Names() []string {
	out := make([]string, len(g.names))
	copy(out, g.names)
	return out
}

// Get returns the target stored under name.
func (g EdgeGroup) Get(name string) (Result, bool) {
	r, ok := g.targets[name]
	return r, ok
}

// Range calls fn for each entry in order until fn returns false.
func (g EdgeGroup) Range(fn func(name string, target Result) bool) {
	for _, n := range g.names {
		if !fn(n, g.targets[n]) {
			return
		}
	}
}

// MarshalJSON encodes the group as an object in source order.
func (g EdgeGroup) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, n := range g.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSON(&buf, n); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := writeJSON(&buf, g.targets[n]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ResultKind identifies the shape of a Result.
type ResultKind int

const (
	// ResultScalar is a scalar passed through unchanged.
	ResultScalar ResultKind = iota

	// ResultVertex is a single decomposed mapping.
	ResultVertex

	// ResultList is an ordered sequence of results.
	ResultList
)

// Result is what Decompose returns for an arbitrary value: a vertex for a
// mapping, a list of results for a sequence, or the scalar itself.
//
// As an edge group target, a ResultVertex is a single child and a ResultList
// is an ordered fan-out sharing one edge name.
type Result struct {
	kind   ResultKind
	vertex *VertexNode
	list   []Result
	scalar any
}

// VertexResult wraps a vertex.
func VertexResult(v *VertexNode) Result { return Result{kind: ResultVertex, vertex: v} }

// ListResult wraps an ordered list of results.
func ListResult(items ...Result) Result {
	if items == nil {
		items = []Result{}
	}
	return Result{kind: ResultList, list: items}
}

// ScalarResult wraps a scalar passthrough.
func ScalarResult(v any) Result { return Result{kind: ResultScalar, scalar: v} }

// Kind reports the shape of r.
func (r Result) Kind() ResultKind { return r.kind }

// IsVertex reports whether r holds a vertex.
func (r Result) IsVertex() bool { return r.kind == ResultVertex }

// IsList reports whether r holds a list.
func (r Result) IsList() bool { return r.kind == ResultList }

// IsScalar reports whether r holds a scalar.
func (r Result) IsScalar() bool { return r.kind == ResultScalar }

// Vertex returns the vertex, or nil when r is not a vertex.
func (r Result) Vertex() *VertexNode { return r.vertex }

// List returns the items, or nil when r is not a list.
func (r Result) List() []Result { return r.list }

// Scalar returns the scalar, or nil when r is not a scalar.
func (r Result) Scalar() any { return r.scalar }

// Vertices returns the vertices of r in order: the vertex itself, or the
// vertices of a list flattened depth-first. Scalars are omitted.
func (r Result) Vertices() []*VertexNode {
	switch r.kind {
	case ResultVertex:
		return []*VertexNode{r.vertex}
	case ResultList:
		var out []*VertexNode
		for _, item := range r.list {
			out = append(out, item.Vertices()...)
		}
		return out
	default:
		return nil
	}
}

// Interface converts r to plain Go values: vertices become *VertexNode,
// lists become []any and scalars are returned as is.
func (r Result) Interface() any {
	switch r.kind {
	case ResultVertex:
		return r.vertex
	case ResultList:
		out := make([]any, len(r.list))
		for i, item := range r.list {
			out[i] = item.Interface()
		}
		return out
	default:
		return r.scalar
	}
}

// MarshalJSON encodes the vertex, list or scalar held by r.
func (r Result) MarshalJSON() ([]byte, error) {
	switch r.kind {
	case ResultVertex:
		return r.vertex.MarshalJSON()
	case ResultList:
		return json.Marshal(r.list)
	default:
		return json.Marshal(r.scalar)
	}
}

func writeJSON(buf *bytes.Buffer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}
