package decompose

import (
	"errors"
	"fmt"

	"github.com/zero-day-ai/docgraph/document"
	"github.com/zero-day-ai/docgraph/fingerprint"
)

var (
	// ErrClassificationAmbiguous indicates a list whose elements disagree on
	// being simple or complex. It is only reported in strict mode; by default
	// the first element decides for the whole list.
	ErrClassificationAmbiguous = errors.New("list elements disagree in classification")

	// ErrNotAMapping indicates that DecomposeVertex received a list or scalar.
	ErrNotAMapping = errors.New("document root is not a mapping")
)

// Decomposer turns documents into VertexNode trees. It performs no I/O and
// holds no mutable state, so one Decomposer may be shared by goroutines.
type Decomposer struct {
	fingerprint fingerprint.Generator
	strict      bool
}

// Option configures a Decomposer.
type Option func(*Decomposer)

// WithFingerprint sets the identity generator. The default is
// fingerprint.SHA256().
func WithFingerprint(gen fingerprint.Generator) Option {
	return func(d *Decomposer) {
		if gen != nil {
			d.fingerprint = gen
		}
	}
}

// WithStrictLists makes classification scan every element of a list and
// fail with ErrClassificationAmbiguous when they disagree, instead of
// trusting the first element.
func WithStrictLists(strict bool) Option {
	return func(d *Decomposer) {
		d.strict = strict
	}
}

// New creates a Decomposer.
func New(opts ...Option) *Decomposer {
	d := &Decomposer{
		fingerprint: fingerprint.SHA256(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decompose converts value into a Result:
//   - a scalar is returned unchanged
//   - a list yields the list of its decomposed elements, each with label
//   - a mapping yields a vertex labeled label
//
// Complex fields of a mapping are decomposed with their key as label.
func (d *Decomposer) Decompose(value document.Value, label string) (Result, error) {
	switch value.Kind() {
	case document.KindMap:
		v, err := d.decomposeMap(value.Map(), label)
		if err != nil {
			return Result{}, err
		}
		return VertexResult(v), nil

	case document.KindList:
		elems := value.List()
		items := make([]Result, 0, len(elems))
		for _, e := range elems {
			r, err := d.Decompose(e, label)
			if err != nil {
				return Result{}, err
			}
			items = append(items, r)
		}
		return ListResult(items...), nil

	default:
		return ScalarResult(value.Scalar()), nil
	}
}

// DecomposeVertex decomposes a mapping into a vertex tree rooted at label.
func (d *Decomposer) DecomposeVertex(value document.Value, label string) (*VertexNode, error) {
	if !value.IsMap() {
		return nil, fmt.Errorf("%w: got %s", ErrNotAMapping, value.Kind())
	}
	return d.decomposeMap(value.Map(), label)
}

func (d *Decomposer) decomposeMap(m *document.Map, label string) (*VertexNode, error) {
	props := make(map[string]any)
	var keys []string
	group := NewEdgeGroup()

	for _, k := range m.Keys() {
		v, _ := m.Get(k)

		simple, err := d.classify(v)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", label, k, err)
		}

		if simple {
			props[k] = v.Interface()
			keys = append(keys, k)
			continue
		}

		child, err := d.Decompose(v, k)
		if err != nil {
			return nil, err
		}
		group.Add(k, child)
	}

	identity, err := d.fingerprint.Generate(props)
	if err != nil {
		return nil, fmt.Errorf("failed to fingerprint %q vertex: %w", label, err)
	}

	return &VertexNode{
		Label:        label,
		Identity:     identity,
		Properties:   props,
		Children:     []EdgeGroup{group},
		propertyKeys: keys,
	}, nil
}

func (d *Decomposer) classify(v document.Value) (bool, error) {
	if !d.strict {
		return IsSimple(v), nil
	}
	return classifyStrict(v)
}

// IsSimple reports whether v belongs in vertex properties: a scalar, or a
// list whose first element is itself simple. Empty lists are simple. Only
// the first element of a list is inspected.
func IsSimple(v document.Value) bool {
	switch v.Kind() {
	case document.KindScalar:
		return true
	case document.KindList:
		elems := v.List()
		if len(elems) == 0 {
			return true
		}
		return IsSimple(elems[0])
	default:
		return false
	}
}

// classifyStrict applies the same rule as IsSimple but requires every list
// element to agree with the first.
func classifyStrict(v document.Value) (bool, error) {
	if !v.IsList() {
		return IsSimple(v), nil
	}

	elems := v.List()
	if len(elems) == 0 {
		return true, nil
	}

	first, err := classifyStrict(elems[0])
	if err != nil {
		return false, err
	}
	for i := 1; i < len(elems); i++ {
		got, err := classifyStrict(elems[i])
		if err != nil {
			return false, err
		}
		if got != first {
			return false, fmt.Errorf("%w: element 0 is %s but element %d is %s",
				ErrClassificationAmbiguous, classification(first), i, classification(got))
		}
	}
	return first, nil
}

func classification(simple bool) string {
	if simple {
		return "simple"
	}
	return "complex"
}
