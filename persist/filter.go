package persist

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/zero-day-ai/docgraph/decompose"
)

var (
	// ErrInvalidFilter indicates a filter expression that does not compile or
	// does not produce a bool.
	ErrInvalidFilter = errors.New("invalid filter expression")

	// ErrFilterFailed indicates a filter that failed to evaluate on a
	// vertex, for example by reading a property the vertex does not have.
	ErrFilterFailed = errors.New("filter evaluation failed")
)

// Filter decides which vertices are persisted. It is a CEL expression over
// two variables:
//
//	label       string
//	properties  map(string, dyn)
//
// for example:
//
//	label != "audit" && properties.size() > 0
//	!(has(properties.internal) && properties.internal == true)
//
// A vertex for which the expression is false is skipped together with its
// whole subtree and the edge that would have pointed at it.
type Filter struct {
	expr    string
	program cel.Program
}

// CompileFilter compiles expr.
func CompileFilter(expr string) (*Filter, error) {
	env, err := cel.NewEnv(
		cel.Variable("label", cel.StringType),
		cel.Variable("properties", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create filter environment: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("%w: %q evaluates to %s, want bool", ErrInvalidFilter, expr, ast.OutputType())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}

	return &Filter{expr: expr, program: program}, nil
}

// String returns the source expression.
func (f *Filter) String() string { return f.expr }

// Allow evaluates the filter against node.
func (f *Filter) Allow(ctx context.Context, node *decompose.VertexNode) (bool, error) {
	props := node.Properties
	if props == nil {
		props = map[string]any{}
	}

	out, _, err := f.program.ContextEval(ctx, map[string]any{
		"label":      node.Label,
		"properties": props,
	})
	if err != nil {
		return false, fmt.Errorf("%w: %q on %q vertex: %w", ErrFilterFailed, f.expr, node.Label, err)
	}

	allow, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("%w: %q on %q vertex returned %T", ErrFilterFailed, f.expr, node.Label, out.Value())
	}
	return allow, nil
}
