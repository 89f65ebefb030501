package store

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for store operations.
// These errors can be used with errors.Is() for error checking.
var (
	// ErrStorageFailed indicates that a node, edge, commit, query or delete
	// operation failed in the backend. Backends wrap their native errors with
	// it so callers can detect storage failures uniformly:
	//
	//	if errors.Is(err, store.ErrStorageFailed) {
	//	    // the traversal was aborted; mutations already issued are not rolled back
	//	}
	ErrStorageFailed = errors.New("storage operation failed")

	// ErrUnknownHandle indicates an edge endpoint that was not created by
	// this store.
	ErrUnknownHandle = errors.New("unknown node handle")

	// ErrInvalidProperty indicates a property value that is neither a scalar
	// nor a list of scalars.
	ErrInvalidProperty = errors.New("invalid property")

	// ErrInvalidLabel indicates a node label or edge name the backend cannot
	// represent, such as the empty name in a Cypher store.
	ErrInvalidLabel = errors.New("invalid label")

	// ErrClosed indicates the store was used after Close.
	ErrClosed = errors.New("store closed")

	// ErrUnsupported indicates that the backend does not support the
	// requested query.
	ErrUnsupported = errors.New("operation not supported")
)

// NodeHandle is an opaque reference to a node created in a store. It is only
// meaningful to the store that returned it.
type NodeHandle string

// GraphStore is the capability the persister writes through.
//
// AddNode and AddEdge stage mutations; Commit makes them durable as one
// explicit step performed by the caller after a tree is persisted.
// Implementations are not required to be safe for concurrent use during a
// single persist walk.
type GraphStore interface {
	// AddNode creates a node tagged with label and carrying properties, and
	// returns a handle usable as an edge endpoint.
	AddNode(ctx context.Context, label string, properties map[string]any) (NodeHandle, error)

	// AddEdge creates one directed edge from -[name]-> to.
	AddEdge(ctx context.Context, from NodeHandle, name string, to NodeHandle) error

	// Commit makes all staged mutations durable.
	Commit(ctx context.Context) error
}

// Deleter is implemented by stores that can drop the whole graph.
type Deleter interface {
	// Delete removes every node and edge of the graph.
	Delete(ctx context.Context) error
}

// Querier is implemented by stores that can run read queries.
type Querier interface {
	// Query runs q with optional parameters and returns tabular results.
	Query(ctx context.Context, q string, params map[string]any) (*QueryResult, error)
}

// Pinger is implemented by stores backed by a remote service.
type Pinger interface {
	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error
}

// QueryResult is a tabular query result.
type QueryResult struct {
	// Columns names each position of a row.
	Columns []string `json:"columns"`

	// Rows holds the result values. Nodes and edges are returned as Node
	// and Edge where the backend can decode them.
	Rows [][]any `json:"rows"`

	// Stats holds backend statistics lines such as "Nodes created: 3".
	Stats []string `json:"stats,omitempty"`
}

// Node is a node as recorded by a store.
type Node struct {
	// Handle is the node's store handle.
	Handle NodeHandle `json:"handle"`

	// Label classifies the node.
	Label string `json:"label"`

	// Properties holds scalar or list-of-scalar values.
	Properties map[string]any `json:"properties,omitempty"`
}

// Validate checks that the node has a handle and valid properties. The label
// may be empty: a document key "" nests a child labeled "".
func (n Node) Validate() error {
	if n.Handle == "" {
		return fmt.Errorf("node handle cannot be empty")
	}
	return ValidateProperties(n.Properties)
}

// Edge is a directed, named edge as recorded by a store.
type Edge struct {
	// From is the source node handle.
	From NodeHandle `json:"from"`

	// Name is the edge name.
	Name string `json:"name"`

	// To is the target node handle.
	To NodeHandle `json:"to"`
}

// Validate checks that the edge has both endpoints. The name may be empty,
// like a node label.
func (e Edge) Validate() error {
	if e.From == "" {
		return fmt.Errorf("edge source cannot be empty")
	}
	if e.To == "" {
		return fmt.Errorf("edge target cannot be empty")
	}
	return nil
}

// ValidateProperties checks that every value is a scalar (nil, string, bool
// or number) or a list of scalars.
func ValidateProperties(properties map[string]any) error {
	for k, v := range properties {
		if isScalar(v) {
			continue
		}
		list, ok := v.([]any)
		if !ok {
			return fmt.Errorf("%w: %q has unsupported type %T", ErrInvalidProperty, k, v)
		}
		for i, e := range list {
			if !isScalar(e) {
				return fmt.Errorf("%w: %q[%d] has unsupported type %T", ErrInvalidProperty, k, i, e)
			}
		}
	}
	return nil
}

func isScalar(v any) bool {
	switch v.(type) {
	case nil, string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	default:
		return false
	}
}

// CopyProperties returns a shallow copy of properties with list values
// copied, so stores can keep them after the caller mutates its map.
func CopyProperties(properties map[string]any) map[string]any {
	out := make(map[string]any, len(properties))
	for k, v := range properties {
		if list, ok := v.([]any); ok {
			cp := make([]any, len(list))
			copy(cp, list)
			v = cp
		}
		out[k] = v
	}
	return out
}
