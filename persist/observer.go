package persist

import (
	"context"

	"github.com/zero-day-ai/docgraph/store"
)

// NodeEvent describes a node the persister created or, with dedup enabled,
// reused.
type NodeEvent struct {
	Handle     store.NodeHandle
	Label      string
	Identity   string
	Properties map[string]any

	// Reused is true when no AddNode was issued because a vertex with the
	// same label and identity was already persisted.
	Reused bool
}

// EdgeEvent describes an edge the persister created.
type EdgeEvent struct {
	From store.NodeHandle
	Name string
	To   store.NodeHandle
}

// Observer is notified after each successful store mutation. Observers run
// synchronously on the persisting goroutine and must not call back into the
// Persister.
type Observer interface {
	NodeCreated(ctx context.Context, event NodeEvent)
	EdgeCreated(ctx context.Context, event EdgeEvent)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are ignored.
type ObserverFuncs struct {
	Node func(ctx context.Context, event NodeEvent)
	Edge func(ctx context.Context, event EdgeEvent)
}

// NodeCreated calls f.Node.
func (f ObserverFuncs) NodeCreated(ctx context.Context, event NodeEvent) {
	if f.Node != nil {
		f.Node(ctx, event)
	}
}

// EdgeCreated calls f.Edge.
func (f ObserverFuncs) EdgeCreated(ctx context.Context, event EdgeEvent) {
	if f.Edge != nil {
		f.Edge(ctx, event)
	}
}
