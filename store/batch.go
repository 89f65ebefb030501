package store

import (
	"fmt"
	"sync"
)

// Batch stages nodes and edges between commits. Backends that write on
// Commit embed a Batch to collect mutations in call order.
//
// Batch is safe for concurrent use.
type Batch struct {
	mu    sync.Mutex
	nodes []Node
	edges []Edge
	known map[NodeHandle]struct{}
}

// AddNode stages a node after validating it.
func (b *Batch) AddNode(n Node) error {
	if err := n.Validate(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.known == nil {
		b.known = make(map[NodeHandle]struct{})
	}
	b.nodes = append(b.nodes, n)
	b.known[n.Handle] = struct{}{}
	return nil
}

// AddEdge stages an edge after validating it. Endpoints must be staged in
// this batch or accepted by committed, which may be nil.
func (b *Batch) AddEdge(e Edge, committed func(NodeHandle) bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkEdge(e, committed); err != nil {
		return err
	}
	b.edges = append(b.edges, e)
	return nil
}

// CheckEdge reports the error AddEdge would return for e without staging it.
func (b *Batch) CheckEdge(e Edge, committed func(NodeHandle) bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.checkEdge(e, committed)
}

// checkEdge validates e. Callers hold b.mu.
func (b *Batch) checkEdge(e Edge, committed func(NodeHandle) bool) error {
	if err := e.Validate(); err != nil {
		return err
	}
	for _, h := range []NodeHandle{e.From, e.To} {
		if _, ok := b.known[h]; ok {
			continue
		}
		if committed != nil && committed(h) {
			continue
		}
		return fmt.Errorf("%w: %s", ErrUnknownHandle, h)
	}
	return nil
}

// Has reports whether h is staged in this batch.
func (b *Batch) Has(h NodeHandle) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.known[h]
	return ok
}

// Snapshot returns copies of the staged nodes and edges in call order.
func (b *Batch) Snapshot() ([]Node, []Edge) {
	b.mu.Lock()
	defer b.mu.Unlock()

	nodes := make([]Node, len(b.nodes))
	copy(nodes, b.nodes)
	edges := make([]Edge, len(b.edges))
	copy(edges, b.edges)
	return nodes, edges
}

// Len returns the number of staged nodes and edges.
func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.nodes) + len(b.edges)
}

// Reset drops everything staged.
func (b *Batch) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nodes = nil
	b.edges = nil
	b.known = nil
}
