// Package persist writes decomposed vertex trees to a store.GraphStore.
//
// The walk is depth-first and pre-order. For each edge group entry, in group
// order and then list order, the child node is created, the edge from the
// parent is added, and the child's own subtree is persisted before the next
// sibling:
//
//	p, err := persist.New(s, persist.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	if _, err := p.Persist(ctx, root); err != nil {
//	    return err // errors.Is(err, store.ErrStorageFailed)
//	}
//	return s.Commit(ctx)
//
// Committing is left to the caller. A failing store call stops the walk and
// nothing already issued is rolled back.
//
// By default each vertex becomes a distinct node even when identities
// collide. WithDedup switches to content addressing on (label, identity).
package persist
