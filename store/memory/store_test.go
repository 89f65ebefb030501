package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/docgraph/store"
)

func TestStore_CommitAppliesStaged(t *testing.T) {
	ctx := context.Background()
	s := New()

	parent, err := s.AddNode(ctx, "parent", map[string]any{"a": "A"})
	require.NoError(t, err)
	child, err := s.AddNode(ctx, "child", map[string]any{"c": "C"})
	require.NoError(t, err)
	require.NoError(t, s.AddEdge(ctx, parent, "child", child))

	assert.Empty(t, s.Nodes())
	assert.Equal(t, 3, s.Pending())

	require.NoError(t, s.Commit(ctx))
	assert.Equal(t, 0, s.Pending())

	nodes := s.Nodes()
	require.Len(t, nodes, 2)
	assert.Equal(t, "parent", nodes[0].Label)
	assert.Equal(t, "child", nodes[1].Label)
	assert.Equal(t, []store.Edge{{From: parent, Name: "child", To: child}}, s.Edges())

	n, ok := s.Node(child)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"c": "C"}, n.Properties)

	assert.Equal(t, []Op{OpAddNode, OpAddNode, OpAddEdge, OpCommit}, s.Ops())
}

func TestStore_EdgeToCommittedNode(t *testing.T) {
	ctx := context.Background()
	s := New()

	a, err := s.AddNode(ctx, "a", nil)
	require.NoError(t, err)
	require.NoError(t, s.Commit(ctx))

	b, err := s.AddNode(ctx, "b", nil)
	require.NoError(t, err)
	require.NoError(t, s.AddEdge(ctx, a, "rel", b))
	require.NoError(t, s.Commit(ctx))

	assert.Len(t, s.Edges(), 1)
}

func TestStore_UnknownHandle(t *testing.T) {
	ctx := context.Background()
	s := New()

	a, err := s.AddNode(ctx, "a", nil)
	require.NoError(t, err)

	err = s.AddEdge(ctx, a, "rel", "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrStorageFailed)
	assert.ErrorIs(t, err, store.ErrUnknownHandle)
}

func TestStore_InvalidProperties(t *testing.T) {
	_, err := New().AddNode(context.Background(), "a", map[string]any{"m": map[string]any{}})
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrInvalidProperty)
}

func TestStore_RejectedCallsNotJournaled(t *testing.T) {
	ctx := context.Background()
	s := New()

	a, err := s.AddNode(ctx, "a", nil)
	require.NoError(t, err)

	_, err = s.AddNode(ctx, "b", map[string]any{"m": map[string]any{}})
	require.ErrorIs(t, err, store.ErrInvalidProperty)
	require.ErrorIs(t, s.AddEdge(ctx, a, "rel", "missing"), store.ErrUnknownHandle)

	assert.Len(t, s.Journal(), 1)
	assert.Len(t, s.Ops(OpAddNode), 1)
	assert.Empty(t, s.Ops(OpAddEdge))
	assert.Equal(t, 1, s.Pending())
}

func TestStore_EmptyLabel(t *testing.T) {
	ctx := context.Background()
	s := New()

	a, err := s.AddNode(ctx, "", nil)
	require.NoError(t, err)
	require.NoError(t, s.AddEdge(ctx, a, "", a))
	require.NoError(t, s.Commit(ctx))

	n, ok := s.Node(a)
	require.True(t, ok)
	assert.Equal(t, "", n.Label)
	assert.Equal(t, "", s.Edges()[0].Name)
}

func TestStore_PropertiesCopied(t *testing.T) {
	ctx := context.Background()
	s := New()

	props := map[string]any{"k": "v"}
	h, err := s.AddNode(ctx, "a", props)
	require.NoError(t, err)
	props["k"] = "changed"
	require.NoError(t, s.Commit(ctx))

	n, ok := s.Node(h)
	require.True(t, ok)
	assert.Equal(t, "v", n.Properties["k"])
}

func TestStore_DeleteThenCommit(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.AddNode(ctx, "a", nil)
	require.NoError(t, err)
	require.NoError(t, s.Commit(ctx))
	require.Len(t, s.Nodes(), 1)

	_, err = s.AddNode(ctx, "staged", nil)
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx))
	assert.Equal(t, 0, s.Pending())
	assert.Len(t, s.Nodes(), 1, "delete applies on commit")

	require.NoError(t, s.Commit(ctx))
	assert.Empty(t, s.Nodes())
	assert.Empty(t, s.Edges())
}

func TestStore_Query(t *testing.T) {
	ctx := context.Background()
	s := New()

	p, _ := s.AddNode(ctx, "parent", map[string]any{"a": "A"})
	f1, _ := s.AddNode(ctx, "friend", map[string]any{"f": "F1"})
	f2, _ := s.AddNode(ctx, "friend", map[string]any{"f": "F2"})
	require.NoError(t, s.AddEdge(ctx, p, "friend", f1))
	require.NoError(t, s.AddEdge(ctx, p, "friend", f2))
	require.NoError(t, s.Commit(ctx))

	tests := []struct {
		name    string
		query   string
		columns []string
		rows    int
	}{
		{name: "all nodes", query: "MATCH (n) RETURN n", columns: []string{"n"}, rows: 3},
		{name: "lower case", query: "match (n)   return n", columns: []string{"n"}, rows: 3},
		{name: "by label", query: "MATCH (n:friend) RETURN n", columns: []string{"n"}, rows: 2},
		{name: "edges", query: "Match (n)-[r]->(m) Return n,r,m", columns: []string{"n", "r", "m"}, rows: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.Query(ctx, tt.query, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.columns, res.Columns)
			assert.Len(t, res.Rows, tt.rows)
		})
	}

	res, err := s.Query(ctx, "MATCH (n)-[r]->(m) RETURN n,r,m", nil)
	require.NoError(t, err)
	first := res.Rows[0]
	assert.Equal(t, "parent", first[0].(store.Node).Label)
	assert.Equal(t, "friend", first[1].(store.Edge).Name)
	assert.Equal(t, "F1", first[2].(store.Node).Properties["f"])

	_, err = s.Query(ctx, "MATCH (n) DELETE n", nil)
	assert.ErrorIs(t, err, store.ErrUnsupported)
}

func TestStore_FailOn(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	s := New(WithFailure(FailOn(OpAddNode, 2, boom)))

	_, err := s.AddNode(ctx, "a", nil)
	require.NoError(t, err)

	_, err = s.AddNode(ctx, "b", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrStorageFailed)
	assert.ErrorIs(t, err, boom)

	_, err = s.AddNode(ctx, "c", nil)
	require.NoError(t, err)

	assert.Len(t, s.Journal(), 3)
	assert.Equal(t, 2, s.Pending())
}

func TestStore_Closed(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Ping(ctx))
	require.NoError(t, s.Close())

	_, err := s.AddNode(ctx, "a", nil)
	assert.ErrorIs(t, err, store.ErrClosed)
	assert.ErrorIs(t, s.Commit(ctx), store.ErrClosed)
	assert.ErrorIs(t, s.Ping(ctx), store.ErrClosed)
}
