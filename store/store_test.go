package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateProperties(t *testing.T) {
	tests := []struct {
		name    string
		props   map[string]any
		wantErr bool
	}{
		{name: "nil", props: nil},
		{name: "scalars", props: map[string]any{"s": "x", "i": int64(1), "f": 1.5, "b": true, "n": nil}},
		{name: "scalar list", props: map[string]any{"colors": []any{"green", "blue"}}},
		{name: "empty list", props: map[string]any{"l": []any{}}},
		{name: "nested map", props: map[string]any{"m": map[string]any{"a": 1}}, wantErr: true},
		{name: "list of lists", props: map[string]any{"l": []any{[]any{1}}}, wantErr: true},
		{name: "list of maps", props: map[string]any{"l": []any{map[string]any{}}}, wantErr: true},
		{name: "typed slice", props: map[string]any{"l": []string{"a"}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateProperties(tt.props)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidProperty)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestNode_Validate(t *testing.T) {
	assert.NoError(t, Node{Handle: "h", Label: "l"}.Validate())
	assert.Error(t, Node{Label: "l"}.Validate())
	assert.NoError(t, Node{Handle: "h"}.Validate(), "empty label is allowed")
	assert.Error(t, Node{Handle: "h", Label: "l", Properties: map[string]any{"x": struct{}{}}}.Validate())
}

func TestEdge_Validate(t *testing.T) {
	assert.NoError(t, Edge{From: "a", Name: "e", To: "b"}.Validate())
	assert.Error(t, Edge{Name: "e", To: "b"}.Validate())
	assert.Error(t, Edge{From: "a", Name: "e"}.Validate())
	assert.NoError(t, Edge{From: "a", To: "b"}.Validate(), "empty name is allowed")
}

func TestBatch(t *testing.T) {
	var b Batch

	require.NoError(t, b.AddNode(Node{Handle: "a", Label: "parent"}))
	require.NoError(t, b.AddNode(Node{Handle: "b", Label: "child"}))
	require.NoError(t, b.AddEdge(Edge{From: "a", Name: "child", To: "b"}, nil))

	err := b.AddEdge(Edge{From: "a", Name: "child", To: "zzz"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownHandle)

	require.ErrorIs(t, b.CheckEdge(Edge{From: "a", Name: "x", To: "zzz"}, nil), ErrUnknownHandle)
	require.NoError(t, b.CheckEdge(Edge{From: "a", Name: "x", To: "b"}, nil))

	committed := func(h NodeHandle) bool { return h == "old" }
	require.NoError(t, b.AddEdge(Edge{From: "old", Name: "child", To: "b"}, committed))

	nodes, edges := b.Snapshot()
	require.Len(t, nodes, 2)
	require.Len(t, edges, 2)
	assert.Equal(t, NodeHandle("a"), nodes[0].Handle)
	assert.Equal(t, NodeHandle("old"), edges[1].From)
	assert.Equal(t, 4, b.Len())
	assert.True(t, b.Has("a"))

	b.Reset()
	assert.Equal(t, 0, b.Len())
	assert.False(t, b.Has("a"))
}

func TestCopyProperties(t *testing.T) {
	list := []any{"x"}
	src := map[string]any{"l": list, "s": "v"}

	cp := CopyProperties(src)
	list[0] = "changed"
	src["s"] = "changed"

	assert.Equal(t, map[string]any{"l": []any{"x"}, "s": "v"}, cp)
}

func TestParseListQuery(t *testing.T) {
	tests := []struct {
		query string
		want  ListQuery
		ok    bool
	}{
		{query: "MATCH (n) RETURN n", want: ListQuery{}, ok: true},
		{query: "  match (n)\n return n ", want: ListQuery{}, ok: true},
		{query: "MATCH (n:friend) RETURN n", want: ListQuery{Label: "friend"}, ok: true},
		{query: "MATCH (n:`has friend`) RETURN n", want: ListQuery{Label: "has friend"}, ok: true},
		{query: "Match (n)-[r]->(m) Return n,r,m", want: ListQuery{Edges: true}, ok: true},
		{query: "MATCH (n)-[r]->(m) RETURN n, r, m", want: ListQuery{Edges: true}, ok: true},
		{query: "MATCH (n) DELETE n"},
		{query: "MATCH (m) RETURN m"},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, ok := ParseListQuery(tt.query)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestListQuery_Run(t *testing.T) {
	nodes := []Node{
		{Handle: "1", Label: "parent"},
		{Handle: "2", Label: "friend"},
		{Handle: "3", Label: "friend"},
	}
	edges := []Edge{
		{From: "1", Name: "friend", To: "2"},
		{From: "1", Name: "friend", To: "3"},
	}

	res := ListQuery{}.Run(nodes, edges)
	assert.Equal(t, []string{"n"}, res.Columns)
	assert.Len(t, res.Rows, 3)

	res = ListQuery{Label: "friend"}.Run(nodes, edges)
	assert.Len(t, res.Rows, 2)

	res = ListQuery{Edges: true}.Run(nodes, edges)
	assert.Equal(t, []string{"n", "r", "m"}, res.Columns)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, []any{nodes[0], edges[1], nodes[2]}, res.Rows[1])
}

func TestDecodeNode(t *testing.T) {
	n, err := DecodeNode([]byte(`{"handle":"h","label":"l","properties":{"i":3,"f":0.5,"s":"x","l":[1,2.5,"y"],"z":null}}`))
	require.NoError(t, err)
	assert.Equal(t, Node{
		Handle: "h",
		Label:  "l",
		Properties: map[string]any{
			"i": int64(3),
			"f": 0.5,
			"s": "x",
			"l": []any{int64(1), 2.5, "y"},
			"z": nil,
		},
	}, n)

	_, err = DecodeNode([]byte(`{`))
	assert.Error(t, err)
}
