package etcdstore

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/zero-day-ai/docgraph/store"
)

func TestNew_EmptyEndpoints(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "endpoints cannot be empty")
}

func TestGraphPrefix(t *testing.T) {
	tests := []struct {
		name      string
		namespace string
		graph     string
		want      string
	}{
		{name: "defaults", want: "/docgraph/docgraph/"},
		{name: "custom", namespace: "prod", graph: "people", want: "/prod/people/"},
		{name: "slashes trimmed", namespace: "/prod/", graph: "people/", want: "/prod/people/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, graphPrefix(tt.namespace, tt.graph))
		})
	}
}

func TestChunkOps(t *testing.T) {
	ops := make([]clientv3.Op, 300)
	for i := range ops {
		ops[i] = clientv3.OpPut(fmt.Sprintf("k%d", i), "v")
	}

	chunks := chunkOps(ops, MaxTxnOps)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 128)
	assert.Len(t, chunks[1], 128)
	assert.Len(t, chunks[2], 44)
	assert.Equal(t, "k299", string(chunks[2][43].KeyBytes()))

	assert.Empty(t, chunkOps(nil, MaxTxnOps))
}

func TestBuildOps(t *testing.T) {
	s := &Store{prefix: graphPrefix("ns", "g"), edgeIDs: []string{"e1"}}

	nodes := []store.Node{{Handle: "h1", Label: "parent", Properties: map[string]any{"a": "A"}}}
	edges := []store.Edge{{From: "h1", Name: "child", To: "h1"}}

	ops, err := s.buildOps(nodes, edges)
	require.NoError(t, err)
	require.Len(t, ops, 2)

	assert.True(t, ops[0].IsPut())
	assert.Equal(t, "/ns/g/n/h1", string(ops[0].KeyBytes()))
	n, err := store.DecodeNode(ops[0].ValueBytes())
	require.NoError(t, err)
	assert.Equal(t, nodes[0], n)

	assert.Equal(t, "/ns/g/e/e1", string(ops[1].KeyBytes()))
	var e store.Edge
	require.NoError(t, json.Unmarshal(ops[1].ValueBytes(), &e))
	assert.Equal(t, edges[0], e)
}
