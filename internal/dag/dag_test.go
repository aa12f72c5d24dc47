package dag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddNodeAndEdge(t *testing.T) {
	g := NewGraph()
	g.AddNode("base", nil)
	g.AddNode("flat_1", nil)

	require.NoError(t, g.AddEdge("base", "flat_1"))
	assert.Equal(t, 2, g.NodeCount())
	assert.Equal(t, []string{"base"}, g.GetParents("flat_1"))
}

func TestAddEdgeMissingNode(t *testing.T) {
	g := NewGraph()
	g.AddNode("base", nil)

	err := g.AddEdge("base", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestSelfLoopRejected(t *testing.T) {
	g := NewGraph()
	g.AddNode("a", nil)
	require.Error(t, g.AddEdge("a", "a"))
}

func TestTopologicalSortOrdersDependenciesFirst(t *testing.T) {
	g := NewGraph()
	g.AddNode("flat_2", nil)
	g.AddNode("flat_1", nil)
	g.AddNode("base", nil)
	require.NoError(t, g.AddEdge("base", "flat_1"))
	require.NoError(t, g.AddEdge("flat_1", "flat_2"))

	sorted, err := g.TopologicalSort()
	require.NoError(t, err)

	pos := make(map[string]int)
	for i, n := range sorted {
		pos[n.ID] = i
	}
	assert.Less(t, pos["base"], pos["flat_1"])
	assert.Less(t, pos["flat_1"], pos["flat_2"])
}

func TestTopologicalSortIsDeterministic(t *testing.T) {
	build := func() *Graph {
		g := NewGraph()
		g.AddNode("a", nil)
		g.AddNode("b", nil)
		g.AddNode("c", nil)
		require.NoError(t, g.AddEdge("a", "c"))
		require.NoError(t, g.AddEdge("b", "c"))
		return g
	}

	first, err := build().TopologicalSort()
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := build().TopologicalSort()
		require.NoError(t, err)
		require.Len(t, again, len(first))
		for j := range first {
			assert.Equal(t, first[j].ID, again[j].ID)
		}
	}
}

func TestCycleDetection(t *testing.T) {
	g := NewGraph()
	g.AddNode("a", nil)
	g.AddNode("b", nil)
	g.AddNode("c", nil)
	require.NoError(t, g.AddEdge("a", "b"))
	require.NoError(t, g.AddEdge("b", "c"))
	require.NoError(t, g.AddEdge("c", "a"))

	hasCycle, path := g.HasCycle()
	assert.True(t, hasCycle)
	assert.NotEmpty(t, path)

	_, err := g.TopologicalSort()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle detected")
}

func TestNodeDataCarried(t *testing.T) {
	g := NewGraph()
	g.AddNode("base", "SELECT 1")
	node, ok := g.GetNode("base")
	require.True(t, ok)
	assert.Equal(t, "SELECT 1", node.Data)

	// Re-adding updates data
	g.AddNode("base", "SELECT 2")
	node, _ = g.GetNode("base")
	assert.Equal(t, "SELECT 2", node.Data)
}
