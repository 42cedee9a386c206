package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sattwyk/repoanalyzer/internal/model"
)

func sampleForest() []*model.TreeNode {
	return Build([]model.PathEntry{
		file("README.md"),
		file("src/index.ts"),
		file("src/lib/util.ts"),
		file("docs/intro.md"),
	})
}

func TestFind(t *testing.T) {
	forest := sampleForest()

	node := Find(forest, "src/lib/util.ts")
	require.NotNil(t, node)
	assert.Equal(t, "util.ts", node.Name)

	assert.NotNil(t, Find(forest, "src/lib"))
	assert.Nil(t, Find(forest, "src/li"))
	assert.Nil(t, Find(forest, "missing"))
	assert.Nil(t, Find(nil, "src"))
}

func TestWalkSkipsChildren(t *testing.T) {
	forest := sampleForest()

	var visited []string
	walk(forest, func(n *model.TreeNode) bool {
		visited = append(visited, n.Path)
		return n.Path != "src"
	})

	assert.Equal(t, []string{"README.md", "docs", "docs/intro.md", "src"}, visited)
}

func TestPrune(t *testing.T) {
	forest := sampleForest()
	expanded := map[string]bool{"src": true}

	pruned := Prune(forest, func(p string) bool { return expanded[p] })

	assert.Equal(t, []string{"README.md", "docs", "src"}, names(pruned))
	assert.Empty(t, pruned[1].Children)
	require.Len(t, pruned[2].Children, 2)
	assert.Empty(t, pruned[2].Children[1].Children, "src/lib is collapsed")

	// the source forest is untouched
	assert.Len(t, forest[1].Children, 1)
	assert.Len(t, forest[2].Children[1].Children, 1)
}
