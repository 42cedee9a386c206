package tree

import "github.com/sattwyk/repoanalyzer/internal/model"

// walk visits nodes depth-first in sibling order. Returning false from fn
// skips the node's children.
func walk(forest []*model.TreeNode, fn func(*model.TreeNode) bool) {
	for _, node := range forest {
		if fn(node) {
			walk(node.Children, fn)
		}
	}
}

func count(forest []*model.TreeNode) int {
	n := 0
	walk(forest, func(*model.TreeNode) bool {
		n++
		return true
	})
	return n
}

// leaves returns the full paths of all nodes without children, in walk order
func leaves(forest []*model.TreeNode) []string {
	var paths []string
	walk(forest, func(n *model.TreeNode) bool {
		if len(n.Children) == 0 {
			paths = append(paths, n.Path)
		}
		return true
	})
	return paths
}
