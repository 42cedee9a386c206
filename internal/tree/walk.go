package tree

import (
	"strings"

	"github.com/sattwyk/repoanalyzer/internal/model"
)

// Find returns the node with the given full path, or nil
func Find(forest []*model.TreeNode, path string) *model.TreeNode {
	for _, n := range forest {
		if n.Path == path {
			return n
		}
		if strings.HasPrefix(path, n.Path+"/") {
			return Find(n.Children, path)
		}
	}
	return nil
}

// Prune returns a copy of the forest where only directories reported as
// expanded keep their children. Roots are always present.
func Prune(forest []*model.TreeNode, expanded func(path string) bool) []*model.TreeNode {
	out := make([]*model.TreeNode, 0, len(forest))
	for _, node := range forest {
		cp := *node
		cp.Children = nil
		if node.IsDir() && expanded(node.Path) {
			cp.Children = Prune(node.Children, expanded)
		}
		out = append(out, &cp)
	}
	return out
}
