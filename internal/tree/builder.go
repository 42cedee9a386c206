// Package tree turns the flat repository listing into a forest of nodes.
package tree

import (
	"slices"
	"strings"

	"github.com/sattwyk/repoanalyzer/internal/model"
)

// Build converts a set of entries into a forest.
//
// Entries are sorted by path using byte-wise comparison and inserted in that
// order; the sorted order is also the sibling order of the result. Every
// distinct path prefix becomes exactly one node, with directories inferred
// when they are not listed explicitly.
//
// Conflicts resolve last-processed-wins: a node takes the kind and size of the
// last entry whose full path it is, and a node that is traversed as a prefix of
// a later entry becomes a directory (its size is dropped). Since a path always
// sorts before its descendants, a file "a" listed next to "a/b" ends up as a
// directory holding "a/b".
func Build(entries []model.PathEntry) []*model.TreeNode {
	sorted := slices.Clone(entries)
	slices.SortStableFunc(sorted, func(a, b model.PathEntry) int {
		return strings.Compare(a.Path, b.Path)
	})

	forest := make([]*model.TreeNode, 0)
	nodes := make(map[string]*model.TreeNode, len(sorted))

	for _, entry := range sorted {
		if entry.Path == "" {
			continue
		}
		insert(&forest, nodes, entry)
	}

	return forest
}

func insert(forest *[]*model.TreeNode, nodes map[string]*model.TreeNode, entry model.PathEntry) {
	parts := strings.Split(entry.Path, "/")

	var parent *model.TreeNode
	for i, part := range parts {
		current := strings.Join(parts[:i+1], "/")
		terminal := i == len(parts)-1

		node, ok := nodes[current]
		if !ok {
			node = &model.TreeNode{
				Name:  part,
				Path:  current,
				Kind:  model.KindDirectory,
				Depth: i,
			}
			nodes[current] = node
			if parent == nil {
				*forest = append(*forest, node)
			} else {
				parent.Children = append(parent.Children, node)
			}
		}

		if terminal {
			node.Kind = entry.Kind
			node.Size = nil
			if entry.Kind == model.KindFile {
				node.Size = entry.Size
			}
		} else if node.Kind != model.KindDirectory {
			node.Kind = model.KindDirectory
			node.Size = nil
		}

		parent = node
	}
}
