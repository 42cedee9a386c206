// Package render turns an analysis into text views and export documents.
package render

import (
	"strings"

	"github.com/sattwyk/repoanalyzer/internal/model"
)

const (
	connectorMid  = "├── "
	connectorLast = "└── "
	indentOpen    = "│   "
	indentClosed  = "    "
)

// ASCIITree renders the forest in materialized sibling order, one line per
// node. An empty forest renders as the empty string.
func ASCIITree(forest []*model.TreeNode) string {
	var sb strings.Builder
	writeLevel(&sb, forest, nil)
	return sb.String()
}

func writeLevel(sb *strings.Builder, nodes []*model.TreeNode, ancestorsLast []bool) {
	for i, node := range nodes {
		isLast := i == len(nodes)-1
		sb.WriteString(Line(node, ancestorsLast, isLast))
		if len(node.Children) > 0 {
			writeLevel(sb, node.Children, append(ancestorsLast[:len(ancestorsLast):len(ancestorsLast)], isLast))
		}
	}
}

// Line renders a single node. ancestorsLast holds, from the root down, whether
// each ancestor was the last child at its level.
func Line(node *model.TreeNode, ancestorsLast []bool, isLast bool) string {
	connector := connectorMid
	if isLast {
		connector = connectorLast
	}
	return Prefix(ancestorsLast) + connector + nodeIcon(node) + " " + node.Name + "\n"
}

// Prefix is the indentation contributed by the ancestors of a node
func Prefix(ancestorsLast []bool) string {
	var sb strings.Builder
	for _, last := range ancestorsLast {
		if last {
			sb.WriteString(indentClosed)
		} else {
			sb.WriteString(indentOpen)
		}
	}
	return sb.String()
}

func nodeIcon(node *model.TreeNode) string {
	if node.IsDir() {
		return DirectoryIcon
	}
	return FileIcon(node.Name)
}
