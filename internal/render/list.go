package render

import (
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/sattwyk/repoanalyzer/internal/analysis"
	"github.com/sattwyk/repoanalyzer/internal/model"
)

// FlatList renders the entries matching q, one path per line, in listing order
func FlatList(entries []model.PathEntry, q analysis.Query) string {
	matched := q.Apply(entries)
	lines := make([]string, 0, len(matched))
	for _, e := range matched {
		lines = append(lines, e.Path)
	}
	return strings.Join(lines, "\n")
}

// DetailedList is FlatList with an icon and, for sized files, a human readable size
func DetailedList(entries []model.PathEntry, q analysis.Query) string {
	matched := q.Apply(entries)
	lines := make([]string, 0, len(matched))
	for _, e := range matched {
		icon := DirectoryIcon
		if e.IsFile() {
			icon = FileIcon(e.Path)
		}
		line := icon + " " + e.Path
		if e.Size != nil && *e.Size > 0 {
			line += " (" + humanize.IBytes(uint64(*e.Size)) + ")"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
