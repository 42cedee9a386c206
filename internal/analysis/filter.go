package analysis

import (
	"fmt"
	"strings"

	"github.com/sattwyk/repoanalyzer/internal/model"
)

// FilterMode narrows the listing in addition to the search term
type FilterMode string

const (
	FilterAll       FilterMode = "all"
	FilterFiles     FilterMode = "files"
	FilterFolders   FilterMode = "folders"
	FilterImportant FilterMode = "important"
)

// filterMarkers overlap with importantMarkers but match looser substrings
var filterMarkers = []string{"readme", "package.json", "index", "app", "src", ".env", "config"}

// ParseFilterMode parses a filter mode name; empty means FilterAll
func ParseFilterMode(s string) (FilterMode, error) {
	switch mode := FilterMode(strings.ToLower(strings.TrimSpace(s))); mode {
	case "":
		return FilterAll, nil
	case FilterAll, FilterFiles, FilterFolders, FilterImportant:
		return mode, nil
	default:
		return "", fmt.Errorf("unknown filter mode %q, expected one of all, files, folders, important", s)
	}
}

// Query is the search term plus filter mode applied to the listing
type Query struct {
	Search string     `json:"search"`
	Mode   FilterMode `json:"filter"`
}

// Match reports whether the entry passes the query. The search term is a
// case-insensitive substring of the path and is not trimmed.
func (q Query) Match(e model.PathEntry) bool {
	if !strings.Contains(strings.ToLower(e.Path), strings.ToLower(q.Search)) {
		return false
	}

	switch q.Mode {
	case FilterFiles:
		return e.Kind == model.KindFile
	case FilterFolders:
		return e.Kind == model.KindDirectory
	case FilterImportant:
		return containsAny(strings.ToLower(e.Path), filterMarkers)
	default:
		return true
	}
}

// Apply returns the matching entries in input order
func (q Query) Apply(entries []model.PathEntry) []model.PathEntry {
	out := make([]model.PathEntry, 0, len(entries))
	for _, e := range entries {
		if q.Match(e) {
			out = append(out, e)
		}
	}
	return out
}
