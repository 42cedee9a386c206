package session

import (
	"encoding/json"
	"maps"
	"slices"

	"github.com/sattwyk/repoanalyzer/internal/analysis"
	"github.com/sattwyk/repoanalyzer/internal/render"
)

// State is the view state of one session. Values are never mutated;
// every With* method returns an updated copy.
type State struct {
	search   string
	filter   analysis.FilterMode
	expanded map[string]struct{}
	copied   render.Format
}

// NewState returns the initial state: no search, all entries, nothing
// expanded, nothing copied
func NewState() State {
	return State{filter: analysis.FilterAll}
}

// Search is the list search term
func (s State) Search() string {
	return s.search
}

// Filter is the list filter mode
func (s State) Filter() analysis.FilterMode {
	return s.filter
}

// Copied is the export format last copied, empty when none
func (s State) Copied() render.Format {
	return s.copied
}

// IsExpanded reports whether the directory path is expanded in the outline
func (s State) IsExpanded(path string) bool {
	_, ok := s.expanded[path]
	return ok
}

// Query is the search/filter predicate for listings
func (s State) Query() analysis.Query {
	return analysis.Query{Search: s.search, Mode: s.filter}
}

// Expanded returns the expanded directory paths in sorted order
func (s State) Expanded() []string {
	return slices.Sorted(maps.Keys(s.expanded))
}

// View is the render view for this state
func (s State) View() render.View {
	return render.View{Query: s.Query(), Expanded: s.IsExpanded}
}

// WithSearch sets the search term
func (s State) WithSearch(term string) State {
	s.search = term
	return s
}

// WithFilter sets the filter mode
func (s State) WithFilter(mode analysis.FilterMode) State {
	s.filter = mode
	return s
}

// WithToggled flips the expanded flag of a directory path
func (s State) WithToggled(path string) State {
	next := make(map[string]struct{}, len(s.expanded)+1)
	maps.Copy(next, s.expanded)
	if _, ok := next[path]; ok {
		delete(next, path)
	} else {
		next[path] = struct{}{}
	}
	s.expanded = next
	return s
}

// WithCopied records the export that was last copied
func (s State) WithCopied(f render.Format) State {
	s.copied = f
	return s
}

type stateJSON struct {
	Search   string              `json:"search"`
	Filter   analysis.FilterMode `json:"filter"`
	Expanded []string            `json:"expanded"`
	Copied   render.Format       `json:"copied,omitempty"`
}

// MarshalJSON encodes the state for the HTTP API
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(stateJSON{
		Search:   s.search,
		Filter:   s.filter,
		Expanded: s.Expanded(),
		Copied:   s.copied,
	})
}

// Update is a partial state change; nil fields are left alone
type Update struct {
	Search *string `json:"search,omitempty"`
	Filter *string `json:"filter,omitempty"`
	Toggle *string `json:"toggle,omitempty"`
}

// Apply returns s with u applied, or an error for an unknown filter mode
func (u Update) Apply(s State) (State, error) {
	if u.Search != nil {
		s = s.WithSearch(*u.Search)
	}
	if u.Filter != nil {
		mode, err := analysis.ParseFilterMode(*u.Filter)
		if err != nil {
			return s, err
		}
		s = s.WithFilter(mode)
	}
	if u.Toggle != nil {
		s = s.WithToggled(*u.Toggle)
	}
	return s, nil
}
