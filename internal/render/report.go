package render

import (
	"github.com/sattwyk/repoanalyzer/internal/analysis"
	"github.com/sattwyk/repoanalyzer/internal/model"
)

const (
	descriptionPlaceholder = "No description provided"
	languagePlaceholder    = "Not specified"
)

// Report is everything the export templates draw from
type Report struct {
	Owner          string
	Repo           string
	Metadata       model.RepoMetadata
	Forest         []*model.TreeNode
	Entries        []model.PathEntry
	TechStack      []string
	ImportantFiles []model.PathEntry
	Complexity     int
}

// NewReport builds a report for owner/repo from an analysis result
func NewReport(owner, repo string, result *model.AnalysisResult) Report {
	return Report{
		Owner:          owner,
		Repo:           repo,
		Metadata:       result.Metadata,
		Forest:         result.Forest,
		Entries:        result.Entries,
		TechStack:      result.TechStack,
		ImportantFiles: result.ImportantFiles,
		Complexity:     result.Complexity,
	}
}

// Files is the number of file entries
func (r Report) Files() int {
	n := 0
	for _, e := range r.Entries {
		if e.IsFile() {
			n++
		}
	}
	return n
}

// Folders is the number of directory entries
func (r Report) Folders() int {
	n := 0
	for _, e := range r.Entries {
		if e.IsDir() {
			n++
		}
	}
	return n
}

// Description returns the description or a placeholder
func (r Report) Description() string {
	if r.Metadata.Description == "" {
		return descriptionPlaceholder
	}
	return r.Metadata.Description
}

// Language returns the primary language or a placeholder
func (r Report) Language() string {
	if r.Metadata.Language == "" {
		return languagePlaceholder
	}
	return r.Metadata.Language
}

// Insights summarizes the report
func (r Report) Insights() analysis.Insights {
	stack := make([]analysis.Tech, len(r.TechStack))
	for i, label := range r.TechStack {
		stack[i] = analysis.Tech(label)
	}
	return analysis.Summarize(stack, r.Complexity, r.Entries)
}
