package analysis

import (
	"strings"

	"github.com/sattwyk/repoanalyzer/internal/model"
)

// Insights is the short qualitative summary shown next to the tree
type Insights struct {
	ProjectType   string `json:"project_type" yaml:"project_type"`
	Structure     string `json:"structure" yaml:"structure"`
	Documentation string `json:"documentation" yaml:"documentation"`
}

// Summarize derives insights from the detected stack, the complexity score and
// the listing.
func Summarize(stack []Tech, complexity int, entries []model.PathEntry) Insights {
	return Insights{
		ProjectType:   projectType(stack),
		Structure:     structureVerdict(complexity),
		Documentation: documentationHint(entries),
	}
}

func projectType(stack []Tech) string {
	switch {
	case Has(stack, TechNext):
		return "Next.js Application"
	case Has(stack, TechReact):
		return "React Application"
	case Has(stack, TechPython):
		return "Python Project"
	default:
		return "Web Application"
	}
}

func structureVerdict(score int) string {
	switch {
	case score < 30:
		return "Simple & Clean"
	case score < 60:
		return "Well Organized"
	case score < 80:
		return "Complex but Manageable"
	default:
		return "Highly Complex"
	}
}

// documentationHint matches README case-sensitively
func documentationHint(entries []model.PathEntry) string {
	for _, e := range entries {
		if strings.Contains(e.Path, "README") {
			return "Well documented project with README"
		}
	}
	return "Consider adding a README file"
}
