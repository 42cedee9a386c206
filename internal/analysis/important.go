package analysis

import (
	"math"
	"strings"

	"github.com/sattwyk/repoanalyzer/internal/model"
)

// importantMarkers flag entries worth reading first
var importantMarkers = []string{"readme", "package.json", "index.", "app.", ".env", "config"}

// ImportantFiles returns the entries whose lower-cased path contains one of the
// important markers, keeping input order.
func ImportantFiles(entries []model.PathEntry) []model.PathEntry {
	out := make([]model.PathEntry, 0)
	for _, e := range entries {
		if containsAny(strings.ToLower(e.Path), importantMarkers) {
			out = append(out, e)
		}
	}
	return out
}

// ComplexityScore is min(100, round((dirs*2 + files*0.5 + maxDepth*3) / 10)),
// where maxDepth is the largest number of path segments (0 for no entries).
func ComplexityScore(entries []model.PathEntry) int {
	var dirs, files, maxDepth int
	for _, e := range entries {
		switch e.Kind {
		case model.KindDirectory:
			dirs++
		case model.KindFile:
			files++
		}
		if depth := strings.Count(e.Path, "/") + 1; depth > maxDepth {
			maxDepth = depth
		}
	}

	raw := (float64(dirs)*2 + float64(files)*0.5 + float64(maxDepth)*3) / 10
	score := int(math.Floor(raw + 0.5))
	if score > 100 {
		return 100
	}
	return score
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
