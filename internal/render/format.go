package render

import (
	"fmt"
	"strings"

	"github.com/sattwyk/repoanalyzer/internal/analysis"
	"github.com/sattwyk/repoanalyzer/internal/tree"
)

// Format names a renderable view
type Format string

const (
	FormatTree     Format = "tree"
	FormatOutline  Format = "outline"
	FormatList     Format = "list"
	FormatDetails  Format = "details"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatHTML     Format = "html"
	FormatPrompt   Format = "prompt"
	FormatSummary  Format = "summary"
)

// Formats lists every supported format
var Formats = []Format{
	FormatTree, FormatOutline, FormatList, FormatDetails, FormatMarkdown, FormatText,
	FormatJSON, FormatYAML, FormatHTML, FormatPrompt, FormatSummary,
}

// ParseFormat parses a format name
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown format %q", s)
}

// ContentType is the MIME type used when serving the format over HTTP
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatYAML:
		return "application/yaml"
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}

// View carries the session-dependent inputs of the list and outline views
type View struct {
	Query    analysis.Query
	Expanded func(path string) bool
}

// Render produces the given format for the report
func Render(f Format, r Report, v View) ([]byte, error) {
	switch f {
	case FormatTree:
		return []byte(ASCIITree(r.Forest)), nil
	case FormatOutline:
		expanded := v.Expanded
		if expanded == nil {
			expanded = func(string) bool { return false }
		}
		return []byte(ASCIITree(tree.Prune(r.Forest, expanded))), nil
	case FormatList:
		return []byte(FlatList(r.Entries, v.Query)), nil
	case FormatDetails:
		return []byte(DetailedList(r.Entries, v.Query)), nil
	case FormatMarkdown:
		return []byte(Markdown(r)), nil
	case FormatText:
		return []byte(PlainText(r)), nil
	case FormatJSON:
		return JSON(r)
	case FormatYAML:
		return YAML(r)
	case FormatHTML:
		return HTML(r)
	case FormatPrompt:
		return []byte(Prompt(r)), nil
	case FormatSummary:
		return []byte(Summary(r)), nil
	default:
		return nil, fmt.Errorf("unknown format %q", f)
	}
}
