package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"gopkg.in/yaml.v3"

	"github.com/sattwyk/repoanalyzer/internal/analysis"
	"github.com/sattwyk/repoanalyzer/internal/model"
)

const (
	promptKeyFiles  = 5
	summaryKeyFiles = 8
)

// Markdown renders the markdown export
func Markdown(r Report) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s Repository Structure\n\n", r.Repo)
	fmt.Fprintf(&sb, "```\n%s\n```\n\n", ASCIITree(r.Forest))
	sb.WriteString("## Tech Stack\n")
	bullets := make([]string, 0, len(r.TechStack))
	for _, tech := range r.TechStack {
		bullets = append(bullets, "- "+tech)
	}
	sb.WriteString(strings.Join(bullets, "\n"))
	sb.WriteString("\n\n## Statistics\n")
	fmt.Fprintf(&sb, "- Files: %d\n", r.Files())
	fmt.Fprintf(&sb, "- Folders: %d\n", r.Folders())
	fmt.Fprintf(&sb, "- Complexity Score: %d/100", r.Complexity)
	return sb.String()
}

// PlainText renders the plain text export
func PlainText(r Report) string {
	var sb strings.Builder
	sb.WriteString(strings.ToUpper(r.Repo) + " REPOSITORY STRUCTURE\n")
	sb.WriteString(strings.Repeat("=", utf8.RuneCountInString(r.Repo)+20) + "\n\n")
	sb.WriteString(ASCIITree(r.Forest))
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "TECH STACK: %s\n", strings.Join(r.TechStack, ", "))
	fmt.Fprintf(&sb, "FILES: %d\n", r.Files())
	fmt.Fprintf(&sb, "FOLDERS: %d", r.Folders())
	return sb.String()
}

// Prompt renders the text handed to an assistant for a structural review
func Prompt(r Report) string {
	keyFiles := r.ImportantFiles
	if len(keyFiles) > promptKeyFiles {
		keyFiles = keyFiles[:promptKeyFiles]
	}
	keyPaths := make([]string, 0, len(keyFiles))
	for _, f := range keyFiles {
		keyPaths = append(keyPaths, f.Path)
	}

	return fmt.Sprintf("Analyze this %s project. Here's the repository structure:\n\n%s\n\nKey files: %s\n\n"+
		"Please provide insights about the code organization, architecture patterns, and potential improvements.",
		strings.Join(r.TechStack, ", "), ASCIITree(r.Forest), strings.Join(keyPaths, ", "))
}

type exportStats struct {
	Files      int `json:"files" yaml:"files"`
	Folders    int `json:"folders" yaml:"folders"`
	Complexity int `json:"complexity" yaml:"complexity"`
}

type exportRepository struct {
	Name      string             `json:"name" yaml:"name"`
	Owner     string             `json:"owner" yaml:"owner"`
	Structure []*model.TreeNode  `json:"structure" yaml:"structure"`
	TechStack []string           `json:"techStack" yaml:"techStack"`
	Stats     exportStats        `json:"stats" yaml:"stats"`
	Metadata  model.RepoMetadata `json:"metadata" yaml:"metadata"`
}

type exportDocument struct {
	Repository exportRepository `json:"repository" yaml:"repository"`
}

func document(r Report) exportDocument {
	structure := r.Forest
	if structure == nil {
		structure = []*model.TreeNode{}
	}
	stack := r.TechStack
	if stack == nil {
		stack = []string{}
	}
	return exportDocument{Repository: exportRepository{
		Name:      r.Repo,
		Owner:     r.Owner,
		Structure: structure,
		TechStack: stack,
		Stats: exportStats{
			Files:      r.Files(),
			Folders:    r.Folders(),
			Complexity: r.Complexity,
		},
		Metadata: r.Metadata,
	}}
}

// JSON renders the structured export, indented by two spaces
func JSON(r Report) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(document(r)); err != nil {
		return nil, fmt.Errorf("failed to encode json export: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// YAML renders the structured export as YAML
func YAML(r Report) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(document(r)); err != nil {
		return nil, fmt.Errorf("failed to encode yaml export: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode yaml export: %w", err)
	}
	return buf.Bytes(), nil
}

// HTML converts the markdown export to an HTML fragment
func HTML(r Report) ([]byte, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(Markdown(r)), &buf); err != nil {
		return nil, fmt.Errorf("failed to render html export: %w", err)
	}
	return buf.Bytes(), nil
}

// Summary renders the repository card: metadata, badges, statistics, key
// files and insights.
func Summary(r Report) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s/%s\n", r.Owner, r.Repo)
	fmt.Fprintf(&sb, "%s\n\n", r.Description())

	badges := make([]string, 0, len(r.TechStack))
	for _, label := range r.TechStack {
		if icon, ok := analysis.Tech(label).Icon(); ok {
			badges = append(badges, icon+" "+label)
		} else {
			badges = append(badges, label)
		}
	}
	if len(badges) > 0 {
		fmt.Fprintf(&sb, "%s\n\n", strings.Join(badges, "  "))
	}

	fmt.Fprintf(&sb, "Language:   %s\n", r.Language())
	fmt.Fprintf(&sb, "Stars:      %d\n", r.Metadata.Stars)
	fmt.Fprintf(&sb, "Forks:      %d\n", r.Metadata.Forks)
	fmt.Fprintf(&sb, "Files:      %d\n", r.Files())
	fmt.Fprintf(&sb, "Folders:    %d\n", r.Folders())
	fmt.Fprintf(&sb, "Complexity: %d/100\n", r.Complexity)

	if len(r.ImportantFiles) > 0 {
		sb.WriteString("\nKey Files\n")
		shown := r.ImportantFiles
		if len(shown) > summaryKeyFiles {
			shown = shown[:summaryKeyFiles]
		}
		for _, f := range shown {
			fmt.Fprintf(&sb, "  %s %s\n", FileIcon(f.Path), f.Path)
		}
		if more := len(r.ImportantFiles) - len(shown); more > 0 {
			fmt.Fprintf(&sb, "  +%d more files\n", more)
		}
	}

	insights := r.Insights()
	sb.WriteString("\nInsights\n")
	fmt.Fprintf(&sb, "  Project Type:  %s\n", insights.ProjectType)
	fmt.Fprintf(&sb, "  Structure:     %s\n", insights.Structure)
	fmt.Fprintf(&sb, "  Documentation: %s\n", insights.Documentation)
	return sb.String()
}
