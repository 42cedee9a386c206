// Package analysis holds the heuristics run over a repository's flat listing.
package analysis

import (
	"path"
	"strings"

	"github.com/sattwyk/repoanalyzer/internal/model"
)

// Tech is a technology label produced by DetectTechStack
type Tech string

const (
	TechTypeScript Tech = "TypeScript"
	TechJavaScript Tech = "JavaScript"
	TechPython     Tech = "Python"
	TechCSS        Tech = "CSS"
	TechHTML       Tech = "HTML"
	TechMarkdown   Tech = "Markdown"
	TechNode       Tech = "Node.js"
	TechNext       Tech = "Next.js"
	TechVite       Tech = "Vite"
	TechDocker     Tech = "Docker"
	TechTailwind   Tech = "Tailwind"
	TechReact      Tech = "React"
	TechVue        Tech = "Vue"
	TechAngular    Tech = "Angular"
)

// techIcons is the badge icon of each label. Vue and Angular have badges but
// no detection rule.
var techIcons = map[Tech]string{
	TechTypeScript: "⚡",
	TechJavaScript: "📜",
	TechReact:      "⚛️",
	TechNext:       "▲",
	TechVue:        "🌟",
	TechAngular:    "🅰️",
	TechPython:     "🐍",
	TechNode:       "🟢",
	TechDocker:     "🐋",
	TechTailwind:   "🎨",
	TechVite:       "⚡",
	TechCSS:        "🎨",
	TechHTML:       "📄",
	TechMarkdown:   "📝",
}

// Icon returns the badge icon for a label and whether one is defined
func (t Tech) Icon() (string, bool) {
	icon, ok := techIcons[t]
	return icon, ok
}

// signals are the facts about a listing the tech rules look at
type signals struct {
	extensions map[string]struct{}
	filenames  map[string]struct{}
	paths      []string
}

func collectSignals(entries []model.PathEntry) signals {
	s := signals{
		extensions: make(map[string]struct{}),
		filenames:  make(map[string]struct{}),
		paths:      make([]string, 0, len(entries)),
	}
	for _, e := range entries {
		if ext := Extension(e.Path); ext != "" {
			s.extensions[ext] = struct{}{}
		}
		s.filenames[strings.ToLower(path.Base(e.Path))] = struct{}{}
		s.paths = append(s.paths, e.Path)
	}
	return s
}

func (s signals) hasExtension(exts ...string) bool {
	for _, ext := range exts {
		if _, ok := s.extensions[ext]; ok {
			return true
		}
	}
	return false
}

func (s signals) hasFilename(names ...string) bool {
	for _, name := range names {
		if _, ok := s.filenames[name]; ok {
			return true
		}
	}
	return false
}

// techRule maps one condition over the listing to a label
type techRule struct {
	label Tech
	match func(signals) bool
}

func byExtension(label Tech, exts ...string) techRule {
	return techRule{label: label, match: func(s signals) bool { return s.hasExtension(exts...) }}
}

func byFilename(label Tech, names ...string) techRule {
	return techRule{label: label, match: func(s signals) bool { return s.hasFilename(names...) }}
}

// techRules is evaluated in order; the output follows this order.
var techRules = []techRule{
	byExtension(TechTypeScript, "ts", "tsx"),
	byExtension(TechJavaScript, "js", "jsx"),
	byExtension(TechPython, "py"),
	byExtension(TechCSS, "css"),
	byExtension(TechHTML, "html"),
	byExtension(TechMarkdown, "md"),
	byFilename(TechNode, "package.json"),
	byFilename(TechNext, "next.config.js", "next.config.ts"),
	byFilename(TechVite, "vite.config.js", "vite.config.ts"),
	byFilename(TechDocker, "dockerfile", "docker-compose.yml"),
	byFilename(TechTailwind, "tailwind.config.js", "tailwind.config.ts"),
	{label: TechReact, match: func(s signals) bool {
		for _, p := range s.paths {
			if strings.Contains(p, "react") || strings.HasSuffix(p, ".jsx") || strings.HasSuffix(p, ".tsx") {
				return true
			}
		}
		return false
	}},
}

// DetectTechStack returns the labels whose rule matches the listing, without
// duplicates, in rule table order.
func DetectTechStack(entries []model.PathEntry) []Tech {
	s := collectSignals(entries)

	stack := make([]Tech, 0)
	seen := make(map[Tech]struct{})
	for _, rule := range techRules {
		if _, dup := seen[rule.label]; dup {
			continue
		}
		if rule.match(s) {
			stack = append(stack, rule.label)
			seen[rule.label] = struct{}{}
		}
	}
	return stack
}

// Labels converts a tech stack to plain strings
func Labels(stack []Tech) []string {
	out := make([]string, len(stack))
	for i, t := range stack {
		out[i] = string(t)
	}
	return out
}

// Has reports whether label is part of stack
func Has(stack []Tech, label Tech) bool {
	for _, t := range stack {
		if t == label {
			return true
		}
	}
	return false
}

// Extension returns the lower-cased extension of the final path segment,
// without the dot. Names without a dot have no extension.
func Extension(p string) string {
	base := path.Base(p)
	i := strings.LastIndexByte(base, '.')
	if i < 0 || i == len(base)-1 {
		return ""
	}
	return strings.ToLower(base[i+1:])
}
