package analysis

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sattwyk/repoanalyzer/internal/model"
)

func files(paths ...string) []model.PathEntry {
	out := make([]model.PathEntry, 0, len(paths))
	for _, p := range paths {
		out = append(out, model.PathEntry{Path: p, Kind: model.KindFile})
	}
	return out
}

func TestDetectTechStack(t *testing.T) {
	tests := []struct {
		name    string
		entries []model.PathEntry
		want    []Tech
	}{
		{
			name:    "empty listing",
			entries: nil,
			want:    []Tech{},
		},
		{
			name:    "typescript only",
			entries: files("README.md", "src/index.ts", "src/lib/util.ts"),
			want:    []Tech{TechTypeScript, TechMarkdown},
		},
		{
			name: "next app in rule table order",
			entries: files(
				"tailwind.config.ts", "next.config.js", "package.json",
				"app/page.tsx", "app/globals.css", "Dockerfile",
			),
			want: []Tech{TechTypeScript, TechJavaScript, TechCSS, TechNode, TechNext, TechDocker, TechTailwind, TechReact},
		},
		{
			name:    "vite with compose and python",
			entries: files("web/vite.config.ts", "docker-compose.yml", "tools/gen.py", "web/index.html"),
			want:    []Tech{TechTypeScript, TechPython, TechHTML, TechVite, TechDocker},
		},
		{
			name:    "react by path substring",
			entries: files("packages/react-dom/index.js"),
			want:    []Tech{TechJavaScript, TechReact},
		},
		{
			name:    "jsx extension counts as javascript and react",
			entries: files("src/App.jsx"),
			want:    []Tech{TechJavaScript, TechReact},
		},
		{
			name:    "extension match is case-insensitive",
			entries: files("NOTES.MD", "Main.PY"),
			want:    []Tech{TechPython, TechMarkdown},
		},
		{
			name:    "names without extension do not match",
			entries: files("ts", "scripts/py", "Makefile"),
			want:    []Tech{},
		},
		{
			name:    "next config must be the file name",
			entries: files("docs/next.config.js.md"),
			want:    []Tech{TechMarkdown},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectTechStack(tt.entries))
		})
	}
}

func TestDetectTechStackIsASet(t *testing.T) {
	entries := files("a.ts", "b.ts", "c.tsx", "d/e.ts", "x/react/y.ts")
	stack := DetectTechStack(entries)

	assert.Equal(t, []Tech{TechTypeScript, TechReact}, stack)
}

func TestDetectTechStackOrderIndependent(t *testing.T) {
	entries := files("package.json", "src/App.tsx", "main.py", "style.css", "README.md", "Dockerfile")
	want := DetectTechStack(entries)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 10; i++ {
		shuffled := append([]model.PathEntry(nil), entries...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		assert.Equal(t, want, DetectTechStack(shuffled))
	}
}

func TestTechIcon(t *testing.T) {
	icon, ok := TechDocker.Icon()
	assert.True(t, ok)
	assert.Equal(t, "🐋", icon)

	_, ok = Tech("Rust").Icon()
	assert.False(t, ok)
}

func TestExtension(t *testing.T) {
	tests := map[string]string{
		"main.go":          "go",
		"src/App.TSX":      "tsx",
		"Makefile":         "",
		"archive.tar.gz":   "gz",
		".env":             "env",
		"dir.d/file":       "",
		"trailing.":        "",
		"docs/README.md":   "md",
		"a/b/c/Dockerfile": "",
	}

	for input, want := range tests {
		assert.Equal(t, want, Extension(input), input)
	}
}

func TestLabels(t *testing.T) {
	assert.Equal(t, []string{"TypeScript", "React"}, Labels([]Tech{TechTypeScript, TechReact}))
	assert.Empty(t, Labels(nil))
}
