package render

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sattwyk/repoanalyzer/internal/analysis"
	"github.com/sattwyk/repoanalyzer/internal/model"
)

func listEntries() []model.PathEntry {
	return []model.PathEntry{
		{Path: "src", Kind: model.KindDirectory},
		{Path: "src/main.py", Kind: model.KindFile, Size: model.SizeOf(2048)},
		{Path: "README.md", Kind: model.KindFile, Size: model.SizeOf(512)},
		{Path: "empty.txt", Kind: model.KindFile, Size: model.SizeOf(0)},
	}
}

func TestFlatList(t *testing.T) {
	entries := listEntries()

	assert.Equal(t, "src\nsrc/main.py\nREADME.md\nempty.txt", FlatList(entries, analysis.Query{}))
	assert.Equal(t, "src/main.py\nREADME.md\nempty.txt", FlatList(entries, analysis.Query{Mode: analysis.FilterFiles}))
	assert.Equal(t, "src\nsrc/main.py", FlatList(entries, analysis.Query{Search: "SRC"}))
	assert.Equal(t, "", FlatList(entries, analysis.Query{Search: "nothing"}))
	assert.Equal(t, "", FlatList(nil, analysis.Query{}))
}

func TestDetailedList(t *testing.T) {
	want := "📁 src\n" +
		"🐍 src/main.py (2.0 KiB)\n" +
		"📝 README.md (512 B)\n" +
		"📄 empty.txt"

	assert.Equal(t, want, DetailedList(listEntries(), analysis.Query{}))
}
