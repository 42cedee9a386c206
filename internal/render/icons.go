package render

import (
	"github.com/sattwyk/repoanalyzer/internal/analysis"
)

// DirectoryIcon is shown in front of every directory
const DirectoryIcon = "📁"

// FileType groups extensions that share an icon
type FileType int

const (
	FileTypeUnknown FileType = iota
	FileTypeScript
	FileTypeComponent
	FileTypeTypeScript
	FileTypeWeb
	FileTypeStyle
	FileTypeData
	FileTypeMarkdown
	FileTypeText
	FileTypeImage
	FileTypePython
	FileTypeJava
	FileTypeNative
	FileTypeConfig
	FileTypeMarkup
)

var extensionTypes = map[string]FileType{
	"js":   FileTypeScript,
	"jsx":  FileTypeComponent,
	"tsx":  FileTypeComponent,
	"ts":   FileTypeTypeScript,
	"html": FileTypeWeb,
	"css":  FileTypeStyle,
	"scss": FileTypeStyle,
	"sass": FileTypeStyle,
	"json": FileTypeData,
	"md":   FileTypeMarkdown,
	"txt":  FileTypeText,
	"png":  FileTypeImage,
	"jpg":  FileTypeImage,
	"jpeg": FileTypeImage,
	"gif":  FileTypeImage,
	"svg":  FileTypeImage,
	"py":   FileTypePython,
	"java": FileTypeJava,
	"cpp":  FileTypeNative,
	"c":    FileTypeNative,
	"yml":  FileTypeConfig,
	"yaml": FileTypeConfig,
	"toml": FileTypeConfig,
	"xml":  FileTypeMarkup,
}

var fileTypeIcons = [...]string{
	FileTypeUnknown:    "📄",
	FileTypeScript:     "📜",
	FileTypeComponent:  "⚛️",
	FileTypeTypeScript: "⚡",
	FileTypeWeb:        "🌐",
	FileTypeStyle:      "🎨",
	FileTypeData:       "📋",
	FileTypeMarkdown:   "📝",
	FileTypeText:       "📄",
	FileTypeImage:      "🖼️",
	FileTypePython:     "🐍",
	FileTypeJava:       "☕",
	FileTypeNative:     "⚙️",
	FileTypeConfig:     "⚙️",
	FileTypeMarkup:     "📰",
}

// ClassifyFile maps a file name to its type by extension
func ClassifyFile(name string) FileType {
	if t, ok := extensionTypes[analysis.Extension(name)]; ok {
		return t
	}
	return FileTypeUnknown
}

// Icon returns the icon for the file type
func (t FileType) Icon() string {
	if t < 0 || int(t) >= len(fileTypeIcons) {
		return fileTypeIcons[FileTypeUnknown]
	}
	return fileTypeIcons[t]
}

// FileIcon returns the icon shown in front of a file name
func FileIcon(name string) string {
	return ClassifyFile(name).Icon()
}
