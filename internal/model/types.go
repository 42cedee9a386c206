package model

import (
	"time"
)

// EntryKind is the kind of a repository entry
type EntryKind string

const (
	KindFile      EntryKind = "file"
	KindDirectory EntryKind = "directory"
)

// PathEntry represents one repository object from the flat listing
type PathEntry struct {
	Path      string    `json:"path"`
	Kind      EntryKind `json:"kind"`
	Size      *int64    `json:"size,omitempty"` // only set for files
	ContentID string    `json:"content_id"`
}

// IsFile reports whether the entry is a file
func (e PathEntry) IsFile() bool {
	return e.Kind == KindFile
}

// IsDir reports whether the entry is a directory
func (e PathEntry) IsDir() bool {
	return e.Kind == KindDirectory
}

// TreeNode is one node of the hierarchy derived from a set of PathEntry records
type TreeNode struct {
	Name     string      `json:"name" yaml:"name"`
	Path     string      `json:"path" yaml:"path"`
	Kind     EntryKind   `json:"kind" yaml:"kind"`
	Size     *int64      `json:"size,omitempty" yaml:"size,omitempty"`
	Children []*TreeNode `json:"children,omitempty" yaml:"children,omitempty"`
	Depth    int         `json:"depth" yaml:"depth"`
}

// IsDir reports whether the node is a directory
func (n *TreeNode) IsDir() bool {
	return n.Kind == KindDirectory
}

// RepoMetadata contains the repository information shown alongside the tree
type RepoMetadata struct {
	Owner         string    `json:"owner" yaml:"owner"`
	Name          string    `json:"name" yaml:"name"`
	Description   string    `json:"description" yaml:"description"`
	Language      string    `json:"language" yaml:"language"`
	Stars         int       `json:"stars" yaml:"stars"`
	Forks         int       `json:"forks" yaml:"forks"`
	Watchers      int       `json:"watchers" yaml:"watchers"`
	DefaultBranch string    `json:"default_branch" yaml:"default_branch"`
	CreatedAt     time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" yaml:"updated_at"`
	Homepage      string    `json:"homepage,omitempty" yaml:"homepage,omitempty"`
	Topics        []string  `json:"topics" yaml:"topics"`
}

// AnalysisResult is the aggregate produced by one successful analysis run
type AnalysisResult struct {
	Metadata       RepoMetadata `json:"metadata"`
	CommitSHA      string       `json:"commit_sha"`
	Entries        []PathEntry  `json:"entries"`
	Forest         []*TreeNode  `json:"forest"`
	TechStack      []string     `json:"tech_stack"`
	ImportantFiles []PathEntry  `json:"important_files"`
	Complexity     int          `json:"complexity"`
	Truncated      bool         `json:"truncated"`
	Duration       string       `json:"duration"`
}

// FileCount returns the number of file entries
func (r *AnalysisResult) FileCount() int {
	return countKind(r.Entries, KindFile)
}

// FolderCount returns the number of directory entries
func (r *AnalysisResult) FolderCount() int {
	return countKind(r.Entries, KindDirectory)
}

func countKind(entries []PathEntry, kind EntryKind) int {
	n := 0
	for _, e := range entries {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// TreeEntry represents a file or directory in the Git tree
type TreeEntry struct {
	Path string `json:"path"`
	Mode string `json:"mode"`
	Type string `json:"type"` // "blob", "tree", "commit"
	SHA  string `json:"sha"`
	Size *int64 `json:"size,omitempty"`
}

// ToPathEntry converts a git tree entry into the flat entry model.
// Submodules ("commit") are leaves and count as files.
func (t TreeEntry) ToPathEntry() PathEntry {
	entry := PathEntry{
		Path:      t.Path,
		Kind:      KindFile,
		ContentID: t.SHA,
	}
	if t.Type == "tree" {
		entry.Kind = KindDirectory
		return entry
	}
	entry.Size = t.Size
	return entry
}

// GitHubTreeResponse represents the GitHub API tree response
type GitHubTreeResponse struct {
	SHA       string      `json:"sha"`
	URL       string      `json:"url"`
	Tree      []TreeEntry `json:"tree"`
	Truncated bool        `json:"truncated"`
}

// PathEntries converts every tree entry, preserving order
func (r *GitHubTreeResponse) PathEntries() []PathEntry {
	entries := make([]PathEntry, 0, len(r.Tree))
	for _, t := range r.Tree {
		entries = append(entries, t.ToPathEntry())
	}
	return entries
}

// GitHubRepository represents the GitHub API repository response
type GitHubRepository struct {
	Name            string    `json:"name"`
	FullName        string    `json:"full_name"`
	Description     *string   `json:"description"`
	Language        *string   `json:"language"`
	StargazersCount int       `json:"stargazers_count"`
	ForksCount      int       `json:"forks_count"`
	WatchersCount   int       `json:"watchers_count"`
	DefaultBranch   string    `json:"default_branch"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	Homepage        *string   `json:"homepage"`
	Topics          []string  `json:"topics"`
	Owner           struct {
		Login string `json:"login"`
	} `json:"owner"`
}

// Metadata converts the API response into RepoMetadata
func (r *GitHubRepository) Metadata() RepoMetadata {
	topics := r.Topics
	if topics == nil {
		topics = []string{}
	}
	return RepoMetadata{
		Owner:         r.Owner.Login,
		Name:          r.Name,
		Description:   deref(r.Description),
		Language:      deref(r.Language),
		Stars:         r.StargazersCount,
		Forks:         r.ForksCount,
		Watchers:      r.WatchersCount,
		DefaultBranch: r.DefaultBranch,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
		Homepage:      deref(r.Homepage),
		Topics:        topics,
	}
}

// GitHubBranch represents the GitHub API branch response
type GitHubBranch struct {
	Name   string `json:"name"`
	Commit struct {
		SHA string `json:"sha"`
	} `json:"commit"`
}

// RateLimitInfo represents GitHub API rate limit information
type RateLimitInfo struct {
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	Reset     time.Time `json:"reset"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Service   string    `json:"service"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version,omitempty"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// SizeOf returns a pointer to n, for building entries with a size
func SizeOf(n int64) *int64 {
	return &n
}
