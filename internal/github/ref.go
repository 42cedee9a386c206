package github

import (
	"fmt"
	"regexp"
	"strings"
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// ParseRepositoryRef extracts owner and repository name from "owner/repo",
// "github.com/owner/repo" or any github.com URL (https, ssh, deep links).
func ParseRepositoryRef(ref string) (owner, repo string, err error) {
	s := strings.TrimSpace(ref)
	if s == "" {
		return "", "", fmt.Errorf("repository reference is empty")
	}

	if i := strings.Index(s, "github.com"); i >= 0 {
		s = strings.TrimLeft(s[i+len("github.com"):], ":/")
	} else if strings.Contains(s, "://") || strings.Contains(s, "@") {
		return "", "", fmt.Errorf("invalid repository reference %q, only github.com is supported", ref)
	}

	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}

	parts := strings.Split(strings.Trim(s, "/"), "/")
	if len(parts) < 2 {
		return "", "", fmt.Errorf("invalid repository reference %q, expected owner/repo", ref)
	}

	owner = parts[0]
	repo = strings.TrimSuffix(parts[1], ".git")
	if !namePattern.MatchString(owner) || !namePattern.MatchString(repo) {
		return "", "", fmt.Errorf("invalid repository reference %q, expected owner/repo", ref)
	}

	return owner, repo, nil
}
