package analyzer

import (
	"errors"

	"github.com/sattwyk/repoanalyzer/internal/github"
)

// Kind classifies why an analysis run failed
type Kind string

const (
	KindNotFound           Kind = "not_found"
	KindBranchLookupFailed Kind = "branch_lookup_failed"
	KindTreeFetchFailed    Kind = "tree_fetch_failed"
	KindUnknown            Kind = "unknown"
)

var (
	ErrNotFound           = errors.New("repository not found")
	ErrBranchLookupFailed = errors.New("failed to fetch branch information")
	ErrTreeFetchFailed    = errors.New("failed to fetch repository tree")
	ErrUnknown            = errors.New("analysis failed")

	ErrNothingToRetry = errors.New("no analysis to retry")
	ErrClosed         = errors.New("analyzer is closed")
)

func (k Kind) sentinel() error {
	switch k {
	case KindNotFound:
		return ErrNotFound
	case KindBranchLookupFailed:
		return ErrBranchLookupFailed
	case KindTreeFetchFailed:
		return ErrTreeFetchFailed
	default:
		return ErrUnknown
	}
}

// Error is the terminal failure of one run. Reason is the user-facing text.
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err == nil || e.Kind == KindUnknown {
		return e.Reason
	}
	return e.Reason + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind
func (e *Error) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// classify maps a step failure onto the taxonomy. Non-success API responses
// take the step's kind; anything else (transport, decoding) is unknown and
// keeps the cause's message.
func classify(err error, kind Kind) *Error {
	var apiErr *github.APIError
	if errors.As(err, &apiErr) {
		return &Error{Kind: kind, Reason: kind.sentinel().Error(), Err: err}
	}
	return &Error{Kind: KindUnknown, Reason: err.Error(), Err: err}
}
