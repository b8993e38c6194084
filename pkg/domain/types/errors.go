package types

import "github.com/m-mizutani/goerr/v2"

// Shared error taxonomy. Both backends of every store wrap these sentinels
// so that callers can branch with errors.Is regardless of which backend is
// active.
var (
	// ErrNotFound indicates a missing conversation, note or file.
	ErrNotFound = goerr.New("not found")

	// ErrPathEscape indicates a workspace sandbox violation. It is fatal to
	// the single operation and never silently corrected.
	ErrPathEscape = goerr.New("path escapes workspace")

	// ErrNotEmpty indicates a directory deletion was blocked because the
	// directory still has entries.
	ErrNotEmpty = goerr.New("directory not empty")

	// ErrStorageUnavailable indicates a backend driver or dependency is
	// missing or unreachable. Optional read paths degrade gracefully on it,
	// write paths fail loudly.
	ErrStorageUnavailable = goerr.New("storage unavailable")

	// ErrUpstreamFailure indicates the LLM capability failed.
	ErrUpstreamFailure = goerr.New("upstream LLM failure")

	// ErrUpstreamAuth indicates the LLM capability rejected our credentials.
	// It wraps ErrUpstreamFailure semantics but stays distinguishable.
	ErrUpstreamAuth = goerr.New("upstream LLM authentication failure")

	// ErrValidation indicates malformed caller input, e.g. an empty ID.
	ErrValidation = goerr.New("validation failed")
)
