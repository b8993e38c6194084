package model

import "time"

// FileKind distinguishes files from folders in workspace listings.
type FileKind string

const (
	KindFile   FileKind = "file"
	KindFolder FileKind = "folder"
)

// FileEntry describes one workspace entry. Path is relative to the
// workspace root and forward-slash normalized. Size is meaningful for files
// only.
type FileEntry struct {
	Name       string
	Path       string
	Kind       FileKind
	Size       int64
	ModifiedAt time.Time
}

// MatchedLine is one matching line of a content search, truncated to 200
// characters. Line numbers are 1-based.
type MatchedLine struct {
	Line int
	Text string
}

// FileMatch is the per-file result of a workspace content search.
type FileMatch struct {
	Path       string
	Name       string
	Lines      []MatchedLine
	MatchCount int
}

// WriteResult reports the outcome of a write or append.
type WriteResult struct {
	Path       string
	Size       int64
	ModifiedAt time.Time
}
