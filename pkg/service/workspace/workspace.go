// Package workspace is a file store sandboxed under one root directory.
// Every caller-supplied path is resolved and boundary-checked before any
// filesystem access; an escaping path is rejected, never corrected.
package workspace

import (
	"bufio"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/catalpa-lab/secondbrain/pkg/domain/model"
	"github.com/catalpa-lab/secondbrain/pkg/domain/types"
)

const (
	searchMaxFiles   = 20
	searchMaxLines   = 5
	searchMaxLineLen = 200
)

// Store exposes file operations confined to its root.
type Store struct {
	root string
}

// New creates the root directory if needed and resolves it to an absolute,
// symlink-free path so later boundary checks are reliable.
func New(root string) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to resolve workspace root", goerr.V("root", root))
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, goerr.Wrap(err, "failed to create workspace root", goerr.V("root", abs))
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	return &Store{root: abs}, nil
}

// Root returns the absolute workspace root.
func (x *Store) Root() string { return x.root }

// resolve maps a caller path to an absolute path inside the root. Symlinks
// are resolved before the boundary check; when the leaf does not exist yet,
// the deepest existing ancestor is resolved instead so a symlinked parent
// cannot smuggle the path outside.
func (x *Store) resolve(path string) (string, error) {
	if filepath.IsAbs(path) {
		return "", goerr.Wrap(types.ErrPathEscape, "absolute paths are not allowed", goerr.V("path", path))
	}

	cleaned := filepath.Clean(filepath.FromSlash(path))
	if cleaned == "" {
		cleaned = "."
	}
	candidate := filepath.Join(x.root, cleaned)

	if resolved, err := filepath.EvalSymlinks(candidate); err == nil {
		candidate = resolved
	} else if resolvedParent, err := filepath.EvalSymlinks(filepath.Dir(candidate)); err == nil {
		candidate = filepath.Join(resolvedParent, filepath.Base(candidate))
	}

	rel, err := filepath.Rel(x.root, candidate)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", goerr.Wrap(types.ErrPathEscape, "path resolves outside the workspace", goerr.V("path", path))
	}
	return candidate, nil
}

// relPath converts an absolute path under the root back to the caller's
// forward-slash form.
func (x *Store) relPath(abs string) string {
	rel, err := filepath.Rel(x.root, abs)
	if err != nil {
		return abs
	}
	return filepath.ToSlash(rel)
}

// matchName reports whether a name matches the glob pattern. An empty
// pattern matches everything; a malformed one is a validation error.
func matchName(pattern, name string) (bool, error) {
	if pattern == "" {
		return true, nil
	}
	ok, err := filepath.Match(pattern, name)
	if err != nil {
		return false, goerr.Wrap(types.ErrValidation, "invalid glob pattern", goerr.V("pattern", pattern))
	}
	return ok, nil
}

// ListFiles returns the immediate children of dir whose names match the
// glob pattern (empty matches all), folders first, then case-insensitive by
// name. A missing or non-directory path yields an empty list.
func (x *Store) ListFiles(ctx context.Context, dir, pattern string) ([]*model.FileEntry, error) {
	abs, err := x.resolve(dir)
	if err != nil {
		return nil, err
	}
	if _, err := matchName(pattern, ""); err != nil {
		return nil, err
	}

	dirents, err := os.ReadDir(abs)
	if err != nil {
		return []*model.FileEntry{}, nil
	}

	entries := make([]*model.FileEntry, 0, len(dirents))
	for _, d := range dirents {
		if ok, _ := matchName(pattern, d.Name()); !ok {
			continue
		}
		info, err := d.Info()
		if err != nil {
			continue
		}
		entry := &model.FileEntry{
			Name:       d.Name(),
			Path:       x.relPath(filepath.Join(abs, d.Name())),
			Kind:       model.KindFile,
			ModifiedAt: info.ModTime(),
		}
		if d.IsDir() {
			entry.Kind = model.KindFolder
		} else {
			entry.Size = info.Size()
		}
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Kind != entries[j].Kind {
			return entries[i].Kind == model.KindFolder
		}
		return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
	})
	return entries, nil
}

func (x *Store) ReadFile(ctx context.Context, path string) (string, error) {
	abs, err := x.resolve(path)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(abs)
	if err != nil || info.IsDir() {
		return "", goerr.Wrap(types.ErrNotFound, "file not found", goerr.V("path", path))
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return "", goerr.Wrap(err, "failed to read file", goerr.V("path", path))
	}
	return string(data), nil
}

// WriteFile creates or replaces a file, creating parent directories as
// needed.
func (x *Store) WriteFile(ctx context.Context, path, content string) (*model.WriteResult, error) {
	abs, err := x.resolve(path)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, goerr.Wrap(err, "failed to create parent directories", goerr.V("path", path))
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		return nil, goerr.Wrap(err, "failed to write file", goerr.V("path", path))
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to stat written file", goerr.V("path", path))
	}
	return &model.WriteResult{Path: x.relPath(abs), Size: info.Size(), ModifiedAt: info.ModTime()}, nil
}

// AppendFile appends to a file, creating it (and parents) when missing.
func (x *Store) AppendFile(ctx context.Context, path, content string) (*model.WriteResult, error) {
	abs, err := x.resolve(path)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, goerr.Wrap(err, "failed to create parent directories", goerr.V("path", path))
	}
	f, err := os.OpenFile(abs, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open file for append", goerr.V("path", path))
	}
	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		return nil, goerr.Wrap(err, "failed to append to file", goerr.V("path", path))
	}
	if err := f.Close(); err != nil {
		return nil, goerr.Wrap(err, "failed to close file", goerr.V("path", path))
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to stat appended file", goerr.V("path", path))
	}
	return &model.WriteResult{Path: x.relPath(abs), Size: info.Size(), ModifiedAt: info.ModTime()}, nil
}

// DeleteFile removes a file or an empty folder, reporting whether anything
// was removed. A non-empty folder is rejected with ErrNotEmpty.
func (x *Store) DeleteFile(ctx context.Context, path string) (bool, error) {
	abs, err := x.resolve(path)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(abs)
	if err != nil {
		return false, nil
	}
	if info.IsDir() {
		dirents, err := os.ReadDir(abs)
		if err != nil {
			return false, goerr.Wrap(err, "failed to inspect folder", goerr.V("path", path))
		}
		if len(dirents) > 0 {
			return false, goerr.Wrap(types.ErrNotEmpty, "folder is not empty", goerr.V("path", path))
		}
	}

	if err := os.Remove(abs); err != nil {
		return false, goerr.Wrap(err, "failed to delete", goerr.V("path", path))
	}
	return true, nil
}

// SearchFiles walks the tree under dir (the whole workspace when empty) and
// reports files whose content contains the query, case-insensitive. The
// glob pattern restricts which file names are searched. At most 5 matching
// lines per file, each truncated to 200 characters, and at most 20 files,
// ordered by match count descending. Unreadable files are skipped.
func (x *Store) SearchFiles(ctx context.Context, query, dir, pattern string) ([]*model.FileMatch, error) {
	if query == "" {
		return nil, goerr.Wrap(types.ErrValidation, "search query must not be empty")
	}
	if _, err := matchName(pattern, ""); err != nil {
		return nil, err
	}
	base, err := x.resolve(dir)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(query)

	matches := []*model.FileMatch{}
	walkErr := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if ok, _ := matchName(pattern, d.Name()); !ok {
			return nil
		}

		match := x.searchFile(path, needle)
		if match != nil {
			matches = append(matches, match)
		}
		return nil
	})
	if walkErr != nil {
		return nil, goerr.Wrap(walkErr, "workspace search aborted")
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].MatchCount > matches[j].MatchCount
	})
	if len(matches) > searchMaxFiles {
		matches = matches[:searchMaxFiles]
	}
	return matches, nil
}

func (x *Store) searchFile(path, needle string) *model.FileMatch {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var (
		lines []model.MatchedLine
		count int
	)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		text := scanner.Text()
		if !strings.Contains(strings.ToLower(text), needle) {
			continue
		}
		count++
		if len(lines) < searchMaxLines {
			lines = append(lines, model.MatchedLine{Line: lineNo, Text: model.Truncate(text, searchMaxLineLen)})
		}
	}
	if err := scanner.Err(); err != nil || count == 0 {
		return nil
	}

	return &model.FileMatch{
		Path:       x.relPath(path),
		Name:       filepath.Base(path),
		Lines:      lines,
		MatchCount: count,
	}
}

// CreateFolder makes a folder (and parents), succeeding when it already
// exists.
func (x *Store) CreateFolder(ctx context.Context, path string) (string, error) {
	abs, err := x.resolve(path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return "", goerr.Wrap(err, "failed to create folder", goerr.V("path", path))
	}
	return x.relPath(abs), nil
}

// FileExists reports whether a file or folder exists at the path.
func (x *Store) FileExists(ctx context.Context, path string) (bool, error) {
	abs, err := x.resolve(path)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(abs); err != nil {
		return false, nil
	}
	return true, nil
}
