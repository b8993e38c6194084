package workspace_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/catalpa-lab/secondbrain/pkg/domain/model"
	"github.com/catalpa-lab/secondbrain/pkg/domain/types"
	"github.com/catalpa-lab/secondbrain/pkg/service/workspace"
)

func newStore(t *testing.T) *workspace.Store {
	t.Helper()
	store, err := workspace.New(filepath.Join(t.TempDir(), "workspace"))
	gt.NoError(t, err).Required()
	return store
}

func TestResolveRejectsEscapes(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	for _, path := range []string{
		"../outside.txt",
		"notes/../../outside.txt",
		"/etc/passwd",
	} {
		_, err := store.ReadFile(ctx, path)
		gt.Bool(t, errors.Is(err, types.ErrPathEscape)).True()
	}
}

func TestResolveRejectsSymlinkEscape(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	outside := t.TempDir()
	gt.NoError(t, os.WriteFile(filepath.Join(outside, "secret.txt"), []byte("hidden"), 0o644)).Required()
	gt.NoError(t, os.Symlink(outside, filepath.Join(store.Root(), "link"))).Required()

	_, err := store.ReadFile(ctx, "link/secret.txt")
	gt.Bool(t, errors.Is(err, types.ErrPathEscape)).True()
}

func TestWriteReadRoundtrip(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	result, err := store.WriteFile(ctx, "notes/todo.txt", "buy milk\n")
	gt.NoError(t, err).Required()
	gt.Value(t, result.Path).Equal("notes/todo.txt")
	gt.Value(t, result.Size).Equal(int64(len("buy milk\n")))

	content, err := store.ReadFile(ctx, "notes/todo.txt")
	gt.NoError(t, err).Required()
	gt.Value(t, content).Equal("buy milk\n")
}

func TestReadMissingFile(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	_, err := store.ReadFile(ctx, "nope.txt")
	gt.Bool(t, errors.Is(err, types.ErrNotFound)).True()

	_, err = store.CreateFolder(ctx, "docs")
	gt.NoError(t, err).Required()
	_, err = store.ReadFile(ctx, "docs")
	gt.Bool(t, errors.Is(err, types.ErrNotFound)).True()
}

func TestAppendFile(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	_, err := store.AppendFile(ctx, "log.txt", "first\n")
	gt.NoError(t, err).Required()
	result, err := store.AppendFile(ctx, "log.txt", "second\n")
	gt.NoError(t, err).Required()
	gt.Value(t, result.Size).Equal(int64(len("first\nsecond\n")))

	content, err := store.ReadFile(ctx, "log.txt")
	gt.NoError(t, err).Required()
	gt.Value(t, content).Equal("first\nsecond\n")
}

func TestListFiles(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	t.Run("empty on missing directory", func(t *testing.T) {
		entries, err := store.ListFiles(ctx, "nothing-here", "")
		gt.NoError(t, err).Required()
		gt.Array(t, entries).Length(0)
	})

	t.Run("folders first then case-insensitive names", func(t *testing.T) {
		_, err := store.WriteFile(ctx, "Zebra.txt", "z")
		gt.NoError(t, err).Required()
		_, err = store.WriteFile(ctx, "apple.txt", "a")
		gt.NoError(t, err).Required()
		_, err = store.CreateFolder(ctx, "bin")
		gt.NoError(t, err).Required()
		_, err = store.CreateFolder(ctx, "Archive")
		gt.NoError(t, err).Required()

		entries, err := store.ListFiles(ctx, "", "")
		gt.NoError(t, err).Required()
		gt.Array(t, entries).Length(4).Required()

		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name)
		}
		gt.Value(t, names).Equal([]string{"Archive", "bin", "apple.txt", "Zebra.txt"})
		gt.Value(t, entries[0].Kind).Equal(model.KindFolder)
		gt.Value(t, entries[2].Kind).Equal(model.KindFile)
	})

	t.Run("glob pattern filters by name", func(t *testing.T) {
		entries, err := store.ListFiles(ctx, "", "*.txt")
		gt.NoError(t, err).Required()
		gt.Array(t, entries).Length(2).Required()
		gt.Value(t, entries[0].Name).Equal("apple.txt")
		gt.Value(t, entries[1].Name).Equal("Zebra.txt")
	})

	t.Run("malformed pattern rejected", func(t *testing.T) {
		_, err := store.ListFiles(ctx, "", "[unterminated")
		gt.Bool(t, errors.Is(err, types.ErrValidation)).True()
	})
}

func TestDeleteFile(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	_, err := store.WriteFile(ctx, "trash/item.txt", "x")
	gt.NoError(t, err).Required()

	t.Run("non-empty folder rejected", func(t *testing.T) {
		_, err := store.DeleteFile(ctx, "trash")
		gt.Bool(t, errors.Is(err, types.ErrNotEmpty)).True()
	})

	t.Run("file then empty folder", func(t *testing.T) {
		deleted, err := store.DeleteFile(ctx, "trash/item.txt")
		gt.NoError(t, err).Required()
		gt.Bool(t, deleted).True()

		deleted, err = store.DeleteFile(ctx, "trash")
		gt.NoError(t, err).Required()
		gt.Bool(t, deleted).True()
	})

	t.Run("missing path reports false", func(t *testing.T) {
		deleted, err := store.DeleteFile(ctx, "never-existed.txt")
		gt.NoError(t, err).Required()
		gt.Bool(t, deleted).False()
	})
}

func TestSearchFiles(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	_, err := store.WriteFile(ctx, "recipes/pasta.md", "Boil water.\nAdd PASTA to the pot.\nServe pasta hot.\n")
	gt.NoError(t, err).Required()
	_, err = store.WriteFile(ctx, "recipes/salad.md", "Chop lettuce.\nNo noodles here.\n")
	gt.NoError(t, err).Required()

	t.Run("case-insensitive with line numbers", func(t *testing.T) {
		matches, err := store.SearchFiles(ctx, "pasta", "", "")
		gt.NoError(t, err).Required()
		gt.Array(t, matches).Length(1).Required()
		gt.Value(t, matches[0].Path).Equal("recipes/pasta.md")
		gt.Value(t, matches[0].MatchCount).Equal(2)
		gt.Array(t, matches[0].Lines).Length(2).Required()
		gt.Value(t, matches[0].Lines[0].Line).Equal(2)
		gt.Value(t, matches[0].Lines[1].Line).Equal(3)
	})

	t.Run("lines per file capped at five", func(t *testing.T) {
		_, err := store.WriteFile(ctx, "many.txt", strings.Repeat("needle\n", 8))
		gt.NoError(t, err).Required()

		matches, err := store.SearchFiles(ctx, "needle", "", "")
		gt.NoError(t, err).Required()
		gt.Array(t, matches).Length(1).Required()
		gt.Value(t, matches[0].MatchCount).Equal(8)
		gt.Array(t, matches[0].Lines).Length(5)
	})

	t.Run("long lines truncated", func(t *testing.T) {
		_, err := store.WriteFile(ctx, "long.txt", "needle "+strings.Repeat("x", 300)+"\n")
		gt.NoError(t, err).Required()

		matches, err := store.SearchFiles(ctx, "needle", "", "")
		gt.NoError(t, err).Required()
		for _, m := range matches {
			if m.Path != "long.txt" {
				continue
			}
			gt.Value(t, len([]rune(m.Lines[0].Text))).Equal(203)
		}
	})

	t.Run("files sorted by match count", func(t *testing.T) {
		_, err := store.WriteFile(ctx, "few.txt", "token\n")
		gt.NoError(t, err).Required()
		_, err = store.WriteFile(ctx, "lots.txt", "token\ntoken\ntoken\n")
		gt.NoError(t, err).Required()

		matches, err := store.SearchFiles(ctx, "token", "", "")
		gt.NoError(t, err).Required()
		gt.Array(t, matches).Length(2).Required()
		gt.Value(t, matches[0].Path).Equal("lots.txt")
	})

	t.Run("scoped to a directory", func(t *testing.T) {
		_, err := store.WriteFile(ctx, "outside.md", "pasta outside the recipes tree\n")
		gt.NoError(t, err).Required()

		matches, err := store.SearchFiles(ctx, "pasta", "recipes", "")
		gt.NoError(t, err).Required()
		gt.Array(t, matches).Length(1).Required()
		gt.Value(t, matches[0].Path).Equal("recipes/pasta.md")
	})

	t.Run("glob pattern restricts file names", func(t *testing.T) {
		matches, err := store.SearchFiles(ctx, "pasta", "", "*.md")
		gt.NoError(t, err).Required()
		for _, m := range matches {
			gt.Bool(t, strings.HasSuffix(m.Name, ".md")).True()
		}
		gt.Array(t, matches).Length(2)

		matches, err = store.SearchFiles(ctx, "pasta", "", "*.txt")
		gt.NoError(t, err).Required()
		gt.Array(t, matches).Length(0)
	})

	t.Run("missing directory yields empty result", func(t *testing.T) {
		matches, err := store.SearchFiles(ctx, "pasta", "no-such-dir", "")
		gt.NoError(t, err).Required()
		gt.Array(t, matches).Length(0)
	})

	t.Run("escaping directory rejected", func(t *testing.T) {
		_, err := store.SearchFiles(ctx, "pasta", "../..", "")
		gt.Bool(t, errors.Is(err, types.ErrPathEscape)).True()
	})

	t.Run("empty query rejected", func(t *testing.T) {
		_, err := store.SearchFiles(ctx, "", "", "")
		gt.Bool(t, errors.Is(err, types.ErrValidation)).True()
	})
}

func TestCreateFolderIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	_, err := store.CreateFolder(ctx, "projects")
	gt.NoError(t, err).Required()
	path, err := store.CreateFolder(ctx, "projects")
	gt.NoError(t, err).Required()
	gt.Value(t, path).Equal("projects")
}

func TestFileExists(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	exists, err := store.FileExists(ctx, "ghost.txt")
	gt.NoError(t, err).Required()
	gt.Bool(t, exists).False()

	_, err = store.WriteFile(ctx, "ghost.txt", "boo")
	gt.NoError(t, err).Required()
	exists, err = store.FileExists(ctx, "ghost.txt")
	gt.NoError(t, err).Required()
	gt.Bool(t, exists).True()
}
