package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/catalpa-lab/secondbrain/pkg/domain/model"
	"github.com/catalpa-lab/secondbrain/pkg/domain/types"
	"github.com/catalpa-lab/secondbrain/pkg/memory/chromem"
	"github.com/catalpa-lab/secondbrain/pkg/service/embedding"
	"github.com/catalpa-lab/secondbrain/pkg/service/memory"
)

func newService(t *testing.T) *memory.Service {
	t.Helper()
	backend, err := chromem.New(t.TempDir())
	gt.NoError(t, err).Required()
	t.Cleanup(func() { _ = backend.Close() })
	return memory.New(backend, embedding.NewHash())
}

func TestAddNote(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	t.Run("generates ID and timestamps", func(t *testing.T) {
		note, err := svc.AddNote(ctx, &model.Note{Title: "Reading list", Content: "The Go Programming Language"})
		gt.NoError(t, err).Required()
		gt.String(t, note.ID.String()).NotEqual("")
		gt.Bool(t, note.CreatedAt.IsZero()).False()
		gt.Value(t, note.UpdatedAt).Equal(note.CreatedAt)
	})

	t.Run("rewrites keep CreatedAt", func(t *testing.T) {
		first, err := svc.AddNote(ctx, &model.Note{Title: "Draft", Content: "v1"})
		gt.NoError(t, err).Required()

		second, err := svc.AddNote(ctx, &model.Note{ID: first.ID, Title: "Draft", Content: "v2"})
		gt.NoError(t, err).Required()
		gt.Value(t, second.CreatedAt).Equal(first.CreatedAt)
		gt.Bool(t, second.UpdatedAt.Before(first.UpdatedAt)).False()

		got, err := svc.GetNote(ctx, first.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Content).Equal("v2")
	})

	t.Run("empty title rejected", func(t *testing.T) {
		_, err := svc.AddNote(ctx, &model.Note{Content: "no title"})
		gt.Bool(t, errors.Is(err, types.ErrValidation)).True()
	})
}

func TestAddChunk(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	t.Run("generates ID", func(t *testing.T) {
		chunk, err := svc.AddChunk(ctx, &model.MemoryChunk{Text: "met Dana for coffee", SourceType: types.SourceManual})
		gt.NoError(t, err).Required()
		gt.String(t, chunk.ID.String()).NotEqual("")
		gt.Bool(t, chunk.CreatedAt.IsZero()).False()
	})

	t.Run("invalid source type rejected", func(t *testing.T) {
		_, err := svc.AddChunk(ctx, &model.MemoryChunk{Text: "x", SourceType: "diary"})
		gt.Bool(t, errors.Is(err, types.ErrValidation)).True()
	})

	t.Run("empty text rejected", func(t *testing.T) {
		_, err := svc.AddChunk(ctx, &model.MemoryChunk{SourceType: types.SourceManual})
		gt.Bool(t, errors.Is(err, types.ErrValidation)).True()
	})
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	note, err := svc.AddNote(ctx, &model.Note{Title: "Gardening", Content: "Water tomatoes in the morning."})
	gt.NoError(t, err).Required()
	docChunk, err := svc.AddChunk(ctx, &model.MemoryChunk{Text: "Invoice due on the 15th.", SourceType: types.SourceDocument})
	gt.NoError(t, err).Required()
	convChunk, err := svc.AddChunk(ctx, &model.MemoryChunk{Text: "You prefer window seats.", SourceType: types.SourceConversation})
	gt.NoError(t, err).Required()

	hasHit := func(hits []*model.MemoryHit, id string) bool {
		for _, h := range hits {
			if h.ID == id {
				return true
			}
		}
		return false
	}

	t.Run("empty filter spans both collections", func(t *testing.T) {
		hits, err := svc.Search(ctx, "Water tomatoes in the morning.", 10, "")
		gt.NoError(t, err).Required()
		gt.Bool(t, hasHit(hits, note.ID.String())).True()
		gt.Bool(t, hasHit(hits, docChunk.ID.String())).True()
		for i := 1; i < len(hits); i++ {
			gt.Bool(t, hits[i-1].Score >= hits[i].Score).True()
		}
	})

	t.Run("note filter excludes chunks", func(t *testing.T) {
		hits, err := svc.Search(ctx, "tomatoes", 10, "note")
		gt.NoError(t, err).Required()
		for _, h := range hits {
			gt.Value(t, h.Source).Equal(model.HitSourceNotes)
		}
		gt.Bool(t, hasHit(hits, note.ID.String())).True()
	})

	t.Run("source type filter narrows chunks", func(t *testing.T) {
		hits, err := svc.Search(ctx, "Invoice due on the 15th.", 10, "document")
		gt.NoError(t, err).Required()
		gt.Bool(t, hasHit(hits, docChunk.ID.String())).True()
		gt.Bool(t, hasHit(hits, convChunk.ID.String())).False()
		gt.Bool(t, hasHit(hits, note.ID.String())).False()
	})

	t.Run("unknown filter matches nothing", func(t *testing.T) {
		hits, err := svc.Search(ctx, "anything", 10, "diary")
		gt.NoError(t, err).Required()
		gt.Array(t, hits).Length(0)
	})

	t.Run("manual chunks only reachable without filter", func(t *testing.T) {
		hits, err := svc.Search(ctx, "anything", 10, "manual")
		gt.NoError(t, err).Required()
		gt.Array(t, hits).Length(0)
	})

	t.Run("limit caps merged results", func(t *testing.T) {
		hits, err := svc.Search(ctx, "anything at all", 1, "")
		gt.NoError(t, err).Required()
		gt.Array(t, hits).Length(1)
	})

	t.Run("empty query rejected", func(t *testing.T) {
		_, err := svc.Search(ctx, "", 5, "")
		gt.Bool(t, errors.Is(err, types.ErrValidation)).True()
	})
}

func TestDeleteNote(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	note, err := svc.AddNote(ctx, &model.Note{Title: "Temp", Content: "gone soon"})
	gt.NoError(t, err).Required()

	deleted, err := svc.DeleteNote(ctx, note.ID)
	gt.NoError(t, err).Required()
	gt.Bool(t, deleted).True()

	deleted, err = svc.DeleteNote(ctx, note.ID)
	gt.NoError(t, err).Required()
	gt.Bool(t, deleted).False()
}
