package memory_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/m-mizutani/gt"

	"github.com/catalpa-lab/secondbrain/pkg/domain/interfaces"
	"github.com/catalpa-lab/secondbrain/pkg/domain/model"
	"github.com/catalpa-lab/secondbrain/pkg/domain/types"
	"github.com/catalpa-lab/secondbrain/pkg/memory/chromem"
	"github.com/catalpa-lab/secondbrain/pkg/memory/pgvector"
	"github.com/catalpa-lab/secondbrain/pkg/service/embedding"
)

func embedText(t *testing.T, text string) []float32 {
	t.Helper()
	emb, err := embedding.NewHash().Embed(context.Background(), text)
	gt.NoError(t, err).Required()
	return emb
}

func newNote(title, content string) *model.Note {
	now := time.Now().UTC()
	return &model.Note{
		ID:        types.NewNoteID(),
		Title:     title,
		Content:   content,
		Metadata:  map[string]string{"origin": "test"},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func newChunk(text string, sourceType types.SourceType) *model.MemoryChunk {
	return &model.MemoryChunk{
		ID:         types.NewChunkID(),
		Text:       text,
		SourceType: sourceType,
		Metadata:   map[string]string{"origin": "test"},
		CreatedAt:  time.Now().UTC(),
	}
}

func findHit(hits []*model.MemoryHit, id string) *model.MemoryHit {
	for _, h := range hits {
		if h.ID == id {
			return h
		}
	}
	return nil
}

func runMemoryBackendTest(t *testing.T, newBackend func(t *testing.T) interfaces.MemoryBackend) {
	ctx := context.Background()

	t.Run("note roundtrip", func(t *testing.T) {
		backend := newBackend(t)
		note := newNote("Go tips", "Prefer returning errors over panicking.")

		gt.NoError(t, backend.UpsertNote(ctx, note, embedText(t, note.EmbeddingText()))).Required()

		got, err := backend.GetNote(ctx, note.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.ID).Equal(note.ID)
		gt.Value(t, got.Title).Equal("Go tips")
		gt.Value(t, got.Content).Equal("Prefer returning errors over panicking.")
		gt.Value(t, got.Metadata["origin"]).Equal("test")
	})

	t.Run("upsert replaces by ID", func(t *testing.T) {
		backend := newBackend(t)
		note := newNote("Draft", "first version")
		gt.NoError(t, backend.UpsertNote(ctx, note, embedText(t, note.EmbeddingText()))).Required()

		note.Title = "Final"
		note.Content = "second version"
		note.UpdatedAt = note.UpdatedAt.Add(time.Second)
		gt.NoError(t, backend.UpsertNote(ctx, note, embedText(t, note.EmbeddingText()))).Required()

		got, err := backend.GetNote(ctx, note.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Title).Equal("Final")
		gt.Value(t, got.Content).Equal("second version")
	})

	t.Run("query notes ranks exact match first", func(t *testing.T) {
		backend := newBackend(t)
		target := newNote("Kubernetes", "Pods restart when liveness probes fail.")
		other := newNote("Cooking", "Let the pan heat up before adding oil.")
		gt.NoError(t, backend.UpsertNote(ctx, target, embedText(t, target.EmbeddingText()))).Required()
		gt.NoError(t, backend.UpsertNote(ctx, other, embedText(t, other.EmbeddingText()))).Required()

		hits, err := backend.QueryNotes(ctx, embedText(t, target.EmbeddingText()), 10)
		gt.NoError(t, err).Required()
		gt.Value(t, len(hits) >= 2).Equal(true)
		gt.Value(t, hits[0].ID).Equal(target.ID.String())
		gt.Value(t, hits[0].Source).Equal(model.HitSourceNotes)
		gt.Value(t, hits[0].Text).Equal(target.Title + "\n\n" + target.Content)
		gt.Value(t, hits[0].Score > hits[1].Score).Equal(true)
	})

	t.Run("query chunks filters by source type", func(t *testing.T) {
		backend := newBackend(t)
		conv := newChunk("We agreed to ship on Friday.", types.SourceConversation)
		doc := newChunk("The report covers Q3 revenue.", types.SourceDocument)
		gt.NoError(t, backend.UpsertChunk(ctx, conv, embedText(t, conv.Text))).Required()
		gt.NoError(t, backend.UpsertChunk(ctx, doc, embedText(t, doc.Text))).Required()

		all, err := backend.QueryChunks(ctx, embedText(t, conv.Text), 100, "")
		gt.NoError(t, err).Required()
		gt.Value(t, findHit(all, conv.ID.String())).NotNil()
		gt.Value(t, findHit(all, doc.ID.String())).NotNil()

		onlyConv, err := backend.QueryChunks(ctx, embedText(t, conv.Text), 100, "conversation")
		gt.NoError(t, err).Required()
		gt.Value(t, findHit(onlyConv, conv.ID.String())).NotNil()
		gt.Value(t, findHit(onlyConv, doc.ID.String())).Nil()
	})

	t.Run("query limit larger than collection", func(t *testing.T) {
		backend := newBackend(t)
		note := newNote("Lone note", "only one entry here")
		gt.NoError(t, backend.UpsertNote(ctx, note, embedText(t, note.EmbeddingText()))).Required()

		hits, err := backend.QueryNotes(ctx, embedText(t, note.EmbeddingText()), 50)
		gt.NoError(t, err).Required()
		gt.Value(t, findHit(hits, note.ID.String())).NotNil()
	})

	t.Run("list notes newest first", func(t *testing.T) {
		backend := newBackend(t)
		older := newNote("Older", "written earlier")
		older.CreatedAt = older.CreatedAt.Add(-time.Hour)
		older.UpdatedAt = older.CreatedAt
		newer := newNote("Newer", "written later")
		gt.NoError(t, backend.UpsertNote(ctx, older, embedText(t, older.EmbeddingText()))).Required()
		gt.NoError(t, backend.UpsertNote(ctx, newer, embedText(t, newer.EmbeddingText()))).Required()

		summaries, err := backend.ListNotes(ctx)
		gt.NoError(t, err).Required()

		newerIdx, olderIdx := -1, -1
		for i, s := range summaries {
			switch s.ID {
			case newer.ID:
				newerIdx = i
				gt.Value(t, s.Title).Equal("Newer")
				gt.Value(t, s.Preview).Equal("written later")
			case older.ID:
				olderIdx = i
			}
		}
		gt.Value(t, newerIdx >= 0).Equal(true)
		gt.Value(t, olderIdx >= 0).Equal(true)
		gt.Value(t, newerIdx < olderIdx).Equal(true)
	})

	t.Run("get missing note", func(t *testing.T) {
		backend := newBackend(t)
		_, err := backend.GetNote(ctx, types.NewNoteID())
		gt.Value(t, errors.Is(err, types.ErrNotFound)).Equal(true)
	})

	t.Run("delete note", func(t *testing.T) {
		backend := newBackend(t)
		note := newNote("Disposable", "delete me")
		gt.NoError(t, backend.UpsertNote(ctx, note, embedText(t, note.EmbeddingText()))).Required()

		deleted, err := backend.DeleteNote(ctx, note.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, deleted).Equal(true)

		_, err = backend.GetNote(ctx, note.ID)
		gt.Value(t, errors.Is(err, types.ErrNotFound)).Equal(true)

		deleted, err = backend.DeleteNote(ctx, note.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, deleted).Equal(false)
	})

	t.Run("delete chunk", func(t *testing.T) {
		backend := newBackend(t)
		chunk := newChunk("transient", types.SourceManual)
		gt.NoError(t, backend.UpsertChunk(ctx, chunk, embedText(t, chunk.Text))).Required()

		deleted, err := backend.DeleteChunk(ctx, chunk.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, deleted).Equal(true)

		deleted, err = backend.DeleteChunk(ctx, chunk.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, deleted).Equal(false)
	})

	t.Run("empty collections", func(t *testing.T) {
		backend := newBackend(t)
		hits, err := backend.QueryNotes(ctx, embedText(t, "anything"), 5)
		gt.NoError(t, err).Required()
		gt.Array(t, hits).Length(0)
	})
}

func TestChromemBackend(t *testing.T) {
	runMemoryBackendTest(t, func(t *testing.T) interfaces.MemoryBackend {
		store, err := chromem.New(t.TempDir())
		gt.NoError(t, err).Required()
		t.Cleanup(func() { _ = store.Close() })
		return store
	})
}

func TestPgvectorBackend(t *testing.T) {
	dsn := os.Getenv("TEST_PGVECTOR_DSN")
	if dsn == "" {
		t.Skip("TEST_PGVECTOR_DSN is not set")
	}

	runMemoryBackendTest(t, func(t *testing.T) interfaces.MemoryBackend {
		ctx := context.Background()
		store, err := pgvector.New(ctx, dsn, 4)
		gt.NoError(t, err).Required()
		t.Cleanup(func() { _ = store.Close() })

		// Each subtest starts from empty collections.
		conn, err := pgx.Connect(ctx, dsn)
		gt.NoError(t, err).Required()
		_, err = conn.Exec(ctx, "TRUNCATE memory_notes, memory_chunks")
		gt.NoError(t, err).Required()
		gt.NoError(t, conn.Close(ctx)).Required()

		return store
	})
}
