// Package chromem implements the memory backend on chromem-go, a pure Go
// embedded vector database persisted under one directory.
package chromem

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	chromem "github.com/philippgille/chromem-go"

	"github.com/catalpa-lab/secondbrain/pkg/domain/model"
	"github.com/catalpa-lab/secondbrain/pkg/domain/types"
)

const (
	notesCollection  = "notes"
	chunksCollection = "memory_chunks"

	// User-supplied metadata keys are prefixed so they cannot collide with
	// the reserved keys (title, type, source_type, created_at, updated_at).
	metaPrefix = "meta."
)

// Store is a MemoryBackend over two chromem collections. Embeddings are
// provided by the caller; chromem only indexes and ranks them (cosine
// similarity, higher is better).
type Store struct {
	db     *chromem.DB
	notes  *chromem.Collection
	chunks *chromem.Collection
}

// New opens (creating if needed) the persistent database at path.
func New(path string) (*Store, error) {
	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, goerr.Wrap(types.ErrStorageUnavailable, "failed to open chromem database", goerr.V("path", path))
	}

	notes, err := db.GetOrCreateCollection(notesCollection, nil, nil)
	if err != nil {
		return nil, goerr.Wrap(types.ErrStorageUnavailable, "failed to create notes collection")
	}
	chunks, err := db.GetOrCreateCollection(chunksCollection, nil, nil)
	if err != nil {
		return nil, goerr.Wrap(types.ErrStorageUnavailable, "failed to create chunks collection")
	}

	return &Store{db: db, notes: notes, chunks: chunks}, nil
}

func (x *Store) Close() error {
	return nil
}

func (x *Store) UpsertNote(ctx context.Context, note *model.Note, embedding []float32) error {
	meta := map[string]string{
		"title":      note.Title,
		"type":       "note",
		"created_at": note.CreatedAt.UTC().Format(time.RFC3339Nano),
		"updated_at": note.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	for k, v := range note.Metadata {
		meta[metaPrefix+k] = v
	}

	doc := chromem.Document{
		ID:        note.ID.String(),
		Content:   note.Content,
		Embedding: embedding,
		Metadata:  meta,
	}
	if err := x.notes.AddDocument(ctx, doc); err != nil {
		return goerr.Wrap(err, "failed to upsert note", goerr.V("id", note.ID))
	}
	return nil
}

func (x *Store) UpsertChunk(ctx context.Context, chunk *model.MemoryChunk, embedding []float32) error {
	meta := map[string]string{
		"source_type": chunk.SourceType.String(),
		"created_at":  chunk.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	for k, v := range chunk.Metadata {
		meta[metaPrefix+k] = v
	}

	doc := chromem.Document{
		ID:        chunk.ID.String(),
		Content:   chunk.Text,
		Embedding: embedding,
		Metadata:  meta,
	}
	if err := x.chunks.AddDocument(ctx, doc); err != nil {
		return goerr.Wrap(err, "failed to upsert chunk", goerr.V("id", chunk.ID))
	}
	return nil
}

// query wraps QueryEmbedding with the shrink-on-small-collection idiom:
// chromem rejects nResults larger than the number of matching documents, so
// retry with smaller limits until it succeeds or the collection turns out
// to be empty.
func query(ctx context.Context, col *chromem.Collection, embedding []float32, limit int, where map[string]string) ([]chromem.Result, error) {
	if count := col.Count(); count < limit {
		limit = count
	}

	for ; limit >= 1; limit-- {
		results, err := col.QueryEmbedding(ctx, embedding, limit, where, nil)
		if err == nil {
			return results, nil
		}
		if !strings.Contains(err.Error(), "nResults") {
			return nil, goerr.Wrap(err, "chromem query failed")
		}
	}

	return nil, nil
}

func (x *Store) QueryNotes(ctx context.Context, embedding []float32, limit int) ([]*model.MemoryHit, error) {
	results, err := query(ctx, x.notes, embedding, limit, nil)
	if err != nil {
		return nil, err
	}

	hits := make([]*model.MemoryHit, 0, len(results))
	for _, r := range results {
		hits = append(hits, &model.MemoryHit{
			ID:       r.ID,
			Text:     r.Metadata["title"] + "\n\n" + r.Content,
			Score:    r.Similarity,
			Source:   model.HitSourceNotes,
			Metadata: userMetadata(r.Metadata),
		})
	}
	return hits, nil
}

func (x *Store) QueryChunks(ctx context.Context, embedding []float32, limit int, sourceType string) ([]*model.MemoryHit, error) {
	var where map[string]string
	if sourceType != "" {
		where = map[string]string{"source_type": sourceType}
	}

	results, err := query(ctx, x.chunks, embedding, limit, where)
	if err != nil {
		return nil, err
	}

	hits := make([]*model.MemoryHit, 0, len(results))
	for _, r := range results {
		hits = append(hits, &model.MemoryHit{
			ID:       r.ID,
			Text:     r.Content,
			Score:    r.Similarity,
			Source:   model.HitSourceChunks,
			Metadata: userMetadata(r.Metadata),
		})
	}
	return hits, nil
}

func (x *Store) GetNote(ctx context.Context, id types.NoteID) (*model.Note, error) {
	doc, err := x.notes.GetByID(ctx, id.String())
	if err != nil {
		return nil, goerr.Wrap(types.ErrNotFound, "note not found", goerr.V("id", id))
	}
	return docToNote(&doc), nil
}

func (x *Store) ListNotes(ctx context.Context) ([]*model.NoteSummary, error) {
	count := x.notes.Count()
	if count == 0 {
		return []*model.NoteSummary{}, nil
	}

	// chromem has no list operation; a probe query with nResults equal to
	// the collection size returns every document.
	results, err := query(ctx, x.notes, probeVector(), count, nil)
	if err != nil {
		return nil, err
	}

	summaries := make([]*model.NoteSummary, 0, len(results))
	for _, r := range results {
		summaries = append(summaries, &model.NoteSummary{
			ID:        types.NoteID(r.ID),
			Title:     r.Metadata["title"],
			Preview:   model.Preview(r.Content),
			UpdatedAt: parseTime(r.Metadata["updated_at"]),
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})
	return summaries, nil
}

func (x *Store) DeleteNote(ctx context.Context, id types.NoteID) (bool, error) {
	if _, err := x.notes.GetByID(ctx, id.String()); err != nil {
		return false, nil
	}
	if err := x.notes.Delete(ctx, nil, nil, id.String()); err != nil {
		return false, goerr.Wrap(err, "failed to delete note", goerr.V("id", id))
	}
	return true, nil
}

func (x *Store) DeleteChunk(ctx context.Context, id types.ChunkID) (bool, error) {
	if _, err := x.chunks.GetByID(ctx, id.String()); err != nil {
		return false, nil
	}
	if err := x.chunks.Delete(ctx, nil, nil, id.String()); err != nil {
		return false, goerr.Wrap(err, "failed to delete chunk", goerr.V("id", id))
	}
	return true, nil
}

func docToNote(doc *chromem.Document) *model.Note {
	return &model.Note{
		ID:        types.NoteID(doc.ID),
		Title:     doc.Metadata["title"],
		Content:   doc.Content,
		Metadata:  userMetadata(doc.Metadata),
		CreatedAt: parseTime(doc.Metadata["created_at"]),
		UpdatedAt: parseTime(doc.Metadata["updated_at"]),
	}
}

func userMetadata(meta map[string]string) map[string]string {
	out := make(map[string]string)
	for k, v := range meta {
		if rest, ok := strings.CutPrefix(k, metaPrefix); ok {
			out[rest] = v
		}
	}
	return out
}

func parseTime(v string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return t
}

// probeVector is a fixed non-zero unit vector used only to enumerate a
// collection through the query API.
func probeVector() []float32 {
	vec := make([]float32, 384)
	vec[0] = 1
	return vec
}
