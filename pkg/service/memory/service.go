// Package memory is the caller-facing memory store. It owns embedding,
// timestamp stamping, and cross-collection search; the persistence itself
// is delegated to an interchangeable vector backend.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/sync/errgroup"

	"github.com/catalpa-lab/secondbrain/pkg/domain/interfaces"
	"github.com/catalpa-lab/secondbrain/pkg/domain/model"
	"github.com/catalpa-lab/secondbrain/pkg/domain/types"
)

const defaultSearchLimit = 5

// Service coordinates one embedder and one backend. All hit scores leave
// this package already merged and sorted descending, so callers never deal
// with backend ranking differences.
type Service struct {
	backend  interfaces.MemoryBackend
	embedder interfaces.Embedder
}

func New(backend interfaces.MemoryBackend, embedder interfaces.Embedder) *Service {
	return &Service{backend: backend, embedder: embedder}
}

// AddNote upserts a note. An empty ID gets a generated one; an existing ID
// keeps its CreatedAt and refreshes UpdatedAt.
func (x *Service) AddNote(ctx context.Context, note *model.Note) (*model.Note, error) {
	if note.Title == "" {
		return nil, goerr.Wrap(types.ErrValidation, "note title must not be empty")
	}
	if note.ID == "" {
		note.ID = types.NewNoteID()
	}

	now := time.Now().UTC()
	note.CreatedAt = now
	note.UpdatedAt = now
	if existing, err := x.backend.GetNote(ctx, note.ID); err == nil {
		note.CreatedAt = existing.CreatedAt
	} else if !errors.Is(err, types.ErrNotFound) {
		return nil, err
	}

	emb, err := x.embedder.Embed(ctx, note.EmbeddingText())
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed note", goerr.V("id", note.ID))
	}
	if err := x.backend.UpsertNote(ctx, note, emb); err != nil {
		return nil, err
	}
	return note, nil
}

// AddChunk upserts a memory chunk. An empty ID gets a generated one.
func (x *Service) AddChunk(ctx context.Context, chunk *model.MemoryChunk) (*model.MemoryChunk, error) {
	if chunk.Text == "" {
		return nil, goerr.Wrap(types.ErrValidation, "chunk text must not be empty")
	}
	switch chunk.SourceType {
	case types.SourceConversation, types.SourceDocument, types.SourceWeb, types.SourceManual:
	default:
		return nil, goerr.Wrap(types.ErrValidation, "invalid source type", goerr.V("source_type", chunk.SourceType))
	}
	if chunk.ID == "" {
		chunk.ID = types.NewChunkID()
	}
	chunk.CreatedAt = time.Now().UTC()

	emb, err := x.embedder.Embed(ctx, chunk.Text)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed chunk", goerr.V("id", chunk.ID))
	}
	if err := x.backend.UpsertChunk(ctx, chunk, emb); err != nil {
		return nil, err
	}
	return chunk, nil
}

// Search embeds the query and fans out to the collections the filter
// selects. Empty filter searches both; "note" restricts to notes; a chunk
// source type restricts to chunks of that type. Any other filter matches
// nothing. Results are merged and sorted by score descending.
func (x *Service) Search(ctx context.Context, query string, limit int, filter string) ([]*model.MemoryHit, error) {
	if query == "" {
		return nil, goerr.Wrap(types.ErrValidation, "search query must not be empty")
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	searchNotes := filter == "" || filter == types.FilterNote
	searchChunks := filter == "" || types.IsChunkFilter(filter)
	if !searchNotes && !searchChunks {
		return []*model.MemoryHit{}, nil
	}

	emb, err := x.embedder.Embed(ctx, query)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed search query")
	}

	var (
		mu   sync.Mutex
		hits []*model.MemoryHit
	)
	eg, ctx := errgroup.WithContext(ctx)
	if searchNotes {
		eg.Go(func() error {
			found, err := x.backend.QueryNotes(ctx, emb, limit)
			if err != nil {
				return err
			}
			mu.Lock()
			hits = append(hits, found...)
			mu.Unlock()
			return nil
		})
	}
	if searchChunks {
		sourceType := ""
		if types.IsChunkFilter(filter) {
			sourceType = filter
		}
		eg.Go(func() error {
			found, err := x.backend.QueryChunks(ctx, emb, limit, sourceType)
			if err != nil {
				return err
			}
			mu.Lock()
			hits = append(hits, found...)
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	if hits == nil {
		hits = []*model.MemoryHit{}
	}
	return hits, nil
}

func (x *Service) GetNote(ctx context.Context, id types.NoteID) (*model.Note, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	return x.backend.GetNote(ctx, id)
}

func (x *Service) ListNotes(ctx context.Context) ([]*model.NoteSummary, error) {
	return x.backend.ListNotes(ctx)
}

func (x *Service) DeleteNote(ctx context.Context, id types.NoteID) (bool, error) {
	if err := id.Validate(); err != nil {
		return false, err
	}
	return x.backend.DeleteNote(ctx, id)
}

func (x *Service) DeleteChunk(ctx context.Context, id types.ChunkID) (bool, error) {
	if err := id.Validate(); err != nil {
		return false, err
	}
	return x.backend.DeleteChunk(ctx, id)
}

func (x *Service) Close() error {
	return x.backend.Close()
}
