package interfaces

import (
	"context"

	"github.com/catalpa-lab/secondbrain/pkg/domain/model"
	"github.com/catalpa-lab/secondbrain/pkg/domain/types"
)

// MemoryBackend is a vector-indexed document store with two collections:
// notes and memory chunks. Query scores are cosine similarity, higher is
// more similar; a backend whose engine reports distances must convert
// before returning. Empty collections yield empty results, not errors. An
// unprovisioned engine surfaces types.ErrStorageUnavailable.
type MemoryBackend interface {
	// UpsertNote inserts or replaces a note and its embedding by ID.
	UpsertNote(ctx context.Context, note *model.Note, embedding []float32) error

	// UpsertChunk inserts or replaces a memory chunk and its embedding by ID.
	UpsertChunk(ctx context.Context, chunk *model.MemoryChunk, embedding []float32) error

	// QueryNotes returns up to limit notes by similarity to the embedding.
	QueryNotes(ctx context.Context, embedding []float32, limit int) ([]*model.MemoryHit, error)

	// QueryChunks returns up to limit chunks by similarity to the embedding,
	// optionally restricted to one source type (empty means all).
	QueryChunks(ctx context.Context, embedding []float32, limit int, sourceType string) ([]*model.MemoryHit, error)

	// GetNote returns a note by ID or an error wrapping types.ErrNotFound.
	GetNote(ctx context.Context, id types.NoteID) (*model.Note, error)

	// ListNotes returns all notes ordered by UpdatedAt descending, each with
	// a 100-character preview.
	ListNotes(ctx context.Context) ([]*model.NoteSummary, error)

	// DeleteNote removes a note, reporting whether it existed.
	DeleteNote(ctx context.Context, id types.NoteID) (bool, error)

	// DeleteChunk removes a chunk, reporting whether it existed.
	DeleteChunk(ctx context.Context, id types.ChunkID) (bool, error)

	Close() error
}

// Embedder turns text into a fixed-length vector, deterministic for
// identical input. Similarity quality is the implementation's concern, not
// this contract's.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the vector length every Embed call produces.
	Dimensions() int
}
