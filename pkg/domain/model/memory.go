package model

import (
	"time"

	"github.com/catalpa-lab/secondbrain/pkg/domain/types"
)

// Note is a titled document owned by the memory store. A write is an upsert
// keyed by ID: re-adding the same ID replaces content and metadata and
// refreshes UpdatedAt.
type Note struct {
	ID        types.NoteID
	Title     string
	Content   string
	Metadata  map[string]string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EmbeddingText is the text the note's embedding is computed over.
func (x *Note) EmbeddingText() string {
	return x.Title + "\n\n" + x.Content
}

// NoteSummary is a list entry for a note.
type NoteSummary struct {
	ID        types.NoteID
	Title     string
	Preview   string
	UpdatedAt time.Time
}

// MemoryChunk is a freeform unit of retrievable text tagged with a source
// type. Chunks are immutable once added except for upsert-by-ID replacement.
type MemoryChunk struct {
	ID         types.ChunkID
	Text       string
	SourceType types.SourceType
	Metadata   map[string]string
	CreatedAt  time.Time
}

// Hit source collection tags.
const (
	HitSourceNotes  = "notes"
	HitSourceChunks = "chunks"
)

// MemoryHit is one merged search result. Score is cosine similarity, higher
// is more similar; every backend normalizes to this polarity before results
// are merged.
type MemoryHit struct {
	ID       string
	Text     string
	Score    float32
	Source   string
	Metadata map[string]string
}
