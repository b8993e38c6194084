// Package pgvector implements the memory backend on PostgreSQL with the
// pgvector extension. Notes and chunks live in separate tables; similarity
// is cosine, reported as 1 - (embedding <=> query) so higher is better.
package pgvector

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/m-mizutani/goerr/v2"
	pgv "github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/catalpa-lab/secondbrain/pkg/domain/model"
	"github.com/catalpa-lab/secondbrain/pkg/domain/types"
	"github.com/catalpa-lab/secondbrain/pkg/service/embedding"
)

const schema = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS memory_notes (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	content    TEXT NOT NULL,
	metadata   JSONB NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	embedding  vector(384) NOT NULL
);

CREATE TABLE IF NOT EXISTS memory_chunks (
	id          TEXT PRIMARY KEY,
	text        TEXT NOT NULL,
	source_type TEXT NOT NULL,
	metadata    JSONB NOT NULL DEFAULT '{}',
	created_at  TIMESTAMPTZ NOT NULL,
	embedding   vector(384) NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_memory_notes_embedding
	ON memory_notes USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100);
CREATE INDEX IF NOT EXISTS idx_memory_chunks_embedding
	ON memory_chunks USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100);
CREATE INDEX IF NOT EXISTS idx_memory_chunks_source_type
	ON memory_chunks (source_type);
`

// Store is a MemoryBackend over a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to databaseURL, registers the pgvector codec on every
// connection, and applies the schema.
func New(ctx context.Context, databaseURL string, poolSize int32) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, goerr.Wrap(types.ErrValidation, "invalid database URL")
	}
	if poolSize > 0 {
		cfg.MaxConns = poolSize
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, goerr.Wrap(types.ErrStorageUnavailable, "failed to create connection pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, goerr.Wrap(types.ErrStorageUnavailable, "failed to connect to postgres")
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, goerr.Wrap(types.ErrStorageUnavailable, "failed to apply memory schema")
	}

	return &Store{pool: pool}, nil
}

func (x *Store) Close() error {
	x.pool.Close()
	return nil
}

func (x *Store) UpsertNote(ctx context.Context, note *model.Note, emb []float32) error {
	if len(emb) != embedding.Dimensions {
		return goerr.Wrap(types.ErrValidation, "unexpected embedding dimensions", goerr.V("got", len(emb)))
	}

	_, err := x.pool.Exec(ctx, `
		INSERT INTO memory_notes (id, title, content, metadata, created_at, updated_at, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			content = EXCLUDED.content,
			metadata = EXCLUDED.metadata,
			updated_at = EXCLUDED.updated_at,
			embedding = EXCLUDED.embedding`,
		note.ID.String(), note.Title, note.Content, metadataOrEmpty(note.Metadata),
		note.CreatedAt, note.UpdatedAt, pgv.NewVector(emb))
	if err != nil {
		return goerr.Wrap(err, "failed to upsert note", goerr.V("id", note.ID))
	}
	return nil
}

func (x *Store) UpsertChunk(ctx context.Context, chunk *model.MemoryChunk, emb []float32) error {
	if len(emb) != embedding.Dimensions {
		return goerr.Wrap(types.ErrValidation, "unexpected embedding dimensions", goerr.V("got", len(emb)))
	}

	_, err := x.pool.Exec(ctx, `
		INSERT INTO memory_chunks (id, text, source_type, metadata, created_at, embedding)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			text = EXCLUDED.text,
			source_type = EXCLUDED.source_type,
			metadata = EXCLUDED.metadata,
			embedding = EXCLUDED.embedding`,
		chunk.ID.String(), chunk.Text, chunk.SourceType.String(), metadataOrEmpty(chunk.Metadata),
		chunk.CreatedAt, pgv.NewVector(emb))
	if err != nil {
		return goerr.Wrap(err, "failed to upsert chunk", goerr.V("id", chunk.ID))
	}
	return nil
}

func (x *Store) QueryNotes(ctx context.Context, emb []float32, limit int) ([]*model.MemoryHit, error) {
	rows, err := x.pool.Query(ctx, `
		SELECT id, title, content, metadata, 1 - (embedding <=> $1) AS score
		FROM memory_notes
		ORDER BY embedding <=> $1
		LIMIT $2`,
		pgv.NewVector(emb), limit)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query notes")
	}
	defer rows.Close()

	var hits []*model.MemoryHit
	for rows.Next() {
		var (
			id, title, content string
			meta               map[string]string
			score              float64
		)
		if err := rows.Scan(&id, &title, &content, &meta, &score); err != nil {
			return nil, goerr.Wrap(err, "failed to scan note hit")
		}
		hits = append(hits, &model.MemoryHit{
			ID:       id,
			Text:     title + "\n\n" + content,
			Score:    float32(score),
			Source:   model.HitSourceNotes,
			Metadata: meta,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate note hits")
	}
	return hits, nil
}

func (x *Store) QueryChunks(ctx context.Context, emb []float32, limit int, sourceType string) ([]*model.MemoryHit, error) {
	q := `
		SELECT id, text, metadata, 1 - (embedding <=> $1) AS score
		FROM memory_chunks
		ORDER BY embedding <=> $1
		LIMIT $2`
	args := []any{pgv.NewVector(emb), limit}
	if sourceType != "" {
		q = `
		SELECT id, text, metadata, 1 - (embedding <=> $1) AS score
		FROM memory_chunks
		WHERE source_type = $3
		ORDER BY embedding <=> $1
		LIMIT $2`
		args = append(args, sourceType)
	}

	rows, err := x.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query chunks")
	}
	defer rows.Close()

	var hits []*model.MemoryHit
	for rows.Next() {
		var (
			id, text string
			meta     map[string]string
			score    float64
		)
		if err := rows.Scan(&id, &text, &meta, &score); err != nil {
			return nil, goerr.Wrap(err, "failed to scan chunk hit")
		}
		hits = append(hits, &model.MemoryHit{
			ID:       id,
			Text:     text,
			Score:    float32(score),
			Source:   model.HitSourceChunks,
			Metadata: meta,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate chunk hits")
	}
	return hits, nil
}

func (x *Store) GetNote(ctx context.Context, id types.NoteID) (*model.Note, error) {
	var note model.Note
	err := x.pool.QueryRow(ctx, `
		SELECT id, title, content, metadata, created_at, updated_at
		FROM memory_notes WHERE id = $1`,
		id.String()).Scan(&note.ID, &note.Title, &note.Content, &note.Metadata, &note.CreatedAt, &note.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, goerr.Wrap(types.ErrNotFound, "note not found", goerr.V("id", id))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get note", goerr.V("id", id))
	}
	return &note, nil
}

func (x *Store) ListNotes(ctx context.Context) ([]*model.NoteSummary, error) {
	rows, err := x.pool.Query(ctx, `
		SELECT id, title, content, updated_at
		FROM memory_notes
		ORDER BY updated_at DESC`)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list notes")
	}
	defer rows.Close()

	summaries := []*model.NoteSummary{}
	for rows.Next() {
		var (
			s       model.NoteSummary
			content string
		)
		if err := rows.Scan(&s.ID, &s.Title, &content, &s.UpdatedAt); err != nil {
			return nil, goerr.Wrap(err, "failed to scan note summary")
		}
		s.Preview = model.Preview(content)
		summaries = append(summaries, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate note summaries")
	}
	return summaries, nil
}

func (x *Store) DeleteNote(ctx context.Context, id types.NoteID) (bool, error) {
	tag, err := x.pool.Exec(ctx, `DELETE FROM memory_notes WHERE id = $1`, id.String())
	if err != nil {
		return false, goerr.Wrap(err, "failed to delete note", goerr.V("id", id))
	}
	return tag.RowsAffected() > 0, nil
}

func (x *Store) DeleteChunk(ctx context.Context, id types.ChunkID) (bool, error) {
	tag, err := x.pool.Exec(ctx, `DELETE FROM memory_chunks WHERE id = $1`, id.String())
	if err != nil {
		return false, goerr.Wrap(err, "failed to delete chunk", goerr.V("id", id))
	}
	return tag.RowsAffected() > 0, nil
}

func metadataOrEmpty(meta map[string]string) map[string]string {
	if meta == nil {
		return map[string]string{}
	}
	return meta
}
