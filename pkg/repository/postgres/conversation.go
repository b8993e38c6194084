// Package postgres implements the conversation store on a networked
// PostgreSQL database through a bounded pgx connection pool.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/m-mizutani/goerr/v2"

	"github.com/catalpa-lab/secondbrain/pkg/domain/model"
	"github.com/catalpa-lab/secondbrain/pkg/domain/types"
)

// Store is a ConversationStore backed by PostgreSQL. Connections are
// borrowed from the pool per call and released on every exit path by pgx.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to the database, verifies reachability and ensures the
// schema. poolSize bounds the connection pool; zero keeps the pgx default.
func New(ctx context.Context, databaseURL string, poolSize int32) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, goerr.Wrap(types.ErrValidation, "invalid database URL")
	}
	if poolSize > 0 {
		cfg.MaxConns = poolSize
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, goerr.Wrap(types.ErrStorageUnavailable, "failed to create connection pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, goerr.Wrap(types.ErrStorageUnavailable, "database is unreachable")
	}

	x := &Store{pool: pool}
	if err := x.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return x, nil
}

func (x *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS turns (
			id SERIAL PRIMARY KEY,
			conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_turns_conversation ON turns(conversation_id)`,
	}

	for _, stmt := range stmts {
		if _, err := x.pool.Exec(ctx, stmt); err != nil {
			return goerr.Wrap(err, "failed to migrate postgres schema")
		}
	}
	return nil
}

func (x *Store) Close() error {
	x.pool.Close()
	return nil
}

func (x *Store) CreateConversation(ctx context.Context, id types.ConversationID, title string) error {
	if title == "" {
		title = model.DefaultTitle
	}

	_, err := x.pool.Exec(ctx,
		`INSERT INTO conversations (id, title) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`,
		string(id), title,
	)
	if err != nil {
		return goerr.Wrap(err, "failed to create conversation", goerr.V("id", id))
	}
	return nil
}

func (x *Store) SaveTurn(ctx context.Context, id types.ConversationID, role types.TurnRole, content string) error {
	tx, err := x.pool.Begin(ctx)
	if err != nil {
		return goerr.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`INSERT INTO conversations (id, title) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`,
		string(id), model.DefaultTitle,
	); err != nil {
		return goerr.Wrap(err, "failed to ensure conversation", goerr.V("id", id))
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO turns (conversation_id, role, content) VALUES ($1, $2, $3)`,
		string(id), string(role), content,
	); err != nil {
		return goerr.Wrap(err, "failed to append turn", goerr.V("id", id))
	}

	if role == types.RoleUser {
		if _, err := tx.Exec(ctx,
			`UPDATE conversations
			 SET updated_at = NOW(),
			     title = CASE WHEN title = $1 THEN $2 ELSE title END
			 WHERE id = $3`,
			model.DefaultTitle, model.TitleFromMessage(content), string(id),
		); err != nil {
			return goerr.Wrap(err, "failed to update conversation title", goerr.V("id", id))
		}
	} else {
		if _, err := tx.Exec(ctx,
			`UPDATE conversations SET updated_at = NOW() WHERE id = $1`,
			string(id),
		); err != nil {
			return goerr.Wrap(err, "failed to update conversation", goerr.V("id", id))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return goerr.Wrap(err, "failed to commit turn", goerr.V("id", id))
	}
	return nil
}

func (x *Store) GetConversation(ctx context.Context, id types.ConversationID) (*model.Conversation, error) {
	var conv model.Conversation
	var convID, title string

	row := x.pool.QueryRow(ctx,
		`SELECT id, title, created_at, updated_at FROM conversations WHERE id = $1`,
		string(id),
	)
	if err := row.Scan(&convID, &title, &conv.CreatedAt, &conv.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, goerr.Wrap(types.ErrNotFound, "conversation not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get conversation", goerr.V("id", id))
	}
	conv.ID = types.ConversationID(convID)
	conv.Title = title

	rows, err := x.pool.Query(ctx,
		`SELECT role, content, created_at FROM turns WHERE conversation_id = $1 ORDER BY id`,
		string(id),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query turns", goerr.V("id", id))
	}
	defer rows.Close()

	for rows.Next() {
		var turn model.Turn
		var role string
		if err := rows.Scan(&role, &turn.Content, &turn.CreatedAt); err != nil {
			return nil, goerr.Wrap(err, "failed to scan turn", goerr.V("id", id))
		}
		turn.Role = types.TurnRole(role)
		conv.Turns = append(conv.Turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate turns", goerr.V("id", id))
	}

	return &conv, nil
}

func (x *Store) ListConversations(ctx context.Context) ([]*model.ConversationSummary, error) {
	rows, err := x.pool.Query(ctx,
		`SELECT c.id, c.title, c.updated_at,
		        COALESCE((SELECT content FROM turns WHERE conversation_id = c.id ORDER BY id DESC LIMIT 1), ''),
		        (SELECT COUNT(*) FROM turns WHERE conversation_id = c.id)
		 FROM conversations c
		 ORDER BY c.updated_at DESC`,
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list conversations")
	}
	defer rows.Close()

	summaries := make([]*model.ConversationSummary, 0)
	for rows.Next() {
		var s model.ConversationSummary
		var id, lastMessage string
		var count int64
		if err := rows.Scan(&id, &s.Title, &s.UpdatedAt, &lastMessage, &count); err != nil {
			return nil, goerr.Wrap(err, "failed to scan conversation summary")
		}
		s.ID = types.ConversationID(id)
		s.LastMessage = model.Preview(lastMessage)
		s.TurnCount = int(count)
		summaries = append(summaries, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate conversations")
	}

	return summaries, nil
}

func (x *Store) DeleteConversation(ctx context.Context, id types.ConversationID) (bool, error) {
	// Turns cascade with the conversation row.
	tag, err := x.pool.Exec(ctx,
		`DELETE FROM conversations WHERE id = $1`, string(id),
	)
	if err != nil {
		return false, goerr.Wrap(err, "failed to delete conversation", goerr.V("id", id))
	}
	return tag.RowsAffected() > 0, nil
}
