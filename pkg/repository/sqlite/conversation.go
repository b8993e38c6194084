// Package sqlite implements the conversation store on an embedded
// single-file SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/m-mizutani/goerr/v2"
	_ "modernc.org/sqlite"

	"github.com/catalpa-lab/secondbrain/pkg/domain/model"
	"github.com/catalpa-lab/secondbrain/pkg/domain/types"
)

// Store is a ConversationStore backed by one SQLite file. Writes are
// serialized by the database itself (WAL + busy timeout).
type Store struct {
	db *sql.DB
}

// New opens (creating if needed) the database file and ensures the schema.
func New(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, goerr.Wrap(types.ErrStorageUnavailable, "failed to open sqlite database", goerr.V("path", path))
	}

	x := &Store{db: db}
	if err := x.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return x, nil
}

func (x *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS turns (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			conversation_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TEXT NOT NULL,
			FOREIGN KEY (conversation_id) REFERENCES conversations(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_turns_conversation ON turns(conversation_id)`,
	}

	for _, stmt := range stmts {
		if _, err := x.db.Exec(stmt); err != nil {
			return goerr.Wrap(err, "failed to migrate sqlite schema")
		}
	}
	return nil
}

func (x *Store) Close() error {
	return x.db.Close()
}

// Fixed-width fraction keeps lexicographic order equal to chronological
// order for the ORDER BY updated_at query.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(v string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (x *Store) CreateConversation(ctx context.Context, id types.ConversationID, title string) error {
	if title == "" {
		title = model.DefaultTitle
	}
	now := formatTime(time.Now())

	_, err := x.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO conversations (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		string(id), title, now, now,
	)
	if err != nil {
		return goerr.Wrap(err, "failed to create conversation", goerr.V("id", id))
	}
	return nil
}

func (x *Store) SaveTurn(ctx context.Context, id types.ConversationID, role types.TurnRole, content string) error {
	now := formatTime(time.Now())

	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO conversations (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		string(id), model.DefaultTitle, now, now,
	); err != nil {
		return goerr.Wrap(err, "failed to ensure conversation", goerr.V("id", id))
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO turns (conversation_id, role, content, created_at) VALUES (?, ?, ?, ?)`,
		string(id), string(role), content, now,
	); err != nil {
		return goerr.Wrap(err, "failed to append turn", goerr.V("id", id))
	}

	if role == types.RoleUser {
		if _, err := tx.ExecContext(ctx,
			`UPDATE conversations
			 SET updated_at = ?,
			     title = CASE WHEN title = ? THEN ? ELSE title END
			 WHERE id = ?`,
			now, model.DefaultTitle, model.TitleFromMessage(content), string(id),
		); err != nil {
			return goerr.Wrap(err, "failed to update conversation title", goerr.V("id", id))
		}
	} else {
		if _, err := tx.ExecContext(ctx,
			`UPDATE conversations SET updated_at = ? WHERE id = ?`,
			now, string(id),
		); err != nil {
			return goerr.Wrap(err, "failed to update conversation", goerr.V("id", id))
		}
	}

	if err := tx.Commit(); err != nil {
		return goerr.Wrap(err, "failed to commit turn", goerr.V("id", id))
	}
	return nil
}

func (x *Store) GetConversation(ctx context.Context, id types.ConversationID) (*model.Conversation, error) {
	var conv model.Conversation
	var createdAt, updatedAt string

	row := x.db.QueryRowContext(ctx,
		`SELECT id, title, created_at, updated_at FROM conversations WHERE id = ?`,
		string(id),
	)
	if err := row.Scan(&conv.ID, &conv.Title, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, goerr.Wrap(types.ErrNotFound, "conversation not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get conversation", goerr.V("id", id))
	}
	conv.CreatedAt = parseTime(createdAt)
	conv.UpdatedAt = parseTime(updatedAt)

	rows, err := x.db.QueryContext(ctx,
		`SELECT role, content, created_at FROM turns WHERE conversation_id = ? ORDER BY id`,
		string(id),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query turns", goerr.V("id", id))
	}
	defer rows.Close()

	for rows.Next() {
		var turn model.Turn
		var turnCreatedAt string
		if err := rows.Scan(&turn.Role, &turn.Content, &turnCreatedAt); err != nil {
			return nil, goerr.Wrap(err, "failed to scan turn", goerr.V("id", id))
		}
		turn.CreatedAt = parseTime(turnCreatedAt)
		conv.Turns = append(conv.Turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate turns", goerr.V("id", id))
	}

	return &conv, nil
}

func (x *Store) ListConversations(ctx context.Context) ([]*model.ConversationSummary, error) {
	rows, err := x.db.QueryContext(ctx,
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
		var updatedAt, lastMessage string
		if err := rows.Scan(&s.ID, &s.Title, &updatedAt, &lastMessage, &s.TurnCount); err != nil {
			return nil, goerr.Wrap(err, "failed to scan conversation summary")
		}
		s.UpdatedAt = parseTime(updatedAt)
		s.LastMessage = model.Preview(lastMessage)
		summaries = append(summaries, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate conversations")
	}

	return summaries, nil
}

func (x *Store) DeleteConversation(ctx context.Context, id types.ConversationID) (bool, error) {
	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return false, goerr.Wrap(err, "failed to begin transaction", goerr.V("id", id))
	}
	defer func() { _ = tx.Rollback() }()

	// Turns reference the conversation, so they go first.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM turns WHERE conversation_id = ?`, string(id),
	); err != nil {
		return false, goerr.Wrap(err, "failed to delete turns", goerr.V("id", id))
	}

	res, err := tx.ExecContext(ctx,
		`DELETE FROM conversations WHERE id = ?`, string(id),
	)
	if err != nil {
		return false, goerr.Wrap(err, "failed to delete conversation", goerr.V("id", id))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, goerr.Wrap(err, "failed to read affected rows", goerr.V("id", id))
	}

	if err := tx.Commit(); err != nil {
		return false, goerr.Wrap(err, "failed to commit delete", goerr.V("id", id))
	}
	return affected > 0, nil
}
