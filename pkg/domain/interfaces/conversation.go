package interfaces

import (
	"context"

	"github.com/catalpa-lab/secondbrain/pkg/domain/model"
	"github.com/catalpa-lab/secondbrain/pkg/domain/types"
)

// ConversationStore persists conversations and their turns. Both backends
// must be observably identical to callers.
type ConversationStore interface {
	// CreateConversation creates a conversation with the given title (the
	// default title when empty). It is idempotent: a no-op if the ID exists.
	CreateConversation(ctx context.Context, id types.ConversationID, title string) error

	// SaveTurn appends a turn, creating the conversation with the default
	// title if absent and bumping its UpdatedAt. When role is "user" and the
	// title is still the default, the title is set from the message content.
	SaveTurn(ctx context.Context, id types.ConversationID, role types.TurnRole, content string) error

	// GetConversation returns the conversation with all turns in insertion
	// order, or an error wrapping types.ErrNotFound.
	GetConversation(ctx context.Context, id types.ConversationID) (*model.Conversation, error)

	// ListConversations returns all conversations ordered by UpdatedAt
	// descending, each with a preview of the most recent turn and a count.
	ListConversations(ctx context.Context) ([]*model.ConversationSummary, error)

	// DeleteConversation removes the conversation and all its turns,
	// reporting whether anything was deleted.
	DeleteConversation(ctx context.Context, id types.ConversationID) (bool, error)

	Close() error
}
