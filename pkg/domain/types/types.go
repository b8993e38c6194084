package types

import (
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

// ConversationID identifies a conversation. It is either supplied by the
// caller or generated as a UUID v4.
type ConversationID string

// NewConversationID generates a new UUID v4 ConversationID.
func NewConversationID() ConversationID {
	return ConversationID(uuid.New().String())
}

// Validate checks the ID is non-empty.
func (x ConversationID) Validate() error {
	if x == "" {
		return goerr.Wrap(ErrValidation, "conversation ID must not be empty")
	}
	return nil
}

func (x ConversationID) String() string { return string(x) }

// NoteID identifies a note. Caller-supplied and stable across updates.
type NoteID string

// NewNoteID generates a new UUID v4 NoteID.
func NewNoteID() NoteID {
	return NoteID(uuid.New().String())
}

func (x NoteID) Validate() error {
	if x == "" {
		return goerr.Wrap(ErrValidation, "note ID must not be empty")
	}
	return nil
}

func (x NoteID) String() string { return string(x) }

// ChunkID identifies a memory chunk.
type ChunkID string

// NewChunkID generates a new UUID v4 ChunkID.
func NewChunkID() ChunkID {
	return ChunkID(uuid.New().String())
}

func (x ChunkID) Validate() error {
	if x == "" {
		return goerr.Wrap(ErrValidation, "chunk ID must not be empty")
	}
	return nil
}

func (x ChunkID) String() string { return string(x) }

// TurnRole is the author of one conversation turn.
type TurnRole string

const (
	RoleUser      TurnRole = "user"
	RoleAssistant TurnRole = "assistant"
)

// Validate checks the role is one of the recognized values.
func (x TurnRole) Validate() error {
	switch x {
	case RoleUser, RoleAssistant:
		return nil
	default:
		return goerr.Wrap(ErrValidation, "invalid turn role", goerr.V("role", x))
	}
}

func (x TurnRole) String() string { return string(x) }

// SourceType tags the origin of a memory chunk.
type SourceType string

const (
	SourceConversation SourceType = "conversation"
	SourceDocument     SourceType = "document"
	SourceWeb          SourceType = "web"
	SourceManual       SourceType = "manual"

	// FilterNote is accepted only as a search filter, selecting the note
	// collection instead of chunks.
	FilterNote = "note"
)

// IsChunkFilter reports whether a search filter value selects the chunk
// collection.
func IsChunkFilter(filter string) bool {
	switch SourceType(filter) {
	case SourceConversation, SourceDocument, SourceWeb:
		return true
	default:
		return false
	}
}

func (x SourceType) String() string { return string(x) }
