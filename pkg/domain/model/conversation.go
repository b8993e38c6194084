package model

import (
	"time"

	"github.com/catalpa-lab/secondbrain/pkg/domain/types"
)

// DefaultTitle is the title of a conversation before the first user turn
// arrives.
const DefaultTitle = "New Conversation"

const (
	titleMaxLen   = 50
	previewMaxLen = 100
)

// Conversation is a durable log of turns. Turns are append-only and ordered
// by insertion.
type Conversation struct {
	ID        types.ConversationID
	Title     string
	Turns     []Turn
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Turn is one role-tagged message in a conversation.
type Turn struct {
	Role      types.TurnRole
	Content   string
	CreatedAt time.Time
}

// ConversationSummary is a list entry carrying a preview of the most recent
// turn and the turn count.
type ConversationSummary struct {
	ID          types.ConversationID
	Title       string
	LastMessage string
	TurnCount   int
	UpdatedAt   time.Time
}

// TitleFromMessage derives a conversation title from the first user message:
// the first 50 characters, with "..." appended only when the original is
// longer than 50.
func TitleFromMessage(msg string) string {
	return Truncate(msg, titleMaxLen)
}

// Preview shortens text to the first 100 characters for list entries.
func Preview(text string) string {
	return Truncate(text, previewMaxLen)
}

// Truncate returns the first n runes of s followed by "..." when s exceeds
// n runes, otherwise s unchanged.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
