package model

import (
	"time"

	"github.com/catalpa-lab/secondbrain/pkg/domain/types"
)

// Message is one role-tagged message handed to the LLM capability.
type Message struct {
	Role    types.TurnRole
	Content string
}

// MemoryRef identifies a memory item that was injected into a chat turn.
type MemoryRef struct {
	ID      string
	Source  string
	Preview string
}

// ChatResult is the outcome of one chat turn.
type ChatResult struct {
	Reply          string
	ConversationID types.ConversationID
	Timestamp      time.Time
	MemoryUsed     []MemoryRef
}

// LLMHealth reports the availability of the LLM capability.
type LLMHealth struct {
	Status   string
	Provider string
	Model    string
	Detail   string
}

// LLM health statuses.
const (
	LLMStatusOK    = "ok"
	LLMStatusError = "error"
)
