// Package usecase composes the storage layers and the LLM capability into
// the operations the HTTP surface exposes.
package usecase

import (
	"time"

	"github.com/catalpa-lab/secondbrain/pkg/domain/interfaces"
	"github.com/catalpa-lab/secondbrain/pkg/service/memory"
	"github.com/catalpa-lab/secondbrain/pkg/service/workspace"
)

const (
	defaultSystemPrompt = "You are a helpful personal assistant with access to the user's stored memories and notes."
	defaultMemoryLimit  = 3
)

type UseCases struct {
	convs  interfaces.ConversationStore
	memory *memory.Service
	llm    interfaces.LLMClient
	files  *workspace.Store

	systemPrompt string
	memoryLimit  int
	indexTurns   bool
	now          func() time.Time

	Chat         *ChatUseCase
	Conversation *ConversationUseCase
	Note         *NoteUseCase
}

type Option func(*UseCases)

// WithSystemPrompt replaces the base system prompt sent on every chat turn.
func WithSystemPrompt(prompt string) Option {
	return func(uc *UseCases) {
		if prompt != "" {
			uc.systemPrompt = prompt
		}
	}
}

// WithMemoryLimit sets how many memory hits are injected into a chat turn.
func WithMemoryLimit(limit int) Option {
	return func(uc *UseCases) {
		if limit > 0 {
			uc.memoryLimit = limit
		}
	}
}

// WithConversationIndexing stores each completed exchange as a conversation
// chunk in the memory store, in the background.
func WithConversationIndexing() Option {
	return func(uc *UseCases) {
		uc.indexTurns = true
	}
}

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(uc *UseCases) {
		uc.now = now
	}
}

func New(convs interfaces.ConversationStore, mem *memory.Service, llm interfaces.LLMClient, files *workspace.Store, opts ...Option) *UseCases {
	uc := &UseCases{
		convs:        convs,
		memory:       mem,
		llm:          llm,
		files:        files,
		systemPrompt: defaultSystemPrompt,
		memoryLimit:  defaultMemoryLimit,
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(uc)
	}

	uc.Chat = newChatUseCase(uc)
	uc.Conversation = newConversationUseCase(uc)
	uc.Note = newNoteUseCase(uc)

	return uc
}

// Memory exposes the memory service for the HTTP surface.
func (uc *UseCases) Memory() *memory.Service { return uc.memory }

// Files exposes the workspace store for the HTTP surface.
func (uc *UseCases) Files() *workspace.Store { return uc.files }

// LLM exposes the chat model client for health reporting.
func (uc *UseCases) LLM() interfaces.LLMClient { return uc.llm }
