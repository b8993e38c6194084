package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/catalpa-lab/secondbrain/pkg/domain/model"
	"github.com/catalpa-lab/secondbrain/pkg/domain/types"
	"github.com/catalpa-lab/secondbrain/pkg/utils/async"
	"github.com/catalpa-lab/secondbrain/pkg/utils/logging"
)

const (
	memoryBlockHeader = "=== RELEVANT MEMORIES ==="
	memoryBlockFooter = "=== END MEMORIES ==="
	memoryTextMaxLen  = 500
)

// ChatUseCase runs one chat turn: load history, retrieve memory context,
// call the model, persist the exchange. Nothing is persisted when the model
// call fails, so a failed turn leaves the conversation untouched.
type ChatUseCase struct {
	uc *UseCases
}

func newChatUseCase(uc *UseCases) *ChatUseCase {
	return &ChatUseCase{uc: uc}
}

// Chat runs one turn. useMemory controls whether stored memories are
// retrieved and injected; the turn is otherwise identical.
func (x *ChatUseCase) Chat(ctx context.Context, convID types.ConversationID, message string, useMemory bool) (*model.ChatResult, error) {
	if message == "" {
		return nil, goerr.Wrap(types.ErrValidation, "chat message must not be empty")
	}
	if convID == "" {
		convID = types.NewConversationID()
	}

	if err := x.uc.convs.CreateConversation(ctx, convID, ""); err != nil {
		return nil, err
	}

	history, err := x.loadHistory(ctx, convID)
	if err != nil {
		return nil, err
	}
	messages := append(history, model.Message{Role: types.RoleUser, Content: message})

	// Memory retrieval is best effort. An unavailable or failing memory
	// store degrades the turn to no stored context instead of failing it.
	var hits []*model.MemoryHit
	if useMemory {
		hits, err = x.uc.memory.Search(ctx, message, x.uc.memoryLimit, "")
		if err != nil {
			logging.From(ctx).Warn("memory search failed, continuing without context",
				"error", err, "conversation_id", convID)
			hits = nil
		}
	}

	reply, err := x.uc.llm.Chat(ctx, messages, x.buildSystemPrompt(hits))
	if err != nil {
		return nil, err
	}

	if err := x.uc.convs.SaveTurn(ctx, convID, types.RoleUser, message); err != nil {
		return nil, err
	}
	if err := x.uc.convs.SaveTurn(ctx, convID, types.RoleAssistant, reply); err != nil {
		return nil, err
	}

	if x.uc.indexTurns {
		x.indexExchange(ctx, convID, message, reply)
	}

	result := &model.ChatResult{
		Reply:          reply,
		ConversationID: convID,
		Timestamp:      x.uc.now().UTC(),
	}
	for _, hit := range hits {
		result.MemoryUsed = append(result.MemoryUsed, model.MemoryRef{
			ID:      hit.ID,
			Source:  hit.Source,
			Preview: model.Preview(hit.Text),
		})
	}
	return result, nil
}

func (x *ChatUseCase) loadHistory(ctx context.Context, convID types.ConversationID) ([]model.Message, error) {
	conv, err := x.uc.convs.GetConversation(ctx, convID)
	if err != nil {
		return nil, err
	}

	messages := make([]model.Message, 0, len(conv.Turns))
	for _, turn := range conv.Turns {
		messages = append(messages, model.Message{Role: turn.Role, Content: turn.Content})
	}
	return messages, nil
}

func (x *ChatUseCase) buildSystemPrompt(hits []*model.MemoryHit) string {
	if len(hits) == 0 {
		return x.uc.systemPrompt
	}

	var sb strings.Builder
	sb.WriteString(x.uc.systemPrompt)
	sb.WriteString("\n\n")
	sb.WriteString(memoryBlockHeader)
	sb.WriteString("\n")
	for i, hit := range hits {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, model.Truncate(hit.Text, memoryTextMaxLen))
	}
	sb.WriteString(memoryBlockFooter)
	return sb.String()
}

// indexExchange stores the completed exchange as a conversation-sourced
// memory chunk without blocking the response.
func (x *ChatUseCase) indexExchange(ctx context.Context, convID types.ConversationID, message, reply string) {
	async.Dispatch(ctx, func(ctx context.Context) error {
		_, err := x.uc.memory.AddChunk(ctx, &model.MemoryChunk{
			Text:       "User: " + message + "\nAssistant: " + reply,
			SourceType: types.SourceConversation,
			Metadata:   map[string]string{"conversation_id": convID.String()},
		})
		return err
	})
}
