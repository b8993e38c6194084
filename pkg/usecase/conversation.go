package usecase

import (
	"context"

	"github.com/catalpa-lab/secondbrain/pkg/domain/model"
	"github.com/catalpa-lab/secondbrain/pkg/domain/types"
)

// ConversationUseCase exposes conversation history to the HTTP surface.
type ConversationUseCase struct {
	uc *UseCases
}

func newConversationUseCase(uc *UseCases) *ConversationUseCase {
	return &ConversationUseCase{uc: uc}
}

func (x *ConversationUseCase) List(ctx context.Context) ([]*model.ConversationSummary, error) {
	return x.uc.convs.ListConversations(ctx)
}

func (x *ConversationUseCase) Get(ctx context.Context, id types.ConversationID) (*model.Conversation, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	return x.uc.convs.GetConversation(ctx, id)
}

func (x *ConversationUseCase) Delete(ctx context.Context, id types.ConversationID) (bool, error) {
	if err := id.Validate(); err != nil {
		return false, err
	}
	return x.uc.convs.DeleteConversation(ctx, id)
}
