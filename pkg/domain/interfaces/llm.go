package interfaces

import (
	"context"

	"github.com/catalpa-lab/secondbrain/pkg/domain/model"
)

// LLMClient is the outbound LLM capability. Transport failures surface as
// errors wrapping types.ErrUpstreamFailure; credential rejections wrap
// types.ErrUpstreamAuth.
type LLMClient interface {
	// Chat sends the ordered message history with an optional system prompt
	// and returns the assistant reply text.
	Chat(ctx context.Context, messages []model.Message, systemPrompt string) (string, error)

	// HealthCheck reports whether the provider is reachable and configured.
	// It returns a status rather than an error: an unreachable provider is a
	// reportable state, not a failure of the check itself.
	HealthCheck(ctx context.Context) *model.LLMHealth
}
