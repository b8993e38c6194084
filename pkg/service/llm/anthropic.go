package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/m-mizutani/goerr/v2"

	"github.com/catalpa-lab/secondbrain/pkg/domain/model"
	"github.com/catalpa-lab/secondbrain/pkg/domain/types"
)

const anthropicMaxTokens = 1024

// Anthropic calls the Messages API through the official SDK.
type Anthropic struct {
	client anthropic.Client
	model  string
}

func NewAnthropic(apiKey, modelName string, timeout time.Duration) (*Anthropic, error) {
	if apiKey == "" {
		return nil, goerr.Wrap(types.ErrValidation, "anthropic API key must not be empty")
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
	)
	return &Anthropic{client: client, model: modelName}, nil
}

func (x *Anthropic) Chat(ctx context.Context, messages []model.Message, systemPrompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(x.model),
		MaxTokens: anthropicMaxTokens,
		Messages:  toAnthropicMessages(messages),
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}

	resp, err := x.client.Messages.New(ctx, params)
	if err != nil {
		return "", wrapAnthropicError(err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}

func (x *Anthropic) HealthCheck(ctx context.Context) *model.LLMHealth {
	health := &model.LLMHealth{Provider: "anthropic", Model: x.model}

	// A one-token request is the cheapest call that exercises both the
	// credentials and the model name.
	_, err := x.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(x.model),
		MaxTokens: 1,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("ping")),
		},
	})
	if err != nil {
		health.Status = model.LLMStatusError
		health.Detail = wrapAnthropicError(err).Error()
		return health
	}

	health.Status = model.LLMStatusOK
	return health
}

func toAnthropicMessages(messages []model.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case types.RoleAssistant:
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	return out
}

func wrapAnthropicError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden {
			return goerr.Wrap(types.ErrUpstreamAuth, "anthropic rejected the credentials", goerr.V("status", apiErr.StatusCode))
		}
		return goerr.Wrap(types.ErrUpstreamFailure, "anthropic API error", goerr.V("status", apiErr.StatusCode))
	}
	return goerr.Wrap(types.ErrUpstreamFailure, "anthropic request failed")
}
