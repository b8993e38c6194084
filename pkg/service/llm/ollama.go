// Package llm provides the chat model clients. Both implementations satisfy
// interfaces.LLMClient: Ollama for local mode and Anthropic for cloud mode.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/catalpa-lab/secondbrain/pkg/domain/model"
	"github.com/catalpa-lab/secondbrain/pkg/domain/types"
)

const defaultTimeout = 60 * time.Second

// Ollama speaks the Ollama REST API directly.
type Ollama struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllama validates the base URL and builds a client with a fixed request
// timeout.
func NewOllama(baseURL, modelName string, timeout time.Duration) (*Ollama, error) {
	if _, err := url.Parse(baseURL); err != nil || baseURL == "" {
		return nil, goerr.Wrap(types.ErrValidation, "invalid ollama base URL", goerr.V("url", baseURL))
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Ollama{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   modelName,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Error   string        `json:"error"`
}

func (x *Ollama) Chat(ctx context.Context, messages []model.Message, systemPrompt string) (string, error) {
	req := ollamaChatRequest{Model: x.model, Stream: false}
	if systemPrompt != "" {
		req.Messages = append(req.Messages, ollamaMessage{Role: "system", Content: systemPrompt})
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, ollamaMessage{Role: m.Role.String(), Content: m.Content})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", goerr.Wrap(err, "failed to encode chat request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, x.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", goerr.Wrap(err, "failed to build chat request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := x.client.Do(httpReq)
	if err != nil {
		return "", goerr.Wrap(types.ErrUpstreamFailure, "ollama is unreachable", goerr.V("url", x.baseURL))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", goerr.Wrap(types.ErrUpstreamFailure, "failed to read ollama response")
	}
	if resp.StatusCode != http.StatusOK {
		return "", goerr.Wrap(types.ErrUpstreamFailure, "ollama returned an error",
			goerr.V("status", resp.StatusCode), goerr.V("body", model.Truncate(string(data), 200)))
	}

	var chatResp ollamaChatResponse
	if err := json.Unmarshal(data, &chatResp); err != nil {
		return "", goerr.Wrap(types.ErrUpstreamFailure, "failed to decode ollama response")
	}
	if chatResp.Error != "" {
		return "", goerr.Wrap(types.ErrUpstreamFailure, "ollama reported an error", goerr.V("error", chatResp.Error))
	}
	return chatResp.Message.Content, nil
}

func (x *Ollama) HealthCheck(ctx context.Context) *model.LLMHealth {
	health := &model.LLMHealth{Provider: "ollama", Model: x.model}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, x.baseURL+"/api/tags", nil)
	if err != nil {
		health.Status = model.LLMStatusError
		health.Detail = err.Error()
		return health
	}

	resp, err := x.client.Do(req)
	if err != nil {
		health.Status = model.LLMStatusError
		health.Detail = "ollama is unreachable"
		return health
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		health.Status = model.LLMStatusError
		health.Detail = resp.Status
		return health
	}

	health.Status = model.LLMStatusOK
	return health
}
