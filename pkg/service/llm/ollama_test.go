package llm_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/catalpa-lab/secondbrain/pkg/domain/model"
	"github.com/catalpa-lab/secondbrain/pkg/domain/types"
	"github.com/catalpa-lab/secondbrain/pkg/service/llm"
)

type chatRequest struct {
	Model    string `json:"model"`
	Stream   bool   `json:"stream"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func TestOllamaChat(t *testing.T) {
	ctx := context.Background()

	var captured chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gt.Value(t, r.URL.Path).Equal("/api/chat")
		gt.NoError(t, json.NewDecoder(r.Body).Decode(&captured)).Required()
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]string{"role": "assistant", "content": "hello back"},
		})
	}))
	defer srv.Close()

	client, err := llm.NewOllama(srv.URL, "llama3.2", time.Second)
	gt.NoError(t, err).Required()

	reply, err := client.Chat(ctx, []model.Message{
		{Role: types.RoleUser, Content: "hi there"},
	}, "You are concise.")
	gt.NoError(t, err).Required()
	gt.Value(t, reply).Equal("hello back")

	gt.Value(t, captured.Model).Equal("llama3.2")
	gt.Bool(t, captured.Stream).False()
	gt.Array(t, captured.Messages).Length(2).Required()
	gt.Value(t, captured.Messages[0].Role).Equal("system")
	gt.Value(t, captured.Messages[0].Content).Equal("You are concise.")
	gt.Value(t, captured.Messages[1].Role).Equal("user")
}

func TestOllamaChatWithoutSystemPrompt(t *testing.T) {
	ctx := context.Background()

	var captured chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gt.NoError(t, json.NewDecoder(r.Body).Decode(&captured)).Required()
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]string{"role": "assistant", "content": "ok"},
		})
	}))
	defer srv.Close()

	client, err := llm.NewOllama(srv.URL, "llama3.2", time.Second)
	gt.NoError(t, err).Required()

	_, err = client.Chat(ctx, []model.Message{{Role: types.RoleUser, Content: "hi"}}, "")
	gt.NoError(t, err).Required()
	gt.Array(t, captured.Messages).Length(1).Required()
	gt.Value(t, captured.Messages[0].Role).Equal("user")
}

func TestOllamaChatUpstreamError(t *testing.T) {
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	client, err := llm.NewOllama(srv.URL, "missing-model", time.Second)
	gt.NoError(t, err).Required()

	_, err = client.Chat(ctx, []model.Message{{Role: types.RoleUser, Content: "hi"}}, "")
	gt.Bool(t, errors.Is(err, types.ErrUpstreamFailure)).True()
}

func TestOllamaChatUnreachable(t *testing.T) {
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client, err := llm.NewOllama(srv.URL, "llama3.2", time.Second)
	gt.NoError(t, err).Required()

	_, err = client.Chat(ctx, []model.Message{{Role: types.RoleUser, Content: "hi"}}, "")
	gt.Bool(t, errors.Is(err, types.ErrUpstreamFailure)).True()
}

func TestOllamaHealthCheck(t *testing.T) {
	ctx := context.Background()

	t.Run("reachable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gt.Value(t, r.URL.Path).Equal("/api/tags")
			_ = json.NewEncoder(w).Encode(map[string]any{"models": []any{}})
		}))
		defer srv.Close()

		client, err := llm.NewOllama(srv.URL, "llama3.2", time.Second)
		gt.NoError(t, err).Required()

		health := client.HealthCheck(ctx)
		gt.Value(t, health.Status).Equal(model.LLMStatusOK)
		gt.Value(t, health.Provider).Equal("ollama")
		gt.Value(t, health.Model).Equal("llama3.2")
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close()

		client, err := llm.NewOllama(srv.URL, "llama3.2", time.Second)
		gt.NoError(t, err).Required()

		health := client.HealthCheck(ctx)
		gt.Value(t, health.Status).Equal(model.LLMStatusError)
		gt.String(t, health.Detail).NotEqual("")
	})
}

func TestNewOllamaRejectsEmptyURL(t *testing.T) {
	_, err := llm.NewOllama("", "llama3.2", time.Second)
	gt.Bool(t, errors.Is(err, types.ErrValidation)).True()
}

func TestNewAnthropicRejectsEmptyKey(t *testing.T) {
	_, err := llm.NewAnthropic("", "claude-sonnet-4-5", time.Second)
	gt.Bool(t, errors.Is(err, types.ErrValidation)).True()
}
