package http

import (
	"net/http"
	"time"

	"github.com/catalpa-lab/secondbrain/pkg/domain/model"
	"github.com/catalpa-lab/secondbrain/pkg/domain/types"
)

type chatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
	// Pointer so an absent field defaults to true.
	UseMemory *bool `json:"use_memory,omitempty"`
}

type memoryRefResponse struct {
	ID      string `json:"id"`
	Source  string `json:"source"`
	Preview string `json:"preview"`
}

type chatResponse struct {
	Reply          string              `json:"reply"`
	ConversationID string              `json:"conversation_id"`
	Timestamp      time.Time           `json:"timestamp"`
	MemoryUsed     []memoryRefResponse `json:"memory_used"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	useMemory := req.UseMemory == nil || *req.UseMemory

	result, err := s.uc.Chat.Chat(r.Context(), types.ConversationID(req.ConversationID), req.Message, useMemory)
	if err != nil {
		handleError(w, r, err)
		return
	}

	resp := chatResponse{
		Reply:          result.Reply,
		ConversationID: result.ConversationID.String(),
		Timestamp:      result.Timestamp,
		MemoryUsed:     []memoryRefResponse{},
	}
	for _, ref := range result.MemoryUsed {
		resp.MemoryUsed = append(resp.MemoryUsed, memoryRefResponse{
			ID:      ref.ID,
			Source:  ref.Source,
			Preview: ref.Preview,
		})
	}
	respondJSON(r.Context(), w, http.StatusOK, resp)
}

type healthResponse struct {
	Status string `json:"status"`
	LLM    struct {
		Status   string `json:"status"`
		Provider string `json:"provider"`
		Model    string `json:"model"`
		Detail   string `json:"detail,omitempty"`
	} `json:"llm"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := s.uc.LLM().HealthCheck(r.Context())

	var resp healthResponse
	resp.Status = "ok"
	resp.LLM.Status = health.Status
	resp.LLM.Provider = health.Provider
	resp.LLM.Model = health.Model
	resp.LLM.Detail = health.Detail
	if health.Status != model.LLMStatusOK {
		resp.Status = "degraded"
	}
	respondJSON(r.Context(), w, http.StatusOK, resp)
}
