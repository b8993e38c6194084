package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/catalpa-lab/secondbrain/pkg/domain/types"
)

type conversationSummaryResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	LastMessage string    `json:"last_message"`
	TurnCount   int       `json:"turn_count"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type turnResponse struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type conversationResponse struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Turns     []turnResponse `json:"turns"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.uc.Conversation.List(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}

	resp := make([]conversationSummaryResponse, 0, len(summaries))
	for _, sum := range summaries {
		resp = append(resp, conversationSummaryResponse{
			ID:          sum.ID.String(),
			Title:       sum.Title,
			LastMessage: sum.LastMessage,
			TurnCount:   sum.TurnCount,
			UpdatedAt:   sum.UpdatedAt,
		})
	}
	respondJSON(r.Context(), w, http.StatusOK, resp)
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	conv, err := s.uc.Conversation.Get(r.Context(), types.ConversationID(chi.URLParam(r, "id")))
	if err != nil {
		handleError(w, r, err)
		return
	}

	resp := conversationResponse{
		ID:        conv.ID.String(),
		Title:     conv.Title,
		Turns:     []turnResponse{},
		CreatedAt: conv.CreatedAt,
		UpdatedAt: conv.UpdatedAt,
	}
	for _, turn := range conv.Turns {
		resp.Turns = append(resp.Turns, turnResponse{
			Role:      turn.Role.String(),
			Content:   turn.Content,
			CreatedAt: turn.CreatedAt,
		})
	}
	respondJSON(r.Context(), w, http.StatusOK, resp)
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.uc.Conversation.Delete(r.Context(), types.ConversationID(chi.URLParam(r, "id")))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(r.Context(), w, http.StatusOK, map[string]bool{"deleted": deleted})
}
