package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/catalpa-lab/secondbrain/pkg/domain/model"
	"github.com/catalpa-lab/secondbrain/pkg/domain/types"
)

type noteRequest struct {
	Title    string            `json:"title"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type noteResponse struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Content   string            `json:"content"`
	Metadata  map[string]string `json:"metadata"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func toNoteResponse(note *model.Note) noteResponse {
	meta := note.Metadata
	if meta == nil {
		meta = map[string]string{}
	}
	return noteResponse{
		ID:        note.ID.String(),
		Title:     note.Title,
		Content:   note.Content,
		Metadata:  meta,
		CreatedAt: note.CreatedAt,
		UpdatedAt: note.UpdatedAt,
	}
}

func (s *Server) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	note, err := s.uc.Note.Create(r.Context(), req.Title, req.Content, req.Metadata)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(r.Context(), w, http.StatusCreated, toNoteResponse(note))
}

func (s *Server) handleListNotes(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.uc.Note.List(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}

	type summaryResponse struct {
		ID        string    `json:"id"`
		Title     string    `json:"title"`
		Preview   string    `json:"preview"`
		UpdatedAt time.Time `json:"updated_at"`
	}
	resp := make([]summaryResponse, 0, len(summaries))
	for _, sum := range summaries {
		resp = append(resp, summaryResponse{
			ID:        sum.ID.String(),
			Title:     sum.Title,
			Preview:   sum.Preview,
			UpdatedAt: sum.UpdatedAt,
		})
	}
	respondJSON(r.Context(), w, http.StatusOK, resp)
}

func (s *Server) handleGetNote(w http.ResponseWriter, r *http.Request) {
	note, err := s.uc.Note.Get(r.Context(), types.NoteID(chi.URLParam(r, "id")))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(r.Context(), w, http.StatusOK, toNoteResponse(note))
}

func (s *Server) handleUpdateNote(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	note, err := s.uc.Note.Update(r.Context(), types.NoteID(chi.URLParam(r, "id")), req.Title, req.Content, req.Metadata)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(r.Context(), w, http.StatusOK, toNoteResponse(note))
}

func (s *Server) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.uc.Note.Delete(r.Context(), types.NoteID(chi.URLParam(r, "id")))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(r.Context(), w, http.StatusOK, map[string]bool{"deleted": deleted})
}

type memorySearchRequest struct {
	Query  string `json:"query"`
	Limit  int    `json:"limit,omitempty"`
	Filter string `json:"filter,omitempty"`
}

type memoryHitResponse struct {
	ID       string            `json:"id"`
	Text     string            `json:"text"`
	Score    float32           `json:"score"`
	Source   string            `json:"source"`
	Metadata map[string]string `json:"metadata"`
}

func (s *Server) handleSearchMemory(w http.ResponseWriter, r *http.Request) {
	var req memorySearchRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	hits, err := s.uc.Note.SearchMemory(r.Context(), req.Query, req.Limit, req.Filter)
	if err != nil {
		handleError(w, r, err)
		return
	}

	resp := make([]memoryHitResponse, 0, len(hits))
	for _, hit := range hits {
		meta := hit.Metadata
		if meta == nil {
			meta = map[string]string{}
		}
		resp = append(resp, memoryHitResponse{
			ID:       hit.ID,
			Text:     hit.Text,
			Score:    hit.Score,
			Source:   hit.Source,
			Metadata: meta,
		})
	}
	respondJSON(r.Context(), w, http.StatusOK, resp)
}

type memoryAddRequest struct {
	Text       string            `json:"text"`
	SourceType string            `json:"source_type,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

func (s *Server) handleAddMemory(w http.ResponseWriter, r *http.Request) {
	var req memoryAddRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	chunk, err := s.uc.Note.AddToMemory(r.Context(), req.Text, types.SourceType(req.SourceType), req.Metadata)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(r.Context(), w, http.StatusCreated, map[string]string{
		"id":          chunk.ID.String(),
		"source_type": chunk.SourceType.String(),
	})
}
