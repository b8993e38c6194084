package http

import (
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
)

// filePathParam returns the decoded wildcard path segment. chi leaves the
// raw escaping in place, so "%2F" in a segment still arrives encoded.
func filePathParam(r *http.Request) string {
	raw := chi.URLParam(r, "*")
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}

type fileEntryResponse struct {
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	Kind       string    `json:"kind"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	entries, err := s.uc.Files().ListFiles(r.Context(), q.Get("dir"), q.Get("pattern"))
	if err != nil {
		handleError(w, r, err)
		return
	}

	resp := make([]fileEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, fileEntryResponse{
			Name:       e.Name,
			Path:       e.Path,
			Kind:       string(e.Kind),
			Size:       e.Size,
			ModifiedAt: e.ModifiedAt,
		})
	}
	respondJSON(r.Context(), w, http.StatusOK, resp)
}

func (s *Server) handleReadFile(w http.ResponseWriter, r *http.Request) {
	path := filePathParam(r)
	content, err := s.uc.Files().ReadFile(r.Context(), path)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(r.Context(), w, http.StatusOK, map[string]string{
		"path":    path,
		"content": content,
	})
}

type writeFileRequest struct {
	Content string `json:"content"`
}

type writeFileResponse struct {
	Path       string    `json:"path"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
}

func (s *Server) handleWriteFile(w http.ResponseWriter, r *http.Request) {
	var req writeFileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := s.uc.Files().WriteFile(r.Context(), filePathParam(r), req.Content)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(r.Context(), w, http.StatusOK, writeFileResponse{
		Path:       result.Path,
		Size:       result.Size,
		ModifiedAt: result.ModifiedAt,
	})
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.uc.Files().DeleteFile(r.Context(), filePathParam(r))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(r.Context(), w, http.StatusOK, map[string]bool{"deleted": deleted})
}

type appendFileRequest struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

func (s *Server) handleAppendFile(w http.ResponseWriter, r *http.Request) {
	var req appendFileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := s.uc.Files().AppendFile(r.Context(), req.Path, req.Content)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(r.Context(), w, http.StatusOK, writeFileResponse{
		Path:       result.Path,
		Size:       result.Size,
		ModifiedAt: result.ModifiedAt,
	})
}

type searchFilesRequest struct {
	Query   string `json:"query"`
	Dir     string `json:"dir"`
	Pattern string `json:"pattern"`
}

type matchedLineResponse struct {
	Line int    `json:"line"`
	Text string `json:"text"`
}

type fileMatchResponse struct {
	Path       string                `json:"path"`
	Name       string                `json:"name"`
	Lines      []matchedLineResponse `json:"lines"`
	MatchCount int                   `json:"match_count"`
}

func (s *Server) handleSearchFiles(w http.ResponseWriter, r *http.Request) {
	var req searchFilesRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	matches, err := s.uc.Files().SearchFiles(r.Context(), req.Query, req.Dir, req.Pattern)
	if err != nil {
		handleError(w, r, err)
		return
	}

	resp := make([]fileMatchResponse, 0, len(matches))
	for _, m := range matches {
		lines := make([]matchedLineResponse, 0, len(m.Lines))
		for _, l := range m.Lines {
			lines = append(lines, matchedLineResponse{Line: l.Line, Text: l.Text})
		}
		resp = append(resp, fileMatchResponse{
			Path:       m.Path,
			Name:       m.Name,
			Lines:      lines,
			MatchCount: m.MatchCount,
		})
	}
	respondJSON(r.Context(), w, http.StatusOK, resp)
}

type createFolderRequest struct {
	Path string `json:"path"`
}

func (s *Server) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	var req createFolderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	path, err := s.uc.Files().CreateFolder(r.Context(), req.Path)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(r.Context(), w, http.StatusCreated, map[string]string{"path": path})
}
