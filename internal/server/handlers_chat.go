package server

import (
	"encoding/json"
	"net/http"
	"strings"
)

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Text string `json:"text"`
}

func (s *Server) sendChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "text required")
		return
	}
	if err := s.chat.Send(r.Context(), req.Text); err != nil {
		writeForumError(w, err)
		return
	}
	writeSuccess(w)
}

// getChatUsers lists who was online at the last poll. It is empty unless
// chat polling was started.
func (s *Server) getChatUsers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.chat.Users())
}
