package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tbgers/tbgclient/pkg/api"
	"github.com/tbgers/tbgclient/pkg/forum"
	"github.com/tbgers/tbgclient/pkg/parser"
	"github.com/tbgers/tbgclient/pkg/session"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error details.
type ErrorDetail struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Error codes
const (
	ErrCodeInvalidRequest = "INVALID_REQUEST"
	ErrCodeNoSession      = "NO_SESSION"
	ErrCodeNotImplemented = "NOT_IMPLEMENTED"
	ErrCodeForumError     = "FORUM_ERROR"
	ErrCodeLoginFailed    = "LOGIN_FAILED"
	ErrCodeInternalError  = "INTERNAL_ERROR"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeErrorWithDetails(w, status, code, message, nil)
}

func writeErrorWithDetails(w http.ResponseWriter, status int, code, message string, details map[string]any) {
	writeJSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

func writeSuccess(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// writeForumError maps client errors onto HTTP statuses. Errors the forum
// reported become 502 with the forum's status and page error attached.
func writeForumError(w http.ResponseWriter, err error) {
	var (
		incomplete *forum.IncompleteError
		reqErr     *api.RequestError
		pageErr    *parser.PageError
	)
	switch {
	case errors.Is(err, session.ErrNoSessionDefined), errors.Is(err, ErrUnknownUser):
		writeError(w, http.StatusUnauthorized, ErrCodeNoSession, err.Error())
	case errors.Is(err, api.ErrLoginFailed):
		writeError(w, http.StatusUnauthorized, ErrCodeLoginFailed, err.Error())
	case errors.As(err, &incomplete):
		writeErrorWithDetails(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error(),
			map[string]any{"fields": incomplete.Fields})
	case errors.Is(err, forum.ErrMethodNotImplemented):
		writeError(w, http.StatusNotImplemented, ErrCodeNotImplemented, err.Error())
	case errors.As(err, &reqErr):
		details := map[string]any{"status": reqErr.StatusCode, "url": reqErr.URL}
		if errors.As(err, &pageErr) && pageErr.ID != "" {
			details["id"] = pageErr.ID
		}
		writeErrorWithDetails(w, http.StatusBadGateway, ErrCodeForumError, err.Error(), details)
	default:
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
	}
}
