package httpapi

import (
	"encoding/json"
	"net/http"

	apperrors "welfare-workers/internal/common/errors"

	"github.com/go-chi/chi/v5/middleware"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Code: code, Message: message})
}

// fail maps a domain error onto its HTTP status. Server errors hide their
// details from the client.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)
	std := apperrors.Normalize(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", map[string]interface{}{
			"requestId": middleware.GetReqID(r.Context()),
			"path":      r.URL.Path,
			"error":     err,
		})
		writeError(w, status, string(std.Code), "Server Error")
		return
	}
	writeError(w, status, string(std.Code), std.Message)
}
