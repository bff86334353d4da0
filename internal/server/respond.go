package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

type errorBody struct {
	Success   bool     `json:"success"`
	Error     string   `json:"error"`
	Fallbacks []string `json:"fallbacks,omitempty"`
	Status    string   `json:"status,omitempty"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.WarnContext(r.Context(), "writing response body", "path", r.URL.Path, "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, errorBody{Error: msg})
}
