package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/digitallysavvy/ollama-gateway/internal/anthropic"
)

func writeError(w http.ResponseWriter, status int, kind anthropic.ErrorKind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(anthropic.NewErrorEnvelope(kind, message))
}

func writeValidationError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, anthropic.ErrorAPI, message)
}

func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, anthropic.ErrorAPI, message)
}
