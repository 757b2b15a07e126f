package transport

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/evp-nightshift/messenger/internal/observability"
)

func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		observability.Log.Error("failed to encode response", zap.Error(err))
	}
}

// ErrorBody is the JSON shape of every failed request.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, ErrorBody{Error: message, Code: code})
}
