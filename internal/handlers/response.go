package handlers

import (
	"encoding/json"
	"net/http"
	"time"
)

type Payload struct {
	Key     string
	Payload any
}

func toPayload(key string, pl any) Payload {
	return Payload{Key: key, Payload: pl}
}

// responseWithJSON writes an object assembled from key/value payloads.
func responseWithJSON(w http.ResponseWriter, code int, payload ...Payload) {
	storage := make(map[string]any, len(payload))
	for _, pl := range payload {
		storage[pl.Key] = pl.Payload
	}
	writeJSON(w, code, storage)
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

// responseWithError writes the error envelope shared by every failure response.
func responseWithError(w http.ResponseWriter, r *http.Request, code int, errCode, message string, details map[string]any) {
	if details == nil {
		details = map[string]any{}
	}
	responseWithJSON(w, code,
		toPayload("error", errCode),
		toPayload("message", message),
		toPayload("details", details),
		toPayload("status", code),
		toPayload("path", r.URL.Path),
		toPayload("timestamp", time.Now().UTC().Format(time.RFC3339)),
	)
}
