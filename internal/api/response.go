package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
)

// envelope is the body shape of every JSON response. ExecutionTime is
// set on query responses only and reports milliseconds spent on the
// backend, outside the data payload.
type envelope struct {
	Success       bool        `json:"success"`
	Data          interface{} `json:"data,omitempty"`
	Error         string      `json:"error,omitempty"`
	ExecutionTime *int64      `json:"executionTime,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func respondSuccess(w http.ResponseWriter, status int, data interface{}) {
	respondJSON(w, status, envelope{Success: true, Data: data})
}

func respondQueryResult(w http.ResponseWriter, status int, data interface{}, executionTime int64) {
	respondJSON(w, status, envelope{Success: true, Data: data, ExecutionTime: &executionTime})
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, envelope{Success: false, Error: message})
}

func decodeBody(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.New("invalid request body")
	}
	return nil
}
