package common

import (
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"
)

// WriteJSON writes v with the given status code.
func WriteJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Debug("failed to encode response")
	}
}

// StatusFor maps an error kind to the default HTTP status.
func StatusFor(err error) int {
	switch KindOf(err) {
	case KindValidation, KindConflict:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// WriteError answers {"error": msg}. Upstream errors are logged with their
// full text and reach the client as a generic message.
func WriteError(w http.ResponseWriter, code int, err error) {
	msg := err.Error()
	if KindOf(err) == KindUpstream {
		log.WithError(err).Error("request failed")
		msg = "internal error"
	}
	WriteJSON(w, code, map[string]string{"error": msg})
}

// Fail is WriteError with the default status for the error kind.
func Fail(w http.ResponseWriter, err error) {
	WriteError(w, StatusFor(err), err)
}
