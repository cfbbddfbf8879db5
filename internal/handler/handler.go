package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"bigfish/internal/service"
)

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Path    string `json:"path,omitempty"`
}

func writeJSON(w http.ResponseWriter, logger *zap.Logger, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Warn("failed to encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, logger *zap.Logger, msg, details string, statusCode int) {
	writeJSON(w, logger, ErrorResponse{Error: msg, Details: details}, statusCode)
}

// statusFor maps a service error to an HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// failed writes err with the status it maps to, logging server-side failures
func failed(w http.ResponseWriter, logger *zap.Logger, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error(msg, zap.Error(err))
	}
	writeError(w, logger, msg, err.Error(), status)
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", service.ErrValidation, err)
	}
	return nil
}
