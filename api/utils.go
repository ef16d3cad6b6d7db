package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"morakib/storage"

	"go.uber.org/zap"
)

// maxRequestBodySize bounds JSON request bodies (1MB)
const maxRequestBodySize = 1 << 20

// errorResponse is the uniform error body
type errorResponse struct {
	Error string `json:"error"`
}

// writeError writes a JSON error response and logs the underlying cause
func writeError(w http.ResponseWriter, statusCode int, message string, err error, logger *zap.SugaredLogger) {
	if logger != nil {
		if err != nil {
			logger.Errorw(message, "error", err.Error(), "status_code", statusCode)
		} else {
			logger.Errorw(message, "status_code", statusCode)
		}
	}
	respondJSON(w, statusCode, errorResponse{Error: message}, logger)
}

// respondJSON writes a JSON response with the given status code
func respondJSON(w http.ResponseWriter, statusCode int, payload interface{}, logger *zap.SugaredLogger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil && logger != nil {
		logger.Errorf("Failed to encode response: %v", err)
	}
}

// decodeJSONBody decodes a bounded JSON request body into dest
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dest interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dest); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return fmt.Errorf("request body exceeds %d bytes", maxBytesErr.Limit)
		}
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// statusForStorageError maps storage sentinels to HTTP status codes
func statusForStorageError(err error) int {
	switch {
	case errors.Is(err, storage.ErrAlertNotFound),
		errors.Is(err, storage.ErrUserNotFound),
		errors.Is(err, storage.ErrSOPNotFound),
		errors.Is(err, storage.ErrInvestigationNotFound),
		errors.Is(err, storage.ErrProgressNotFound),
		errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrDuplicateSlug),
		errors.Is(err, storage.ErrDuplicateEmail):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
