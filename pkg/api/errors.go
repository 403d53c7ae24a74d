package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/codeready-toolchain/secretmask/pkg/database"
	"github.com/codeready-toolchain/secretmask/pkg/masking"
)

// errEmptyBody is returned for a mask request without a document.
var errEmptyBody = errors.New("request body is empty")

// mapError maps engine and store errors to an HTTP status and a client-safe message.
func mapError(err error) (int, string) {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return http.StatusRequestEntityTooLarge, "request body too large"
	}
	if errors.Is(err, errEmptyBody) {
		return http.StatusBadRequest, err.Error()
	}
	if masking.IsLoadError(err) {
		return http.StatusBadRequest, err.Error()
	}
	if errors.Is(err, database.ErrRunNotFound) {
		return http.StatusNotFound, "run not found"
	}

	// Unexpected error
	slog.Error("Unexpected request error", "error", err)
	return http.StatusInternalServerError, "internal server error"
}
