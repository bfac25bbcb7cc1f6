package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ParseTokenID extracts and validates the token ID from the request path.
// Returns the parsed UUID and true on success, or uuid.Nil and false on error
// (after writing an error response).
// Expects path parameter: id
func ParseTokenID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	return parseUUID(w, r, "id", "invalid_token_id", "Invalid token ID format", logger)
}

// parseUUID is the internal helper that does the actual parsing work.
func parseUUID(w http.ResponseWriter, r *http.Request, pathParam, errorCode, errorMessage string, logger *zap.Logger) (uuid.UUID, bool) {
	idStr := r.PathValue(pathParam)
	id, err := uuid.Parse(idStr)
	if err != nil {
		writeError(w, logger, http.StatusBadRequest, errorCode, errorMessage)
		return uuid.Nil, false
	}
	return id, true
}

// requirePathValue returns a non-empty path parameter or writes a 400.
func requirePathValue(w http.ResponseWriter, r *http.Request, pathParam, errorCode string, logger *zap.Logger) (string, bool) {
	v := r.PathValue(pathParam)
	if v == "" {
		writeError(w, logger, http.StatusBadRequest, errorCode, "Missing "+pathParam)
		return "", false
	}
	return v, true
}
