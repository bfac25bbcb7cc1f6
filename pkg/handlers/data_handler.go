package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ranchforce/agriwebb-sync/pkg/apperrors"
	"github.com/ranchforce/agriwebb-sync/pkg/auth"
	"github.com/ranchforce/agriwebb-sync/pkg/services"
)

// DataHandler serves synced animals and farms.
type DataHandler struct {
	lookup services.LookupService
	logger *zap.Logger
}

// NewDataHandler creates a new data handler.
func NewDataHandler(lookup services.LookupService, logger *zap.Logger) *DataHandler {
	return &DataHandler{lookup: lookup, logger: logger}
}

// RegisterRoutes registers the data handler's routes on the given mux.
func (h *DataHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("GET /api/animals/{animalId}", authMiddleware.RequireAuth(h.GetAnimal))
	mux.HandleFunc("GET /api/farms/{farmId}", authMiddleware.RequireAuth(h.GetFarm))
}

// GetAnimal handles GET /api/animals/{animalId}
func (h *DataHandler) GetAnimal(w http.ResponseWriter, r *http.Request) {
	animalID, ok := requirePathValue(w, r, "animalId", "invalid_animal_id", h.logger)
	if !ok {
		return
	}

	detail, err := h.lookup.GetAnimal(r.Context(), animalID)
	if err != nil {
		h.writeLookupError(w, err, "animal", animalID)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: detail}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// GetFarm handles GET /api/farms/{farmId}
func (h *DataHandler) GetFarm(w http.ResponseWriter, r *http.Request) {
	farmID, ok := requirePathValue(w, r, "farmId", "invalid_farm_id", h.logger)
	if !ok {
		return
	}

	farm, err := h.lookup.GetFarm(r.Context(), farmID)
	if err != nil {
		h.writeLookupError(w, err, "farm", farmID)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: farm}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (h *DataHandler) writeLookupError(w http.ResponseWriter, err error, kind, id string) {
	if errors.Is(err, apperrors.ErrNotFound) {
		writeError(w, h.logger, http.StatusNotFound, kind+"_not_found", "No "+kind+" with id "+id)
		return
	}
	h.logger.Error("Lookup failed", zap.String("kind", kind), zap.String("id", id), zap.Error(err))
	writeError(w, h.logger, http.StatusInternalServerError, "lookup_failed", "Failed to load "+kind)
}
