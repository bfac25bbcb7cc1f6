package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ranchforce/agriwebb-sync/pkg/agriwebb"
	"github.com/ranchforce/agriwebb-sync/pkg/apperrors"
	"github.com/ranchforce/agriwebb-sync/pkg/auth"
	"github.com/ranchforce/agriwebb-sync/pkg/models"
	"github.com/ranchforce/agriwebb-sync/pkg/services"
)

// TokenListResponse for GET /api/tokens
type TokenListResponse struct {
	Tokens []*models.AgriWebbToken `json:"tokens"`
	Total  int                     `json:"total"`
}

// UpdateTokenRequest for PATCH /api/tokens/{id}
type UpdateTokenRequest struct {
	Organization string `json:"organization"`
}

// TokenHandler exposes the caller's stored AgriWebb tokens. Secrets never
// leave the server; responses carry metadata only.
type TokenHandler struct {
	tokenService services.TokenService
	logger       *zap.Logger
}

// NewTokenHandler creates a new token handler.
func NewTokenHandler(tokenService services.TokenService, logger *zap.Logger) *TokenHandler {
	return &TokenHandler{
		tokenService: tokenService,
		logger:       logger,
	}
}

// RegisterRoutes registers the token handler's routes on the given mux.
func (h *TokenHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("GET /api/tokens", authMiddleware.RequireAuth(h.List))
	mux.HandleFunc("GET /api/tokens/{id}", authMiddleware.RequireAuth(h.Get))
	mux.HandleFunc("PATCH /api/tokens/{id}", authMiddleware.RequireAuth(h.Update))
	mux.HandleFunc("POST /api/tokens/{id}/refresh", authMiddleware.RequireAuth(h.Refresh))
}

// List handles GET /api/tokens
func (h *TokenHandler) List(w http.ResponseWriter, r *http.Request) {
	all, err := h.tokenService.List(r.Context())
	if err != nil {
		h.logger.Error("Failed to list tokens", zap.Error(err))
		writeError(w, h.logger, http.StatusInternalServerError, "list_tokens_failed", "Failed to list tokens")
		return
	}

	userID := auth.GetUserIDFromContext(r.Context())
	tokens := make([]*models.AgriWebbToken, 0, len(all))
	for _, tok := range all {
		if tokenVisibleTo(tok, userID) {
			tokens = append(tokens, tok)
		}
	}

	if err := WriteJSON(w, http.StatusOK, TokenListResponse{Tokens: tokens, Total: len(tokens)}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/tokens/{id}
func (h *TokenHandler) Get(w http.ResponseWriter, r *http.Request) {
	tok, ok := h.load(w, r)
	if !ok {
		return
	}
	if err := WriteJSON(w, http.StatusOK, tok); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Update handles PATCH /api/tokens/{id}
func (h *TokenHandler) Update(w http.ResponseWriter, r *http.Request) {
	tok, ok := h.load(w, r)
	if !ok {
		return
	}

	var req UpdateTokenRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	updated, err := h.tokenService.SetOrganization(r.Context(), tok.ID, req.Organization)
	if err != nil {
		h.writeServiceError(w, err, "update_token_failed")
		return
	}
	if err := WriteJSON(w, http.StatusOK, updated); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Refresh handles POST /api/tokens/{id}/refresh
func (h *TokenHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	tok, ok := h.load(w, r)
	if !ok {
		return
	}

	refreshed, err := h.tokenService.Refresh(r.Context(), tok.ID)
	if err != nil {
		h.writeServiceError(w, err, "refresh_failed")
		return
	}
	if err := WriteJSON(w, http.StatusOK, refreshed); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// load fetches the path token and hides tokens the caller does not own.
func (h *TokenHandler) load(w http.ResponseWriter, r *http.Request) (*models.AgriWebbToken, bool) {
	id, ok := ParseTokenID(w, r, h.logger)
	if !ok {
		return nil, false
	}

	tok, err := h.tokenService.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "get_token_failed")
		return nil, false
	}
	if !tokenVisibleTo(tok, auth.GetUserIDFromContext(r.Context())) {
		writeError(w, h.logger, http.StatusNotFound, "token_not_found", "AgriWebb token not found")
		return nil, false
	}
	return tok, true
}

func (h *TokenHandler) writeServiceError(w http.ResponseWriter, err error, code string) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		writeError(w, h.logger, http.StatusNotFound, "token_not_found", "AgriWebb token not found")
	case errors.Is(err, apperrors.ErrNoRefreshToken):
		writeError(w, h.logger, http.StatusConflict, "no_refresh_token", "Token cannot be refreshed; authorize again")
	case errors.Is(err, agriwebb.ErrAuthentication):
		h.logger.Warn("AgriWebb rejected token refresh", zap.Error(err))
		writeError(w, h.logger, http.StatusBadGateway, "refresh_rejected", "AgriWebb rejected the refresh token")
	default:
		h.logger.Error("Token operation failed", zap.String("code", code), zap.Error(err))
		writeError(w, h.logger, http.StatusInternalServerError, code, "Token operation failed")
	}
}
