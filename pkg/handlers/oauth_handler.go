package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ranchforce/agriwebb-sync/pkg/agriwebb"
	"github.com/ranchforce/agriwebb-sync/pkg/apperrors"
	"github.com/ranchforce/agriwebb-sync/pkg/auth"
	"github.com/ranchforce/agriwebb-sync/pkg/services"
)

// CallbackResponse is returned once a token has been stored.
type CallbackResponse struct {
	Success      bool      `json:"success"`
	TokenID      uuid.UUID `json:"token_id"`
	Organization string    `json:"organization,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// OAuthHandler runs the browser side of the AgriWebb authorization flow.
type OAuthHandler struct {
	oauthService services.OAuthService
	sessions     *auth.SessionStore
	logger       *zap.Logger
}

// NewOAuthHandler creates a new OAuth handler.
func NewOAuthHandler(oauthService services.OAuthService, sessions *auth.SessionStore, logger *zap.Logger) *OAuthHandler {
	return &OAuthHandler{
		oauthService: oauthService,
		sessions:     sessions,
		logger:       logger,
	}
}

// RegisterRoutes registers the OAuth routes. Both accept an optional caller
// JWT so the stored token can be bound to that user.
func (h *OAuthHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("GET /oauth2/authorize/", authMiddleware.OptionalAuth(h.Authorize))
	mux.HandleFunc("GET /oauth2/callback/", authMiddleware.OptionalAuth(h.Callback))
}

// Authorize handles GET /oauth2/authorize/
// Redirects to the AgriWebb consent page with a fresh state remembered in the session.
func (h *OAuthHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	organization := r.URL.Query().Get("organization")
	if organization == "" {
		organization = auth.GetOrganizationFromContext(r.Context())
	}

	authz, err := h.oauthService.Authorize(organization)
	if err != nil {
		h.logger.Error("Failed to start authorization", zap.Error(err))
		writeError(w, h.logger, http.StatusInternalServerError, "authorize_failed", "Failed to start authorization")
		return
	}

	session, err := h.sessions.Get(r)
	if err != nil {
		// A cookie signed with an old secret decodes as an error; start over.
		h.logger.Debug("Discarding unreadable OAuth session", zap.Error(err))
	}
	session.Values[auth.SessionKeyState] = authz.State
	session.Values[auth.SessionKeyOrganization] = organization
	if err := h.sessions.Save(r, w, session); err != nil {
		h.logger.Error("Failed to save OAuth session", zap.Error(err))
		writeError(w, h.logger, http.StatusInternalServerError, "session_error", "Failed to save session")
		return
	}

	h.logger.Info("Redirecting to AgriWebb authorization",
		zap.String("organization", organization),
		zap.String("user_id", auth.GetUserIDFromContext(r.Context())))

	http.Redirect(w, r, authz.URL, http.StatusFound)
}

// Callback handles GET /oauth2/callback/
func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Get(r)
	if err != nil {
		h.logger.Warn("Unreadable OAuth session on callback", zap.Error(err))
	}

	q := r.URL.Query()
	req := &services.CallbackRequest{
		Code:             q.Get("code"),
		State:            q.Get("state"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
		ExpectedState:    auth.SessionString(session, auth.SessionKeyState),
		UserID:           auth.GetUserIDFromContext(r.Context()),
		Organization:     auth.SessionString(session, auth.SessionKeyOrganization),
	}

	tok, err := h.oauthService.Complete(r.Context(), req)

	// The state is single use whatever the outcome.
	auth.ClearSessionValues(session)
	if saveErr := h.sessions.Save(r, w, session); saveErr != nil {
		h.logger.Error("Failed to save OAuth session", zap.Error(saveErr))
	}

	if err != nil {
		h.writeCallbackError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, CallbackResponse{
		Success:      true,
		TokenID:      tok.ID,
		Organization: tok.Organization,
		ExpiresAt:    tok.ExpiresAt,
	}); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *OAuthHandler) writeCallbackError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperrors.ErrStateMismatch):
		h.logger.Warn("OAuth state mismatch")
		writeError(w, h.logger, http.StatusBadRequest, "state_mismatch", "OAuth state does not match")
	case errors.Is(err, services.ErrAuthorizationDenied):
		h.logger.Info("Authorization denied by provider", zap.Error(err))
		writeError(w, h.logger, http.StatusForbidden, "authorization_denied", err.Error())
	case errors.Is(err, services.ErrMissingCode):
		writeError(w, h.logger, http.StatusBadRequest, "missing_code", "Missing authorization code")
	case errors.Is(err, agriwebb.ErrAuthentication):
		h.logger.Error("Token exchange failed", zap.Error(err))
		writeError(w, h.logger, http.StatusBadGateway, "token_exchange_failed", "AgriWebb rejected the authorization code")
	default:
		h.logger.Error("OAuth callback failed", zap.Error(err))
		writeError(w, h.logger, http.StatusInternalServerError, "callback_failed", "Failed to complete authorization")
	}
}
