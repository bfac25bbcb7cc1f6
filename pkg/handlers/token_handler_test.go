package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTokenMux(svc *mockTokenService, subject string) *http.ServeMux {
	mux := http.NewServeMux()
	NewTokenHandler(svc, zap.NewNop()).RegisterRoutes(mux, testMiddleware(subject))
	return mux
}

func TestTokenHandler_List(t *testing.T) {
	mine := ownedToken("user-1")
	theirs := ownedToken("user-2")
	mux := newTokenMux(newMockTokenService(mine, theirs), "user-1")

	rec := serve(mux, httptest.NewRequest(http.MethodGet, "/api/tokens", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "access", "credentials are never serialized")

	var resp struct {
		Tokens []map[string]any `json:"tokens"`
		Total  int              `json:"total"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, mine.ID.String(), resp.Tokens[0]["id"])
}

func TestTokenHandler_ListFailure(t *testing.T) {
	svc := newMockTokenService()
	svc.err = errors.New("db down")

	rec := serve(newTokenMux(svc, "user-1"), httptest.NewRequest(http.MethodGet, "/api/tokens", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestTokenHandler_Get(t *testing.T) {
	mine := ownedToken("user-1")
	theirs := ownedToken("user-2")
	mux := newTokenMux(newMockTokenService(mine, theirs), "user-1")

	rec := serve(mux, httptest.NewRequest(http.MethodGet, "/api/tokens/"+mine.ID.String(), nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(mux, httptest.NewRequest(http.MethodGet, "/api/tokens/"+theirs.ID.String(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(mux, httptest.NewRequest(http.MethodGet, "/api/tokens/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTokenHandler_Update(t *testing.T) {
	mine := ownedToken("user-1")
	mux := newTokenMux(newMockTokenService(mine), "user-1")

	req := httptest.NewRequest(http.MethodPatch, "/api/tokens/"+mine.ID.String(), strings.NewReader(`{"organization":"org-2"}`))
	rec := serve(mux, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "org-2", mine.Organization)
}

func TestTokenHandler_Refresh(t *testing.T) {
	mine := ownedToken("user-1")
	noRefresh := ownedToken("user-1")
	noRefresh.RefreshToken = ""
	mux := newTokenMux(newMockTokenService(mine, noRefresh), "user-1")

	rec := serve(mux, httptest.NewRequest(http.MethodPost, "/api/tokens/"+mine.ID.String()+"/refresh", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "new-access", mine.AccessToken)
	assert.Equal(t, "refresh", mine.RefreshToken)

	rec = serve(mux, httptest.NewRequest(http.MethodPost, "/api/tokens/"+noRefresh.ID.String()+"/refresh", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
}
