package agriwebb

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestAuthorizationURL(t *testing.T) {
	c := newTestClient(t, "https://auth.agriwebb.test")

	raw := c.AuthorizationURL("state-123", "")
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/oauth2/authorize", u.Path)
	q := u.Query()
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "state-123", q.Get("state"))
	assert.Equal(t, "http://localhost:8080/oauth2/callback/", q.Get("redirect_uri"))
	assert.False(t, q.Has("organization"))

	u, err = url.Parse(c.AuthorizationURL("s", "org-9"))
	require.NoError(t, err)
	assert.Equal(t, "org-9", u.Query().Get("organization"))
}

func tokenServer(t *testing.T, handler func(w http.ResponseWriter, form url.Values)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/oauth2/token", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok, "client credentials go in the Basic header")
		assert.Equal(t, "client-id", user)
		assert.Equal(t, "client-secret", pass)
		require.NoError(t, r.ParseForm())
		handler(w, r.PostForm)
	}))
}

func TestExchange(t *testing.T) {
	srv := tokenServer(t, func(w http.ResponseWriter, form url.Values) {
		assert.Equal(t, "authorization_code", form.Get("grant_type"))
		assert.Equal(t, "the-code", form.Get("code"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at","refresh_token":"rt","token_type":"Bearer","expires_in":3600}`))
	})
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	grant, err := c.Exchange(context.Background(), "the-code")
	require.NoError(t, err)

	assert.Equal(t, "at", grant.AccessToken)
	assert.Equal(t, "rt", grant.RefreshToken)
	assert.Equal(t, "Bearer", grant.TokenType)
	assert.InDelta(t, 3600, grant.ExpiresIn, 2)
}

func TestExchange_ProviderRejects(t *testing.T) {
	srv := tokenServer(t, func(w http.ResponseWriter, form url.Values) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	})
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.Exchange(context.Background(), "bad")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAuthentication))

	var retrieveErr *oauth2.RetrieveError
	assert.True(t, errors.As(err, &retrieveErr), "transport error stays wrapped")
}

func TestRefresh(t *testing.T) {
	srv := tokenServer(t, func(w http.ResponseWriter, form url.Values) {
		assert.Equal(t, "refresh_token", form.Get("grant_type"))
		assert.Equal(t, "old-rt", form.Get("refresh_token"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"new-at","token_type":"Bearer","expires_in":1800}`))
	})
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	grant, err := c.Refresh(context.Background(), "old-rt")
	require.NoError(t, err)
	assert.Equal(t, "new-at", grant.AccessToken)
	assert.InDelta(t, 1800, grant.ExpiresIn, 2)
}

func TestRefresh_MissingToken(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:1")
	_, err := c.Refresh(context.Background(), "")
	assert.ErrorIs(t, err, ErrAuthentication)
}

func TestGrantFromToken(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	g := grantFromToken(&oauth2.Token{AccessToken: "a", Expiry: now.Add(90 * time.Second)}, now)
	assert.Equal(t, 90, g.ExpiresIn)

	g = grantFromToken(&oauth2.Token{AccessToken: "a"}, now)
	assert.Equal(t, 0, g.ExpiresIn)

	g = grantFromToken(&oauth2.Token{AccessToken: "a", Expiry: now.Add(-time.Minute)}, now)
	assert.Equal(t, 0, g.ExpiresIn)
}
