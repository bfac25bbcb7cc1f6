package auth

import (
	"crypto/sha256"
	"net/http"

	"github.com/gorilla/sessions"
)

// SessionName is the name of the OAuth session cookie.
const SessionName = "agriwebb-oauth"

// Session value keys.
const (
	SessionKeyState        = "state"
	SessionKeyOrganization = "organization"
)

// SessionStore holds OAuth state across the redirect to AgriWebb and back.
type SessionStore struct {
	store *sessions.CookieStore
}

// NewSessionStore creates a cookie-backed store signed with a key derived
// from secret. The session lives for 10 minutes, long enough for one
// authorization round trip.
//
// SameSite is Lax: the callback arrives as a top-level navigation from the
// provider, and Strict cookies are not sent on it.
func NewSessionStore(secret string, settings CookieSettings) *SessionStore {
	key := sha256.Sum256([]byte(secret))

	store := sessions.NewCookieStore(key[:])
	store.Options = &sessions.Options{
		Path:     "/",
		Domain:   settings.Domain,
		MaxAge:   600,
		HttpOnly: true,
		Secure:   settings.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &SessionStore{store: store}
}

// Get returns the OAuth session, creating one if the request has none.
func (s *SessionStore) Get(r *http.Request) (*sessions.Session, error) {
	return s.store.Get(r, SessionName)
}

// Save writes the session cookie.
func (s *SessionStore) Save(r *http.Request, w http.ResponseWriter, session *sessions.Session) error {
	return session.Save(r, w)
}

// ClearSessionValues removes OAuth values once the flow completes.
func ClearSessionValues(session *sessions.Session) {
	delete(session.Values, SessionKeyState)
	delete(session.Values, SessionKeyOrganization)
}

// SessionString reads a string value, returning "" when absent.
func SessionString(session *sessions.Session, key string) string {
	v, _ := session.Values[key].(string)
	return v
}
