package agriwebb

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrAuthentication marks failures to obtain or use provider credentials.
var ErrAuthentication = errors.New("agriwebb authentication failed")

// HTTPError is returned when the API answers with a non-2xx status.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("agriwebb returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("agriwebb returned status %d: %s", e.StatusCode, e.Body)
}

// Unwrap lets errors.Is(err, ErrAuthentication) match 401 and 403 responses.
func (e *HTTPError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden {
		return ErrAuthentication
	}
	return nil
}

// GraphQLErrorEntry is one element of the response "errors" array.
type GraphQLErrorEntry struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// GraphQLError is returned when the response carries a non-empty "errors" array.
type GraphQLError struct {
	Errors []GraphQLErrorEntry
}

func (e *GraphQLError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, entry := range e.Errors {
		msgs = append(msgs, entry.Message)
	}
	return "agriwebb graphql error: " + strings.Join(msgs, "; ")
}
