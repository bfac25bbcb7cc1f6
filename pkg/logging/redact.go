package logging

import (
	"regexp"
)

const (
	// MaxBodyLogLength caps provider response bodies written to logs.
	MaxBodyLogLength = 512
	// RedactedText is the replacement text for sensitive data
	RedactedText = "[REDACTED]"
)

var (
	// password=xxx, pwd=xxx, pass=xxx up to the next delimiter
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)

	// Authorization header values of any scheme that carries a credential
	authHeaderPattern = regexp.MustCompile(`(?i)(Bearer|Basic)\s+[A-Za-z0-9\-_.~+/=]+`)

	// OAuth form fields: access_token=, refresh_token=, client_secret=, code=
	oauthFormPattern = regexp.MustCompile(`(?i)\b(access_token|refresh_token|client_secret|code)=[^&\s"]+`)

	// OAuth JSON fields: "access_token": "..."
	oauthJSONPattern = regexp.MustCompile(`(?i)"(access_token|refresh_token|client_secret|id_token)"\s*:\s*"[^"]*"`)

	// user:pass@host in URLs and DSNs
	connStringPattern = regexp.MustCompile(`://[^:/\s]+:[^@\s]+@[^/\s]+`)
)

// SanitizeConnectionString removes credentials from a database URL before logging.
func SanitizeConnectionString(connStr string) string {
	if connStr == "" {
		return ""
	}
	sanitized := passwordPattern.ReplaceAllString(connStr, "${1}="+RedactedText)
	return connStringPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)
}

// Redact strips tokens, client secrets, authorization codes and passwords
// from free text such as provider error bodies.
func Redact(s string) string {
	if s == "" {
		return ""
	}
	s = authHeaderPattern.ReplaceAllString(s, "${1} "+RedactedText)
	s = oauthJSONPattern.ReplaceAllString(s, `"${1}":"`+RedactedText+`"`)
	s = oauthFormPattern.ReplaceAllString(s, "${1}="+RedactedText)
	s = passwordPattern.ReplaceAllString(s, "${1}="+RedactedText)
	return connStringPattern.ReplaceAllString(s, "://"+RedactedText+"@"+RedactedText)
}

// SanitizeError redacts an error message for logging.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return Redact(err.Error())
}

// RedactBody redacts and truncates a response body.
func RedactBody(body []byte) string {
	return TruncateString(Redact(string(body)), MaxBodyLogLength)
}

// TruncateString truncates a string to maxLen and adds ellipsis if needed
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
