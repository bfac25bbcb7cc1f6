package apperrors

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrTokenExpired     = errors.New("agriwebb token expired")
	ErrNoRefreshToken   = errors.New("agriwebb token has no refresh token")
	ErrStateMismatch    = errors.New("oauth state mismatch")
	ErrTokenKeyMismatch = errors.New("agriwebb tokens were encrypted with a different key")
)
