package core

import "errors"

var (
	ErrMissingIdentityClaim = errors.New("missing identity claim")
	ErrNonceUnavailable     = errors.New("nonce source unavailable")
	ErrUnknownAttempt       = errors.New("unknown or consumed login attempt")
	ErrTokenExpired         = errors.New("token has expired")
	ErrTokenInvalidated     = errors.New("token has been invalidated")
	ErrInvalidToken         = errors.New("invalid token")
)
