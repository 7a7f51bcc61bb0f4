package ports

import (
	"context"
	"time"

	"github.com/layer-3/walletauth/core"
)

// Attempt is the platform-side state of one login attempt.
type Attempt struct {
	ID         string
	Address    string
	Transcript core.Transcript
	// Challenge is the private half of the pending round's challenge.
	Challenge core.PrivateParameters
}

// Store holds login attempts and revoked tokens
type Store interface {
	// SaveAttempt stores or replaces an attempt together with its pending
	// challenge.
	SaveAttempt(ctx context.Context, attempt Attempt, ttl time.Duration) error
	// TakeAttempt returns and removes an attempt in one step. Only one caller
	// can hold a given transcript and challenge at a time.
	TakeAttempt(ctx context.Context, attemptID string) (Attempt, error)

	InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error
	IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error)
}
