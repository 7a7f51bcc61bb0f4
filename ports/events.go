package ports

import (
	"context"

	"github.com/layer-3/walletauth/core"
)

// AuthEvent describes a state change of a login attempt or session.
type AuthEvent struct {
	Type      string        `json:"type"`
	AttemptID string        `json:"attempt_id,omitempty"`
	Address   string        `json:"address"`
	Decision  core.Decision `json:"decision,omitempty"`
	Attempts  int           `json:"attempts,omitempty"`
	TokenID   string        `json:"token_id,omitempty"`
}

const (
	EventChallengeIssued = "challenge.issued"
	EventAttemptFailed   = "attempt.failed"
	EventAttemptAccepted = "attempt.accepted"
	EventAttemptRejected = "attempt.rejected"
	// EventAttemptAbandoned is published when an attempt was closed by a
	// server-side failure before it reached a decision the client can act on.
	EventAttemptAbandoned = "attempt.abandoned"
	EventLogout           = "session.logout"
)

// EventPublisher publishes events to notify other instances
type EventPublisher interface {
	Publish(ctx context.Context, event AuthEvent) error
}
