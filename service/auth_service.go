package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/ports"
)

// Config holds the lifetimes used by AuthService
type Config struct {
	ChallengeTTL time.Duration // how long a challenge can be answered
	AttemptTTL   time.Duration // how long a login attempt is kept
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
}

// DefaultConfig returns the lifetimes used when nothing is configured
func DefaultConfig() Config {
	return Config{
		ChallengeTTL: DefaultChallengeExpiry,
		AttemptTTL:   core.MaxAttempts * DefaultChallengeExpiry,
		AccessTTL:    5 * time.Minute,
		RefreshTTL:   5 * 24 * time.Hour, // 5 days
	}
}

// AttemptChallenge is what a client receives for each challenge round
type AttemptChallenge struct {
	AttemptID string
	Public    core.PublicParameters
	ExpiresAt time.Time
}

// LoginResult is the outcome of answering a challenge
type LoginResult struct {
	Decision     core.Decision
	Attempts     int
	Challenge    *AttemptChallenge // set when a new challenge was issued
	AccessToken  string            // set on accept
	RefreshToken string            // set on accept
}

// AuthService hosts the challenge-response protocol: it keeps the transcript
// of every login attempt, holds private challenge parameters server-side and
// issues session tokens once an attempt is accepted.
type AuthService struct {
	generator *ChallengeGenerator
	verifier  *SignatureVerifier
	tokenizer ports.Tokenizer
	store     ports.Store
	eventPub  ports.EventPublisher
	logger    *slog.Logger
	now       func() time.Time

	challengeTTL time.Duration
	attemptTTL   time.Duration
	accessTTL    time.Duration
	refreshTTL   time.Duration
}

// NewAuthService creates a new authentication service
func NewAuthService(
	generator *ChallengeGenerator,
	verifier *SignatureVerifier,
	tokenizer ports.Tokenizer,
	store ports.Store,
	eventPub ports.EventPublisher,
	logger *slog.Logger,
	cfg Config,
) *AuthService {
	def := DefaultConfig()
	if cfg.ChallengeTTL <= 0 {
		cfg.ChallengeTTL = def.ChallengeTTL
	}
	if cfg.AttemptTTL <= 0 {
		cfg.AttemptTTL = core.MaxAttempts * cfg.ChallengeTTL
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = def.AccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = def.RefreshTTL
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &AuthService{
		generator:    generator,
		verifier:     verifier,
		tokenizer:    tokenizer,
		store:        store,
		eventPub:     eventPub,
		logger:       logger,
		now:          generator.now,
		challengeTTL: cfg.ChallengeTTL,
		attemptTTL:   cfg.AttemptTTL,
		accessTTL:    cfg.AccessTTL,
		refreshTTL:   cfg.RefreshTTL,
	}
}

// IssueChallenge runs the challenge phase on its own.
func (s *AuthService) IssueChallenge(claimedAddress string) (core.Challenge, error) {
	return s.generator.Generate(claimedAddress)
}

// VerifyResponse runs the verification phase on its own.
func (s *AuthService) VerifyResponse(params *core.PrivateParameters, signature string) bool {
	return s.verifier.Verify(params, signature)
}

// EvaluateSession runs the decision phase on its own.
func (s *AuthService) EvaluateSession(transcript core.Transcript) core.Decision {
	return core.Evaluate(transcript)
}

// StartAttempt opens a login attempt for address and issues its first challenge
func (s *AuthService) StartAttempt(ctx context.Context, address string) (*AttemptChallenge, error) {
	attempt := ports.Attempt{
		ID:      uuid.New().String(),
		Address: address,
	}

	if decision := core.Evaluate(attempt.Transcript); decision != core.DecisionIssueChallenge {
		return nil, fmt.Errorf("unexpected decision for new attempt: %s", decision)
	}

	challenge, err := s.issueRound(ctx, &attempt)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, ports.AuthEvent{
		Type:      ports.EventChallengeIssued,
		AttemptID: attempt.ID,
		Address:   attempt.Address,
		Decision:  core.DecisionIssueChallenge,
		Attempts:  attempt.Transcript.Attempts(),
	})

	return challenge, nil
}

// Respond answers the pending challenge of an attempt with a signature.
//
// The attempt is taken out of the store while it is decided, so a concurrent
// answer to the same attempt finds nothing and gets ErrUnknownAttempt. If a
// later step fails the attempt stays closed and the client starts over.
func (s *AuthService) Respond(ctx context.Context, attemptID, signature string) (*LoginResult, error) {
	attempt, err := s.store.TakeAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}

	verified := s.verifier.Verify(&attempt.Challenge, signature)
	attempt.Challenge = core.PrivateParameters{}
	attempt.Transcript = attempt.Transcript.Resolve(core.OutcomeOf(verified))
	decision := core.Evaluate(attempt.Transcript)

	result := &LoginResult{
		Decision: decision,
		Attempts: attempt.Transcript.Attempts(),
	}

	event := ports.AuthEvent{
		AttemptID: attempt.ID,
		Address:   attempt.Address,
		Decision:  decision,
		Attempts:  result.Attempts,
	}

	switch decision {
	case core.DecisionAccept:
		access, refresh, err := s.createTokens(attempt.Address)
		if err != nil {
			return nil, s.abandon(ctx, attempt, err)
		}
		result.AccessToken, result.RefreshToken = access, refresh
		event.Type = ports.EventAttemptAccepted
		s.logger.Info("login accepted", "attempt_id", attempt.ID, "address", attempt.Address, "attempts", result.Attempts)

	case core.DecisionReject:
		event.Type = ports.EventAttemptRejected
		s.logger.Warn("login rejected", "attempt_id", attempt.ID, "address", attempt.Address, "attempts", result.Attempts)

	case core.DecisionIssueChallenge, core.DecisionRetryChallenge:
		challenge, err := s.issueRound(ctx, &attempt)
		if err != nil {
			return nil, s.abandon(ctx, attempt, err)
		}
		result.Challenge = challenge
		event.Type = ports.EventAttemptFailed
		s.logger.Info("login retry", "attempt_id", attempt.ID, "address", attempt.Address, "attempts", result.Attempts)

	default:
		return nil, s.abandon(ctx, attempt, fmt.Errorf("unexpected decision %q", decision))
	}

	s.publish(ctx, event)

	return result, nil
}

// issueRound generates a challenge and saves it with a pending round in the
// attempt's transcript as a single record.
func (s *AuthService) issueRound(ctx context.Context, attempt *ports.Attempt) (*AttemptChallenge, error) {
	challenge, err := s.generator.Generate(attempt.Address)
	if err != nil {
		return nil, err
	}

	next := *attempt
	next.Challenge = challenge.Private()
	next.Transcript = attempt.Transcript.Append(core.Round{
		Kind:    core.KindSignatureChallenge,
		Outcome: core.OutcomePending,
	})

	if err := s.store.SaveAttempt(ctx, next, s.attemptTTL); err != nil {
		return nil, fmt.Errorf("failed to save attempt: %w", err)
	}
	*attempt = next

	return &AttemptChallenge{
		AttemptID: attempt.ID,
		Public:    challenge.Public(),
		ExpiresAt: challenge.IssuedAt.Add(s.challengeTTL),
	}, nil
}

// abandon reports an attempt that was taken from the store but could not be
// carried forward. Nothing is written back, so the attempt is closed.
func (s *AuthService) abandon(ctx context.Context, attempt ports.Attempt, err error) error {
	s.logger.Error("login attempt abandoned", "attempt_id", attempt.ID, "attempts", attempt.Transcript.Attempts(), "error", err)
	s.publish(ctx, ports.AuthEvent{
		Type:      ports.EventAttemptAbandoned,
		AttemptID: attempt.ID,
		Address:   attempt.Address,
		Attempts:  attempt.Transcript.Attempts(),
	})
	return fmt.Errorf("login attempt %s abandoned: %w", attempt.ID, err)
}

func (s *AuthService) publish(ctx context.Context, event ports.AuthEvent) {
	if err := s.eventPub.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish auth event", "type", event.Type, "error", err)
	}
}

func (s *AuthService) createTokens(address string) (string, string, error) {
	now := s.now()
	session := &core.Session{
		ID:            uuid.New().String(),
		Address:       address,
		IssuedAt:      now,
		RefreshExpiry: now.Add(s.refreshTTL),
		AccessExpiry:  now.Add(s.accessTTL),
		RefreshID:     uuid.New().String(),
	}

	accessToken, err := s.tokenizer.SessionToAccessToken(session)
	if err != nil {
		return "", "", fmt.Errorf("failed to create access token: %w", err)
	}

	refreshToken, err := s.tokenizer.SessionToRefreshToken(session)
	if err != nil {
		return "", "", fmt.Errorf("failed to create refresh token: %w", err)
	}

	return accessToken, refreshToken, nil
}

// AccessTTL is the lifetime of issued access tokens
func (s *AuthService) AccessTTL() time.Duration {
	return s.accessTTL
}

// Refresh rotates the refresh token and issues new access and refresh tokens
func (s *AuthService) Refresh(ctx context.Context, refreshTokenStr string) (string, string, error) {
	session, err := s.tokenizer.RefreshTokenToSession(refreshTokenStr)
	if err != nil {
		return "", "", err
	}

	if s.now().After(session.RefreshExpiry) {
		return "", "", core.ErrTokenExpired
	}

	invalidated, err := s.store.IsTokenInvalidated(ctx, session.RefreshID)
	if err != nil {
		return "", "", fmt.Errorf("failed to check token invalidation: %w", err)
	}

	if invalidated {
		return "", "", core.ErrTokenInvalidated
	}

	// The old token stays revoked for the rest of its own lifetime
	remainingTime := session.RefreshExpiry.Sub(s.now())
	if err := s.store.InvalidateToken(ctx, session.RefreshID, remainingTime); err != nil {
		return "", "", fmt.Errorf("failed to invalidate old token: %w", err)
	}

	return s.createTokens(session.Address)
}

// Logout invalidates a refresh token
func (s *AuthService) Logout(ctx context.Context, refreshTokenStr string) error {
	session, err := s.tokenizer.RefreshTokenToSession(refreshTokenStr)
	if errors.Is(err, core.ErrTokenExpired) {
		return nil
	}
	if err != nil {
		return err
	}

	remainingTime := session.RefreshExpiry.Sub(s.now())
	if remainingTime <= 0 {
		// Keep a short record so clock skew cannot revive the token
		remainingTime = time.Hour
	}

	if err := s.store.InvalidateToken(ctx, session.RefreshID, remainingTime); err != nil {
		return fmt.Errorf("failed to invalidate token: %w", err)
	}

	s.publish(ctx, ports.AuthEvent{
		Type:    ports.EventLogout,
		Address: session.Address,
		TokenID: session.RefreshID,
	})

	return nil
}

// ValidateAccessToken parses an access token and checks its refresh token
// has not been revoked
func (s *AuthService) ValidateAccessToken(ctx context.Context, accessToken string) (*core.Session, error) {
	session, err := s.tokenizer.AccessTokenToSession(accessToken)
	if err != nil {
		return nil, err
	}

	if s.now().After(session.AccessExpiry) {
		return nil, core.ErrTokenExpired
	}

	if session.RefreshID != "" {
		invalidated, err := s.store.IsTokenInvalidated(ctx, session.RefreshID)
		if err != nil {
			return nil, fmt.Errorf("failed to check token invalidation: %w", err)
		}

		if invalidated {
			return nil, core.ErrTokenInvalidated
		}
	}

	return session, nil
}
