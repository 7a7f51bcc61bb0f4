package service

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/internal/eth"
)

// DefaultChallengeExpiry bounds how long an issued challenge can be answered.
const DefaultChallengeExpiry = 5 * time.Minute

// SignatureVerifier checks a signed challenge against its claimed address
type SignatureVerifier struct {
	expiry time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// NewSignatureVerifier creates a verifier. Zero expiry means
// DefaultChallengeExpiry.
func NewSignatureVerifier(expiry time.Duration, now func() time.Time, logger *slog.Logger) *SignatureVerifier {
	if expiry <= 0 {
		expiry = DefaultChallengeExpiry
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SignatureVerifier{
		expiry: expiry,
		now:    now,
		logger: logger,
	}
}

// Verify reports whether signature is a valid personal-message signature of
// params.Message by params.ClaimedAddress, made within the expiry window.
// Every failure, including missing input, is reported as false.
func (v *SignatureVerifier) Verify(params *core.PrivateParameters, signature string) bool {
	if params == nil || params.Message == "" || params.ClaimedAddress == "" || params.IssuedAt.IsZero() || signature == "" {
		v.reject("missing_parameters")
		return false
	}

	if v.now().Sub(params.IssuedAt) > v.expiry {
		v.reject("expired")
		return false
	}

	if !common.IsHexAddress(params.ClaimedAddress) {
		v.reject("invalid_claimed_address")
		return false
	}

	sig, err := eth.DecodeSignature(signature)
	if err != nil {
		v.reject("malformed_signature")
		return false
	}

	recovered, err := eth.RecoverAddress(params.Message, sig)
	if err != nil {
		v.reject("recovery_failed")
		return false
	}

	claimed := common.HexToAddress(params.ClaimedAddress)
	if subtle.ConstantTimeCompare(recovered.Bytes(), claimed.Bytes()) != 1 {
		v.reject("address_mismatch")
		return false
	}

	return true
}

// reject logs why a signature failed. Inputs come from the client and are
// not logged.
func (v *SignatureVerifier) reject(reason string) {
	v.logger.LogAttrs(context.Background(), slog.LevelDebug, "signature rejected",
		slog.String("reason", reason),
	)
}
