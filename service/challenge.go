package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/ports"
)

// ChallengeGenerator builds fresh signature challenges for a claimed address
type ChallengeGenerator struct {
	nonces ports.NonceSource
	banner string
	now    func() time.Time
}

// NewChallengeGenerator creates a generator. An empty banner falls back to
// core.DefaultBanner and a nil clock to time.Now.
func NewChallengeGenerator(nonces ports.NonceSource, banner string, now func() time.Time) *ChallengeGenerator {
	if banner == "" {
		banner = core.DefaultBanner
	}
	if now == nil {
		now = time.Now
	}
	return &ChallengeGenerator{
		nonces: nonces,
		banner: banner,
		now:    now,
	}
}

// Generate issues a new challenge for claimedAddress.
func (g *ChallengeGenerator) Generate(claimedAddress string) (core.Challenge, error) {
	if strings.TrimSpace(claimedAddress) == "" {
		return core.Challenge{}, core.ErrMissingIdentityClaim
	}

	nonce, err := g.nonces.Nonce()
	if err != nil {
		return core.Challenge{}, fmt.Errorf("failed to generate nonce: %w", err)
	}

	issuedAt := g.now().UTC().Truncate(time.Second)

	return core.Challenge{
		Nonce:          nonce,
		ClaimedAddress: claimedAddress,
		IssuedAt:       issuedAt,
		Message:        core.RenderMessage(g.banner, claimedAddress, nonce, issuedAt),
	}, nil
}
