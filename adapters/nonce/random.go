package nonce

import (
	"crypto/rand"
	"fmt"
	"io"

	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/ports"
)

// RandomSource draws nonces from a cryptographically secure reader
type RandomSource struct {
	reader io.Reader
}

// NewRandomSource creates a nonce source backed by crypto/rand
func NewRandomSource() ports.NonceSource {
	return &RandomSource{reader: rand.Reader}
}

// NewReaderSource creates a nonce source backed by r. r must be a CSPRNG.
func NewReaderSource(r io.Reader) ports.NonceSource {
	return &RandomSource{reader: r}
}

// Nonce reads a fresh 256-bit nonce. A short or failed read is an error,
// there is no fallback source.
func (s *RandomSource) Nonce() (core.Nonce, error) {
	var n core.Nonce
	if _, err := io.ReadFull(s.reader, n[:]); err != nil {
		return core.Nonce{}, fmt.Errorf("%w: %v", core.ErrNonceUnavailable, err)
	}
	return n, nil
}
