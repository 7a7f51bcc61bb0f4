package service

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/layer-3/walletauth/adapters/nonce"
	"github.com/layer-3/walletauth/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// signedChallenge issues a challenge for a fresh key and signs it.
func signedChallenge(t *testing.T, clock *testClock) (core.PrivateParameters, []byte) {
	t.Helper()
	signer := newSigner(t)

	gen := NewChallengeGenerator(nonce.NewRandomSource(), "", clock.Now)
	challenge, err := gen.Generate(signer.Address().Hex())
	require.NoError(t, err)

	sig, err := signer.SignMessage(challenge.Public().Message)
	require.NoError(t, err)
	return challenge.Private(), sig
}

func TestVerifyRoundTrip(t *testing.T) {
	clock := newTestClock()
	v := NewSignatureVerifier(0, clock.Now, discardLogger())
	params, sig := signedChallenge(t, clock)

	clock.Advance(time.Minute)
	assert.True(t, v.Verify(&params, hexutil.Encode(sig)))
}

func TestVerifyAcceptsUnprefixedSignature(t *testing.T) {
	clock := newTestClock()
	v := NewSignatureVerifier(0, clock.Now, discardLogger())
	params, sig := signedChallenge(t, clock)

	assert.True(t, v.Verify(&params, hexutil.Encode(sig)[2:]))
}

func TestVerifyExpiryBoundary(t *testing.T) {
	tests := []struct {
		elapsed time.Duration
		want    bool
	}{
		{4*time.Minute + 59*time.Second, true},
		{5 * time.Minute, true},
		{5*time.Minute + time.Second, false},
		{time.Hour, false},
	}

	for _, tt := range tests {
		t.Run(tt.elapsed.String(), func(t *testing.T) {
			clock := newTestClock()
			v := NewSignatureVerifier(0, clock.Now, discardLogger())
			params, sig := signedChallenge(t, clock)

			clock.Advance(tt.elapsed)
			assert.Equal(t, tt.want, v.Verify(&params, hexutil.Encode(sig)))
		})
	}
}

func TestVerifyCaseInsensitiveAddress(t *testing.T) {
	clock := newTestClock()
	v := NewSignatureVerifier(0, clock.Now, discardLogger())
	params, sig := signedChallenge(t, clock)
	encoded := hexutil.Encode(sig)

	lower := params
	lower.ClaimedAddress = strings.ToLower(params.ClaimedAddress)
	assert.True(t, v.Verify(&lower, encoded))

	upper := params
	upper.ClaimedAddress = "0x" + strings.ToUpper(params.ClaimedAddress[2:])
	assert.True(t, v.Verify(&upper, encoded))
}

func TestVerifyMissingMaterial(t *testing.T) {
	clock := newTestClock()
	v := NewSignatureVerifier(0, clock.Now, discardLogger())
	params, sig := signedChallenge(t, clock)
	encoded := hexutil.Encode(sig)

	assert.False(t, v.Verify(nil, encoded))
	assert.False(t, v.Verify(&params, ""))

	noMessage := params
	noMessage.Message = ""
	assert.False(t, v.Verify(&noMessage, encoded))

	noAddress := params
	noAddress.ClaimedAddress = ""
	assert.False(t, v.Verify(&noAddress, encoded))

	noTime := params
	noTime.IssuedAt = time.Time{}
	assert.False(t, v.Verify(&noTime, encoded))
}

func TestVerifyMalformedInput(t *testing.T) {
	clock := newTestClock()
	v := NewSignatureVerifier(0, clock.Now, discardLogger())
	params, sig := signedChallenge(t, clock)

	for _, bad := range []string{"0x", "0xzz", "not hex", hexutil.Encode(sig[:64]), hexutil.Encode(append(sig, 0))} {
		assert.False(t, v.Verify(&params, bad), bad)
	}

	invalidAddress := params
	invalidAddress.ClaimedAddress = "alice.eth"
	assert.False(t, v.Verify(&invalidAddress, hexutil.Encode(sig)))
}

func TestVerifyWrongSigner(t *testing.T) {
	clock := newTestClock()
	v := NewSignatureVerifier(0, clock.Now, discardLogger())
	params, _ := signedChallenge(t, clock)

	other := newSigner(t)
	assert.False(t, v.Verify(&params, sign(t, other, params.Message)))
}

func TestVerifyTamperedMessage(t *testing.T) {
	clock := newTestClock()
	v := NewSignatureVerifier(0, clock.Now, discardLogger())
	params, sig := signedChallenge(t, clock)
	encoded := hexutil.Encode(sig)

	msg := []byte(params.Message)
	for i := range msg {
		for bit := 0; bit < 8; bit += 3 {
			tampered := params
			mutated := append([]byte(nil), msg...)
			mutated[i] ^= 1 << bit
			tampered.Message = string(mutated)
			require.False(t, v.Verify(&tampered, encoded), "byte %d bit %d", i, bit)
		}
	}
}

func TestVerifyTamperedSignature(t *testing.T) {
	clock := newTestClock()
	v := NewSignatureVerifier(0, clock.Now, discardLogger())
	params, sig := signedChallenge(t, clock)

	for i := range sig {
		for bit := 0; bit < 8; bit++ {
			mutated := append([]byte(nil), sig...)
			mutated[i] ^= 1 << bit
			require.False(t, v.Verify(&params, hexutil.Encode(mutated)), "byte %d bit %d", i, bit)
		}
	}
}

func TestVerifyConcreteScenario(t *testing.T) {
	clock := newTestClock()
	v := NewSignatureVerifier(0, clock.Now, discardLogger())
	gen := NewChallengeGenerator(nonce.NewRandomSource(), "", clock.Now)

	// Nobody holds the key for this address, so no signature can match it.
	const claimed = "0x1111111111111111111111111111111111111111"
	challenge, err := gen.Generate(claimed)
	require.NoError(t, err)
	params := challenge.Private()
	assert.False(t, v.Verify(&params, sign(t, newSigner(t), challenge.Message)))

	// The same flow with a key we control succeeds, and fails after a one
	// character change to the message.
	signer := newSigner(t)
	challenge, err = gen.Generate(signer.Address().Hex())
	require.NoError(t, err)
	params = challenge.Private()
	sig := sign(t, signer, challenge.Public().Message)

	clock.Advance(time.Minute)
	assert.True(t, v.Verify(&params, sig))

	altered := params
	altered.Message = strings.Replace(params.Message, "Sign this", "Sign that", 1)
	assert.False(t, v.Verify(&altered, sig))
}

func TestVerifyLogsReasonOnly(t *testing.T) {
	clock := newTestClock()
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	v := NewSignatureVerifier(0, clock.Now, logger)
	params, _ := signedChallenge(t, clock)

	assert.False(t, v.Verify(&params, "0x1234"))

	out := buf.String()
	assert.Contains(t, out, `"reason":"malformed_signature"`)
	assert.NotContains(t, out, params.ClaimedAddress)
	assert.NotContains(t, out, "0x1234")
}
