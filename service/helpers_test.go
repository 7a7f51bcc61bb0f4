package service

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/layer-3/walletauth/adapters/nonce"
	"github.com/layer-3/walletauth/adapters/store"
	"github.com/layer-3/walletauth/adapters/tokenizer"
	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/internal/eth"
	"github.com/layer-3/walletauth/ports"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Now().UTC().Truncate(time.Second)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixedNonces struct{ b byte }

func (f fixedNonces) Nonce() (n core.Nonce, err error) {
	for i := range n {
		n[i] = f.b
	}
	return n, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []ports.AuthEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event ports.AuthEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.Type)
	}
	return types
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newSigner(t *testing.T) *eth.LocalSigner {
	t.Helper()
	signer, err := eth.GenerateSigner()
	require.NoError(t, err)
	return signer
}

func sign(t *testing.T, signer eth.Signer, msg string) string {
	t.Helper()
	sig, err := signer.SignMessage(msg)
	require.NoError(t, err)
	return hexutil.Encode(sig)
}

type fixture struct {
	clock     *testClock
	store     *store.MemoryStore
	events    *recordingPublisher
	tokenizer *tokenizer.JWTTokenizer
	service   *AuthService
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithStore(t, nil)
}

// newFixtureWithStore builds a fixture whose service sees the memory store
// through wrap, when set.
func newFixtureWithStore(t *testing.T, wrap func(ports.Store) ports.Store) *fixture {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	clock := newTestClock()
	f := &fixture{
		clock:     clock,
		store:     store.NewMemoryStoreWithClock(clock.Now),
		events:    &recordingPublisher{},
		tokenizer: tokenizer.NewJWTTokenizer(key, "walletauth-test"),
	}

	var backend ports.Store = f.store
	if wrap != nil {
		backend = wrap(f.store)
	}

	logger := discardLogger()
	f.service = NewAuthService(
		NewChallengeGenerator(nonce.NewRandomSource(), "", clock.Now),
		NewSignatureVerifier(0, clock.Now, logger),
		f.tokenizer,
		backend,
		f.events,
		logger,
		DefaultConfig(),
	)
	return f
}

// pausingStore holds the first TakeAttempt caller until release is closed.
type pausingStore struct {
	ports.Store
	once    sync.Once
	taken   chan struct{}
	release chan struct{}
}

func newPausingStore(s ports.Store) *pausingStore {
	return &pausingStore{Store: s, taken: make(chan struct{}), release: make(chan struct{})}
}

func (p *pausingStore) TakeAttempt(ctx context.Context, attemptID string) (ports.Attempt, error) {
	attempt, err := p.Store.TakeAttempt(ctx, attemptID)
	p.once.Do(func() {
		close(p.taken)
		<-p.release
	})
	return attempt, err
}

// failingStore fails SaveAttempt once failSave is set.
type failingStore struct {
	ports.Store
	failSave atomic.Bool
}

var errStoreDown = errors.New("store unavailable")

func (s *failingStore) SaveAttempt(ctx context.Context, attempt ports.Attempt, ttl time.Duration) error {
	if s.failSave.Load() {
		return errStoreDown
	}
	return s.Store.SaveAttempt(ctx, attempt, ttl)
}
