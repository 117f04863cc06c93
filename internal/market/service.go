// Package market implements the Liquex core: the proximity-filtered request
// lifecycle, the per-request chat channel and the passcode-gated completion
// handshake. All state lives in an injected kv.Store; the clock and the
// passcode source are injected too so expiry and ordering are
// deterministically testable.
package market

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/liquex-dev/liquex/pkg/kv"
)

// PasscodeTTL is the validity window of an issued completion passcode.
const PasscodeTTL = 5 * time.Minute

// Service owns every core operation. Each operation is a single
// synchronous read-modify-write on the backing store, serialized by one
// mutex. Writers in other processes sharing the same backend can still
// race; see the kv package notes.
type Service struct {
	store kv.Store

	mu       sync.Mutex
	now      func() time.Time
	passcode func() string
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces the wall clock, for deterministic expiry and ordering
// in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithPasscodeSource replaces the passcode generator.
func WithPasscodeSource(gen func() string) Option {
	return func(s *Service) { s.passcode = gen }
}

// New creates a Service on top of a collection store.
func New(store kv.Store, opts ...Option) *Service {
	s := &Service{
		store:    store,
		now:      time.Now,
		passcode: randomPasscode,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// randomPasscode returns a 4-digit numeric code in [1000, 9999].
func randomPasscode() string {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		// crypto/rand failing means the process is in serious trouble;
		// a constant code would silently defeat the handshake.
		panic(fmt.Sprintf("passcode generation failed: %v", err))
	}
	return fmt.Sprintf("%d", 1000+n.Int64())
}
