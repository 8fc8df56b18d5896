package auth

import (
	"sync"
	"time"

	"github.com/spruceid/siwe-go"
)

// NonceStore issues one-time SIWE nonces and consumes them on verification.
// Nonces expire after a TTL and are removed on first use, whichever comes
// first. The store is process-local: a nonce issued by one instance must be
// verified by the same instance.
type NonceStore struct {
	mu     sync.Mutex
	nonces map[string]time.Time // nonce -> expiry
	ttl    time.Duration
	now    func() time.Time // injectable for testing
}

// NewNonceStore creates a nonce store with the given time-to-live.
func NewNonceStore(ttl time.Duration) *NonceStore {
	return &NonceStore{
		nonces: make(map[string]time.Time),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue creates and remembers a fresh nonce.
func (s *NonceStore) Issue() string {
	nonce := siwe.GenerateNonce()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()
	s.nonces[nonce] = s.now().Add(s.ttl)
	return nonce
}

// Consume validates and burns a nonce. Returns ErrNonceInvalid when the
// nonce is unknown, expired, or was already consumed.
func (s *NonceStore) Consume(nonce string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiry, ok := s.nonces[nonce]
	if !ok {
		return ErrNonceInvalid
	}
	delete(s.nonces, nonce)

	if s.now().After(expiry) {
		return ErrNonceInvalid
	}
	return nil
}

// sweepLocked drops expired nonces. Caller holds the mutex.
func (s *NonceStore) sweepLocked() {
	now := s.now()
	for nonce, expiry := range s.nonces {
		if now.After(expiry) {
			delete(s.nonces, nonce)
		}
	}
}
