package statestore

import (
	"sync"
	"time"

	"mailsense-backend/pkg/utils/crypto"
)

type entry struct {
	value  string
	expiry time.Time
}

// Store is an expiring one-time token set. Tokens are inserted on issue,
// removed on consume, and silently dropped once their TTL passes. Used for
// the OAuth state parameter so each authorization round trip can be
// validated exactly once; the value bound at issue time (the user id)
// comes back on consume.
type Store struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]entry
	now     func() time.Time
}

func New(ttl time.Duration) *Store {
	return &Store{
		ttl:     ttl,
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Issue creates a fresh token bound to value and records it until consumed
// or expired.
func (s *Store) Issue(value string) (string, error) {
	token, err := crypto.RandomToken(32)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked()
	s.entries[token] = entry{value: value, expiry: s.now().Add(s.ttl)}
	return token, nil
}

// Consume removes the token and returns its bound value. A second consume
// of the same token fails.
func (s *Store) Consume(token string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked()

	e, ok := s.entries[token]
	if !ok {
		return "", false
	}
	delete(s.entries, token)
	if !e.expiry.After(s.now()) {
		return "", false
	}
	return e.value, true
}

// Len reports the number of live tokens.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked()
	return len(s.entries)
}

func (s *Store) purgeLocked() {
	now := s.now()
	for token, e := range s.entries {
		if !e.expiry.After(now) {
			delete(s.entries, token)
		}
	}
}
