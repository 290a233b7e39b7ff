package auth

import (
	"sync"

	"golang.org/x/oauth2"
)

// TokenSlot is a thread-safe holder of the current token. It is the one
// piece of auth state shared between the HTTP core, refreshing token
// sources, and any paginators threading it as their shared value.
type TokenSlot struct {
	mu    sync.RWMutex
	token *oauth2.Token
}

// NewTokenSlot creates a slot holding the given token. A nil token is
// allowed; the slot then reports itself expired until one is stored.
func NewTokenSlot(token *oauth2.Token) *TokenSlot {
	return &TokenSlot{token: token}
}

// Load returns the currently held token, which may be nil.
func (s *TokenSlot) Load() *oauth2.Token {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Store replaces the held token.
func (s *TokenSlot) Store(token *oauth2.Token) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

// Expired reports whether the slot holds no usable access token.
func (s *TokenSlot) Expired() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.token.Valid()
}

// slotSource refreshes through an inner source and writes every token it
// hands out back to the slot.
type slotSource struct {
	slot *TokenSlot
	src  oauth2.TokenSource
}

func (s *slotSource) Token() (*oauth2.Token, error) {
	token, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	s.slot.Store(token)
	return token, nil
}
