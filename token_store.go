package auth

import "sync"

// DefaultTokenKey is the name of the persistent slot
const DefaultTokenKey = "blood-donation-token"

var _ TokenStore = &MemoryTokenStore{}

// MemoryTokenStore keeps the token in process memory
type MemoryTokenStore struct {
	mu    sync.RWMutex
	token string
}

// NewMemoryTokenStore returns a store, optionally seeded with a token
func NewMemoryTokenStore(seed ...string) *MemoryTokenStore {
	s := &MemoryTokenStore{}
	if len(seed) > 0 {
		s.token = seed[0]
	}
	return s
}

func (s *MemoryTokenStore) Save(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *MemoryTokenStore) Read() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return "", ErrTokenNotFound
	}
	return s.token, nil
}

func (s *MemoryTokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return nil
}
