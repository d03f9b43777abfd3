package tokenstore

import (
	"context"
	"sync"

	"github.com/jun/fitadvice/internal/model"
)

// MemoryStore keeps tokens in process. Used for local development and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	tokens map[string]model.StoredToken
	last   string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tokens: make(map[string]model.StoredToken)}
}

func (s *MemoryStore) Save(_ context.Context, tok model.StoredToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[tok.UserID] = tok
	s.last = tok.UserID
	return nil
}

// Load returns the token for userID, or the most recently saved one when
// userID is empty.
func (s *MemoryStore) Load(_ context.Context, userID string) (*model.StoredToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if userID == "" {
		userID = s.last
	}
	tok, ok := s.tokens[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &tok, nil
}
