package apikey

import (
	"context"
	"fmt"
	"sync"

	"github.com/Dan9191/erp-gateway/internal/models"
)

const maxIssueAttempts = 5

// MemoryStore is a process-local key store
type MemoryStore struct {
	mu   sync.RWMutex
	keys map[string]string
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{keys: make(map[string]string)}
}

// Issue generates and stores a new key and secret pair.
// A generated key that is already present is discarded and regenerated.
func (s *MemoryStore) Issue(ctx context.Context) (models.APIKeyCredential, error) {
	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		cred, err := newCredential()
		if err != nil {
			return models.APIKeyCredential{}, err
		}

		s.mu.Lock()
		_, taken := s.keys[cred.Key]
		if !taken {
			s.keys[cred.Key] = cred.Secret
		}
		s.mu.Unlock()

		if !taken {
			return cred, nil
		}
	}
	return models.APIKeyCredential{}, fmt.Errorf("failed to issue unique api key after %d attempts", maxIssueAttempts)
}

// Verify reports whether key was issued by this store
func (s *MemoryStore) Verify(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, nil
	}
	s.mu.RLock()
	_, ok := s.keys[key]
	s.mu.RUnlock()
	return ok, nil
}

// Len returns the number of issued keys
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}
