package apikey

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dan9191/erp-gateway/internal/models"
	"github.com/Dan9191/erp-gateway/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// PostgresStore persists issued keys. Secrets are stored as bcrypt hashes.
type PostgresStore struct {
	repo *repository.Repository
	cost int
}

// NewPostgresStore creates a PostgresStore hashing secrets with the given bcrypt cost
func NewPostgresStore(repo *repository.Repository, cost int) *PostgresStore {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	return &PostgresStore{repo: repo, cost: cost}
}

// Issue generates a key and secret and persists the key with the secret hash
func (s *PostgresStore) Issue(ctx context.Context) (models.APIKeyCredential, error) {
	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		cred, err := newCredential()
		if err != nil {
			return models.APIKeyCredential{}, err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(cred.Secret), s.cost)
		if err != nil {
			return models.APIKeyCredential{}, fmt.Errorf("failed to hash secret: %w", err)
		}

		err = s.repo.CreateAPIKey(ctx, cred.Key, string(hash))
		if errors.Is(err, repository.ErrDuplicateKey) {
			continue
		}
		if err != nil {
			return models.APIKeyCredential{}, err
		}
		return cred, nil
	}
	return models.APIKeyCredential{}, fmt.Errorf("failed to issue unique api key after %d attempts", maxIssueAttempts)
}

// Verify reports whether key has been issued
func (s *PostgresStore) Verify(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, nil
	}
	return s.repo.APIKeyExists(ctx, key)
}
