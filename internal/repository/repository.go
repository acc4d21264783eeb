package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// ErrDuplicateKey is returned when an API key already exists
var ErrDuplicateKey = errors.New("api key already exists")

const uniqueViolation = "23505"

// Repository provides database operations
type Repository struct {
	db *sql.DB
}

// NewRepository initializes a new repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// EnsureSchema creates the api key table if it does not exist
func (r *Repository) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE SCHEMA IF NOT EXISTS gateway;
		CREATE TABLE IF NOT EXISTS gateway.api_keys (
			api_key     TEXT PRIMARY KEY,
			secret_hash TEXT NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// CreateAPIKey stores an issued key with the hash of its secret
func (r *Repository) CreateAPIKey(ctx context.Context, key, secretHash string) error {
	query := `
		INSERT INTO gateway.api_keys (api_key, secret_hash, created_at)
		VALUES ($1, $2, CURRENT_TIMESTAMP)`
	_, err := r.db.ExecContext(ctx, query, key, secretHash)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return ErrDuplicateKey
	}
	if err != nil {
		return fmt.Errorf("failed to create api key: %w", err)
	}
	return nil
}

// APIKeyExists reports whether key has been issued
func (r *Repository) APIKeyExists(ctx context.Context, key string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM gateway.api_keys WHERE api_key = $1)`
	if err := r.db.QueryRowContext(ctx, query, key).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to find api key: %w", err)
	}
	return exists, nil
}
