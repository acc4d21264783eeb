// Package apikey issues and verifies the API keys that gate the gateway's endpoints.
//
// Only the key is checked on verification. The secret is returned once at
// issuance and is not part of the credential check.
package apikey

import (
	"context"

	"github.com/Dan9191/erp-gateway/internal/models"
	"github.com/Dan9191/erp-gateway/internal/utils"
)

// tokenBytes gives 128 bits of entropy for both key and secret
const tokenBytes = 16

// Store keeps issued API keys
type Store interface {
	Issue(ctx context.Context) (models.APIKeyCredential, error)
	Verify(ctx context.Context, key string) (bool, error)
}

func newCredential() (models.APIKeyCredential, error) {
	key, err := utils.GenerateToken(tokenBytes)
	if err != nil {
		return models.APIKeyCredential{}, err
	}
	secret, err := utils.GenerateToken(tokenBytes)
	if err != nil {
		return models.APIKeyCredential{}, err
	}
	return models.APIKeyCredential{Key: key, Secret: secret}, nil
}
