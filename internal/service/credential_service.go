package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prperemyshlev/bridge-service/internal/domain"
	"github.com/prperemyshlev/bridge-service/internal/dto"
	"github.com/prperemyshlev/bridge-service/internal/llm"
	"github.com/prperemyshlev/bridge-service/internal/repository"
	"github.com/prperemyshlev/bridge-service/internal/vault"
)

// Credential service errors
var (
	// ErrCredentialNotFound is returned when no key is stored for the
	// (account, provider) pair
	ErrCredentialNotFound = errors.New("credential not found")

	// ErrUnsupportedProvider is returned for provider names with no client
	ErrUnsupportedProvider = errors.New("unsupported llm provider")
)

type credentialService struct {
	credentials repository.CredentialRepository
	vault       *vault.Vault
	providers   *llm.Registry
}

// NewCredentialService creates a new credential service
func NewCredentialService(credentials repository.CredentialRepository, v *vault.Vault, providers *llm.Registry) CredentialService {
	return &credentialService{
		credentials: credentials,
		vault:       v,
		providers:   providers,
	}
}

// Store seals an API key and upserts it for the (account, provider) pair.
// Storing a second key for the same pair replaces the first.
func (s *credentialService) Store(ctx context.Context, accountID, provider, apiKey, label string) error {
	if _, err := s.providers.Get(provider); err != nil {
		return ErrUnsupportedProvider
	}

	ciphertext, err := s.vault.Encrypt(apiKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt api key: %w", err)
	}

	credential := &domain.EncryptedCredential{
		ID:         uuid.New().String(),
		AccountID:  accountID,
		Provider:   provider,
		Ciphertext: ciphertext,
	}
	if label != "" {
		credential.Label = &label
	}

	if err := s.credentials.Upsert(ctx, credential); err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}

	return nil
}

// List returns metadata for every stored credential of an account. Neither
// the plaintext key nor the ciphertext leaves this package.
func (s *credentialService) List(ctx context.Context, accountID string) ([]dto.CredentialResponse, error) {
	stored, err := s.credentials.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}

	responses := make([]dto.CredentialResponse, 0, len(stored))
	for _, credential := range stored {
		resp := dto.CredentialResponse{
			Provider:  credential.Provider,
			Label:     credential.Label,
			CreatedAt: credential.CreatedAt.Format(time.RFC3339),
		}
		if credential.LastUsedAt != nil {
			lastUsed := credential.LastUsedAt.Format(time.RFC3339)
			resp.LastUsedAt = &lastUsed
		}
		responses = append(responses, resp)
	}

	return responses, nil
}

// Delete removes the stored credential for the (account, provider) pair
func (s *credentialService) Delete(ctx context.Context, accountID, provider string) error {
	if err := s.credentials.Delete(ctx, accountID, provider); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCredentialNotFound
		}
		return fmt.Errorf("failed to delete credential: %w", err)
	}

	return nil
}

// Reveal decrypts the stored key for use inside the domain tier and records
// the access time. The plaintext is returned to the caller and never logged.
func (s *credentialService) Reveal(ctx context.Context, accountID, provider string) (string, error) {
	credential, err := s.credentials.Get(ctx, accountID, provider)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrCredentialNotFound
		}
		return "", fmt.Errorf("failed to load credential: %w", err)
	}

	plaintext, err := s.vault.Decrypt(credential.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt credential: %w", err)
	}

	if err := s.credentials.TouchLastUsed(ctx, accountID, provider); err != nil {
		return "", fmt.Errorf("failed to record credential use: %w", err)
	}

	return plaintext, nil
}
