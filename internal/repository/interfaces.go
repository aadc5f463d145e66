package repository

import (
	"context"
	"encoding/json"

	"github.com/prperemyshlev/bridge-service/internal/domain"
)

// AccountRepository defines methods for account operations
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	GetByProviderIdentity(ctx context.Context, provider, providerUserID string) (*domain.Account, error)
	LinkIdentity(ctx context.Context, identity *domain.ProviderIdentity) error
	UpdateIdentityRefreshCredential(ctx context.Context, accountID, provider string, refreshCredential *string) error
	UpdateLastLogin(ctx context.Context, accountID string) error
	UpdatePreferences(ctx context.Context, accountID string, preferences json.RawMessage) error
	Deactivate(ctx context.Context, accountID string) error
}

// CredentialRepository defines methods for encrypted credential operations
type CredentialRepository interface {
	Upsert(ctx context.Context, credential *domain.EncryptedCredential) error
	Get(ctx context.Context, accountID, provider string) (*domain.EncryptedCredential, error)
	ListByAccount(ctx context.Context, accountID string) ([]*domain.EncryptedCredential, error)
	Delete(ctx context.Context, accountID, provider string) error
	TouchLastUsed(ctx context.Context, accountID, provider string) error
}

// ThreadRepository defines methods for thread and message operations
type ThreadRepository interface {
	CreateThread(ctx context.Context, thread *domain.Thread) error
	GetThread(ctx context.Context, threadID string) (*domain.Thread, error)
	ListThreads(ctx context.Context, accountID string) ([]*domain.Thread, error)
	AppendMessage(ctx context.Context, message *domain.Message) error
	ListMessages(ctx context.Context, threadID string) ([]*domain.Message, error)
}
