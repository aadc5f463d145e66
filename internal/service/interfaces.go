package service

import (
	"context"
	"encoding/json"

	"github.com/prperemyshlev/bridge-service/internal/domain"
	"github.com/prperemyshlev/bridge-service/internal/dto"
	"github.com/prperemyshlev/bridge-service/internal/oauth"
)

// LoginResult carries the outcome of a completed login
type LoginResult struct {
	EdgeToken string
	ExpiresIn int // Edge token expiry in seconds
	Account   *domain.Account
}

// ExchangeResult carries the outcome of an edge-to-domain token exchange
type ExchangeResult struct {
	DomainToken string
	ExpiresIn   int // Domain token expiry in seconds
	Scopes      []string
}

// BridgeService owns the account-lookup and token-exchange policy between
// the edge and domain tiers
type BridgeService interface {
	CompleteLogin(ctx context.Context, identity *oauth.Identity) (*LoginResult, error)
	RegisterGuest(ctx context.Context, req *dto.GuestRegisterRequest) (*LoginResult, error)
	LoginGuest(ctx context.Context, req *dto.GuestLoginRequest) (*LoginResult, error)
	ExchangeForDomainToken(ctx context.Context, edgeToken string) (*ExchangeResult, error)
	GetAccount(ctx context.Context, accountID string) (*dto.AccountResponse, error)
	UpdatePreferences(ctx context.Context, accountID string, preferences json.RawMessage) error
	DeactivateAccount(ctx context.Context, accountID string) error
}

// CredentialService stores and serves third-party API keys. Plaintext only
// exists in memory: Store encrypts before persisting, Reveal decrypts on
// demand inside the domain tier.
type CredentialService interface {
	Store(ctx context.Context, accountID, provider, apiKey, label string) error
	List(ctx context.Context, accountID string) ([]dto.CredentialResponse, error)
	Delete(ctx context.Context, accountID, provider string) error
	Reveal(ctx context.Context, accountID, provider string) (string, error)
}

// ChatService implements the domain-tier conversation operations
type ChatService interface {
	CreateThread(ctx context.Context, accountID string, req *dto.CreateThreadRequest) (*domain.Thread, error)
	ListThreads(ctx context.Context, accountID string) ([]*domain.Thread, error)
	ListMessages(ctx context.Context, accountID, threadID string) ([]*domain.Message, error)
	PostMessage(ctx context.Context, accountID, threadID, content string) (*domain.Message, error)
	ListModels(ctx context.Context, accountID, provider string) ([]string, error)
	ValidateCredential(ctx context.Context, accountID, provider string) error
}
