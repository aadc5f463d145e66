package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prperemyshlev/bridge-service/internal/domain"
	"github.com/prperemyshlev/bridge-service/internal/dto"
	"github.com/prperemyshlev/bridge-service/internal/oauth"
	"github.com/prperemyshlev/bridge-service/internal/repository"
	"github.com/prperemyshlev/bridge-service/internal/utils"
	"github.com/prperemyshlev/bridge-service/internal/vault"
)

// Bridge service errors
var (
	// ErrInvalidCredentials is returned when guest login fails
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrEmailTaken is returned when a guest registers with a used email
	ErrEmailTaken = errors.New("email is already registered")

	// ErrInvalidEdgeToken is returned when token exchange receives a token
	// that does not verify as a live edge token
	ErrInvalidEdgeToken = errors.New("edge token is invalid")

	// ErrAccountNotFound is returned when the token's account no longer
	// exists or is deactivated
	ErrAccountNotFound = errors.New("account not found")

	// ErrIdentityConflict is returned when a login would attach a second
	// identity from a provider the account is already linked to
	ErrIdentityConflict = errors.New("account is already linked to a different identity from this provider")
)

type bridgeService struct {
	accounts repository.AccountRepository
	tokens   *utils.TokenManager
	vault    *vault.Vault
	bcrypt   int
}

// NewBridgeService creates a new bridge service
func NewBridgeService(accounts repository.AccountRepository, tokens *utils.TokenManager, v *vault.Vault, bcryptCost int) BridgeService {
	return &bridgeService{
		accounts: accounts,
		tokens:   tokens,
		vault:    v,
		bcrypt:   bcryptCost,
	}
}

// CompleteLogin resolves a verified provider identity to an account, creating
// one on first login, and issues an edge token.
func (s *bridgeService) CompleteLogin(ctx context.Context, identity *oauth.Identity) (*LoginResult, error) {
	account, err := s.accounts.GetByProviderIdentity(ctx, identity.Provider, identity.ProviderUserID)
	switch {
	case err == nil:
		if !account.IsActive {
			return nil, ErrAccountNotFound
		}
		if identity.RefreshCredential != "" {
			if err := s.storeRefreshCredential(ctx, account.ID, identity); err != nil {
				return nil, err
			}
		}

	case errors.Is(err, repository.ErrNotFound):
		account, err = s.adoptIdentity(ctx, identity)
		if err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("failed to look up provider identity: %w", err)
	}

	return s.issueEdgeToken(ctx, account)
}

// RegisterGuest creates a password-backed account without any provider link
func (s *bridgeService) RegisterGuest(ctx context.Context, req *dto.GuestRegisterRequest) (*LoginResult, error) {
	email := utils.SanitizeEmail(req.Email)
	if !utils.ValidateEmail(email) {
		return nil, ErrInvalidCredentials
	}

	hash, err := utils.HashPassword(req.Password, s.bcrypt)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	displayName := req.DisplayName
	if displayName == "" {
		displayName = email
	}

	account := &domain.Account{
		ID:           uuid.New().String(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: &hash,
		Preferences:  json.RawMessage("{}"),
		IsActive:     true,
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	return s.issueEdgeToken(ctx, account)
}

// LoginGuest verifies a password login. Lookup failures and password
// mismatches are indistinguishable to the caller.
func (s *bridgeService) LoginGuest(ctx context.Context, req *dto.GuestLoginRequest) (*LoginResult, error) {
	email := utils.SanitizeEmail(req.Email)

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}

	if !account.IsActive || account.PasswordHash == nil {
		return nil, ErrInvalidCredentials
	}
	if !utils.CheckPasswordHash(req.Password, *account.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return s.issueEdgeToken(ctx, account)
}

// ExchangeForDomainToken trades a live edge token for a short-lived domain
// token carrying the default scope set. The account is re-checked against
// storage so a deactivated account cannot mint new domain tokens.
func (s *bridgeService) ExchangeForDomainToken(ctx context.Context, edgeToken string) (*ExchangeResult, error) {
	claims, err := s.tokens.VerifyEdge(edgeToken)
	if err != nil {
		return nil, errors.Join(ErrInvalidEdgeToken, err)
	}

	account, err := s.accounts.GetByID(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}
	if !account.IsActive {
		return nil, ErrAccountNotFound
	}

	scopes := domain.DefaultDomainScopes()
	token, err := s.tokens.IssueDomainToken(account.ID, scopes)
	if err != nil {
		return nil, fmt.Errorf("failed to issue domain token: %w", err)
	}

	return &ExchangeResult{
		DomainToken: token,
		ExpiresIn:   s.tokens.GetDomainTokenExpiry(),
		Scopes:      scopes,
	}, nil
}

// GetAccount returns the profile of an account
func (s *bridgeService) GetAccount(ctx context.Context, accountID string) (*dto.AccountResponse, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}
	if !account.IsActive {
		return nil, ErrAccountNotFound
	}

	resp := &dto.AccountResponse{
		ID:          account.ID,
		Email:       account.Email,
		DisplayName: account.DisplayName,
		Preferences: account.Preferences,
		CreatedAt:   account.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   account.UpdatedAt.Format(time.RFC3339),
	}
	if account.LastLoginAt != nil {
		lastLogin := account.LastLoginAt.Format(time.RFC3339)
		resp.LastLoginAt = &lastLogin
	}

	return resp, nil
}

// UpdatePreferences replaces the account's preference document
func (s *bridgeService) UpdatePreferences(ctx context.Context, accountID string, preferences json.RawMessage) error {
	if !json.Valid(preferences) {
		return fmt.Errorf("preferences are not valid json")
	}

	if err := s.accounts.UpdatePreferences(ctx, accountID, preferences); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("failed to update preferences: %w", err)
	}

	return nil
}

// DeactivateAccount marks the account inactive. Existing tokens keep their
// signatures but fail the storage re-check on the next exchange.
func (s *bridgeService) DeactivateAccount(ctx context.Context, accountID string) error {
	if err := s.accounts.Deactivate(ctx, accountID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("failed to deactivate account: %w", err)
	}

	return nil
}

// adoptIdentity creates or finds the account for a first-seen provider
// identity. When the provider email already belongs to an account, the
// identity is linked to it instead of creating a duplicate.
func (s *bridgeService) adoptIdentity(ctx context.Context, identity *oauth.Identity) (*domain.Account, error) {
	email := utils.SanitizeEmail(identity.Email)

	account, err := s.accounts.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		displayName := identity.DisplayName
		if displayName == "" {
			displayName = email
		}

		account = &domain.Account{
			ID:          uuid.New().String(),
			Email:       email,
			DisplayName: displayName,
			Preferences: json.RawMessage("{}"),
			IsActive:    true,
		}
		if err := s.accounts.Create(ctx, account); err != nil {
			return nil, fmt.Errorf("failed to create account: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to look up account by email: %w", err)
	} else if !account.IsActive {
		return nil, ErrAccountNotFound
	}

	link := &domain.ProviderIdentity{
		ID:             uuid.New().String(),
		AccountID:      account.ID,
		Provider:       identity.Provider,
		ProviderUserID: identity.ProviderUserID,
	}
	if identity.Email != "" {
		link.Email = &identity.Email
	}
	if identity.RefreshCredential != "" {
		sealed, err := s.vault.Encrypt(identity.RefreshCredential)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt refresh credential: %w", err)
		}
		link.RefreshCredential = &sealed
	}

	if err := s.accounts.LinkIdentity(ctx, link); err != nil {
		if errors.Is(err, repository.ErrProviderAlreadyLinked) {
			return nil, fmt.Errorf("provider %s: %w", identity.Provider, ErrIdentityConflict)
		}
		// A concurrent login may have linked the same identity already
		if !errors.Is(err, repository.ErrDuplicateIdentity) {
			return nil, fmt.Errorf("failed to link identity: %w", err)
		}
	}

	return account, nil
}

// storeRefreshCredential seals and persists a rotated upstream refresh token
func (s *bridgeService) storeRefreshCredential(ctx context.Context, accountID string, identity *oauth.Identity) error {
	sealed, err := s.vault.Encrypt(identity.RefreshCredential)
	if err != nil {
		return fmt.Errorf("failed to encrypt refresh credential: %w", err)
	}

	if err := s.accounts.UpdateIdentityRefreshCredential(ctx, accountID, identity.Provider, &sealed); err != nil {
		return fmt.Errorf("failed to store refresh credential: %w", err)
	}

	return nil
}

func (s *bridgeService) issueEdgeToken(ctx context.Context, account *domain.Account) (*LoginResult, error) {
	token, err := s.tokens.IssueEdgeToken(account.ID, account.Email, account.DisplayName)
	if err != nil {
		return nil, fmt.Errorf("failed to issue edge token: %w", err)
	}

	if err := s.accounts.UpdateLastLogin(ctx, account.ID); err != nil {
		return nil, fmt.Errorf("failed to record login: %w", err)
	}

	return &LoginResult{
		EdgeToken: token,
		ExpiresIn: s.tokens.GetEdgeTokenExpiry(),
		Account:   account,
	}, nil
}
