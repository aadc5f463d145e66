package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/prperemyshlev/bridge-service/internal/domain"
	"github.com/prperemyshlev/bridge-service/pkg/database"
)

// accountRepository implements AccountRepository interface
type accountRepository struct {
	db *database.Postgres
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *database.Postgres) AccountRepository {
	return &accountRepository{db: db}
}

const accountColumns = `id, email, display_name, password_hash, preferences, created_at, updated_at, last_login_at, is_active`

// Create creates a new account in the database
func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (id, email, display_name, password_hash, preferences, created_at, updated_at, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	if len(account.Preferences) == 0 {
		account.Preferences = json.RawMessage("{}")
	}

	now := time.Now()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	if account.UpdatedAt.IsZero() {
		account.UpdatedAt = now
	}

	_, err := r.db.DB.ExecContext(ctx, query,
		account.ID,
		account.Email,
		account.DisplayName,
		account.PasswordHash,
		[]byte(account.Preferences),
		account.CreatedAt,
		account.UpdatedAt,
		account.IsActive,
	)

	if err != nil {
		// Check for unique constraint violation (duplicate email)
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" { // unique_violation
				return fmt.Errorf("account with email %s already exists: %w", account.Email, ErrDuplicateEmail)
			}
		}
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// GetByID retrieves an account by ID
func (r *accountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	query := fmt.Sprintf(`SELECT %s FROM accounts WHERE id = $1`, accountColumns)
	return r.scanAccount(r.db.DB.QueryRowContext(ctx, query, id), fmt.Sprintf("account with id %s", id))
}

// GetByEmail retrieves an account by email
func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	query := fmt.Sprintf(`SELECT %s FROM accounts WHERE email = $1`, accountColumns)
	return r.scanAccount(r.db.DB.QueryRowContext(ctx, query, email), fmt.Sprintf("account with email %s", email))
}

// GetByProviderIdentity retrieves the account linked to a provider identity
func (r *accountRepository) GetByProviderIdentity(ctx context.Context, provider, providerUserID string) (*domain.Account, error) {
	query := `
		SELECT a.id, a.email, a.display_name, a.password_hash, a.preferences,
		       a.created_at, a.updated_at, a.last_login_at, a.is_active
		FROM accounts a
		JOIN account_identities i ON i.account_id = a.id
		WHERE i.provider = $1 AND i.provider_user_id = $2
	`

	return r.scanAccount(
		r.db.DB.QueryRowContext(ctx, query, provider, providerUserID),
		fmt.Sprintf("account for %s identity %s", provider, providerUserID),
	)
}

func (r *accountRepository) scanAccount(row *sql.Row, what string) (*domain.Account, error) {
	account := &domain.Account{}
	var passwordHash sql.NullString
	var preferences []byte
	var lastLoginAt sql.NullTime

	err := row.Scan(
		&account.ID,
		&account.Email,
		&account.DisplayName,
		&passwordHash,
		&preferences,
		&account.CreatedAt,
		&account.UpdatedAt,
		&lastLoginAt,
		&account.IsActive,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s not found: %w", what, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get %s: %w", what, err)
	}

	if passwordHash.Valid {
		account.PasswordHash = &passwordHash.String
	}
	if lastLoginAt.Valid {
		account.LastLoginAt = &lastLoginAt.Time
	}
	account.Preferences = json.RawMessage(preferences)

	return account, nil
}

// LinkIdentity links a provider identity to an account
func (r *accountRepository) LinkIdentity(ctx context.Context, identity *domain.ProviderIdentity) error {
	query := `
		INSERT INTO account_identities (id, account_id, provider, provider_user_id, email, refresh_credential, linked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	if identity.ID == "" {
		identity.ID = uuid.New().String()
	}
	if identity.LinkedAt.IsZero() {
		identity.LinkedAt = time.Now()
	}

	_, err := r.db.DB.ExecContext(ctx, query,
		identity.ID,
		identity.AccountID,
		identity.Provider,
		identity.ProviderUserID,
		identity.Email,
		identity.RefreshCredential,
		identity.LinkedAt,
	)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" { // unique_violation
			if pqErr.Constraint == "account_identities_account_provider_key" {
				return fmt.Errorf("account %s already linked to %s: %w", identity.AccountID, identity.Provider, ErrProviderAlreadyLinked)
			}
			return fmt.Errorf("identity %s/%s already linked: %w", identity.Provider, identity.ProviderUserID, ErrDuplicateIdentity)
		}
		return fmt.Errorf("failed to link identity: %w", err)
	}

	return nil
}

// UpdateIdentityRefreshCredential replaces the stored refresh credential for a linked identity
func (r *accountRepository) UpdateIdentityRefreshCredential(ctx context.Context, accountID, provider string, refreshCredential *string) error {
	query := `
		UPDATE account_identities
		SET refresh_credential = $3
		WHERE account_id = $1 AND provider = $2
	`

	result, err := r.db.DB.ExecContext(ctx, query, accountID, provider, refreshCredential)
	if err != nil {
		return fmt.Errorf("failed to update refresh credential: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("identity %s for account %s not found: %w", provider, accountID, ErrNotFound)
	}

	return nil
}

// UpdateLastLogin updates the last login timestamp for an account
func (r *accountRepository) UpdateLastLogin(ctx context.Context, accountID string) error {
	query := `
		UPDATE accounts
		SET last_login_at = $1, updated_at = $1
		WHERE id = $2
	`

	result, err := r.db.DB.ExecContext(ctx, query, time.Now(), accountID)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("account with id %s not found: %w", accountID, ErrNotFound)
	}

	return nil
}

// UpdatePreferences replaces the free-form preference data of an account
func (r *accountRepository) UpdatePreferences(ctx context.Context, accountID string, preferences json.RawMessage) error {
	query := `
		UPDATE accounts
		SET preferences = $2, updated_at = $3
		WHERE id = $1
	`

	result, err := r.db.DB.ExecContext(ctx, query, accountID, []byte(preferences), time.Now())
	if err != nil {
		return fmt.Errorf("failed to update preferences: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("account with id %s not found: %w", accountID, ErrNotFound)
	}

	return nil
}

// Deactivate marks an account as inactive. Accounts are never deleted.
func (r *accountRepository) Deactivate(ctx context.Context, accountID string) error {
	query := `
		UPDATE accounts
		SET is_active = FALSE, updated_at = $2
		WHERE id = $1
	`

	result, err := r.db.DB.ExecContext(ctx, query, accountID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to deactivate account: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("account with id %s not found: %w", accountID, ErrNotFound)
	}

	return nil
}
