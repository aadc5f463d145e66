package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prperemyshlev/bridge-service/internal/domain"
	"github.com/prperemyshlev/bridge-service/pkg/database"
)

// credentialRepository implements CredentialRepository interface
type credentialRepository struct {
	db *database.Postgres
}

// NewCredentialRepository creates a new credential repository
func NewCredentialRepository(db *database.Postgres) CredentialRepository {
	return &credentialRepository{db: db}
}

// Upsert stores a credential, replacing any previous one for the same
// (account, provider) slot. Only ciphertext ever reaches this layer.
func (r *credentialRepository) Upsert(ctx context.Context, credential *domain.EncryptedCredential) error {
	query := `
		INSERT INTO account_credentials (id, account_id, provider, ciphertext, label, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (account_id, provider) DO UPDATE SET
			ciphertext = EXCLUDED.ciphertext,
			label = EXCLUDED.label,
			created_at = EXCLUDED.created_at,
			last_used_at = NULL
	`

	if credential.ID == "" {
		credential.ID = uuid.New().String()
	}
	if credential.CreatedAt.IsZero() {
		credential.CreatedAt = time.Now()
	}

	_, err := r.db.DB.ExecContext(ctx, query,
		credential.ID,
		credential.AccountID,
		credential.Provider,
		credential.Ciphertext,
		credential.Label,
		credential.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to upsert credential: %w", err)
	}

	return nil
}

// Get retrieves a credential by account and provider
func (r *credentialRepository) Get(ctx context.Context, accountID, provider string) (*domain.EncryptedCredential, error) {
	query := `
		SELECT id, account_id, provider, ciphertext, label, created_at, last_used_at
		FROM account_credentials
		WHERE account_id = $1 AND provider = $2
	`

	credential := &domain.EncryptedCredential{}
	var label sql.NullString
	var lastUsedAt sql.NullTime

	err := r.db.DB.QueryRowContext(ctx, query, accountID, provider).Scan(
		&credential.ID,
		&credential.AccountID,
		&credential.Provider,
		&credential.Ciphertext,
		&label,
		&credential.CreatedAt,
		&lastUsedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("credential for provider %s not found: %w", provider, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}

	if label.Valid {
		credential.Label = &label.String
	}
	if lastUsedAt.Valid {
		credential.LastUsedAt = &lastUsedAt.Time
	}

	return credential, nil
}

// ListByAccount retrieves all credentials stored by an account
func (r *credentialRepository) ListByAccount(ctx context.Context, accountID string) ([]*domain.EncryptedCredential, error) {
	query := `
		SELECT id, account_id, provider, ciphertext, label, created_at, last_used_at
		FROM account_credentials
		WHERE account_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.DB.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}
	defer rows.Close()

	var credentials []*domain.EncryptedCredential
	for rows.Next() {
		credential := &domain.EncryptedCredential{}
		var label sql.NullString
		var lastUsedAt sql.NullTime

		err := rows.Scan(
			&credential.ID,
			&credential.AccountID,
			&credential.Provider,
			&credential.Ciphertext,
			&label,
			&credential.CreatedAt,
			&lastUsedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan credential: %w", err)
		}

		if label.Valid {
			credential.Label = &label.String
		}
		if lastUsedAt.Valid {
			credential.LastUsedAt = &lastUsedAt.Time
		}

		credentials = append(credentials, credential)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate credentials: %w", err)
	}

	return credentials, nil
}

// Delete removes a credential by account and provider
func (r *credentialRepository) Delete(ctx context.Context, accountID, provider string) error {
	query := `DELETE FROM account_credentials WHERE account_id = $1 AND provider = $2`

	result, err := r.db.DB.ExecContext(ctx, query, accountID, provider)
	if err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("credential for provider %s not found: %w", provider, ErrNotFound)
	}

	return nil
}

// TouchLastUsed records that a credential was just decrypted for use
func (r *credentialRepository) TouchLastUsed(ctx context.Context, accountID, provider string) error {
	query := `
		UPDATE account_credentials
		SET last_used_at = $3
		WHERE account_id = $1 AND provider = $2
	`

	_, err := r.db.DB.ExecContext(ctx, query, accountID, provider, time.Now())
	if err != nil {
		return fmt.Errorf("failed to touch credential: %w", err)
	}

	return nil
}
