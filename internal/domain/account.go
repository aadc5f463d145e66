package domain

import (
	"encoding/json"
	"time"
)

// Account represents an identity record in the system. Accounts are created
// on first successful OAuth login or guest registration and are never
// physically deleted; deactivation is the only end of life.
type Account struct {
	ID           string          `json:"id" db:"id"`
	Email        string          `json:"email" db:"email"`
	DisplayName  string          `json:"display_name" db:"display_name"`
	PasswordHash *string         `json:"-" db:"password_hash"`
	Preferences  json.RawMessage `json:"preferences" db:"preferences"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
	LastLoginAt  *time.Time      `json:"last_login_at" db:"last_login_at"`
	IsActive     bool            `json:"is_active" db:"is_active"`
}

// ProviderIdentity links an account to one upstream OAuth provider.
// At most one link exists per (provider, account).
type ProviderIdentity struct {
	ID             string    `json:"id" db:"id"`
	AccountID      string    `json:"account_id" db:"account_id"`
	Provider       string    `json:"provider" db:"provider"` // github, google
	ProviderUserID string    `json:"provider_user_id" db:"provider_user_id"`
	Email          *string   `json:"email" db:"email"`
	// RefreshCredential holds the upstream refresh token, encrypted with
	// the vault before it ever reaches the database.
	RefreshCredential *string   `json:"-" db:"refresh_credential"`
	LinkedAt          time.Time `json:"linked_at" db:"linked_at"`
}

// EncryptedCredential is a stored third-party API key, keyed by
// (account, LLM provider). Ciphertext is opaque outside the vault.
type EncryptedCredential struct {
	ID         string     `json:"id" db:"id"`
	AccountID  string     `json:"account_id" db:"account_id"`
	Provider   string     `json:"provider" db:"provider"` // openai, anthropic
	Ciphertext string     `json:"-" db:"ciphertext"`
	Label      *string    `json:"label" db:"label"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at" db:"last_used_at"`
}
