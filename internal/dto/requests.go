package dto

import "encoding/json"

// GuestRegisterRequest represents a guest registration request
type GuestRegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	DisplayName string `json:"display_name" binding:"max=128"`
}

// GuestLoginRequest represents a guest login request
type GuestLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// StoreCredentialRequest represents an API key storage request
type StoreCredentialRequest struct {
	APIKey string `json:"api_key" binding:"required"`
	Label  string `json:"label" binding:"max=128"`
}

// UpdatePreferencesRequest carries free-form preference data
type UpdatePreferencesRequest struct {
	Preferences json.RawMessage `json:"preferences" binding:"required"`
}

// CreateThreadRequest represents a thread creation request
type CreateThreadRequest struct {
	Title    string `json:"title" binding:"max=256"`
	Provider string `json:"provider" binding:"required"`
	Model    string `json:"model" binding:"required"`
}

// PostMessageRequest represents a user message posted to a thread
type PostMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// EdgeTokenResponse is returned on login completion
type EdgeTokenResponse struct {
	EdgeToken string      `json:"edge_token"`
	TokenType string      `json:"token_type"`
	ExpiresIn int         `json:"expires_in"`
	Account   AccountInfo `json:"account"`
}

// DomainTokenResponse is returned by the token exchange endpoint
type DomainTokenResponse struct {
	DomainToken string   `json:"domain_token"`
	TokenType   string   `json:"token_type"`
	ExpiresIn   int      `json:"expires_in"`
	Scopes      []string `json:"scopes"`
}

// AccountInfo represents account information in responses
type AccountInfo struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// AccountResponse represents a full account profile response
type AccountResponse struct {
	ID          string          `json:"id"`
	Email       string          `json:"email"`
	DisplayName string          `json:"display_name"`
	Preferences json.RawMessage `json:"preferences"`
	CreatedAt   string          `json:"created_at"`
	UpdatedAt   string          `json:"updated_at"`
	LastLoginAt *string         `json:"last_login_at"`
}

// CredentialResponse represents stored credential metadata. The plaintext
// key and the ciphertext are never part of any response.
type CredentialResponse struct {
	Provider   string  `json:"provider"`
	Label      *string `json:"label"`
	CreatedAt  string  `json:"created_at"`
	LastUsedAt *string `json:"last_used_at"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string `json:"message"`
}

// ErrorDetail carries a machine-readable code and a human-readable message
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse represents a structured error body
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// NewError builds an error response body
func NewError(code, message string) ErrorResponse {
	return ErrorResponse{Error: ErrorDetail{Code: code, Message: message}}
}
