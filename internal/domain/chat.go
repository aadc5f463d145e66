package domain

import "time"

// Thread represents a conversation owned by an account.
type Thread struct {
	ID        string    `json:"id" db:"id"`
	AccountID string    `json:"account_id" db:"account_id"`
	Title     string    `json:"title" db:"title"`
	Provider  string    `json:"provider" db:"provider"`
	Model     string    `json:"model" db:"model"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Message is one entry in a thread.
type Message struct {
	ID        string    `json:"id" db:"id"`
	ThreadID  string    `json:"thread_id" db:"thread_id"`
	Role      string    `json:"role" db:"role"` // user, assistant
	Content   string    `json:"content" db:"content"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

const (
	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"
)
