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

// threadRepository implements ThreadRepository interface
type threadRepository struct {
	db *database.Postgres
}

// NewThreadRepository creates a new thread repository
func NewThreadRepository(db *database.Postgres) ThreadRepository {
	return &threadRepository{db: db}
}

// CreateThread creates a new thread
func (r *threadRepository) CreateThread(ctx context.Context, thread *domain.Thread) error {
	query := `
		INSERT INTO threads (id, account_id, title, provider, model, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	if thread.ID == "" {
		thread.ID = uuid.New().String()
	}

	now := time.Now()
	if thread.CreatedAt.IsZero() {
		thread.CreatedAt = now
	}
	if thread.UpdatedAt.IsZero() {
		thread.UpdatedAt = now
	}

	_, err := r.db.DB.ExecContext(ctx, query,
		thread.ID,
		thread.AccountID,
		thread.Title,
		thread.Provider,
		thread.Model,
		thread.CreatedAt,
		thread.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create thread: %w", err)
	}

	return nil
}

// GetThread retrieves a thread by ID
func (r *threadRepository) GetThread(ctx context.Context, threadID string) (*domain.Thread, error) {
	query := `
		SELECT id, account_id, title, provider, model, created_at, updated_at
		FROM threads
		WHERE id = $1
	`

	thread := &domain.Thread{}
	err := r.db.DB.QueryRowContext(ctx, query, threadID).Scan(
		&thread.ID,
		&thread.AccountID,
		&thread.Title,
		&thread.Provider,
		&thread.Model,
		&thread.CreatedAt,
		&thread.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("thread with id %s not found: %w", threadID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get thread: %w", err)
	}

	return thread, nil
}

// ListThreads retrieves all threads owned by an account
func (r *threadRepository) ListThreads(ctx context.Context, accountID string) ([]*domain.Thread, error) {
	query := `
		SELECT id, account_id, title, provider, model, created_at, updated_at
		FROM threads
		WHERE account_id = $1
		ORDER BY updated_at DESC
	`

	rows, err := r.db.DB.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}
	defer rows.Close()

	var threads []*domain.Thread
	for rows.Next() {
		thread := &domain.Thread{}
		err := rows.Scan(
			&thread.ID,
			&thread.AccountID,
			&thread.Title,
			&thread.Provider,
			&thread.Model,
			&thread.CreatedAt,
			&thread.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan thread: %w", err)
		}
		threads = append(threads, thread)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate threads: %w", err)
	}

	return threads, nil
}

// AppendMessage appends a message to a thread and bumps the thread timestamp
func (r *threadRepository) AppendMessage(ctx context.Context, message *domain.Message) error {
	query := `
		INSERT INTO messages (id, thread_id, role, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}

	tx, err := r.db.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, query,
		message.ID,
		message.ThreadID,
		message.Role,
		message.Content,
		message.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE threads SET updated_at = $2 WHERE id = $1`,
		message.ThreadID, message.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to touch thread: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit message: %w", err)
	}

	return nil
}

// ListMessages retrieves all messages in a thread in insertion order
func (r *threadRepository) ListMessages(ctx context.Context, threadID string) ([]*domain.Message, error) {
	query := `
		SELECT id, thread_id, role, content, created_at
		FROM messages
		WHERE thread_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.DB.QueryContext(ctx, query, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []*domain.Message
	for rows.Next() {
		message := &domain.Message{}
		err := rows.Scan(
			&message.ID,
			&message.ThreadID,
			&message.Role,
			&message.Content,
			&message.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, message)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}

	return messages, nil
}
