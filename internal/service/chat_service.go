package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/prperemyshlev/bridge-service/internal/domain"
	"github.com/prperemyshlev/bridge-service/internal/dto"
	"github.com/prperemyshlev/bridge-service/internal/llm"
	"github.com/prperemyshlev/bridge-service/internal/repository"
)

// ErrThreadNotFound is returned when a thread does not exist or belongs to a
// different account. The two cases are indistinguishable to the caller.
var ErrThreadNotFound = errors.New("thread not found")

type chatService struct {
	threads     repository.ThreadRepository
	credentials CredentialService
	providers   *llm.Registry
}

// NewChatService creates a new chat service
func NewChatService(threads repository.ThreadRepository, credentials CredentialService, providers *llm.Registry) ChatService {
	return &chatService{
		threads:     threads,
		credentials: credentials,
		providers:   providers,
	}
}

// CreateThread starts a new conversation bound to one provider and model
func (s *chatService) CreateThread(ctx context.Context, accountID string, req *dto.CreateThreadRequest) (*domain.Thread, error) {
	if _, err := s.providers.Get(req.Provider); err != nil {
		return nil, ErrUnsupportedProvider
	}

	title := req.Title
	if title == "" {
		title = "New conversation"
	}

	thread := &domain.Thread{
		ID:        uuid.New().String(),
		AccountID: accountID,
		Title:     title,
		Provider:  req.Provider,
		Model:     req.Model,
	}

	if err := s.threads.CreateThread(ctx, thread); err != nil {
		return nil, fmt.Errorf("failed to create thread: %w", err)
	}

	return thread, nil
}

// ListThreads returns the account's conversations, newest first
func (s *chatService) ListThreads(ctx context.Context, accountID string) ([]*domain.Thread, error) {
	threads, err := s.threads.ListThreads(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}

	return threads, nil
}

// ListMessages returns the message history of an owned thread
func (s *chatService) ListMessages(ctx context.Context, accountID, threadID string) ([]*domain.Message, error) {
	if _, err := s.ownedThread(ctx, accountID, threadID); err != nil {
		return nil, err
	}

	messages, err := s.threads.ListMessages(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	return messages, nil
}

// PostMessage appends a user message, forwards the full history to the
// thread's provider with the account's decrypted key, and persists the
// assistant reply. The user message is stored before the upstream call so a
// provider failure never loses input.
func (s *chatService) PostMessage(ctx context.Context, accountID, threadID, content string) (*domain.Message, error) {
	thread, err := s.ownedThread(ctx, accountID, threadID)
	if err != nil {
		return nil, err
	}

	client, err := s.providers.Get(thread.Provider)
	if err != nil {
		return nil, ErrUnsupportedProvider
	}

	apiKey, err := s.credentials.Reveal(ctx, accountID, thread.Provider)
	if err != nil {
		return nil, err
	}

	userMessage := &domain.Message{
		ID:       uuid.New().String(),
		ThreadID: threadID,
		Role:     domain.MessageRoleUser,
		Content:  content,
	}
	if err := s.threads.AppendMessage(ctx, userMessage); err != nil {
		return nil, fmt.Errorf("failed to append message: %w", err)
	}

	history, err := s.threads.ListMessages(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	prompt := &llm.PromptRequest{Model: thread.Model}
	for _, message := range history {
		prompt.Messages = append(prompt.Messages, llm.Message{
			Role:    message.Role,
			Content: message.Content,
		})
	}

	reply, err := client.SendPrompt(ctx, apiKey, prompt)
	if err != nil {
		return nil, err
	}

	assistantMessage := &domain.Message{
		ID:       uuid.New().String(),
		ThreadID: threadID,
		Role:     domain.MessageRoleAssistant,
		Content:  reply.Content,
	}
	if err := s.threads.AppendMessage(ctx, assistantMessage); err != nil {
		return nil, fmt.Errorf("failed to append reply: %w", err)
	}

	return assistantMessage, nil
}

// ListModels returns the models the provider offers for the account's key
func (s *chatService) ListModels(ctx context.Context, accountID, provider string) ([]string, error) {
	client, err := s.providers.Get(provider)
	if err != nil {
		return nil, ErrUnsupportedProvider
	}

	apiKey, err := s.credentials.Reveal(ctx, accountID, provider)
	if err != nil {
		return nil, err
	}

	models, err := client.ListModels(ctx, apiKey)
	if err != nil {
		return nil, err
	}

	return models, nil
}

// ValidateCredential checks the account's stored key against the provider
func (s *chatService) ValidateCredential(ctx context.Context, accountID, provider string) error {
	client, err := s.providers.Get(provider)
	if err != nil {
		return ErrUnsupportedProvider
	}

	apiKey, err := s.credentials.Reveal(ctx, accountID, provider)
	if err != nil {
		return err
	}

	return client.ValidateAPIKey(ctx, apiKey)
}

// ownedThread loads a thread and enforces ownership
func (s *chatService) ownedThread(ctx context.Context, accountID, threadID string) (*domain.Thread, error) {
	thread, err := s.threads.GetThread(ctx, threadID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrThreadNotFound
		}
		return nil, fmt.Errorf("failed to load thread: %w", err)
	}
	if thread.AccountID != accountID {
		return nil, ErrThreadNotFound
	}

	return thread, nil
}
