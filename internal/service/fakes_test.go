package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/prperemyshlev/bridge-service/internal/domain"
	"github.com/prperemyshlev/bridge-service/internal/llm"
	"github.com/prperemyshlev/bridge-service/internal/repository"
)

// fakeAccountRepository is an in-memory AccountRepository for unit tests
type fakeAccountRepository struct {
	mu         sync.Mutex
	accounts   map[string]*domain.Account
	byEmail    map[string]string
	identities map[string]*domain.ProviderIdentity // provider + "\x00" + providerUserID
}

func newFakeAccountRepository() *fakeAccountRepository {
	return &fakeAccountRepository{
		accounts:   make(map[string]*domain.Account),
		byEmail:    make(map[string]string),
		identities: make(map[string]*domain.ProviderIdentity),
	}
}

func identityKey(provider, providerUserID string) string {
	return provider + "\x00" + providerUserID
}

func (r *fakeAccountRepository) Create(_ context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[account.Email]; exists {
		return repository.ErrDuplicateEmail
	}

	stored := *account
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	r.accounts[account.ID] = &stored
	r.byEmail[account.Email] = account.ID
	return nil
}

func (r *fakeAccountRepository) GetByID(_ context.Context, id string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, ok := r.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *account
	return &copied, nil
}

func (r *fakeAccountRepository) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *r.accounts[id]
	return &copied, nil
}

func (r *fakeAccountRepository) GetByProviderIdentity(_ context.Context, provider, providerUserID string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	identity, ok := r.identities[identityKey(provider, providerUserID)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *r.accounts[identity.AccountID]
	return &copied, nil
}

func (r *fakeAccountRepository) LinkIdentity(_ context.Context, identity *domain.ProviderIdentity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := identityKey(identity.Provider, identity.ProviderUserID)
	if _, exists := r.identities[key]; exists {
		return repository.ErrDuplicateIdentity
	}
	for _, existing := range r.identities {
		if existing.AccountID == identity.AccountID && existing.Provider == identity.Provider {
			return repository.ErrProviderAlreadyLinked
		}
	}
	stored := *identity
	r.identities[key] = &stored
	return nil
}

func (r *fakeAccountRepository) UpdateIdentityRefreshCredential(_ context.Context, accountID, provider string, refreshCredential *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, identity := range r.identities {
		if identity.AccountID == accountID && identity.Provider == provider {
			identity.RefreshCredential = refreshCredential
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *fakeAccountRepository) UpdateLastLogin(_ context.Context, accountID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, ok := r.accounts[accountID]
	if !ok {
		return repository.ErrNotFound
	}
	now := time.Now()
	account.LastLoginAt = &now
	return nil
}

func (r *fakeAccountRepository) UpdatePreferences(_ context.Context, accountID string, preferences json.RawMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, ok := r.accounts[accountID]
	if !ok {
		return repository.ErrNotFound
	}
	account.Preferences = preferences
	return nil
}

func (r *fakeAccountRepository) Deactivate(_ context.Context, accountID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, ok := r.accounts[accountID]
	if !ok {
		return repository.ErrNotFound
	}
	account.IsActive = false
	return nil
}

// fakeCredentialRepository is an in-memory CredentialRepository
type fakeCredentialRepository struct {
	mu          sync.Mutex
	credentials map[string]*domain.EncryptedCredential // accountID + "\x00" + provider
}

func newFakeCredentialRepository() *fakeCredentialRepository {
	return &fakeCredentialRepository{credentials: make(map[string]*domain.EncryptedCredential)}
}

func (r *fakeCredentialRepository) Upsert(_ context.Context, credential *domain.EncryptedCredential) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *credential
	stored.CreatedAt = time.Now()
	r.credentials[identityKey(credential.AccountID, credential.Provider)] = &stored
	return nil
}

func (r *fakeCredentialRepository) Get(_ context.Context, accountID, provider string) (*domain.EncryptedCredential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	credential, ok := r.credentials[identityKey(accountID, provider)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *credential
	return &copied, nil
}

func (r *fakeCredentialRepository) ListByAccount(_ context.Context, accountID string) ([]*domain.EncryptedCredential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*domain.EncryptedCredential
	for _, credential := range r.credentials {
		if credential.AccountID == accountID {
			copied := *credential
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeCredentialRepository) Delete(_ context.Context, accountID, provider string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := identityKey(accountID, provider)
	if _, ok := r.credentials[key]; !ok {
		return repository.ErrNotFound
	}
	delete(r.credentials, key)
	return nil
}

func (r *fakeCredentialRepository) TouchLastUsed(_ context.Context, accountID, provider string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	credential, ok := r.credentials[identityKey(accountID, provider)]
	if !ok {
		return repository.ErrNotFound
	}
	now := time.Now()
	credential.LastUsedAt = &now
	return nil
}

// fakeThreadRepository is an in-memory ThreadRepository
type fakeThreadRepository struct {
	mu       sync.Mutex
	threads  map[string]*domain.Thread
	messages map[string][]*domain.Message
}

func newFakeThreadRepository() *fakeThreadRepository {
	return &fakeThreadRepository{
		threads:  make(map[string]*domain.Thread),
		messages: make(map[string][]*domain.Message),
	}
}

func (r *fakeThreadRepository) CreateThread(_ context.Context, thread *domain.Thread) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *thread
	stored.CreatedAt = time.Now()
	r.threads[thread.ID] = &stored
	return nil
}

func (r *fakeThreadRepository) GetThread(_ context.Context, threadID string) (*domain.Thread, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	thread, ok := r.threads[threadID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *thread
	return &copied, nil
}

func (r *fakeThreadRepository) ListThreads(_ context.Context, accountID string) ([]*domain.Thread, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*domain.Thread
	for _, thread := range r.threads {
		if thread.AccountID == accountID {
			copied := *thread
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeThreadRepository) AppendMessage(_ context.Context, message *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *message
	stored.CreatedAt = time.Now()
	r.messages[message.ThreadID] = append(r.messages[message.ThreadID], &stored)
	return nil
}

func (r *fakeThreadRepository) ListMessages(_ context.Context, threadID string) ([]*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*domain.Message
	for _, message := range r.messages[threadID] {
		copied := *message
		out = append(out, &copied)
	}
	return out, nil
}

// fakeLLMClient records calls and replies with canned content
type fakeLLMClient struct {
	mu       sync.Mutex
	lastKey  string
	lastReq  *llm.PromptRequest
	reply    string
	models   []string
	validate error
}

func (c *fakeLLMClient) SendPrompt(_ context.Context, apiKey string, req *llm.PromptRequest) (*llm.PromptResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastKey = apiKey
	c.lastReq = req
	return &llm.PromptResponse{Model: req.Model, Content: c.reply}, nil
}

func (c *fakeLLMClient) StreamPrompt(_ context.Context, apiKey string, req *llm.PromptRequest, fn func(chunk string) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastKey = apiKey
	c.lastReq = req
	return fn(c.reply)
}

func (c *fakeLLMClient) ListModels(_ context.Context, apiKey string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastKey = apiKey
	return c.models, nil
}

func (c *fakeLLMClient) ValidateAPIKey(_ context.Context, apiKey string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastKey = apiKey
	return c.validate
}
