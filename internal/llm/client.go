package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// LLM client errors
var (
	// ErrInvalidAPIKey is returned when the provider rejects the credential
	ErrInvalidAPIKey = errors.New("provider rejected the API key")

	// ErrProviderUnavailable is returned on transport or 5xx failures
	ErrProviderUnavailable = errors.New("provider is unavailable")

	// ErrUnknownProvider is returned for provider names with no client
	ErrUnknownProvider = errors.New("unknown llm provider")
)

const defaultRequestTimeout = 2 * time.Minute

// Message is one turn of a conversation sent to a provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// PromptRequest is a provider-independent completion request.
type PromptRequest struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens,omitempty"`
}

// PromptResponse is a provider-independent completion result.
type PromptResponse struct {
	Model   string `json:"model"`
	Content string `json:"content"`
}

// Client is the capability every LLM provider adapter satisfies. The API key
// is passed per call; clients hold no credential state.
type Client interface {
	SendPrompt(ctx context.Context, apiKey string, req *PromptRequest) (*PromptResponse, error)
	StreamPrompt(ctx context.Context, apiKey string, req *PromptRequest, fn func(chunk string) error) error
	ListModels(ctx context.Context, apiKey string) ([]string, error)
	ValidateAPIKey(ctx context.Context, apiKey string) error
}

// Registry selects a provider client by name.
type Registry struct {
	clients map[string]Client
}

// NewRegistry creates a registry with the built-in providers
func NewRegistry() *Registry {
	httpClient := &http.Client{Timeout: defaultRequestTimeout}
	return &Registry{
		clients: map[string]Client{
			"openai":    NewOpenAIClient(httpClient, ""),
			"anthropic": NewAnthropicClient(httpClient, ""),
		},
	}
}

// Register adds or replaces the client for a provider name
func (r *Registry) Register(name string, client Client) {
	r.clients[name] = client
}

// Get returns the client for a provider name
func (r *Registry) Get(name string) (Client, error) {
	client, ok := r.clients[name]
	if !ok {
		return nil, fmt.Errorf("provider %q has no client: %w", name, ErrUnknownProvider)
	}
	return client, nil
}

// Names returns the known provider names
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	return names
}

// statusError maps a provider HTTP status to the client error taxonomy.
func statusError(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("provider returned %d: %w", status, ErrInvalidAPIKey)
	case status >= 500:
		return fmt.Errorf("provider returned %d: %w", status, ErrProviderUnavailable)
	default:
		return fmt.Errorf("provider returned unexpected status %d", status)
	}
}
