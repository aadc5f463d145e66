package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const (
	anthropicBaseURL    = "https://api.anthropic.com/v1"
	anthropicAPIVersion = "2023-06-01"

	// The messages endpoint requires max_tokens; used when the caller
	// does not set one.
	anthropicDefaultMaxTokens = 1024
)

// AnthropicClient talks to the Anthropic messages API.
type AnthropicClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewAnthropicClient creates a new Anthropic client. An empty baseURL selects
// the public API.
func NewAnthropicClient(httpClient *http.Client, baseURL string) *AnthropicClient {
	if baseURL == "" {
		baseURL = anthropicBaseURL
	}
	return &AnthropicClient{httpClient: httpClient, baseURL: baseURL}
}

type anthropicMessagesRequest struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens"`
	Stream    bool      `json:"stream,omitempty"`
}

type anthropicMessagesResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// SendPrompt sends a messages request and concatenates the text blocks
func (c *AnthropicClient) SendPrompt(ctx context.Context, apiKey string, req *PromptRequest) (*PromptResponse, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = anthropicDefaultMaxTokens
	}

	body := anthropicMessagesRequest{
		Model:     req.Model,
		Messages:  req.Messages,
		MaxTokens: maxTokens,
	}

	resp, err := c.post(ctx, apiKey, "/messages", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp.StatusCode)
	}

	var parsed anthropicMessagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode completion: %w", err)
	}

	var content strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	return &PromptResponse{
		Model:   parsed.Model,
		Content: content.String(),
	}, nil
}

// StreamPrompt sends a streaming messages request and invokes fn per chunk
func (c *AnthropicClient) StreamPrompt(ctx context.Context, apiKey string, req *PromptRequest, fn func(chunk string) error) error {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = anthropicDefaultMaxTokens
	}

	body := anthropicMessagesRequest{
		Model:     req.Model,
		Messages:  req.Messages,
		MaxTokens: maxTokens,
		Stream:    true,
	}

	resp, err := c.post(ctx, apiKey, "/messages", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		var event struct {
			Type  string `json:"type"`
			Delta struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"delta"`
		}
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event); err != nil {
			continue
		}
		if event.Type == "message_stop" {
			break
		}
		if event.Delta.Type == "text_delta" && event.Delta.Text != "" {
			if err := fn(event.Delta.Text); err != nil {
				return err
			}
		}
	}

	return scanner.Err()
}

// ListModels lists the model ids available to the credential
func (c *AnthropicClient) ListModels(ctx context.Context, apiKey string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req, apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", ErrProviderUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp.StatusCode)
	}

	var parsed struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode model list: %w", err)
	}

	models := make([]string, 0, len(parsed.Data))
	for _, m := range parsed.Data {
		models = append(models, m.ID)
	}
	return models, nil
}

// ValidateAPIKey checks the credential against the models endpoint
func (c *AnthropicClient) ValidateAPIKey(ctx context.Context, apiKey string) error {
	_, err := c.ListModels(ctx, apiKey)
	return err
}

func (c *AnthropicClient) post(ctx context.Context, apiKey, path string, body interface{}) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	c.setHeaders(req, apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", ErrProviderUnavailable)
	}
	return resp, nil
}

func (c *AnthropicClient) setHeaders(req *http.Request, apiKey string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("anthropic-version", anthropicAPIVersion)
}
