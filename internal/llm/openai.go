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

const openAIBaseURL = "https://api.openai.com/v1"

// OpenAIClient talks to the OpenAI chat completions API. It also serves any
// OpenAI-compatible endpoint via a custom base URL.
type OpenAIClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewOpenAIClient creates a new OpenAI client. An empty baseURL selects the
// public API.
func NewOpenAIClient(httpClient *http.Client, baseURL string) *OpenAIClient {
	if baseURL == "" {
		baseURL = openAIBaseURL
	}
	return &OpenAIClient{httpClient: httpClient, baseURL: baseURL}
}

type openAIChatRequest struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens,omitempty"`
	Stream    bool      `json:"stream,omitempty"`
}

type openAIChatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// SendPrompt sends a completion request and returns the first choice
func (c *OpenAIClient) SendPrompt(ctx context.Context, apiKey string, req *PromptRequest) (*PromptResponse, error) {
	body := openAIChatRequest{
		Model:     req.Model,
		Messages:  req.Messages,
		MaxTokens: req.MaxTokens,
	}

	resp, err := c.post(ctx, apiKey, "/chat/completions", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp.StatusCode)
	}

	var parsed openAIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode completion: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("completion contained no choices")
	}

	return &PromptResponse{
		Model:   parsed.Model,
		Content: parsed.Choices[0].Message.Content,
	}, nil
}

// StreamPrompt sends a streaming completion request and invokes fn per chunk
func (c *OpenAIClient) StreamPrompt(ctx context.Context, apiKey string, req *PromptRequest, fn func(chunk string) error) error {
	body := openAIChatRequest{
		Model:     req.Model,
		Messages:  req.Messages,
		MaxTokens: req.MaxTokens,
		Stream:    true,
	}

	resp, err := c.post(ctx, apiKey, "/chat/completions", body)
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
		payload := strings.TrimPrefix(line, "data: ")
		if payload == "[DONE]" {
			break
		}

		var parsed openAIChatResponse
		if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
			continue
		}
		if len(parsed.Choices) == 0 {
			continue
		}
		if chunk := parsed.Choices[0].Delta.Content; chunk != "" {
			if err := fn(chunk); err != nil {
				return err
			}
		}
	}

	return scanner.Err()
}

// ListModels lists the model ids available to the credential
func (c *OpenAIClient) ListModels(ctx context.Context, apiKey string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)

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
func (c *OpenAIClient) ValidateAPIKey(ctx context.Context, apiKey string) error {
	_, err := c.ListModels(ctx, apiKey)
	return err
}

func (c *OpenAIClient) post(ctx context.Context, apiKey, path string, body interface{}) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", ErrProviderUnavailable)
	}
	return resp, nil
}
