// Package openai implements the insight.Provider capability against any
// OpenAI-compatible chat completions endpoint.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"spendbot/internal/insight"
)

const (
	defaultModel   = "gpt-4o-mini"
	defaultBaseURL = "https://api.openai.com"
)

// Client calls a chat completions endpoint.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithModel sets the model to use.
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithBaseURL points the client at a compatible endpoint (or a test server).
func WithBaseURL(url string) Option {
	return func(c *Client) {
		if url != "" {
			c.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// NewClient creates an OpenAI-backed provider.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		model:      defaultModel,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 90 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements insight.Provider.
func (c *Client) Name() string {
	return "openai"
}

// Generate implements insight.Provider.
func (c *Client) Generate(ctx context.Context, prompt, language string) (string, error) {
	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: "You write short, plain-text personal finance summaries."},
			{Role: "user", Content: prompt},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", c.wrap(insight.FailureTransient, fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", c.wrap(insight.FailureTransient, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", c.wrap(insight.FailureTransient, fmt.Errorf("send request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", c.wrap(classifyStatus(resp.StatusCode), fmt.Errorf("unexpected status: %d", resp.StatusCode))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", c.wrap(insight.FailureTransient, fmt.Errorf("decode response: %w", err))
	}

	if len(chatResp.Choices) == 0 {
		return "", c.wrap(insight.FailureTransient, fmt.Errorf("no choices in response"))
	}
	choice := chatResp.Choices[0]
	if choice.FinishReason == "content_filter" {
		return "", c.wrap(insight.FailureContentPolicy, fmt.Errorf("response filtered"))
	}

	text := strings.TrimSpace(choice.Message.Content)
	if text == "" {
		return "", c.wrap(insight.FailureTransient, fmt.Errorf("empty choice text"))
	}
	return text, nil
}

func (c *Client) wrap(kind insight.FailureKind, err error) error {
	return &insight.ProviderError{Provider: c.Name(), Kind: kind, Err: err}
}

func classifyStatus(code int) insight.FailureKind {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return insight.FailureAuth
	case http.StatusTooManyRequests:
		return insight.FailureRateLimited
	default:
		return insight.FailureTransient
	}
}

// Chat completions API types

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
}

type chatChoice struct {
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}
