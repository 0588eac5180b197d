// Package gemini implements the insight.Provider capability on top of the
// Gemini generateContent REST API.
package gemini

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
	defaultModel   = "gemini-2.0-flash-lite"
	defaultBaseURL = "https://generativelanguage.googleapis.com"
)

// Client calls the Gemini API.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithModel sets the Gemini model to use.
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// NewClient creates a Gemini-backed provider.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		model:   defaultModel,
		baseURL: defaultBaseURL,
		// The transport timeout is a backstop; the pipeline bounds each
		// call with its own context deadline.
		httpClient: &http.Client{Timeout: 90 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements insight.Provider.
func (c *Client) Name() string {
	return "gemini"
}

// Generate implements insight.Provider.
func (c *Client) Generate(ctx context.Context, prompt, language string) (string, error) {
	reqBody := generateRequest{
		Contents: []content{
			{Parts: []part{{Text: prompt}}},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", c.wrap(insight.FailureTransient, fmt.Errorf("marshal request: %w", err))
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", c.wrap(insight.FailureTransient, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", c.wrap(insight.FailureTransient, fmt.Errorf("send request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", c.wrap(classifyStatus(resp.StatusCode), fmt.Errorf("unexpected status: %d", resp.StatusCode))
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", c.wrap(insight.FailureTransient, fmt.Errorf("decode response: %w", err))
	}

	if genResp.PromptFeedback != nil && genResp.PromptFeedback.BlockReason != "" {
		return "", c.wrap(insight.FailureContentPolicy, fmt.Errorf("prompt blocked: %s", genResp.PromptFeedback.BlockReason))
	}
	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return "", c.wrap(insight.FailureTransient, fmt.Errorf("empty response"))
	}

	text := strings.TrimSpace(genResp.Candidates[0].Content.Parts[0].Text)
	if text == "" {
		return "", c.wrap(insight.FailureTransient, fmt.Errorf("empty candidate text"))
	}
	return text, nil
}

func (c *Client) wrap(kind insight.FailureKind, err error) error {
	return &insight.ProviderError{Provider: c.Name(), Kind: kind, Err: err}
}

func classifyStatus(code int) insight.FailureKind {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return insight.FailureAuth
	case code == http.StatusTooManyRequests:
		return insight.FailureRateLimited
	case code == http.StatusBadRequest:
		return insight.FailureContentPolicy
	default:
		return insight.FailureTransient
	}
}

// Gemini API types

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates     []candidate     `json:"candidates"`
	PromptFeedback *promptFeedback `json:"promptFeedback,omitempty"`
}

type candidate struct {
	Content content `json:"content"`
}

type promptFeedback struct {
	BlockReason string `json:"blockReason"`
}
