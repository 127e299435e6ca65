package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/nhle/inboxdigest/internal/model"
)

// Supported providers.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

const (
	defaultModel            = "claude-sonnet-4-5-20250929"
	defaultMaxTokens        = 1024
	defaultTimeout          = 60 * time.Second
	defaultAnthropicBaseURL = "https://api.anthropic.com/v1"
	defaultOpenAIBaseURL    = "https://api.openai.com/v1"
	anthropicVersion        = "2023-06-01"
)

// Answerer turns a free-text prompt into a free-text answer.
type Answerer interface {
	Ask(ctx context.Context, prompt string) (string, error)
}

// Client is an Answerer backed by a remote chat-completion API. Each Ask
// is a single request with no retries.
type Client struct {
	provider  string
	baseURL   string
	model     string
	maxTokens int
	apiKey    string
	timeout   time.Duration
	client    *http.Client
	logger    *slog.Logger
	observe   func(provider string, elapsed time.Duration, err error)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithObserver registers a callback invoked after every request.
func WithObserver(fn func(provider string, elapsed time.Duration, err error)) Option {
	return func(c *Client) { c.observe = fn }
}

// NewClient creates a Client from the AI configuration.
func NewClient(cfg model.AIConfig, opts ...Option) *Client {
	c := &Client{
		provider:  strings.ToLower(cfg.Provider),
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		apiKey:    cfg.APIKey,
		timeout:   cfg.Timeout,
	}
	if c.provider == "" {
		c.provider = ProviderAnthropic
	}
	if c.model == "" {
		c.model = defaultModel
	}
	if c.maxTokens <= 0 {
		c.maxTokens = defaultMaxTokens
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if c.baseURL == "" {
		if c.provider == ProviderOpenAI {
			c.baseURL = defaultOpenAIBaseURL
		} else {
			c.baseURL = defaultAnthropicBaseURL
		}
	}

	for _, opt := range opts {
		opt(c)
	}
	if c.client == nil {
		c.client = &http.Client{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Provider returns the configured provider name.
func (c *Client) Provider() string { return c.provider }

// Ask sends prompt as a single user message and returns the text answer.
// All failures are *ProviderError.
func (c *Client) Ask(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	answer, status, err := c.call(ctx, prompt)
	elapsed := time.Since(start)

	if err != nil {
		err = &ProviderError{Provider: c.provider, StatusCode: status, Err: err}
	}
	if c.observe != nil {
		c.observe(c.provider, elapsed, err)
	}
	if err != nil {
		c.logger.Debug("answering service request failed",
			"provider", c.provider,
			"duration", elapsed,
			"error", err,
		)
		return "", err
	}
	return answer, nil
}

func (c *Client) call(ctx context.Context, prompt string) (string, int, error) {
	if c.apiKey == "" {
		return "", 0, errors.New("API key is not configured")
	}

	switch c.provider {
	case ProviderAnthropic:
		return c.callAnthropic(ctx, prompt)
	case ProviderOpenAI:
		return c.callOpenAI(ctx, prompt)
	default:
		return "", 0, fmt.Errorf("unsupported provider %q", c.provider)
	}
}

// callAnthropic makes a single request to the Claude Messages API.
func (c *Client) callAnthropic(ctx context.Context, prompt string) (string, int, error) {
	reqBody := anthropicRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []anthropicMessage{{
			Role:    "user",
			Content: []anthropicContentBlock{{Type: "text", Text: prompt}},
		}},
	}

	headers := map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": anthropicVersion,
	}

	var result anthropicResponse
	status, err := c.post(ctx, c.baseURL+"/messages", headers, reqBody, &result)
	if err != nil {
		return "", status, err
	}

	var parts []string
	for _, block := range result.Content {
		if block.Type == "text" {
			parts = append(parts, block.Text)
		}
	}
	if len(parts) == 0 {
		return "", status, errors.New("response contained no text")
	}
	return strings.Join(parts, ""), status, nil
}

// callOpenAI makes a single request to an OpenAI-compatible chat
// completions endpoint.
func (c *Client) callOpenAI(ctx context.Context, prompt string) (string, int, error) {
	reqBody := openAIRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages:  []openAIMessage{{Role: "user", Content: prompt}},
	}

	headers := map[string]string{
		"Authorization": "Bearer " + c.apiKey,
	}

	var result openAIResponse
	status, err := c.post(ctx, c.baseURL+"/chat/completions", headers, reqBody, &result)
	if err != nil {
		return "", status, err
	}

	if len(result.Choices) == 0 {
		return "", status, errors.New("response contained no choices")
	}
	return result.Choices[0].Message.Content, status, nil
}

// post sends body as JSON and decodes a 2xx response into out.
func (c *Client) post(
	ctx context.Context,
	url string,
	headers map[string]string,
	body any,
	out any,
) (int, error) {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("calling %s API: %w", c.provider, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr apiErrorResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return resp.StatusCode, fmt.Errorf("API error (%d): %s", resp.StatusCode, apiErr.Error.Message)
		}
		return resp.StatusCode, fmt.Errorf("API error (%d): %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return resp.StatusCode, fmt.Errorf("decoding response: %w", err)
	}
	return resp.StatusCode, nil
}

// --- Anthropic API types ---

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string                  `json:"role"`
	Content []anthropicContentBlock `json:"content"`
}

type anthropicContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type anthropicResponse struct {
	ID         string                  `json:"id"`
	Content    []anthropicContentBlock `json:"content"`
	StopReason string                  `json:"stop_reason"`
}

// --- OpenAI-compatible API types ---

type openAIRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens,omitempty"`
	Messages  []openAIMessage `json:"messages"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
}

// apiErrorResponse matches the error envelope used by both providers.
type apiErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}
