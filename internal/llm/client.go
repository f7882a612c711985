// Package llm wraps the OpenAI chat completion API for the local service's
// niche, clustering and idea prompts.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	openai "github.com/sashabaranov/go-openai"
)

// ErrNotConfigured is returned when no API key has been set.
var ErrNotConfigured = errors.New("OpenAI API key not configured")

// ErrMalformedJSON means the reply held JSON that did not fit the target type.
var ErrMalformedJSON = errors.New("malformed model JSON")

// Config 客户端配置 / Client configuration
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	TimeoutMS   int
	MaxRetries  int
	Temperature float32
}

// Client 基于 go-openai SDK 的补全客户端，API key 可在运行时替换
// Client is a go-openai based completion client whose API key can be replaced at runtime
type Client struct {
	mu     sync.RWMutex
	client *openai.Client
	cfg    Config
}

func New(cfg Config) *Client {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}
	c := &Client{cfg: cfg}
	c.client = c.build(cfg.APIKey)
	return c
}

func (c *Client) build(apiKey string) *openai.Client {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil
	}
	config := openai.DefaultConfig(apiKey)
	if base := strings.TrimRight(strings.TrimSpace(c.cfg.BaseURL), "/"); base != "" {
		config.BaseURL = base
	}
	httpClient := &http.Client{}
	if c.cfg.TimeoutMS > 0 {
		httpClient.Timeout = time.Duration(c.cfg.TimeoutMS) * time.Millisecond
	}
	config.HTTPClient = httpClient
	return openai.NewClientWithConfig(config)
}

// SetAPIKey replaces the key used for subsequent calls.
func (c *Client) SetAPIKey(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg.APIKey = strings.TrimSpace(key)
	c.client = c.build(c.cfg.APIKey)
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client != nil
}

func (c *Client) Model() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg.Model
}

// Complete sends a system and user prompt and returns the reply text.
// Transient failures are retried with exponential backoff.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	c.mu.RLock()
	client, cfg := c.client, c.cfg
	c.mu.RUnlock()
	if client == nil {
		return "", ErrNotConfigured
	}

	req := openai.ChatCompletionRequest{
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	}

	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(150*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		resp, err := client.CreateChatCompletion(ctx, req)
		if err == nil {
			if len(resp.Choices) == 0 {
				return "", errors.New("completion returned no choices")
			}
			return resp.Choices[0].Message.Content, nil
		}
		lastErr = err

		// 不可重试的错误 / Non-retryable errors
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		if !retryable(err) {
			return "", fmt.Errorf("chat completion: %w", err)
		}
	}
	return "", fmt.Errorf("chat completion failed after %d retries: %w", cfg.MaxRetries, lastErr)
}

// CompleteJSON runs Complete and decodes the JSON found in the reply into out.
func (c *Client) CompleteJSON(ctx context.Context, system, user string, out any) error {
	text, err := c.Complete(ctx, system, user)
	if err != nil {
		return err
	}
	raw, err := ExtractJSON(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	return nil
}

func retryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}
	return true
}
