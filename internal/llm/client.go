// Package llm turns packed retrieval context into grounded answers
// via a chat-completion model.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	ragerr "github.com/studydeck/studyrag/internal/errors"
)

// Default chat-completion settings.
const (
	DefaultChatBaseURL = "https://api.openai.com/v1"
	DefaultChatModel   = "gpt-4o-mini"
	DefaultChatTimeout = 60 * time.Second

	// Low temperature keeps answers anchored to the supplied context.
	chatTemperature = 0.2
)

// ChatClient sends one system+user exchange and returns the model's
// reply.
type ChatClient interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// ChatConfig configures an OpenAIChatClient.
type ChatConfig struct {
	APIKey  string
	BaseURL string // Default: https://api.openai.com/v1
	Model   string // Default: gpt-4o-mini
	Timeout time.Duration
}

// OpenAIChatClient is a minimal OpenAI-compatible chat-completions
// client.
type OpenAIChatClient struct {
	client *http.Client
	config ChatConfig
}

var _ ChatClient = (*OpenAIChatClient)(nil)

// NewOpenAIChatClient creates a chat client. A missing API key is a
// configuration error, reported immediately rather than on first use.
func NewOpenAIChatClient(cfg ChatConfig) (*OpenAIChatClient, error) {
	if cfg.APIKey == "" {
		return nil, ragerr.New(ragerr.ErrCodeCredentialsMissing,
			"OpenAI API key is not set", nil).
			WithSuggestion("set OPENAI_API_KEY to enable answer synthesis")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultChatBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultChatModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultChatTimeout
	}

	return &OpenAIChatClient{
		client: &http.Client{},
		config: cfg,
	}, nil
}

// chat API request/response shapes
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete issues one chat-completion request with a per-call timeout.
func (c *OpenAIChatClient) Complete(ctx context.Context, system, user string) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	body, err := json.Marshal(chatRequest{
		Model: c.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: chatTemperature,
	})
	if err != nil {
		return "", ragerr.Wrap(ragerr.ErrCodeInternal, err)
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.config.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", ragerr.Wrap(ragerr.ErrCodeInternal, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return "", ragerr.New(ragerr.ErrCodeServiceTimeout,
				fmt.Sprintf("chat request timed out after %s", c.config.Timeout), err)
		}
		return "", ragerr.New(ragerr.ErrCodeServiceUnavailable,
			"chat service unreachable", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		code := ragerr.ErrCodeServiceRejected
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			code = ragerr.ErrCodeServiceUnavailable
		}
		return "", ragerr.New(code,
			fmt.Sprintf("chat service returned %d: %s", resp.StatusCode, string(msg)), nil)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", ragerr.New(ragerr.ErrCodeServiceRejected, "malformed chat response", err)
	}
	if len(parsed.Choices) == 0 {
		return "", ragerr.New(ragerr.ErrCodeServiceRejected, "chat response has no choices", nil)
	}
	return parsed.Choices[0].Message.Content, nil
}
