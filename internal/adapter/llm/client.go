package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"docintel/internal/adapter/remote"
	"docintel/internal/domain"
	"docintel/internal/port"
)

// Client is an OpenAI-compatible chat completion client.
type Client struct {
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
	client      *http.Client
	policy      remote.Policy

	mu    sync.Mutex
	stats Stats
}

// Stats tracks usage across calls.
type Stats struct {
	TotalCalls       int
	TotalInputChars  int
	TotalOutputChars int
}

type chatRequest struct {
	Model       string             `json:"model"`
	Messages    []port.ChatMessage `json:"messages"`
	Temperature float64            `json:"temperature"`
	MaxTokens   int                `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message port.ChatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

var providers = map[string]string{
	"mistral":  "https://api.mistral.ai/v1",
	"openai":   "https://api.openai.com/v1",
	"deepseek": "https://api.deepseek.com/v1",
	"local":    "http://localhost:11434/v1",
}

// Options configures a Client.
type Options struct {
	Provider    string
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	Policy      remote.Policy
}

func NewClient(opts Options) (*Client, error) {
	baseURL := opts.BaseURL
	if baseURL == "" {
		u, ok := providers[opts.Provider]
		if !ok {
			return nil, fmt.Errorf("unknown chat provider: %s (set chat.base_url for custom endpoints)", opts.Provider)
		}
		baseURL = u
	}
	if opts.Model == "" {
		return nil, fmt.Errorf("chat model is required")
	}

	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		model:       opts.Model,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
		client:      &http.Client{},
		policy:      opts.Policy,
	}, nil
}

func (c *Client) Complete(ctx context.Context, apiKey string, messages []port.ChatMessage) (string, error) {
	inputChars := 0
	for _, msg := range messages {
		inputChars += len(msg.Content)
	}

	req := chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}

	var chatResp chatResponse
	err := c.policy.Do(ctx, "chat", func(ctx context.Context) error {
		chatResp = chatResponse{}
		return remote.PostJSON(ctx, c.client, c.baseURL+"/chat/completions", apiKey, req, &chatResp)
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrCompletion, err)
	}

	if chatResp.Error != nil {
		return "", fmt.Errorf("%w: API error: %s", domain.ErrCompletion, chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("%w: no response from model", domain.ErrCompletion)
	}

	output := chatResp.Choices[0].Message.Content

	c.mu.Lock()
	c.stats.TotalCalls++
	c.stats.TotalInputChars += inputChars
	c.stats.TotalOutputChars += len(output)
	c.mu.Unlock()

	return output, nil
}

func (c *Client) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *Client) ModelName() string {
	return c.model
}
