package embedding

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"docintel/internal/adapter/remote"
	"docintel/internal/domain"
)

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint, one text
// per request. Results are never cached.
type OpenAIEmbedder struct {
	model          string
	baseURL        string
	dimension      int
	sendDimensions bool
	client         *http.Client
	policy         remote.Policy
}

type embeddingRequest struct {
	Input      string `json:"input"`
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data  []embeddingData `json:"data"`
	Usage embeddingUsage  `json:"usage"`
	Error *apiError       `json:"error,omitempty"`
}

type embeddingData struct {
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

type embeddingUsage struct {
	PromptTokens int `json:"prompt_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// NewOpenAIEmbedder targets api.openai.com and asks the model to shorten its
// output to dimension components.
func NewOpenAIEmbedder(model string, dimension int, policy remote.Policy) *OpenAIEmbedder {
	e := NewOpenAICompatibleEmbedder(model, "https://api.openai.com/v1", dimension, policy)
	e.sendDimensions = true
	return e
}

func NewOllamaEmbedder(model, baseURL string, dimension int, policy remote.Policy) *OpenAIEmbedder {
	if baseURL == "" {
		baseURL = "http://localhost:11434/v1"
	}
	return NewOpenAICompatibleEmbedder(model, baseURL, dimension, policy)
}

func NewOpenAICompatibleEmbedder(model, baseURL string, dimension int, policy remote.Policy) *OpenAIEmbedder {
	return &OpenAIEmbedder{
		model:     model,
		baseURL:   strings.TrimRight(baseURL, "/"),
		dimension: dimension,
		client:    &http.Client{},
		policy:    policy,
	}
}

// WithSendDimensions toggles the "dimensions" request field.
func (e *OpenAIEmbedder) WithSendDimensions(send bool) *OpenAIEmbedder {
	e.sendDimensions = send
	return e
}

// WithHTTPClient replaces the underlying HTTP client.
func (e *OpenAIEmbedder) WithHTTPClient(c *http.Client) *OpenAIEmbedder {
	e.client = c
	return e
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, apiKey string, text string) ([]float32, error) {
	reqBody := embeddingRequest{
		Input: text,
		Model: e.model,
	}
	if e.sendDimensions {
		reqBody.Dimensions = e.dimension
	}

	var embResp embeddingResponse
	err := e.policy.Do(ctx, "embed", func(ctx context.Context) error {
		embResp = embeddingResponse{}
		return remote.PostJSON(ctx, e.client, e.baseURL+"/embeddings", apiKey, reqBody, &embResp)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbedding, err)
	}

	if embResp.Error != nil {
		return nil, fmt.Errorf("%w: API error: %s", domain.ErrEmbedding, embResp.Error.Message)
	}
	if len(embResp.Data) == 0 {
		return nil, fmt.Errorf("%w: API returned no embedding", domain.ErrEmbedding)
	}

	vec := embResp.Data[0].Embedding
	if err := domain.CheckDimension(vec, e.dimension); err != nil {
		return nil, fmt.Errorf("model %s: %w", e.model, err)
	}
	return vec, nil
}

func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}

func (e *OpenAIEmbedder) ModelName() string {
	return e.model
}
