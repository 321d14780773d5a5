// Package vlm implements a client for OpenAI-compatible vision-language
// endpoints. It covers the chat-completions surface the extraction pipeline
// needs: text prompts, base64 image attachments and optional JSON-object
// response formatting.
package vlm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultTimeout = 120 * time.Second
)

// Config contains connection settings for the VLM endpoint
type Config struct {
	APIKey            string
	BaseURL           string
	Model             string
	MaxTokens         int
	Temperature       float64
	RequestsPerSecond float64
}

// Client talks to an OpenAI-compatible chat-completions API
type Client struct {
	config     Config
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a new VLM client
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("vlm: api key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("vlm: model is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")

	// The rate limiter is shared across all goroutines using this client,
	// which keeps parallel section workers inside the endpoint's quota.
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: defaultTimeout},
		limiter:    rate.NewLimiter(limit, 1),
	}, nil
}

// Request describes a single chat completion. Image, when set, is a
// base64-encoded PNG attached to the user message.
type Request struct {
	System      string
	User        string
	Image       string
	Detail      string // image detail hint, e.g. "high"
	JSONObject  bool   // request response_format {"type": "json_object"}
	MaxTokens   int    // overrides the client default when > 0
	Temperature *float64
}

type apiRequest struct {
	Model          string          `json:"model"`
	Messages       []apiMessage    `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// apiMessage content is either a plain string or a list of content parts,
// so it marshals through json.RawMessage.
type apiMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type apiResponse struct {
	ID      string      `json:"id"`
	Model   string      `json:"model"`
	Choices []apiChoice `json:"choices"`
	Usage   *apiUsage   `json:"usage,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

type apiChoice struct {
	Index        int                `json:"index"`
	Message      apiResponseMessage `json:"message"`
	FinishReason string             `json:"finish_reason"`
}

type apiResponseMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// Complete sends a chat completion and returns the assistant text
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("vlm: rate limit wait: %w", err)
	}

	apiReq, err := c.buildRequest(req)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(apiReq)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.config.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	requestID := uuid.New().String()
	started := time.Now()
	log.Debug().
		Str("request_id", requestID).
		Str("model", c.config.Model).
		Bool("has_image", req.Image != "").
		Bool("json_mode", req.JSONObject).
		Msg("Sending VLM request")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if apiResp.Error != nil {
		return "", fmt.Errorf("vlm error: %s (type: %s, code: %s)",
			apiResp.Error.Message, apiResp.Error.Type, apiResp.Error.Code)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("vlm returned status %d: %s", resp.StatusCode, string(respBody))
	}
	if len(apiResp.Choices) == 0 {
		return "", fmt.Errorf("vlm response contained no choices")
	}

	content := apiResp.Choices[0].Message.Content
	event := log.Debug().
		Str("request_id", requestID).
		Dur("elapsed", time.Since(started)).
		Int("content_length", len(content))
	if apiResp.Usage != nil {
		event = event.Int("total_tokens", apiResp.Usage.TotalTokens)
	}
	event.Msg("VLM request completed")

	return content, nil
}

func (c *Client) buildRequest(req Request) (*apiRequest, error) {
	var messages []apiMessage

	if req.System != "" {
		content, err := json.Marshal(req.System)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal system message: %w", err)
		}
		messages = append(messages, apiMessage{Role: "system", Content: content})
	}

	var userContent any = req.User
	if req.Image != "" {
		parts := []contentPart{
			{Type: "text", Text: req.User},
			{Type: "image_url", ImageURL: &imageURL{
				URL:    "data:image/png;base64," + req.Image,
				Detail: req.Detail,
			}},
		}
		userContent = parts
	}
	content, err := json.Marshal(userContent)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal user message: %w", err)
	}
	messages = append(messages, apiMessage{Role: "user", Content: content})

	maxTokens := c.config.MaxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}
	temperature := c.config.Temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}

	apiReq := &apiRequest{
		Model:       c.config.Model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}
	if req.JSONObject {
		apiReq.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	return apiReq, nil
}

// Close releases idle connections
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
