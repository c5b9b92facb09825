package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Megamind2600/resumerocketpro/internal/llm"
)

const defaultBaseURL = "https://api.openai.com/v1"

// maxBody caps how much of a response is read.
const maxBody = 4 << 20

// APIError is a non-2xx answer from the chat completions endpoint.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("openai http status %d: %s (%s)", e.StatusCode, e.Message, e.Type)
	}
	return fmt.Sprintf("openai http status %d: %s", e.StatusCode, e.Message)
}

// Option customises a Client.
type Option func(*Client)

// WithBaseURL points the client at another OpenAI-compatible endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the transport. Deadlines come from the request context.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// Client implements llm.Completer on Chat Completions.
type Client struct {
	apiKey    string
	model     string
	fastModel string
	baseURL   string
	http      *http.Client
}

// NewClient builds a client. fastModel falls back to model when empty.
func NewClient(apiKey, model, fastModel string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("OPENAI_API_KEY is required")
	}
	if strings.TrimSpace(model) == "" {
		return nil, errors.New("LLM_MODEL is required for openai")
	}
	if strings.TrimSpace(fastModel) == "" {
		fastModel = model
	}
	c := &Client{
		apiKey:    apiKey,
		model:     strings.TrimSpace(model),
		fastModel: strings.TrimSpace(fastModel),
		baseURL:   defaultBaseURL,
		http:      http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model          string    `json:"model"`
	Messages       []message `json:"messages"`
	Temperature    *float64  `json:"temperature,omitempty"`
	ResponseFormat *struct {
		Type string `json:"type"`
	} `json:"response_format,omitempty"`
}

type completionResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (c *Client) body(req llm.Request) completionRequest {
	model := c.model
	if req.Tier == llm.TierFast {
		model = c.fastModel
	}
	out := completionRequest{Model: model}
	if sys := strings.TrimSpace(req.System); sys != "" {
		out.Messages = append(out.Messages, message{Role: "system", Content: sys})
	}
	out.Messages = append(out.Messages, message{Role: "user", Content: req.Prompt})
	if req.JSON {
		out.ResponseFormat = &struct {
			Type string `json:"type"`
		}{Type: "json_object"}
	}
	// gpt-5 models only accept the default temperature.
	if !strings.HasPrefix(strings.ToLower(model), "gpt-5") {
		t := 0.2
		out.Temperature = &t
	}
	return out
}

// Complete sends one chat completion and returns the first choice's text.
func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	payload, err := json.Marshal(c.body(req))
	if err != nil {
		return "", fmt.Errorf("openai encode: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("openai request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return "", fmt.Errorf("openai read: %w", err)
	}

	var parsed completionResponse
	decodeErr := json.Unmarshal(raw, &parsed)
	if resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
		if decodeErr == nil && parsed.Error != nil {
			apiErr.Message, apiErr.Type = parsed.Error.Message, parsed.Error.Type
		}
		return "", apiErr
	}
	if decodeErr != nil {
		return "", fmt.Errorf("openai decode: %w", decodeErr)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("openai response has no choices")
	}
	text := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if text == "" {
		return "", llm.ErrEmptyResponse
	}
	return text, nil
}

var _ llm.Completer = (*Client)(nil)
