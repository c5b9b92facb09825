package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/Megamind2600/resumerocketpro/internal/llm"
)

// Client implements llm.Completer on the Gemini API.
type Client struct {
	models      genaiModels
	model       string
	fastModel   string
	temperature float32
}

type genaiModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// NewClient constructs a Gemini client. fastModel falls back to model when empty.
func NewClient(ctx context.Context, apiKey, model, fastModel string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required for Gemini")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return newClient(client.Models, model, fastModel), nil
}

func newClient(models genaiModels, model, fastModel string) *Client {
	if strings.TrimSpace(fastModel) == "" {
		fastModel = model
	}
	return &Client{
		models:      models,
		model:       model,
		fastModel:   fastModel,
		temperature: 0.2,
	}
}

// Complete sends one prompt and returns the response text.
func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	model := c.model
	if req.Tier == llm.TierFast {
		model = c.fastModel
	}

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(c.temperature),
	}
	if strings.TrimSpace(req.System) != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.JSON {
		cfg.ResponseMIMEType = "application/json"
	}

	resp, err := c.models.GenerateContent(ctx, model, genai.Text(req.Prompt), cfg)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("gemini http status %d: %w", apiErr.Code, err)
		}
		return "", fmt.Errorf("gemini generate %s: %w", model, err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", llm.ErrEmptyResponse
	}
	return text, nil
}
