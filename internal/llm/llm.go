package llm

import (
	"context"
	"errors"
	"strings"
)

// Tier selects which configured model serves a request.
type Tier string

const (
	// TierAnalysis is used for structured analysis (roles, job match).
	TierAnalysis Tier = "analysis"
	// TierFast is used for free-text generation (resume, cover letter).
	TierFast Tier = "fast"
)

// Request is a single prompt sent to a provider.
type Request struct {
	Tier   Tier
	System string
	Prompt string
	// JSON asks the provider for a JSON object response.
	JSON bool
}

// Completer abstracts LLM providers.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

var (
	// ErrNotConfigured is returned by the placeholder completer.
	ErrNotConfigured = errors.New("llm provider not configured")
	// ErrEmptyResponse is returned when a provider answers with no text.
	ErrEmptyResponse = errors.New("empty llm response")
	// ErrInvalidOutput is returned when model output does not match the expected shape.
	ErrInvalidOutput = errors.New("invalid llm output")
)

// PlaceholderClient answers every request with ErrNotConfigured.
type PlaceholderClient struct{}

// Complete returns ErrNotConfigured.
func (PlaceholderClient) Complete(ctx context.Context, req Request) (string, error) {
	_ = ctx
	_ = req
	return "", ErrNotConfigured
}

// stripCodeFence removes a surrounding markdown code fence, if any.
func stripCodeFence(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if idx := strings.Index(text, "\n"); idx >= 0 {
		// drop the language tag line
		text = text[idx+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
