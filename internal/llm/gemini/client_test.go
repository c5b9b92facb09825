package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/Megamind2600/resumerocketpro/internal/llm"
)

type fakeModels struct {
	model  string
	config *genai.GenerateContentConfig
	prompt string
	resp   *genai.GenerateContentResponse
	err    error
}

func (f *fakeModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.config = config
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.prompt = contents[0].Parts[0].Text
	}
	return f.resp, f.err
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: genai.NewContentFromText(text, genai.RoleModel),
		}},
	}
}

func TestCompleteSelectsModelByTier(t *testing.T) {
	fake := &fakeModels{resp: textResponse(`{"ok":true}`)}
	client := newClient(fake, "gemini-2.5-pro", "gemini-2.5-flash")

	out, err := client.Complete(context.Background(), llm.Request{Tier: llm.TierAnalysis, System: "sys", Prompt: "hello", JSON: true})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out)
	assert.Equal(t, "gemini-2.5-pro", fake.model)
	assert.Equal(t, "hello", fake.prompt)
	assert.Equal(t, "application/json", fake.config.ResponseMIMEType)
	require.NotNil(t, fake.config.SystemInstruction)

	_, err = client.Complete(context.Background(), llm.Request{Tier: llm.TierFast, Prompt: "letter"})
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-flash", fake.model)
	assert.Empty(t, fake.config.ResponseMIMEType)
	assert.Nil(t, fake.config.SystemInstruction)
}

func TestCompleteFastModelDefaultsToMain(t *testing.T) {
	fake := &fakeModels{resp: textResponse("text")}
	client := newClient(fake, "gemini-2.5-pro", "")

	_, err := client.Complete(context.Background(), llm.Request{Tier: llm.TierFast, Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-pro", fake.model)
}

func TestCompleteEmptyResponse(t *testing.T) {
	fake := &fakeModels{resp: textResponse("   ")}
	client := newClient(fake, "m", "")

	_, err := client.Complete(context.Background(), llm.Request{Prompt: "x"})
	assert.ErrorIs(t, err, llm.ErrEmptyResponse)
}

func TestCompleteWrapsAPIError(t *testing.T) {
	fake := &fakeModels{err: genai.APIError{Code: 503, Message: "overloaded"}}
	client := newClient(fake, "m", "")

	_, err := client.Complete(context.Background(), llm.Request{Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gemini http status 503")
	var apiErr genai.APIError
	assert.True(t, errors.As(err, &apiErr))
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(context.Background(), "", "gemini-2.5-pro", "")
	assert.Error(t, err)
}
