package synth

import (
	"context"

	"github.com/rotisserie/eris"
	"google.golang.org/genai"
)

// contentGenerator is the slice of genai.Models the Gemini provider uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiProvider synthesizes with the Gemini API.
type GeminiProvider struct {
	models    contentGenerator
	model     string
	maxTokens int32
}

// NewGeminiProvider creates a Gemini API client.
func NewGeminiProvider(ctx context.Context, apiKey, model string, maxTokens int) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, eris.Wrap(err, "synth: create gemini client")
	}
	return &GeminiProvider{models: client.Models, model: model, maxTokens: int32(maxTokens)}, nil
}

// Name implements Provider.
func (p *GeminiProvider) Name() string { return "gemini" }

// Synthesize implements Provider.
func (p *GeminiProvider) Synthesize(ctx context.Context, systemPolicy, userContent string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPolicy, genai.RoleUser),
	}
	if p.maxTokens > 0 {
		cfg.MaxOutputTokens = p.maxTokens
	}

	resp, err := p.models.GenerateContent(ctx, p.model, genai.Text(userContent), cfg)
	if err != nil {
		return "", eris.Wrap(err, "synth: gemini generate content")
	}
	return resp.Text(), nil
}
