package synth

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/guarded-chat/internal/config"
	"github.com/sells-group/guarded-chat/pkg/anthropic"
)

// NewProvider builds the provider named by synthesis.provider. It returns
// nil for "none" (or unset), which disables synthesis.
func NewProvider(ctx context.Context, cfg *config.Config) (Provider, error) {
	switch cfg.Synthesis.Provider {
	case "", config.ProviderNone:
		return nil, nil
	case config.ProviderAnthropic:
		return NewAnthropicProvider(anthropic.NewClient(cfg.Anthropic.Key), cfg.Anthropic.Model, cfg.Synthesis.MaxTokens), nil
	case config.ProviderAzure:
		return NewAzureProvider(cfg.Azure.Key, cfg.Azure.Endpoint, cfg.Azure.APIVersion, cfg.Azure.Deployment, cfg.Synthesis.MaxTokens), nil
	case config.ProviderGemini:
		p, err := NewGeminiProvider(ctx, cfg.Gemini.Key, cfg.Gemini.Model, cfg.Synthesis.MaxTokens)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, eris.Errorf("synth: unknown provider %q", cfg.Synthesis.Provider)
	}
}
