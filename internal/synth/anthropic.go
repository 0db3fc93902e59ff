package synth

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/guarded-chat/pkg/anthropic"
)

// AnthropicProvider synthesizes with the Anthropic Messages API.
type AnthropicProvider struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropicProvider wraps an Anthropic client.
func NewAnthropicProvider(client anthropic.Client, model string, maxTokens int) *AnthropicProvider {
	return &AnthropicProvider{client: client, model: model, maxTokens: int64(maxTokens)}
}

// Name implements Provider.
func (p *AnthropicProvider) Name() string { return "anthropic" }

// Synthesize implements Provider. The system policy never changes between
// calls, so it is sent as a cached block.
func (p *AnthropicProvider) Synthesize(ctx context.Context, systemPolicy, userContent string) (string, error) {
	resp, err := p.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     p.model,
		MaxTokens: p.maxTokens,
		System:    anthropic.BuildCachedSystemBlocks(systemPolicy),
		Messages:  []anthropic.Message{{Role: anthropic.RoleUser, Content: userContent}},
	})
	if err != nil {
		return "", eris.Wrap(err, "synth: anthropic")
	}
	resp.Usage.LogCost(p.model, "synthesis")
	if resp.Truncated() {
		zap.L().Warn("synth: anthropic answer hit max tokens",
			zap.String("model", p.model),
			zap.Int64("max_tokens", p.maxTokens),
		)
	}
	return resp.Text(), nil
}
