// Package synth turns an assistant answer and its guardrail assessment into a
// final guarded answer using an LLM provider.
package synth

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/guarded-chat/internal/model"
)

// Provider is an LLM that completes a single system + user exchange.
type Provider interface {
	Name() string
	Synthesize(ctx context.Context, systemPolicy, userContent string) (string, error)
}

// Input is everything the synthesis prompt is built from.
type Input struct {
	Prompt     string
	Answer     string
	Assessment model.GuardrailAssessment
	Sources    []model.SourceFlag
}

// Synthesizer runs the synthesis pass. A Synthesizer with no provider is
// disabled and always reports unavailable.
type Synthesizer struct {
	provider Provider
}

// New creates a Synthesizer. A nil provider disables synthesis.
func New(p Provider) *Synthesizer {
	return &Synthesizer{provider: p}
}

// Enabled reports whether a provider is configured.
func (s *Synthesizer) Enabled() bool {
	return s != nil && s.provider != nil
}

// ProviderName returns the configured provider name, or "" when disabled.
func (s *Synthesizer) ProviderName() string {
	if !s.Enabled() {
		return ""
	}
	return s.provider.Name()
}

// Synthesize returns the provider's trimmed answer and true, or "" and false
// when synthesis is disabled, fails, or produces blank output. Failures are
// logged and never returned.
func (s *Synthesizer) Synthesize(ctx context.Context, in Input) (string, bool) {
	if !s.Enabled() {
		return "", false
	}

	out, err := s.provider.Synthesize(ctx, SystemPolicy, BuildUserContent(in))
	if err != nil {
		zap.L().Warn("synth: provider call failed, using fallback",
			zap.String("provider", s.provider.Name()),
			zap.Error(err),
		)
		return "", false
	}

	out = strings.TrimSpace(out)
	if out == "" {
		zap.L().Warn("synth: provider returned no text, using fallback",
			zap.String("provider", s.provider.Name()),
		)
		return "", false
	}
	return out, true
}
