package anthropic

import "go.uber.org/zap"

// ModelRate is per-model pricing in USD per million tokens. Cache writes and
// reads are billed as multiples of the input rate.
type ModelRate struct {
	Input         float64
	Output        float64
	CacheWriteMul float64
	CacheReadMul  float64
}

// rates lists the models synthesis is expected to run on.
var rates = map[string]ModelRate{
	"claude-haiku-4-5-20251001":  {Input: 0.80, Output: 4.00, CacheWriteMul: 1.25, CacheReadMul: 0.1},
	"claude-sonnet-4-5-20250929": {Input: 3.00, Output: 15.00, CacheWriteMul: 1.25, CacheReadMul: 0.1},
	"claude-opus-4-6":            {Input: 15.00, Output: 75.00, CacheWriteMul: 1.25, CacheReadMul: 0.1},
}

// TokenUsage is the token accounting of one call.
type TokenUsage struct {
	InputTokens              int64
	OutputTokens             int64
	CacheCreationInputTokens int64
	CacheReadInputTokens     int64
}

// EstimateCost returns the USD cost of the usage on model, or 0 when the
// model has no known rate.
func (u TokenUsage) EstimateCost(model string) float64 {
	rate, ok := rates[model]
	if !ok {
		return 0
	}
	perTok := func(n int64, price float64) float64 { return float64(n) / 1e6 * price }
	return perTok(u.InputTokens, rate.Input) +
		perTok(u.OutputTokens, rate.Output) +
		perTok(u.CacheCreationInputTokens, rate.Input*rate.CacheWriteMul) +
		perTok(u.CacheReadInputTokens, rate.Input*rate.CacheReadMul)
}

// LogCost records the usage and its estimated cost against a phase.
func (u TokenUsage) LogCost(model, phase string) {
	zap.L().Info("cost attribution",
		zap.String("model", model),
		zap.String("phase", phase),
		zap.Int64("input_tokens", u.InputTokens),
		zap.Int64("output_tokens", u.OutputTokens),
		zap.Int64("cache_write_tokens", u.CacheCreationInputTokens),
		zap.Int64("cache_read_tokens", u.CacheReadInputTokens),
		zap.Float64("estimated_cost_usd", u.EstimateCost(model)),
	)
}
