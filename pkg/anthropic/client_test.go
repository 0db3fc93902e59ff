package anthropic

import (
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageResponse_Text(t *testing.T) {
	tests := []struct {
		name    string
		content []ContentBlock
		want    string
	}{
		{"empty", nil, ""},
		{"single", []ContentBlock{{Type: "text", Text: "one"}}, "one"},
		{"first of several", []ContentBlock{{Type: "text", Text: "one"}, {Type: "text", Text: "two"}}, "one"},
		{"skips whitespace only", []ContentBlock{{Type: "text", Text: " \n"}, {Type: "text", Text: "two"}}, "two"},
		{"skips non-text", []ContentBlock{{Type: "tool_use"}, {Type: "text", Text: "two"}}, "two"},
		{"skips blank", []ContentBlock{{Type: "text"}, {Type: "text", Text: "two"}}, "two"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &MessageResponse{Content: tt.content}
			assert.Equal(t, tt.want, r.Text())
		})
	}
}

func TestBuildCachedSystemBlocks(t *testing.T) {
	blocks := BuildCachedSystemBlocks("policy")
	require.Len(t, blocks, 1)
	assert.Equal(t, "policy", blocks[0].Text)
	require.NotNil(t, blocks[0].CacheControl)
	assert.Equal(t, "5m", blocks[0].CacheControl.TTL)

	assert.Nil(t, BuildCachedSystemBlocks(""))
}

func TestToResponse(t *testing.T) {
	sdkMsg := &sdk.Message{
		ID:           "msg_test_123",
		Model:        "claude-sonnet-4-5-20250929",
		StopReason:   "end_turn",
		StopSequence: "STOP",
		Content: []sdk.ContentBlockUnion{
			{Type: "text", Text: "Hello world"},
			{Type: "text", Text: "Second block"},
		},
		Usage: sdk.Usage{
			InputTokens:              100,
			OutputTokens:             50,
			CacheCreationInputTokens: 2000,
			CacheReadInputTokens:     3000,
		},
	}

	resp := toResponse(sdkMsg)
	require.NotNil(t, resp)
	assert.Equal(t, "msg_test_123", resp.ID)
	assert.Equal(t, "STOP", resp.StopSequence)
	require.Len(t, resp.Content, 2)
	assert.Equal(t, "Hello world", resp.Text())
	assert.Equal(t, int64(2000), resp.Usage.CacheCreationInputTokens)
	assert.Equal(t, int64(3000), resp.Usage.CacheReadInputTokens)
	assert.False(t, resp.Truncated())
}

func TestToResponse_Truncated(t *testing.T) {
	resp := toResponse(&sdk.Message{ID: "msg_empty", StopReason: "max_tokens"})
	require.NotNil(t, resp)
	assert.Empty(t, resp.Content)
	assert.True(t, resp.Truncated())
}

func TestNewParams(t *testing.T) {
	temp := 0.2
	params := newParams(MessageRequest{
		Model:     "claude-haiku-4-5-20251001",
		MaxTokens: 256,
		System: []SystemBlock{
			{Text: "First block"},
			{Text: "Second block", CacheControl: &CacheControl{TTL: "5m"}},
		},
		Messages: []Message{
			{Role: RoleUser, Content: "Question"},
			{Role: RoleAssistant, Content: "Answer"},
			{Role: "unknown", Content: "defaults to user"},
		},
		Temperature: &temp,
	})

	assert.Equal(t, sdk.Model("claude-haiku-4-5-20251001"), params.Model)
	assert.Equal(t, int64(256), params.MaxTokens)

	require.Len(t, params.Messages, 3)
	assert.Equal(t, sdk.MessageParamRoleUser, params.Messages[0].Role)
	assert.Equal(t, sdk.MessageParamRoleAssistant, params.Messages[1].Role)
	assert.Equal(t, sdk.MessageParamRoleUser, params.Messages[2].Role)

	require.Len(t, params.System, 2)
	assert.Equal(t, "First block", params.System[0].Text)
	assert.Equal(t, sdk.CacheControlEphemeralTTL("5m"), params.System[1].CacheControl.TTL)

	assert.True(t, params.Temperature.Valid())
	assert.InDelta(t, 0.2, params.Temperature.Value, 1e-9)
}

func TestNewParams_Minimal(t *testing.T) {
	params := newParams(MessageRequest{Model: "m", MaxTokens: 1})
	assert.Empty(t, params.Messages)
	assert.Empty(t, params.System)
	assert.False(t, params.Temperature.Valid())
}

func TestNewClient_ReturnsNonNil(t *testing.T) {
	client := NewClient("test-api-key")
	require.NotNil(t, client)
}

func TestEstimateCost(t *testing.T) {
	tests := []struct {
		name  string
		model string
		usage TokenUsage
		want  float64
	}{
		{"haiku", "claude-haiku-4-5-20251001", TokenUsage{InputTokens: 1_000_000, OutputTokens: 1_000_000}, 4.80},
		{"sonnet", "claude-sonnet-4-5-20250929", TokenUsage{InputTokens: 1_000_000, OutputTokens: 1_000_000}, 18.00},
		{"opus", "claude-opus-4-6", TokenUsage{InputTokens: 1_000_000, OutputTokens: 1_000_000}, 90.00},
		{
			"with cache",
			"claude-haiku-4-5-20251001",
			TokenUsage{InputTokens: 500_000, OutputTokens: 100_000, CacheCreationInputTokens: 200_000, CacheReadInputTokens: 300_000},
			1.024,
		},
		{"unknown model", "unknown-model", TokenUsage{InputTokens: 1_000_000}, 0},
		{"zero tokens", "claude-haiku-4-5-20251001", TokenUsage{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.usage.EstimateCost(tt.model), 0.001)
		})
	}
}

func TestLogCost_DoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		usage := TokenUsage{InputTokens: 100, OutputTokens: 50}
		usage.LogCost("claude-sonnet-4-5-20250929", "synthesis")
	})
	assert.NotPanics(t, func() {
		TokenUsage{}.LogCost("unknown-model", "")
	})
}
