// Package anthropic is a thin client over the Anthropic Messages API used
// for answer synthesis.
package anthropic

import (
	"context"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
)

// Client sends single-shot Messages API calls.
type Client interface {
	CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error)
}

type sdkClient struct {
	messages sdk.MessageService
}

// NewClient returns a Client backed by anthropic-sdk-go. opts are appended
// after the API key, so callers can point it at a different base URL or
// change SDK retries.
func NewClient(apiKey string, opts ...option.RequestOption) Client {
	c := sdk.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	return &sdkClient{messages: c.Messages}
}

func (c *sdkClient) CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	msg, err := c.messages.New(ctx, newParams(req))
	if err != nil {
		return nil, eris.Wrapf(err, "anthropic: create message (model %s)", req.Model)
	}
	return toResponse(msg), nil
}

// newParams maps a MessageRequest onto SDK params. Unknown roles are sent as
// user turns.
func newParams(req MessageRequest) sdk.MessageNewParams {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(req.Model),
		MaxTokens: req.MaxTokens,
		Messages:  make([]sdk.MessageParam, 0, len(req.Messages)),
	}

	for _, m := range req.Messages {
		block := sdk.NewTextBlock(m.Content)
		if m.Role == RoleAssistant {
			params.Messages = append(params.Messages, sdk.NewAssistantMessage(block))
		} else {
			params.Messages = append(params.Messages, sdk.NewUserMessage(block))
		}
	}

	for _, b := range req.System {
		p := sdk.TextBlockParam{Text: b.Text}
		if b.CacheControl != nil {
			p.CacheControl = sdk.NewCacheControlEphemeralParam()
			if b.CacheControl.TTL != "" {
				p.CacheControl.TTL = sdk.CacheControlEphemeralTTL(b.CacheControl.TTL)
			}
		}
		params.System = append(params.System, p)
	}

	if req.Temperature != nil {
		params.Temperature = sdk.Float(*req.Temperature)
	}
	return params
}

func toResponse(msg *sdk.Message) *MessageResponse {
	resp := &MessageResponse{
		ID:           msg.ID,
		Model:        string(msg.Model),
		Content:      make([]ContentBlock, 0, len(msg.Content)),
		StopReason:   string(msg.StopReason),
		StopSequence: msg.StopSequence,
		Usage: TokenUsage{
			InputTokens:              msg.Usage.InputTokens,
			OutputTokens:             msg.Usage.OutputTokens,
			CacheCreationInputTokens: msg.Usage.CacheCreationInputTokens,
			CacheReadInputTokens:     msg.Usage.CacheReadInputTokens,
		},
	}
	for _, b := range msg.Content {
		resp.Content = append(resp.Content, ContentBlock{Type: b.Type, Text: b.Text})
	}
	return resp
}
