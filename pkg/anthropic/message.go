package anthropic

import "strings"

// Role values accepted in Message.Role.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// stopMaxTokens is the stop reason reported when output hit MaxTokens.
const stopMaxTokens = "max_tokens"

// MessageRequest is a single Messages API call.
type MessageRequest struct {
	Model       string
	MaxTokens   int64
	System      []SystemBlock
	Messages    []Message
	Temperature *float64
}

// SystemBlock is one system prompt block. A non-nil CacheControl marks a
// prompt-cache breakpoint.
type SystemBlock struct {
	Text         string
	CacheControl *CacheControl
}

// CacheControl sets the TTL of a cache breakpoint ("5m" or "1h").
type CacheControl struct {
	TTL string
}

// Message is one conversational turn.
type Message struct {
	Role    string
	Content string
}

// ContentBlock is a block of model output.
type ContentBlock struct {
	Type string
	Text string
}

// MessageResponse is the result of CreateMessage.
type MessageResponse struct {
	ID           string
	Model        string
	Content      []ContentBlock
	StopReason   string
	StopSequence string
	Usage        TokenUsage
}

// Text returns the first text block that is not blank, or "" when there is
// none.
func (r *MessageResponse) Text() string {
	for _, b := range r.Content {
		if b.Type == "text" && strings.TrimSpace(b.Text) != "" {
			return b.Text
		}
	}
	return ""
}

// Truncated reports whether generation stopped at the token limit.
func (r *MessageResponse) Truncated() bool {
	return r.StopReason == stopMaxTokens
}

// BuildCachedSystemBlocks returns text as a single system block with a 5m
// cache breakpoint, or nil for empty text.
func BuildCachedSystemBlocks(text string) []SystemBlock {
	if text == "" {
		return nil
	}
	return []SystemBlock{{Text: text, CacheControl: &CacheControl{TTL: "5m"}}}
}
