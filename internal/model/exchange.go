package model

import "time"

// Exchange is the audit record of one answered chat request.
type Exchange struct {
	ID             string       `json:"id"`
	ConversationID string       `json:"conversation_id"`
	MessageID      string       `json:"message_id"`
	Request        ChatRequest  `json:"request"`
	Response       ChatResponse `json:"response"`
	Synthesized    bool         `json:"synthesized"`
	Provider       string       `json:"provider,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}
