package model

// ChatRequest is the incoming chat payload. Optional fields are empty when
// the caller did not supply them.
type ChatRequest struct {
	Message        string `json:"message"`
	Market         string `json:"market,omitempty"`
	Category       string `json:"category,omitempty"`
	Timeframe      string `json:"timeframe,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// ChatResponse is the unified response returned to the frontend.
type ChatResponse struct {
	ConversationID *string              `json:"conversation_id"`
	MessageID      *string              `json:"message_id"`
	Message        string               `json:"message"`
	Guardrails     *GuardrailAssessment `json:"guardrails"`
	RawSources     []SourceFlag         `json:"raw_sources"`
	FollowUpNeeded bool                 `json:"follow_up_needed"`
	FollowUpPrompt *string              `json:"follow_up_prompt"`
}

// MessageState values reported by the assistant backend.
const (
	MessageStateCompleted = "COMPLETED"
	MessageStateFailed    = "FAILED"
	MessageStateError     = "ERROR"
	MessageStateCancelled = "CANCELLED"
	MessageStateTimeout   = "TIMEOUT"
)

// AssistantResponse is the canonical shape of an assistant backend reply,
// regardless of which field names the upstream payload used.
type AssistantResponse struct {
	ConversationID string      `json:"conversation_id"`
	MessageID      string      `json:"message_id"`
	Text           string      `json:"text"`
	State          string      `json:"state,omitempty"`
	Sources        []RawSource `json:"sources"`
}

// IsTerminal reports whether the message state will not change on a later poll.
// An empty state is treated as terminal since the backend did not report one.
func (r AssistantResponse) IsTerminal() bool {
	switch r.State {
	case "", MessageStateCompleted, MessageStateFailed, MessageStateError,
		MessageStateCancelled, MessageStateTimeout:
		return true
	default:
		return false
	}
}

// StrPtr returns a pointer to s, or nil when s is empty.
func StrPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
