package ihub

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sells-group/guarded-chat/internal/model"
)

// mockClient answers every call with canned insights so the service can run
// without backend credentials.
type mockClient struct {
	now func() time.Time
}

// MockOption configures the mock client.
type MockOption func(*mockClient)

// WithMockClock overrides the clock used to date the canned sources.
func WithMockClock(now func() time.Time) MockOption {
	return func(m *mockClient) {
		m.now = now
	}
}

// NewMockClient returns a Client that never touches the network. Its answers
// cite one recent quantitative tracker and one brand POV that is about four
// years old.
func NewMockClient(opts ...MockOption) Client {
	m := &mockClient{now: time.Now}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (m *mockClient) CreateConversation(_ context.Context, message string) (*model.AssistantResponse, error) {
	return m.answer(uuid.NewString(), message), nil
}

func (m *mockClient) SendFollowup(_ context.Context, conversationID, message string) (*model.AssistantResponse, error) {
	return m.answer(conversationID, message), nil
}

func (m *mockClient) GetMessage(_ context.Context, conversationID, messageID string) (*model.AssistantResponse, error) {
	return &model.AssistantResponse{
		ConversationID: conversationID,
		MessageID:      messageID,
		Text:           "Mock follow-up message.",
		State:          model.MessageStateCompleted,
		Sources:        m.sources(),
	}, nil
}

func (m *mockClient) GiveFeedback(_ context.Context, messageID, feedback string) (*FeedbackResponse, error) {
	if feedback == "" {
		feedback = DefaultFeedback
	}
	return &FeedbackResponse{MessageID: messageID, Feedback: feedback, Status: "mocked"}, nil
}

func (m *mockClient) answer(conversationID, query string) *model.AssistantResponse {
	text := fmt.Sprintf("Here's a mock insight for testing purposes.\n"+
		"- Focused question: %s\n"+
		"- Evidence comes from a recent quantitative tracker and a contextual brand POV.\n"+
		"Treat this output as sample data only.", query)

	return &model.AssistantResponse{
		ConversationID: conversationID,
		MessageID:      uuid.NewString(),
		Text:           text,
		State:          model.MessageStateCompleted,
		Sources:        m.sources(),
	}
}

func (m *mockClient) sources() []model.RawSource {
	now := m.now().UTC()
	recent := now.AddDate(0, 0, -180).Format(time.RFC3339)
	outdated := now.AddDate(0, 0, -1500).Format(time.RFC3339)
	return []model.RawSource{
		{
			Title:       "Category Tracker Q2 2024",
			URL:         "https://insights.example.com/category-tracker-q2-2024",
			Description: "Panel-based quantitative sales tracker for markers.",
			Type:        "quantitative forecast",
			PublishedAt: &recent,
		},
		{
			Title:       "Brand POV: Sharpie vs Paper Mate",
			URL:         "https://insights.example.com/brand-pov-sharpie-paper-mate",
			Description: "Contextual analysis of brand positioning within writing instruments.",
			Type:        "brand presentation",
			PublishedAt: &outdated,
		},
	}
}
