package ihub

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/guarded-chat/internal/model"
)

func decode(t *testing.T, raw string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &m))
	return m
}

func TestNormalize_NestedMessage(t *testing.T) {
	t.Parallel()

	resp := Normalize(decode(t, `{
		"conversation_id": "conv-1",
		"message_id": "outer-msg",
		"message": {
			"id": "msg-1",
			"text": "Markers are up 4%.",
			"state": "completed",
			"sources": [
				{"title": "Tracker", "url": "https://a", "type": "panel", "description": "d", "published_at": "2024-01-01T00:00:00Z"},
				{"title": "No URL", "url": ""},
				"not an object"
			]
		}
	}`))

	assert.Equal(t, "conv-1", resp.ConversationID)
	assert.Equal(t, "msg-1", resp.MessageID)
	assert.Equal(t, "Markers are up 4%.", resp.Text)
	assert.Equal(t, "COMPLETED", resp.State)
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, "https://a", resp.Sources[0].URL)
	assert.Equal(t, "panel", resp.Sources[0].Type)
	require.NotNil(t, resp.Sources[0].PublishedAt)
	assert.Equal(t, "2024-01-01T00:00:00Z", *resp.Sources[0].PublishedAt)
}

func TestNormalize_ConversationIDVariants(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"snake", `{"conversation_id": "a"}`, "a"},
		{"camel", `{"conversationId": "b"}`, "b"},
		{"bare id", `{"id": "c", "message": {"id": "m"}}`, "c"},
		{"nested conversation", `{"conversation": {"id": "d"}}`, "d"},
		{"snake wins", `{"conversation_id": "e", "id": "x"}`, "e"},
		{"missing", `{"message": {"text": "hi"}}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Normalize(decode(t, tt.raw)).ConversationID)
		})
	}
}

func TestNormalize_MessageIDFallsBackToTopLevel(t *testing.T) {
	t.Parallel()

	resp := Normalize(decode(t, `{"conversation_id": "c", "message_id": "top", "message": {"text": "hi"}}`))
	assert.Equal(t, "top", resp.MessageID)
}

func TestNormalize_TopLevelMessageString(t *testing.T) {
	t.Parallel()

	resp := Normalize(decode(t, `{
		"message_id": "m-2",
		"message": "Mock follow-up message.",
		"status": "PROCESSING",
		"sources_extracted": [{"title": "A", "url": "https://a"}],
		"sources": [{"title": "B", "url": "https://b"}]
	}`))

	assert.Equal(t, "m-2", resp.MessageID)
	assert.Equal(t, "Mock follow-up message.", resp.Text)
	assert.Equal(t, "PROCESSING", resp.State)
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, "https://a", resp.Sources[0].URL)
}

func TestNormalize_NestedFallsBackToTopLevelSourcesAndState(t *testing.T) {
	t.Parallel()

	resp := Normalize(decode(t, `{
		"conversation_id": "c",
		"state": "COMPLETED",
		"message": {"id": "m", "text": "hi"},
		"sources": [{"url": "https://a", "published_at": null}]
	}`))

	assert.Equal(t, "COMPLETED", resp.State)
	require.Len(t, resp.Sources, 1)
	assert.Empty(t, resp.Sources[0].Title)
	assert.Nil(t, resp.Sources[0].PublishedAt)
}

func TestNormalize_Empty(t *testing.T) {
	t.Parallel()

	resp := Normalize(map[string]any{})
	assert.Empty(t, resp.ConversationID)
	assert.Empty(t, resp.MessageID)
	assert.Empty(t, resp.Text)
	assert.NotNil(t, resp.Sources)
	assert.Empty(t, resp.Sources)
}

func TestDropUnlinked(t *testing.T) {
	t.Parallel()

	got := DropUnlinked([]model.RawSource{
		{Title: "Tracker", URL: "https://a"},
		{Title: "No link"},
		{Title: "Blank link", URL: " "},
		{Title: "Panel", URL: "https://b"},
	})
	require.Len(t, got, 2)
	assert.Equal(t, "Tracker", got[0].Title)
	assert.Equal(t, "Panel", got[1].Title)

	assert.NotNil(t, DropUnlinked(nil))
	assert.Empty(t, DropUnlinked([]model.RawSource{{Title: "x"}}))
}
