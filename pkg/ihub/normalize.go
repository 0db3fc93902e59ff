package ihub

import (
	"strings"

	"github.com/sells-group/guarded-chat/internal/model"
)

// Normalize maps an assistant backend payload onto the canonical
// AssistantResponse. It is the only place that knows the alternative field
// names the backend uses:
//
//	conversation id: conversation_id, conversationId, id, conversation.id
//	message object:  message (when an object), otherwise the top level
//	text:            text, message (when a string)
//	message id:      message_id, messageId, id on the message object, then
//	                 message_id, messageId on the top level
//	state:           state, status on the message object, then the top level
//	sources:         sources_extracted, sources on the message object, then
//	                 the top level
//
// Missing fields are left empty. Callers that already know the conversation
// id should prefer it over the normalized one, since a bare top-level id is
// ambiguous.
func Normalize(payload map[string]any) model.AssistantResponse {
	msg, nested := payload["message"].(map[string]any)
	if !nested {
		msg = payload
	}

	resp := model.AssistantResponse{
		ConversationID: firstString(payload, "conversation_id", "conversationId", "id"),
		MessageID:      firstString(msg, "message_id", "messageId", "id"),
		Text:           firstString(msg, "text", "message"),
		State:          strings.ToUpper(firstString(msg, "state", "status")),
		Sources:        extractSources(msg),
	}

	if resp.ConversationID == "" {
		if conv, ok := payload["conversation"].(map[string]any); ok {
			resp.ConversationID = firstString(conv, "id")
		}
	}

	if nested {
		if resp.MessageID == "" {
			resp.MessageID = firstString(payload, "message_id", "messageId")
		}
		if resp.State == "" {
			resp.State = strings.ToUpper(firstString(payload, "state", "status"))
		}
		if len(resp.Sources) == 0 {
			resp.Sources = extractSources(payload)
		}
	}

	return resp
}

// extractSources reads the source list from a message object. Entries
// without a URL are dropped.
func extractSources(obj map[string]any) []model.RawSource {
	raw, ok := obj["sources_extracted"].([]any)
	if !ok || len(raw) == 0 {
		raw, _ = obj["sources"].([]any)
	}

	sources := make([]model.RawSource, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		src := model.RawSource{
			Title:       firstString(m, "title"),
			URL:         firstString(m, "url"),
			Type:        firstString(m, "type"),
			Description: firstString(m, "description"),
		}
		if published := firstString(m, "published_at", "publishedAt"); published != "" {
			src.PublishedAt = &published
		}
		sources = append(sources, src)
	}
	return DropUnlinked(sources)
}

// DropUnlinked filters out sources without a URL, in place. The result is
// never nil.
func DropUnlinked(sources []model.RawSource) []model.RawSource {
	kept := sources[:0]
	for _, src := range sources {
		if strings.TrimSpace(src.URL) != "" {
			kept = append(kept, src)
		}
	}
	if kept == nil {
		return []model.RawSource{}
	}
	return kept
}

// firstString returns the first non-empty string value among keys.
func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
