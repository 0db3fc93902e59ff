// Package guardrail decides whether a request can be answered responsibly and
// annotates assistant answers with provenance and reliability signals.
package guardrail

import (
	"strings"

	"github.com/sells-group/guarded-chat/internal/model"
)

const followUpLeadIn = "Could you provide the following details so I can give an accurate answer?"

// promptField pairs a required request dimension with its follow-up bullet.
type promptField struct {
	name     string
	value    func(model.ChatRequest) string
	question string
}

// requiredFields is checked in order; the follow-up question lists bullets in
// the same order.
var requiredFields = []promptField{
	{
		name:     model.FieldMarket,
		value:    func(r model.ChatRequest) string { return r.Market },
		question: "Which market should I focus on (e.g., United States, Mexico)?",
	},
	{
		name:     model.FieldCategory,
		value:    func(r model.ChatRequest) string { return r.Category },
		question: "Which product category is most relevant (e.g., pens, markers)?",
	},
	{
		name:     model.FieldTimeframe,
		value:    func(r model.ChatRequest) string { return r.Timeframe },
		question: "What timeframe should I consider (e.g., 2023 results, next 12 months)?",
	},
}

// CheckPrompt reports whether the request carries market, category and
// timeframe. When any is missing it builds a follow-up question with one
// bullet per missing field.
func CheckPrompt(req model.ChatRequest) model.PromptStatus {
	var missing []string
	lines := []string{followUpLeadIn}
	for _, f := range requiredFields {
		if strings.TrimSpace(f.value(req)) != "" {
			continue
		}
		missing = append(missing, f.name)
		lines = append(lines, "- "+f.question)
	}

	if len(missing) == 0 {
		return model.PromptStatus{IsComplete: true, MissingFields: []string{}}
	}

	question := strings.Join(lines, "\n")
	return model.PromptStatus{
		IsComplete:       false,
		MissingFields:    missing,
		FollowUpQuestion: &question,
	}
}
