package guardrail

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/guarded-chat/internal/model"
)

func TestCheckPrompt_Complete(t *testing.T) {
	t.Parallel()

	status := CheckPrompt(model.ChatRequest{
		Message:   "How are markers trending?",
		Market:    "Brazil",
		Category:  "markers",
		Timeframe: "2024",
	})

	assert.True(t, status.IsComplete)
	assert.Empty(t, status.MissingFields)
	assert.Nil(t, status.FollowUpQuestion)
}

func TestCheckPrompt_Missing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		req         model.ChatRequest
		wantMissing []string
		wantBullets []string
	}{
		{
			name:        "all missing",
			req:         model.ChatRequest{Message: "hi"},
			wantMissing: []string{"market", "category", "timeframe"},
			wantBullets: []string{
				"- Which market should I focus on (e.g., United States, Mexico)?",
				"- Which product category is most relevant (e.g., pens, markers)?",
				"- What timeframe should I consider (e.g., 2023 results, next 12 months)?",
			},
		},
		{
			name:        "category only",
			req:         model.ChatRequest{Message: "hi", Market: "Mexico", Timeframe: "2023"},
			wantMissing: []string{"category"},
			wantBullets: []string{"- Which product category is most relevant (e.g., pens, markers)?"},
		},
		{
			name:        "market and timeframe keep fixed order",
			req:         model.ChatRequest{Message: "hi", Category: "pens"},
			wantMissing: []string{"market", "timeframe"},
			wantBullets: []string{
				"- Which market should I focus on (e.g., United States, Mexico)?",
				"- What timeframe should I consider (e.g., 2023 results, next 12 months)?",
			},
		},
		{
			name:        "whitespace counts as missing",
			req:         model.ChatRequest{Message: "hi", Market: "  ", Category: "pens", Timeframe: "2024"},
			wantMissing: []string{"market"},
			wantBullets: []string{"- Which market should I focus on (e.g., United States, Mexico)?"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			status := CheckPrompt(tt.req)
			assert.False(t, status.IsComplete)
			assert.Equal(t, tt.wantMissing, status.MissingFields)
			require.NotNil(t, status.FollowUpQuestion)

			lines := strings.Split(*status.FollowUpQuestion, "\n")
			require.Len(t, lines, len(tt.wantBullets)+1)
			assert.Equal(t, "Could you provide the following details so I can give an accurate answer?", lines[0])
			assert.Equal(t, tt.wantBullets, lines[1:])
		})
	}
}
