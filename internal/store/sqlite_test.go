package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/guarded-chat/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func sampleExchange(conversationID string, confidence model.EvidenceConfidence, createdAt time.Time) *model.Exchange {
	cid := conversationID
	mid := "msg-" + conversationID
	return &model.Exchange{
		ConversationID: conversationID,
		MessageID:      mid,
		Request: model.ChatRequest{
			Message:   "How are markers trending?",
			Market:    "Brazil",
			Category:  "markers",
			Timeframe: "2024",
		},
		Response: model.ChatResponse{
			ConversationID: &cid,
			MessageID:      &mid,
			Message:        "Markers grew 4%.",
			Guardrails: &model.GuardrailAssessment{
				EvidenceConfidence: confidence,
				SourceFlags:        []model.SourceFlag{{Title: "Tracker", URL: "https://a", Label: model.LabelEmpirical}},
			},
			RawSources: []model.SourceFlag{{Title: "Tracker", URL: "https://a", Label: model.LabelEmpirical}},
		},
		Synthesized: true,
		Provider:    "anthropic",
		CreatedAt:   createdAt,
	}
}

func TestSQLite_SaveAndGetExchange(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ex := sampleExchange("conv-1", model.ConfidenceStrong, created)
	require.NoError(t, st.SaveExchange(ctx, ex))
	require.NotEmpty(t, ex.ID)

	got, err := st.GetExchange(ctx, ex.ID)
	require.NoError(t, err)
	assert.Equal(t, ex.ID, got.ID)
	assert.Equal(t, "conv-1", got.ConversationID)
	assert.Equal(t, "msg-conv-1", got.MessageID)
	assert.Equal(t, "Brazil", got.Request.Market)
	assert.Equal(t, "Markers grew 4%.", got.Response.Message)
	require.NotNil(t, got.Response.Guardrails)
	assert.Equal(t, model.ConfidenceStrong, got.Response.Guardrails.EvidenceConfidence)
	require.Len(t, got.Response.RawSources, 1)
	assert.True(t, got.Synthesized)
	assert.Equal(t, "anthropic", got.Provider)
	assert.True(t, created.Equal(got.CreatedAt))
}

func TestSQLite_GetExchange_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetExchange(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestSQLite_SaveExchange_AssignsDefaults(t *testing.T) {
	st := newTestSQLiteStore(t)
	ex := &model.Exchange{Request: model.ChatRequest{Message: "hi"}}
	require.NoError(t, st.SaveExchange(context.Background(), ex))
	assert.NotEmpty(t, ex.ID)
	assert.False(t, ex.CreatedAt.IsZero())
}

func TestSQLite_ListExchanges(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, st.SaveExchange(ctx, sampleExchange("conv-1", model.ConfidenceStrong, base)))
	require.NoError(t, st.SaveExchange(ctx, sampleExchange("conv-1", model.ConfidenceLimited, base.Add(time.Minute))))
	require.NoError(t, st.SaveExchange(ctx, sampleExchange("conv-2", model.ConfidenceNone, base.Add(2*time.Minute))))

	t.Run("all newest first", func(t *testing.T) {
		all, err := st.ListExchanges(ctx, ExchangeFilter{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "conv-2", all[0].ConversationID)
		assert.Equal(t, model.ConfidenceStrong, all[2].Response.Guardrails.EvidenceConfidence)
	})

	t.Run("by conversation", func(t *testing.T) {
		got, err := st.ListExchanges(ctx, ExchangeFilter{ConversationID: "conv-1"})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("by confidence", func(t *testing.T) {
		got, err := st.ListExchanges(ctx, ExchangeFilter{Confidence: model.ConfidenceNone})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "conv-2", got[0].ConversationID)
	})

	t.Run("limit and offset", func(t *testing.T) {
		got, err := st.ListExchanges(ctx, ExchangeFilter{Limit: 1, Offset: 1})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, model.ConfidenceLimited, got[0].Response.Guardrails.EvidenceConfidence)
	})

	t.Run("created after", func(t *testing.T) {
		got, err := st.ListExchanges(ctx, ExchangeFilter{CreatedAfter: base.Add(30 * time.Second)})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("no match is empty not nil", func(t *testing.T) {
		got, err := st.ListExchanges(ctx, ExchangeFilter{ConversationID: "nope"})
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	assert.NoError(t, st.Migrate(context.Background()))
}
