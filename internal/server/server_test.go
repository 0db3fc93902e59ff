//go:build !integration

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/guarded-chat/internal/chat"
	"github.com/sells-group/guarded-chat/internal/model"
	"github.com/sells-group/guarded-chat/internal/monitoring"
	"github.com/sells-group/guarded-chat/internal/store"
	"github.com/sells-group/guarded-chat/pkg/ihub"
)

type mockChat struct {
	mock.Mock
}

func (m *mockChat) Handle(ctx context.Context, req model.ChatRequest) (*model.ChatResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ChatResponse), args.Error(1)
}

func (m *mockChat) Feedback(ctx context.Context, messageID, feedback string) (*ihub.FeedbackResponse, error) {
	args := m.Called(ctx, messageID, feedback)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ihub.FeedbackResponse), args.Error(1)
}

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeMap(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	h := NewRouter(Deps{})

	rr := do(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")
	assert.Equal(t, "ok", decodeMap(t, rr)["status"])
}

func TestChat_EndToEndWithMockBackend(t *testing.T) {
	svc := chat.NewService(ihub.NewMockClient())
	h := NewRouter(Deps{Chat: svc})

	rr := do(t, h, http.MethodPost, "/api/chat", model.ChatRequest{
		Message:   "How are markers trending?",
		Market:    "Brazil",
		Category:  "markers",
		Timeframe: "2024",
	})
	require.Equal(t, http.StatusOK, rr.Code)

	var resp model.ChatResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotNil(t, resp.ConversationID)
	require.NotNil(t, resp.Guardrails)
	assert.False(t, resp.FollowUpNeeded)
	assert.Len(t, resp.RawSources, 2)
	assert.Equal(t, "Brazil", resp.Guardrails.MarketScope)
}

func TestChat_IncompletePromptAsksFollowUp(t *testing.T) {
	h := NewRouter(Deps{Chat: chat.NewService(ihub.NewMockClient())})

	rr := do(t, h, http.MethodPost, "/api/chat", model.ChatRequest{Message: "How are markers trending?"})
	require.Equal(t, http.StatusOK, rr.Code)

	body := decodeMap(t, rr)
	assert.Equal(t, true, body["follow_up_needed"])
	assert.Nil(t, body["conversation_id"])
	assert.Equal(t, []any{}, body["raw_sources"])
}

func TestChat_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       any
		handleErr  error
		wantStatus int
		wantError  string
	}{
		{
			name:       "invalid json",
			body:       "{not json",
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid request body",
		},
		{
			name:       "empty message",
			body:       model.ChatRequest{Message: "  "},
			handleErr:  chat.ErrEmptyMessage,
			wantStatus: http.StatusBadRequest,
			wantError:  "message is required",
		},
		{
			name:       "upstream failure",
			body:       model.ChatRequest{Message: "hi"},
			handleErr:  eris.Wrap(chat.ErrUpstream, "create conversation: boom"),
			wantStatus: http.StatusBadGateway,
			wantError:  "upstream communication failure",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mc := &mockChat{}
			if tt.handleErr != nil {
				mc.On("Handle", mock.Anything, mock.Anything).Return(nil, tt.handleErr)
			}
			h := NewRouter(Deps{Chat: mc})

			rr := do(t, h, http.MethodPost, "/api/chat", tt.body)
			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantError, decodeMap(t, rr)["error"])
			mc.AssertExpectations(t)
		})
	}
}

func TestFeedback(t *testing.T) {
	mc := &mockChat{}
	mc.On("Feedback", mock.Anything, "msg-1", "").
		Return(&ihub.FeedbackResponse{MessageID: "msg-1", Feedback: "success", Status: "ok"}, nil)
	h := NewRouter(Deps{Chat: mc})

	rr := do(t, h, http.MethodPost, "/api/feedback", map[string]string{"message_id": "msg-1"})
	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeMap(t, rr)
	assert.Equal(t, "success", body["feedback"])
	mc.AssertExpectations(t)
}

func TestFeedback_Errors(t *testing.T) {
	t.Run("missing message id", func(t *testing.T) {
		h := NewRouter(Deps{Chat: &mockChat{}})
		rr := do(t, h, http.MethodPost, "/api/feedback", map[string]string{"feedback": "success"})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("upstream failure", func(t *testing.T) {
		mc := &mockChat{}
		mc.On("Feedback", mock.Anything, "msg-1", "fail").Return(nil, chat.ErrUpstream)
		h := NewRouter(Deps{Chat: mc})
		rr := do(t, h, http.MethodPost, "/api/feedback", map[string]string{"message_id": "msg-1", "feedback": "fail"})
		assert.Equal(t, http.StatusBadGateway, rr.Code)
		assert.Equal(t, "upstream communication failure", decodeMap(t, rr)["error"])
	})
}

func TestExchanges_NoStore(t *testing.T) {
	h := NewRouter(Deps{Chat: &mockChat{}})

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/exchanges", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/exchanges/abc", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/metrics", nil).Code)
}

func TestExchanges_RecordedByChat(t *testing.T) {
	st := newTestStore(t)
	svc := chat.NewService(ihub.NewMockClient(), chat.WithRecorder(st))
	h := NewRouter(Deps{Chat: svc, Store: st})

	for _, market := range []string{"Brazil", "Mexico"} {
		rr := do(t, h, http.MethodPost, "/api/chat", model.ChatRequest{
			Message: "How are markers trending?", Market: market, Category: "markers", Timeframe: "2024",
		})
		require.Equal(t, http.StatusOK, rr.Code)
	}

	rr := do(t, h, http.MethodGet, "/api/exchanges", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var list []model.Exchange
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list, 2)

	rr = do(t, h, http.MethodGet, "/api/exchanges?limit=1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list, 1)

	rr = do(t, h, http.MethodGet, "/api/exchanges/"+list[0].ID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var got model.Exchange
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, list[0].ID, got.ID)

	rr = do(t, h, http.MethodGet, "/api/exchanges?conversation_id="+got.ConversationID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	rr = do(t, h, http.MethodGet, "/api/metrics?lookback_hours=1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var snap monitoring.MetricsSnapshot
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snap))
	assert.Equal(t, 2, snap.ExchangesTotal)
	assert.Equal(t, 2, snap.ConversationsTotal)
	assert.Equal(t, 4, snap.SourcesTotal)
	assert.Equal(t, 1, snap.LookbackHours)
}

func TestExchanges_BadParamsAndNotFound(t *testing.T) {
	h := NewRouter(Deps{Chat: &mockChat{}, Store: newTestStore(t)})

	tests := []struct {
		path string
		want int
	}{
		{"/api/exchanges?limit=abc", http.StatusBadRequest},
		{"/api/exchanges?offset=-1", http.StatusBadRequest},
		{"/api/exchanges?confidence=strong%20data", http.StatusOK},
		{"/api/exchanges/missing", http.StatusNotFound},
		{"/api/metrics?lookback_hours=x", http.StatusBadRequest},
		{"/api/metrics", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, do(t, h, http.MethodGet, tt.path, nil).Code)
		})
	}
}

func TestCORS_Preflight(t *testing.T) {
	h := NewRouter(Deps{Chat: &mockChat{}, AllowedOrigins: []string{"http://localhost:5173"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "http://localhost:5173", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rr.Header().Get("Access-Control-Allow-Credentials"))
}

func TestRecoverer(t *testing.T) {
	mc := &mockChat{}
	mc.On("Handle", mock.Anything, mock.Anything).Run(func(mock.Arguments) { panic("boom") })
	h := NewRouter(Deps{Chat: mc})

	rr := do(t, h, http.MethodPost, "/api/chat", model.ChatRequest{Message: "hi"})
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestServe_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	addr := "127.0.0.1:" + freePort(t)

	errCh := make(chan error, 1)
	go func() { errCh <- Serve(ctx, addr, NewRouter(Deps{})) }()

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	var ready bool
	for i := 0; i < 50; i++ {
		resp, err := client.Get("http://" + addr + "/health")
		if err == nil {
			resp.Body.Close()
			ready = resp.StatusCode == http.StatusOK
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.True(t, ready, "server did not become ready in time")

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down in time")
	}
}
