package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/guarded-chat/internal/chat"
	"github.com/sells-group/guarded-chat/internal/model"
	"github.com/sells-group/guarded-chat/internal/monitoring"
	"github.com/sells-group/guarded-chat/internal/store"
)

const (
	upstreamFailure      = "upstream communication failure"
	defaultLookbackHours = 24
)

type handlers struct {
	chat    Chat
	store   store.Store
	metrics *monitoring.Collector
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) chatMessage(w http.ResponseWriter, r *http.Request) {
	var req model.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.chat.Handle(r.Context(), req)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, resp)
	case eris.Is(err, chat.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, "message is required")
	default:
		zap.L().Error("chat request failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, upstreamFailure)
	}
}

type feedbackRequest struct {
	MessageID string `json:"message_id"`
	Feedback  string `json:"feedback"`
}

func (h *handlers) feedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.MessageID == "" {
		writeError(w, http.StatusBadRequest, "message_id is required")
		return
	}

	resp, err := h.chat.Feedback(r.Context(), req.MessageID, req.Feedback)
	if err != nil {
		zap.L().Error("feedback request failed", zap.String("message_id", req.MessageID), zap.Error(err))
		writeError(w, http.StatusBadGateway, upstreamFailure)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) listExchanges(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusNotFound, "exchange store not configured")
		return
	}

	q := r.URL.Query()
	filter := store.ExchangeFilter{
		ConversationID: q.Get("conversation_id"),
		Confidence:     model.EvidenceConfidence(q.Get("confidence")),
	}
	var ok bool
	if filter.Limit, ok = intParam(w, q.Get("limit"), "limit"); !ok {
		return
	}
	if filter.Offset, ok = intParam(w, q.Get("offset"), "offset"); !ok {
		return
	}

	exchanges, err := h.store.ListExchanges(r.Context(), filter)
	if err != nil {
		zap.L().Error("list exchanges failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list exchanges")
		return
	}
	writeJSON(w, http.StatusOK, exchanges)
}

func (h *handlers) getExchange(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusNotFound, "exchange store not configured")
		return
	}

	id := chi.URLParam(r, "id")
	ex, err := h.store.GetExchange(r.Context(), id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, ex)
	case eris.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "exchange not found")
	default:
		zap.L().Error("get exchange failed", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to get exchange")
	}
}

func (h *handlers) metricsSnapshot(w http.ResponseWriter, r *http.Request) {
	if h.metrics == nil {
		writeError(w, http.StatusNotFound, "exchange store not configured")
		return
	}

	lookback, ok := intParam(w, r.URL.Query().Get("lookback_hours"), "lookback_hours")
	if !ok {
		return
	}
	if lookback == 0 {
		lookback = defaultLookbackHours
	}

	snap, err := h.metrics.Collect(r.Context(), lookback)
	if err != nil {
		zap.L().Error("collect metrics failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to collect metrics")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// intParam parses an optional non-negative integer query parameter, writing
// a 400 when it is malformed.
func intParam(w http.ResponseWriter, raw, name string) (int, bool) {
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		writeError(w, http.StatusBadRequest, name+" must be a non-negative integer")
		return 0, false
	}
	return n, true
}
