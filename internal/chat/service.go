// Package chat handles one chat request end to end: completeness check,
// assistant backend round trip, guardrail assessment, synthesis and audit.
package chat

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/guarded-chat/internal/guardrail"
	"github.com/sells-group/guarded-chat/internal/model"
	"github.com/sells-group/guarded-chat/internal/synth"
	"github.com/sells-group/guarded-chat/pkg/ihub"
)

// ErrUpstream wraps every assistant backend failure: transport errors,
// non-2xx replies, malformed payloads and missing conversation ids.
var ErrUpstream = eris.New("upstream communication failure")

// ErrEmptyMessage is returned for a request without message text.
var ErrEmptyMessage = eris.New("message is required")

const (
	msgNeedContext = "I need a bit more context before I can help."
	msgClarify     = "Please clarify your request."
	msgNoText      = "No response text returned from iHub."
)

// Recorder persists answered exchanges. store.Store satisfies it.
type Recorder interface {
	SaveExchange(ctx context.Context, ex *model.Exchange) error
}

// Service answers chat requests.
type Service struct {
	ihub     ihub.Client
	assessor *guardrail.Assessor
	synth    *synth.Synthesizer
	recorder Recorder
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithSynthesizer enables the synthesis pass.
func WithSynthesizer(s *synth.Synthesizer) Option {
	return func(svc *Service) {
		svc.synth = s
	}
}

// WithRecorder records every answered exchange.
func WithRecorder(r Recorder) Option {
	return func(svc *Service) {
		svc.recorder = r
	}
}

// WithClock overrides the clock used for source ages and audit timestamps.
func WithClock(now func() time.Time) Option {
	return func(svc *Service) {
		svc.now = now
	}
}

// NewService creates a Service backed by the given assistant client.
func NewService(client ihub.Client, opts ...Option) *Service {
	svc := &Service{
		ihub:  client,
		synth: synth.New(nil),
		now:   time.Now,
	}
	for _, o := range opts {
		o(svc)
	}
	svc.assessor = guardrail.NewAssessor(guardrail.WithClock(svc.now))
	return svc
}

// Handle answers one request. An incomplete prompt is a normal response
// asking for the missing context; only upstream failures are errors.
func (s *Service) Handle(ctx context.Context, req model.ChatRequest) (*model.ChatResponse, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, ErrEmptyMessage
	}

	status := guardrail.CheckPrompt(req)
	if !status.IsComplete {
		msg := msgClarify
		if len(status.MissingFields) > 0 {
			msg = msgNeedContext
		}
		zap.L().Debug("chat: prompt incomplete", zap.Strings("missing", status.MissingFields))
		return &model.ChatResponse{
			Message:        msg,
			RawSources:     []model.SourceFlag{},
			FollowUpNeeded: true,
			FollowUpPrompt: status.FollowUpQuestion,
		}, nil
	}

	answer, err := s.ask(ctx, req)
	if err != nil {
		return nil, err
	}

	assessment := s.assessor.Assess(req, answer.Sources)

	text, synthesized := s.synth.Synthesize(ctx, synth.Input{
		Prompt:     req.Message,
		Answer:     answer.Text,
		Assessment: assessment,
		Sources:    assessment.SourceFlags,
	})
	if !synthesized {
		text = synth.Fallback(answer.Text, assessment)
	}

	resp := &model.ChatResponse{
		ConversationID: model.StrPtr(answer.ConversationID),
		MessageID:      model.StrPtr(answer.MessageID),
		Message:        text,
		Guardrails:     &assessment,
		RawSources:     assessment.SourceFlags,
	}

	zap.L().Info("chat: answered",
		zap.String("conversation_id", answer.ConversationID),
		zap.String("message_id", answer.MessageID),
		zap.String("evidence_confidence", string(assessment.EvidenceConfidence)),
		zap.Int("sources", len(assessment.SourceFlags)),
		zap.Bool("synthesized", synthesized),
	)

	s.record(ctx, req, resp, synthesized)
	return resp, nil
}

// ask runs the assistant backend round trip and returns the final answer
// with a known conversation id and non-empty text.
func (s *Service) ask(ctx context.Context, req model.ChatRequest) (*model.AssistantResponse, error) {
	var (
		answer *model.AssistantResponse
		err    error
	)
	if req.ConversationID != "" {
		answer, err = s.ihub.SendFollowup(ctx, req.ConversationID, req.Message)
		if err != nil {
			return nil, upstream("send follow-up", err)
		}
		answer.ConversationID = req.ConversationID
	} else {
		answer, err = s.ihub.CreateConversation(ctx, req.Message)
		if err != nil {
			return nil, upstream("create conversation", err)
		}
	}
	if answer.ConversationID == "" {
		return nil, eris.Wrap(ErrUpstream, "conversation_id missing from assistant response")
	}

	if needsFetch(answer) {
		latest, err := s.ihub.GetMessage(ctx, answer.ConversationID, answer.MessageID)
		if err != nil {
			return nil, upstream("get message", err)
		}
		latest.ConversationID = answer.ConversationID
		if latest.MessageID == "" {
			latest.MessageID = answer.MessageID
		}
		answer = latest
	}

	if answer.Text == "" {
		answer.Text = msgNoText
	}
	return answer, nil
}

// needsFetch reports whether the inline reply is incomplete and can be
// re-fetched: text is missing or the message is still in flight, and both
// ids are known.
func needsFetch(r *model.AssistantResponse) bool {
	if r.ConversationID == "" || r.MessageID == "" {
		return false
	}
	pending := r.State != "" && r.State != model.MessageStateCompleted
	return r.Text == "" || pending
}

// Feedback forwards message feedback ("success" by default) to the backend.
func (s *Service) Feedback(ctx context.Context, messageID, feedback string) (*ihub.FeedbackResponse, error) {
	if messageID == "" {
		return nil, eris.New("message_id is required")
	}
	resp, err := s.ihub.GiveFeedback(ctx, messageID, feedback)
	if err != nil {
		return nil, upstream("give feedback", err)
	}
	return resp, nil
}

func (s *Service) record(ctx context.Context, req model.ChatRequest, resp *model.ChatResponse, synthesized bool) {
	if s.recorder == nil {
		return
	}
	ex := &model.Exchange{
		ID:          uuid.NewString(),
		Request:     req,
		Response:    *resp,
		Synthesized: synthesized,
		Provider:    s.synth.ProviderName(),
		CreatedAt:   s.now().UTC(),
	}
	if resp.ConversationID != nil {
		ex.ConversationID = *resp.ConversationID
	}
	if resp.MessageID != nil {
		ex.MessageID = *resp.MessageID
	}
	if err := s.recorder.SaveExchange(ctx, ex); err != nil {
		zap.L().Warn("chat: failed to record exchange",
			zap.String("conversation_id", ex.ConversationID),
			zap.Error(err),
		)
	}
}

func upstream(op string, err error) error {
	zap.L().Error("chat: assistant backend call failed", zap.String("op", op), zap.Error(err))
	return eris.Wrapf(ErrUpstream, "%s: %s", op, err.Error())
}
