// Package ihub provides a client for the iHub conversational insights
// assistant API.
package ihub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/guarded-chat/internal/model"
	"github.com/sells-group/guarded-chat/internal/resilience"
)

// ErrMalformedResponse is returned when the assistant backend replies with a
// body that is not a JSON object.
var ErrMalformedResponse = eris.New("ihub: malformed response")

// Client defines the assistant backend operations used by the chat service.
type Client interface {
	// CreateConversation starts a conversation with the first user message.
	CreateConversation(ctx context.Context, message string) (*model.AssistantResponse, error)
	// SendFollowup posts a message to an existing conversation.
	SendFollowup(ctx context.Context, conversationID, message string) (*model.AssistantResponse, error)
	// GetMessage fetches a message, polling until it reaches a terminal state
	// or the poll budget runs out. The last poll is returned either way.
	GetMessage(ctx context.Context, conversationID, messageID string) (*model.AssistantResponse, error)
	// GiveFeedback records feedback ("success" by default) on a message.
	GiveFeedback(ctx context.Context, messageID, feedback string) (*FeedbackResponse, error)
}

// FeedbackResponse is the backend acknowledgement of a feedback call.
type FeedbackResponse struct {
	MessageID string `json:"message_id"`
	Feedback  string `json:"feedback"`
	Status    string `json:"status"`
}

// DefaultFeedback is sent when the caller does not specify one.
const DefaultFeedback = "success"

// Option configures the client.
type Option func(*httpClient)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithRetry overrides the backoff policy for transient failures.
func WithRetry(b resilience.Backoff) Option {
	return func(c *httpClient) {
		c.retry = b
	}
}

// WithPoll overrides the polling policy used by GetMessage.
func WithPoll(p resilience.Polling) Option {
	return func(c *httpClient) {
		c.poll = p
	}
}

// WithCircuitBreaker replaces the circuit breaker. Only retryable failures
// trip it unless cfg says otherwise.
func WithCircuitBreaker(cfg resilience.BreakerConfig) Option {
	return func(c *httpClient) {
		if cfg.Trip == nil {
			cfg.Trip = resilience.IsRetryable
		}
		if cfg.OnChange == nil {
			cfg.OnChange = resilience.LogTransitions("ihub")
		}
		c.breaker = resilience.NewBreaker(cfg)
	}
}

// WithRateLimit caps outgoing requests per second.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
	retry   resilience.Backoff
	poll    resilience.Polling
}

// NewClient creates an iHub client for the given base URL.
func NewClient(apiKey, baseURL string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		retry: resilience.DefaultBackoff(),
		poll:  resilience.DefaultPolling(),
	}
	WithCircuitBreaker(resilience.BreakerConfig{})(c)
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) CreateConversation(ctx context.Context, message string) (*model.AssistantResponse, error) {
	payload, err := c.do(ctx, "create_conversation", http.MethodPost, "/assistant/conversations",
		map[string]string{"message": message})
	if err != nil {
		return nil, err
	}
	resp := Normalize(payload)
	return &resp, nil
}

func (c *httpClient) SendFollowup(ctx context.Context, conversationID, message string) (*model.AssistantResponse, error) {
	path := fmt.Sprintf("/assistant/conversations/%s/messages", url.PathEscape(conversationID))
	payload, err := c.do(ctx, "send_followup", http.MethodPost, path, map[string]string{"message": message})
	if err != nil {
		return nil, err
	}
	resp := Normalize(payload)
	resp.ConversationID = conversationID
	return &resp, nil
}

func (c *httpClient) GetMessage(ctx context.Context, conversationID, messageID string) (*model.AssistantResponse, error) {
	path := fmt.Sprintf("/assistant/conversations/%s/messages/%s",
		url.PathEscape(conversationID), url.PathEscape(messageID))

	resp, err := resilience.Poll(ctx, c.poll, func(ctx context.Context) (model.AssistantResponse, bool, error) {
		payload, err := c.do(ctx, "get_message", http.MethodGet, path, nil)
		if err != nil {
			return model.AssistantResponse{}, false, err
		}
		r := Normalize(payload)
		return r, r.IsTerminal(), nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "ihub: get message %s", messageID)
	}
	resp.ConversationID = conversationID
	if resp.MessageID == "" {
		resp.MessageID = messageID
	}
	return &resp, nil
}

func (c *httpClient) GiveFeedback(ctx context.Context, messageID, feedback string) (*FeedbackResponse, error) {
	if feedback == "" {
		feedback = DefaultFeedback
	}
	path := fmt.Sprintf("/assistant/messages/%s/feedback", url.PathEscape(messageID))
	payload, err := c.do(ctx, "give_feedback", http.MethodPost, path, map[string]string{"feedback": feedback})
	if err != nil {
		return nil, err
	}

	out := &FeedbackResponse{
		MessageID: firstString(payload, "message_id", "messageId"),
		Feedback:  firstString(payload, "feedback"),
		Status:    firstString(payload, "status"),
	}
	if out.MessageID == "" {
		out.MessageID = messageID
	}
	if out.Feedback == "" {
		out.Feedback = feedback
	}
	return out, nil
}

// do sends one JSON request through the rate limiter, circuit breaker and
// retry policy and decodes a JSON object reply.
func (c *httpClient) do(ctx context.Context, op, method, path string, body any) (map[string]any, error) {
	var encoded []byte
	if body != nil {
		var err error
		if encoded, err = json.Marshal(body); err != nil {
			return nil, eris.Wrapf(err, "ihub: %s: marshal request", op)
		}
	}

	retry := c.retry
	if retry.Notify == nil {
		retry.Notify = resilience.LogRetries("ihub", op)
	}

	return resilience.Guard(ctx, c.breaker, func(ctx context.Context) (map[string]any, error) {
		return resilience.Retry(ctx, retry, func(ctx context.Context) (map[string]any, error) {
			return c.send(ctx, op, method, path, encoded)
		})
	})
}

func (c *httpClient) send(ctx context.Context, op, method, path string, body []byte) (map[string]any, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrapf(err, "ihub: %s: rate limit", op)
		}
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, eris.Wrapf(err, "ihub: %s: create request", op)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "ihub: %s: send request", op)
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrapf(err, "ihub: %s: read response", op)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &resilience.UpstreamError{
			Op:     "ihub: " + op,
			Status: resp.StatusCode,
			Body:   truncate(string(respBody), 512),
		}
	}

	var payload map[string]any
	if err := json.Unmarshal(respBody, &payload); err != nil || payload == nil {
		return nil, eris.Wrapf(ErrMalformedResponse, "%s: body %q", op, truncate(string(respBody), 128))
	}
	return payload, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
