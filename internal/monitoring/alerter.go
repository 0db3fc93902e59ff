package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/guarded-chat/internal/config"
	"github.com/sells-group/guarded-chat/internal/resilience"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertNoEvidenceRate  AlertType = "no_evidence_rate"
	AlertOutdatedSources AlertType = "outdated_sources"
)

// minSample is the smallest population a rate alert is evaluated on.
const minSample = 5

// Alert is one breached threshold.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// rateRule describes a "share of population above threshold" check.
type rateRule struct {
	typ       AlertType
	severity  string
	what      string // completes "%.1f%% of ..."
	threshold func(config.MonitoringConfig) float64
	measure   func(*MetricsSnapshot) (rate float64, hits, total int)
	keys      [2]string // detail keys for hits and total
}

var rules = []rateRule{
	{
		typ:       AlertNoEvidenceRate,
		severity:  "high",
		what:      "answers had no direct evidence",
		threshold: func(c config.MonitoringConfig) float64 { return c.NoEvidenceRateThreshold },
		measure: func(s *MetricsSnapshot) (float64, int, int) {
			return s.NoEvidenceRate, s.NoEvidence, s.ExchangesTotal
		},
		keys: [2]string{"no_evidence", "exchanges"},
	},
	{
		typ:       AlertOutdatedSources,
		severity:  "medium",
		what:      "cited sources are outdated",
		threshold: func(c config.MonitoringConfig) float64 { return c.OutdatedShareThreshold },
		measure: func(s *MetricsSnapshot) (float64, int, int) {
			return s.OutdatedShare, s.OutdatedSources, s.SourcesTotal
		},
		keys: [2]string{"outdated", "sources"},
	},
}

// Alerter turns snapshots into alerts and posts them to a webhook.
type Alerter struct {
	cfg     config.MonitoringConfig
	client  *http.Client
	backoff resilience.Backoff
}

// NewAlerter creates an Alerter for the given thresholds and webhook.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:     cfg,
		client:  &http.Client{Timeout: 10 * time.Second},
		backoff: resilience.Backoff{Attempts: 3, Base: time.Second, Cap: 4 * time.Second},
	}
}

// Evaluate returns an alert for every rule whose rate exceeds its threshold.
// A zero threshold disables its rule and rates over fewer than minSample
// items are ignored. The result is never nil.
func (a *Alerter) Evaluate(snap *MetricsSnapshot) []Alert {
	alerts := []Alert{}
	now := time.Now().UTC()

	for _, r := range rules {
		limit := r.threshold(a.cfg)
		rate, hits, total := r.measure(snap)
		if limit <= 0 || total < minSample || rate <= limit {
			continue
		}
		alerts = append(alerts, Alert{
			Type:     r.typ,
			Severity: r.severity,
			Message: fmt.Sprintf("%.1f%% of %s, above threshold %.1f%% (%d / %d in last %dh)",
				rate*100, r.what, limit*100, hits, total, snap.LookbackHours),
			Details: map[string]any{
				string(r.typ): rate,
				"threshold":   limit,
				r.keys[0]:     hits,
				r.keys[1]:     total,
			},
			Timestamp: now,
		})
	}
	return alerts
}

// Deliver posts each alert to the webhook and returns how many were
// accepted. It is a no-op without a webhook URL.
func (a *Alerter) Deliver(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		log := zap.L().With(zap.String("type", string(alert.Type)))
		b := a.backoff
		b.Notify = resilience.LogRetries("webhook", string(alert.Type))
		if _, err := resilience.Retry(ctx, b, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, a.post(ctx, alert)
		}); err != nil {
			log.Error("monitoring: failed to send alert", zap.Error(err))
			continue
		}
		log.Info("monitoring: alert sent", zap.String("severity", alert.Severity))
		sent++
	}
	return sent
}

func (a *Alerter) post(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return &resilience.UpstreamError{Op: "monitoring: webhook", Status: resp.StatusCode, Body: string(body)}
	}
	return nil
}
