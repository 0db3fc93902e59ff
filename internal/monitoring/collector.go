// Package monitoring tracks evidence quality across recorded exchanges and
// alerts when it degrades.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/guarded-chat/internal/model"
	"github.com/sells-group/guarded-chat/internal/store"
)

// maxCollected caps how many exchanges a single snapshot reads.
const maxCollected = 10000

// MetricsSnapshot holds a point-in-time view of answer quality.
type MetricsSnapshot struct {
	// Exchange metrics (within lookback window).
	ExchangesTotal     int     `json:"exchanges_total"`
	StrongEvidence     int     `json:"strong_evidence"`
	LimitedEvidence    int     `json:"limited_evidence"`
	NoEvidence         int     `json:"no_evidence"`
	NoEvidenceRate     float64 `json:"no_evidence_rate"`
	FabricationWarned  int     `json:"fabrication_warned"`
	Synthesized        int     `json:"synthesized"`
	SynthesisRate      float64 `json:"synthesis_rate"`
	ConversationsTotal int     `json:"conversations_total"`

	// Source metrics.
	SourcesTotal    int     `json:"sources_total"`
	OutdatedSources int     `json:"outdated_sources"`
	OutdatedShare   float64 `json:"outdated_share"`

	// Metadata.
	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// ExchangeLister is the slice of store.Store the collector needs.
type ExchangeLister interface {
	ListExchanges(ctx context.Context, filter store.ExchangeFilter) ([]model.Exchange, error)
}

// Collector gathers metrics from the exchange store.
type Collector struct {
	store ExchangeLister
	now   func() time.Time
}

// NewCollector creates a new metrics collector.
func NewCollector(st ExchangeLister) *Collector {
	return &Collector{store: st, now: time.Now}
}

// Collect gathers a snapshot of answer-quality metrics over the given
// lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	now := c.now().UTC()
	snap := &MetricsSnapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}

	exchanges, err := c.store.ListExchanges(ctx, store.ExchangeFilter{
		CreatedAfter: now.Add(-time.Duration(lookbackHours) * time.Hour),
		Limit:        maxCollected,
	})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list exchanges")
	}

	conversations := make(map[string]struct{})
	snap.ExchangesTotal = len(exchanges)
	for _, ex := range exchanges {
		if ex.ConversationID != "" {
			conversations[ex.ConversationID] = struct{}{}
		}
		if ex.Synthesized {
			snap.Synthesized++
		}

		g := ex.Response.Guardrails
		if g == nil {
			continue
		}
		switch g.EvidenceConfidence {
		case model.ConfidenceStrong:
			snap.StrongEvidence++
		case model.ConfidenceLimited:
			snap.LimitedEvidence++
		case model.ConfidenceNone:
			snap.NoEvidence++
		}
		if g.FabricationWarning != nil {
			snap.FabricationWarned++
		}
		for _, f := range g.SourceFlags {
			snap.SourcesTotal++
			if f.IsOutdated {
				snap.OutdatedSources++
			}
		}
	}

	snap.ConversationsTotal = len(conversations)
	if snap.ExchangesTotal > 0 {
		snap.NoEvidenceRate = float64(snap.NoEvidence) / float64(snap.ExchangesTotal)
		snap.SynthesisRate = float64(snap.Synthesized) / float64(snap.ExchangesTotal)
	}
	if snap.SourcesTotal > 0 {
		snap.OutdatedShare = float64(snap.OutdatedSources) / float64(snap.SourcesTotal)
	}

	return snap, nil
}
