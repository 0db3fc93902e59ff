package monitoring

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/guarded-chat/internal/config"
)

// Report is the result of one check.
type Report struct {
	*MetricsSnapshot
	Alerts []Alert `json:"alerts"`
}

// Checker collects a snapshot, evaluates it and, when run in the
// background, delivers the resulting alerts.
type Checker struct {
	collector *Collector
	alerter   *Alerter
	cfg       config.MonitoringConfig
}

// NewChecker wires a collector and alerter together.
func NewChecker(collector *Collector, alerter *Alerter, cfg config.MonitoringConfig) *Checker {
	return &Checker{collector: collector, alerter: alerter, cfg: cfg}
}

// Check evaluates the last lookbackHours of exchanges without delivering
// anything. Zero lookback uses the configured window.
func (c *Checker) Check(ctx context.Context, lookbackHours int) (*Report, error) {
	if lookbackHours <= 0 {
		lookbackHours = c.cfg.LookbackWindowHours
	}
	snap, err := c.collector.Collect(ctx, lookbackHours)
	if err != nil {
		return nil, err
	}
	return &Report{MetricsSnapshot: snap, Alerts: c.alerter.Evaluate(snap)}, nil
}

// Run checks every CheckIntervalSecs (5m when unset) until ctx is done.
func (c *Checker) Run(ctx context.Context) {
	interval := time.Duration(c.cfg.CheckIntervalSecs) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	log := zap.L().Named("monitoring")
	log.Info("alert checker started",
		zap.Duration("interval", interval),
		zap.Int("lookback_hours", c.cfg.LookbackWindowHours),
	)
	defer log.Info("alert checker stopped")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.tick(ctx, log)
		}
	}
}

// tick runs one check and delivers its alerts, returning how many were sent.
func (c *Checker) tick(ctx context.Context, log *zap.Logger) int {
	report, err := c.Check(ctx, 0)
	if err != nil {
		log.Error("collect metrics", zap.Error(err))
		return 0
	}
	if len(report.Alerts) == 0 {
		log.Debug("no alerts", zap.Int("exchanges", report.ExchangesTotal))
		return 0
	}
	sent := c.alerter.Deliver(ctx, report.Alerts)
	log.Info("alert check complete",
		zap.Int("alerts_triggered", len(report.Alerts)),
		zap.Int("alerts_sent", sent),
	)
	return sent
}
