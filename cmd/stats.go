package main

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/guarded-chat/internal/monitoring"
)

var (
	statsLookback int
	statsNotify   bool
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print evidence-quality metrics for recorded exchanges",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("stats"); err != nil {
			return err
		}

		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		alerter := monitoring.NewAlerter(cfg.Monitoring)
		report, err := monitoring.NewChecker(monitoring.NewCollector(st), alerter, cfg.Monitoring).
			Check(ctx, statsLookback)
		if err != nil {
			return err
		}
		if statsNotify {
			sent := alerter.Deliver(ctx, report.Alerts)
			zap.L().Info("stats: alerts delivered", zap.Int("sent", sent), zap.Int("triggered", len(report.Alerts)))
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(report), "stats: encode")
	},
}

func init() {
	statsCmd.Flags().IntVar(&statsLookback, "lookback", 24, "lookback window in hours")
	statsCmd.Flags().BoolVar(&statsNotify, "notify", false, "post triggered alerts to monitoring.webhook_url")
	rootCmd.AddCommand(statsCmd)
}
