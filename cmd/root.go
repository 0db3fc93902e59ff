package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/guarded-chat/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "guarded-chat",
	Short: "Guarded insights chat relay",
	Long:  "Relays chat prompts to the insights assistant, scores the cited sources for evidence strength and recency, and returns guarded answers.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c
		return eris.Wrap(config.InitLogger(cfg.Log), "init logger")
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
