package main

import (
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/guarded-chat/internal/monitoring"
	"github.com/sells-group/guarded-chat/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the chat API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}

		env, err := initChat(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		g, gctx := errgroup.WithContext(ctx)
		if checker := newChecker(env); checker != nil {
			g.Go(func() error {
				checker.Run(gctx)
				return nil
			})
		}
		g.Go(func() error {
			return server.Serve(gctx, fmt.Sprintf(":%d", cfg.Server.Port), buildMux(env))
		})
		return g.Wait()
	},
}

// buildMux wires the chat environment into the HTTP router.
func buildMux(env *chatEnv) http.Handler {
	deps := server.Deps{AllowedOrigins: cfg.Server.AllowedOrigins}
	if env != nil {
		deps.Chat = env.Service
		deps.Store = env.Store
	}
	return server.NewRouter(deps)
}

// newChecker returns the evidence-quality alert loop, or nil when monitoring
// is off or there is no store to read from.
func newChecker(env *chatEnv) *monitoring.Checker {
	if !cfg.Monitoring.Enabled || env == nil || env.Store == nil {
		return nil
	}
	return monitoring.NewChecker(
		monitoring.NewCollector(env.Store),
		monitoring.NewAlerter(cfg.Monitoring),
		cfg.Monitoring,
	)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
