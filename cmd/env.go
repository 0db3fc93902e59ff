package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/guarded-chat/internal/chat"
	"github.com/sells-group/guarded-chat/internal/config"
	"github.com/sells-group/guarded-chat/internal/resilience"
	"github.com/sells-group/guarded-chat/internal/store"
	"github.com/sells-group/guarded-chat/internal/synth"
	"github.com/sells-group/guarded-chat/pkg/ihub"
)

// chatEnv holds the initialized clients and the chat service needed by the
// serve and ask commands.
type chatEnv struct {
	Store   store.Store // may be nil
	Service *chat.Service
}

// Close releases resources held by the chat environment.
func (ce *chatEnv) Close() {
	if ce.Store != nil {
		_ = ce.Store.Close()
	}
}

// initChat validates config for mode, opens the exchange store and builds the
// chat service. Callers should defer env.Close().
func initChat(ctx context.Context, mode string) (*chatEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	provider, err := synth.NewProvider(ctx, cfg)
	if err != nil {
		if st != nil {
			_ = st.Close()
		}
		return nil, eris.Wrap(err, "init synthesis provider")
	}
	synthesizer := synth.New(provider)
	if synthesizer.Enabled() {
		zap.L().Info("answer synthesis enabled", zap.String("provider", synthesizer.ProviderName()))
	} else {
		zap.L().Info("answer synthesis disabled, using guardrail fallback")
	}

	opts := []chat.Option{chat.WithSynthesizer(synthesizer)}
	if st != nil {
		opts = append(opts, chat.WithRecorder(st))
	}

	return &chatEnv{
		Store:   st,
		Service: chat.NewService(newIHubClient(cfg.IHub), opts...),
	}, nil
}

// initStore opens and migrates the configured exchange store. It returns a
// nil store when recording is disabled.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if st == nil {
		zap.L().Debug("exchange store disabled")
		return nil, nil
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	zap.L().Info("exchange store ready", zap.String("driver", cfg.Store.Driver))
	return st, nil
}

// newIHubClient returns the mock backend when configured, otherwise the HTTP
// client with retry, polling, circuit breaker and rate limit from config.
func newIHubClient(c config.IHubConfig) ihub.Client {
	if c.UseMock {
		zap.L().Warn("using mock assistant backend")
		return ihub.NewMockClient()
	}

	return ihub.NewClient(c.APIKey, c.BaseURL,
		ihub.WithTimeout(time.Duration(c.TimeoutSecs)*time.Second),
		ihub.WithRetry(resilience.BackoffFrom(c.Retry)),
		ihub.WithPoll(resilience.PollingFrom(c)),
		ihub.WithCircuitBreaker(resilience.BreakerFrom(c.Circuit)),
		ihub.WithRateLimit(c.RateLimitRPS),
	)
}
