// Package server exposes the chat service over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/guarded-chat/internal/model"
	"github.com/sells-group/guarded-chat/internal/monitoring"
	"github.com/sells-group/guarded-chat/internal/store"
	"github.com/sells-group/guarded-chat/pkg/ihub"
)

const shutdownTimeout = 10 * time.Second

// Chat is the request handler the server delegates to. *chat.Service
// satisfies it.
type Chat interface {
	Handle(ctx context.Context, req model.ChatRequest) (*model.ChatResponse, error)
	Feedback(ctx context.Context, messageID, feedback string) (*ihub.FeedbackResponse, error)
}

// Deps are the collaborators wired into the router. Store may be nil, in
// which case the exchange and metrics endpoints answer 404.
type Deps struct {
	Chat           Chat
	Store          store.Store
	AllowedOrigins []string
}

// NewRouter builds the HTTP routes and middleware stack.
func NewRouter(d Deps) http.Handler {
	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	h := &handlers{chat: d.Chat, store: d.Store}
	if d.Store != nil {
		h.metrics = monitoring.NewCollector(d.Store)
	}

	r.Get("/health", h.health)
	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", h.chatMessage)
		r.Post("/feedback", h.feedback)
		r.Get("/exchanges", h.listExchanges)
		r.Get("/exchanges/{id}", h.getExchange)
		r.Get("/metrics", h.metricsSnapshot)
	})
	return r
}

// Serve runs the server on addr until ctx is cancelled, then shuts it down
// gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zap.L().Info("starting server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server: listen")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return eris.Wrap(srv.Shutdown(shutdownCtx), "server: shutdown")
	})
	return g.Wait()
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			zap.L().Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
