package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/do"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/capitalize-ai/threadbot/internal/config"
	"github.com/capitalize-ai/threadbot/internal/handler"
	"github.com/capitalize-ai/threadbot/internal/middleware"
	"github.com/capitalize-ai/threadbot/internal/service"
	"github.com/capitalize-ai/threadbot/pkg/logger"
)

func newHTTPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "http",
		Short: "Serve the Slack Events API request URL over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, log, err := bootstrap(config.ModeHTTP)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			defer startTracing(ctx, cfg, log)()

			di := newInjector(ctx, cfg, log)
			defer func() {
				if err := di.Shutdown(); err != nil {
					log.Warn("shutdown failed", zap.Error(err))
				}
			}()

			mentions, err := do.Invoke[*service.MentionService](di)
			if err != nil {
				return err
			}
			backend := do.MustInvoke[*historyBackend](di)

			events := handler.NewEventsHandler(mentions, log)
			var admin *handler.AdminHandler
			if cfg.AdminEnabled() {
				admin = handler.NewAdminHandler(do.MustInvoke[*service.ThreadService](di), log)
			}

			server := &http.Server{
				Addr:         ":" + cfg.Server.Port,
				Handler:      newRouter(cfg, log, events, admin, handler.NewHealthHandler(backend.pinger)),
				ReadTimeout:  cfg.Server.ReadTimeout,
				WriteTimeout: cfg.Server.WriteTimeout,
				IdleTimeout:  120 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info("server listening",
					zap.String("port", cfg.Server.Port),
					zap.Bool("retrieval", mentions.RetrievalEnabled()),
				)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return err
				}
			case <-ctx.Done():
			}

			log.Info("shutting down server")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Error("server forced to shutdown", zap.Error(err))
			}
			events.Wait()

			log.Info("server stopped")
			return nil
		},
	}
}

// newRouter mounts the events endpoint, health checks, metrics and, when admin is non-nil, the
// history admin routes.
func newRouter(
	cfg *config.Config,
	log *logger.Logger,
	events *handler.EventsHandler,
	admin *handler.AdminHandler,
	health *handler.HealthHandler,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", health.Health)
	r.Get("/ready", health.Ready)
	r.Handle("/metrics", promhttp.Handler())

	// Not rate limited: a rejected delivery returns as a retry, which SkipSlackRetries drops.
	r.With(
		middleware.SkipSlackRetries(log),
		middleware.VerifySlackSignature(cfg.Slack.SigningSecret, log),
	).Post("/slack/events", events.Events)

	if admin != nil {
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.Auth(cfg.Admin.JWTSecret))
			r.Use(middleware.RequireScope(middleware.ScopeHistoryAdmin))
			r.Use(middleware.RateLimit(cfg.Server.RateLimitRequests, cfg.Server.RateLimitWindow))

			r.Get("/history/{key}", admin.GetHistory)
			r.Delete("/history/{key}", admin.DeleteHistory)
		})
	}

	return r
}
