package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
	oauth "github.com/noobskies/socialflow-sub001"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

type serveOptions struct {
	userHeader  string
	interval    time.Duration
	within      time.Duration
	concurrency int
}

func newServeCommand(root *rootOptions) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the OAuth connect endpoints and run background token refresh",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)
			defer stop()

			app, err := newApp(ctx, root, prometheus.DefaultRegisterer)
			if err != nil {
				return err
			}
			defer app.Close()

			return app.serve(ctx, opts)
		},
	}

	cmd.Flags().StringVar(&opts.userHeader, "user-header", "", "trusted request header carrying the authenticated user id")
	cmd.Flags().DurationVar(&opts.interval, "refresh-interval", 5*time.Minute, "how often expiring tokens are refreshed, 0 disables")
	cmd.Flags().DurationVar(&opts.within, "refresh-within", 15*time.Minute, "refresh tokens expiring within this window")
	cmd.Flags().IntVar(&opts.concurrency, "refresh-concurrency", 4, "parallel refreshes per run")
	return cmd
}

func (a *App) serve(ctx context.Context, opts *serveOptions) error {
	logger := a.logger.GetLogger("http")

	srv := router.NewFiberAdapter(func(f *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:  true,
			StrictRouting: false,
		}))
	})
	srv.Router().WithLogger(a.logger.GetLogger("router"))

	srv.Router().Get("/healthz", func(ctx router.Context) error {
		return ctx.JSON(router.StatusOK, map[string]any{
			"status":    "ok",
			"platforms": a.manager.Platforms(),
		})
	})

	group := srv.Router().Group("/api/oauth")
	if opts.userHeader != "" {
		group.Use(userFromHeader(opts.userHeader, "user_id"))
	}

	base := a.config.AppBaseURL + "/settings/accounts"
	oauth.NewHTTPController(a.manager, oauth.HTTPConfig{
		UserContextKey:  "user_id",
		SuccessRedirect: base,
		ErrorRedirect:   base,
	}).RegisterRoutes(group)

	metricsSrv := a.startMetrics()

	logger.Info("http server listening", "addr", a.config.ListenAddr, "metrics", a.config.MetricsAddr)
	srv.Serve(a.config.ListenAddr)

	if opts.interval > 0 {
		go a.maintain(ctx, opts)
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if metricsSrv != nil {
		return metricsSrv.Shutdown(shutdownCtx)
	}
	return nil
}

func (a *App) startMetrics() *http.Server {
	if a.config.MetricsAddr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              a.config.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.GetLogger("metrics").Error("metrics server stopped", "error", err)
		}
	}()
	return srv
}

// maintain refreshes expiring tokens and sweeps stale states until ctx ends.
func (a *App) maintain(ctx context.Context, opts *serveOptions) {
	logger := a.logger.GetLogger("maintenance")
	ticker := time.NewTicker(opts.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		report, err := a.manager.RefreshExpiring(ctx, opts.within, opts.concurrency)
		if err != nil && ctx.Err() == nil {
			logger.Error("token refresh run failed", "error", err)
		}
		for _, res := range report.Failed() {
			logger.Warn("token refresh failed",
				"account_id", res.AccountID,
				"platform", res.Platform,
				"error", res.Err,
			)
		}

		if _, err := a.manager.SweepExpiredStates(ctx); err != nil && ctx.Err() == nil {
			logger.Error("state sweep failed", "error", err)
		}
	}
}

// userFromHeader copies a user id set by a trusted upstream into locals.
func userFromHeader(header, key string) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if id := strings.TrimSpace(ctx.GetString(header, "")); id != "" {
				ctx.Locals(key, id)
			}
			return next(ctx)
		}
	}
}
