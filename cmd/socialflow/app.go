package main

import (
	"context"
	"fmt"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	oauth "github.com/noobskies/socialflow-sub001"
	"github.com/noobskies/socialflow-sub001/activitymap"
	"github.com/noobskies/socialflow-sub001/providers"
	"github.com/noobskies/socialflow-sub001/repository"
	"github.com/noobskies/socialflow-sub001/repository/redisstate"
	"github.com/prometheus/client_golang/prometheus"
)

// App carries the wired services shared by the commands.
type App struct {
	config  oauth.Config
	logger  *glog.BaseLogger
	repo    *repository.Manager
	redis   *redisstate.Store
	metrics *oauth.Metrics
	manager *oauth.Manager
}

func newLogger(verbose bool) *glog.BaseLogger {
	if verbose {
		return glog.NewLogger(
			glog.WithLoggerTypePretty(),
			glog.WithLevel(glog.Trace),
			glog.WithName("app"),
			glog.WithAddSource(false),
			glog.WithRichErrorHandler(errors.ToSlogAttributes),
		)
	}
	return glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithName("app"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)
}

func loadConfig(opts *rootOptions) (oauth.Config, error) {
	cfg, err := oauth.LoadConfig(opts.configPath)
	if err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, oauth.InvalidConfiguration("config", err.Error())
	}
	return cfg, nil
}

// newApp loads the config, opens storage and builds the manager.
func newApp(ctx context.Context, opts *rootOptions, reg prometheus.Registerer) (*App, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	app := &App{
		config: cfg,
		logger: newLogger(opts.verbose),
	}

	if err := app.openStorage(ctx); err != nil {
		app.Close()
		return nil, err
	}

	cipher, err := oauth.NewTokenCipher(cfg.EncryptionKey)
	if err != nil {
		app.Close()
		return nil, err
	}

	var states oauth.StateStore = app.repo.States()
	if app.redis != nil {
		states = app.redis
	}

	app.metrics = oauth.NewMetrics(reg)
	oauthLogger := app.logger.GetLogger("oauth")

	app.manager = oauth.NewManager(
		app.repo.Accounts(),
		states,
		cipher,
		cfg,
		providers.New(cfg),
		oauth.WithLogger(oauthLogger),
		oauth.WithMetrics(app.metrics),
		oauth.WithActivitySink(activitySink(app.logger.GetLogger("activity"))),
	)

	oauthLogger.Info("oauth manager ready", "platforms", app.manager.Platforms())
	return app, nil
}

func (a *App) openStorage(ctx context.Context) error {
	if a.config.DatabaseURL == "" {
		return oauth.InvalidConfiguration(oauth.DatabaseURLEnv, "not configured")
	}

	db, err := repository.Open(a.config.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	a.repo = repository.NewRepositoryManager(db)
	a.repo.MustValidate()

	if err := a.repo.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	if a.config.RedisURL == "" {
		return nil
	}

	store, err := redisstate.NewFromURL(a.config.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to configure redis: %w", err)
	}
	a.redis = store
	if err := store.Ping(ctx); err != nil {
		return fmt.Errorf("failed to reach redis: %w", err)
	}
	return nil
}

// Close releases storage connections.
func (a *App) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.repo != nil {
		_ = a.repo.Close()
	}
}

func activitySink(logger oauth.Logger) oauth.ActivitySink {
	return activitymap.Sink(func(_ context.Context, record activitymap.Normalized) error {
		logger.Info("activity",
			"verb", record.Verb,
			"actor_id", record.ActorID,
			"object_type", record.ObjectType,
			"object_id", record.ObjectID,
			"metadata", record.Metadata,
			"occurred_at", record.OccurredAt,
		)
		return nil
	})
}
