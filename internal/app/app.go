package app

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"trendsense/internal/config"
	"trendsense/internal/domain"
	"trendsense/internal/infrastructure/httpapi"
	"trendsense/internal/infrastructure/llm"
	"trendsense/internal/infrastructure/provider"
	"trendsense/internal/infrastructure/scheduler"
	"trendsense/internal/infrastructure/storage"
	"trendsense/internal/infrastructure/telegram"
	"trendsense/internal/logging"
	"trendsense/internal/ports"
	"trendsense/internal/source"
	"trendsense/internal/usecase"
)

// Application wires configuration into constructed components with defined
// lifecycles: everything is built once per process and passed by reference.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	store    *storage.SQLiteRepository
	pipeline *usecase.Pipeline
	server   *httpapi.Server
}

// New builds a runnable application instance. Missing credentials degrade
// the owning component (provider skipped, scorer neutral) instead of
// failing startup.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	store, err := storage.Open(cfg.Database.Path, baseLogger.With("component", "storage"))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	registry := source.NewRegistry()
	registry.Register(provider.NewHackerNewsSearcher("", nil))
	if cfg.News.APIKey != "" {
		registry.Register(provider.NewNewsAPISearcher(cfg.News.Endpoint, cfg.News.APIKey, nil))
	} else {
		baseLogger.Warn("news api key missing, news provider disabled")
	}
	if cfg.Reddit.ClientID != "" && cfg.Reddit.ClientSecret != "" {
		registry.Register(provider.NewRedditSearcher("", "",
			cfg.Reddit.ClientID, cfg.Reddit.ClientSecret, cfg.Reddit.UserAgent, nil))
	} else {
		baseLogger.Warn("reddit credentials missing, discussion provider disabled")
	}

	items := provider.NewMultiSource(registry, provider.Limits{
		News:       cfg.ETL.NewsLimit,
		Discussion: cfg.ETL.DiscussionLimit,
	}, baseLogger.With("component", "source"))

	var scorer ports.Scorer
	if cfg.Demo.Enabled {
		baseLogger.Info("demo mode enabled, using mock scorer")
		scorer = llm.NewMockScorer()
	} else {
		if cfg.Gemini.APIKey == "" {
			baseLogger.Warn("gemini api key missing, scoring degrades to neutral")
		}
		scorer = llm.NewGeminiScorer(cfg.Gemini.Endpoint, cfg.Gemini.Model, cfg.Gemini.APIKey, nil)
	}

	var notifier ports.Notifier
	if tg := cfg.Notifications.Telegram; tg.BotToken != "" && tg.ChatID != "" {
		notifier = telegram.NewNotifier(tg.BotToken, tg.ChatID)
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:     items,
		Repository: store,
		Scorer:     scorer,
		Notifier:   notifier,
		Logger:     baseLogger.With("component", "pipeline"),
		Pacing:     cfg.ETL.Pacing.Std(),
		DemoMode:   cfg.Demo.Enabled,
	})

	server := httpapi.NewServer(store, pipeline, cfg.ETL.Keywords, baseLogger.With("component", "httpapi"))

	return &Application{
		cfg:      cfg,
		logger:   baseLogger,
		store:    store,
		pipeline: pipeline,
		server:   server,
	}, nil
}

// Run ensures the schema, optionally starts the recurring ETL scheduler,
// and serves HTTP until the context is cancelled.
func (a *Application) Run(ctx context.Context) error {
	if err := a.store.InitSchema(ctx); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}

	if interval := a.cfg.ETL.RunInterval.Std(); interval > 0 {
		driver := scheduler.NewIntervalScheduler(interval)
		sched := usecase.NewScheduler(driver, a.pipeline, a.cfg.ETL.Keywords,
			a.logger.With("component", "scheduler"))
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		defer func() { _ = sched.Stop(context.Background()) }()
	}

	addr := net.JoinHostPort(a.cfg.Server.Host, strconv.Itoa(a.cfg.Server.Port))
	return a.server.ListenAndServe(ctx, addr)
}

// RunETL executes one pipeline pass and returns its stats. An empty
// keyword list falls back to the configured defaults.
func (a *Application) RunETL(ctx context.Context, keywords []string) (domain.RunStats, error) {
	if err := a.store.InitSchema(ctx); err != nil {
		return domain.RunStats{}, fmt.Errorf("init schema: %w", err)
	}

	if len(keywords) == 0 {
		keywords = a.cfg.ETL.Keywords
	}
	return a.pipeline.Run(ctx, keywords)
}

// Close releases the store handle.
func (a *Application) Close() error {
	return a.store.Close()
}
