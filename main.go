package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LadyR00t/rrss-mcp/api"
	"github.com/LadyR00t/rrss-mcp/classifier"
	"github.com/LadyR00t/rrss-mcp/config"
	"github.com/LadyR00t/rrss-mcp/pipeline"
	"github.com/LadyR00t/rrss-mcp/ratelimit"
	"github.com/LadyR00t/rrss-mcp/report"
	"github.com/LadyR00t/rrss-mcp/scheduler"
	"github.com/LadyR00t/rrss-mcp/storage"
	"github.com/LadyR00t/rrss-mcp/twitter"
)

// Budget for a single scheduled job run.
const jobTimeout = 2 * time.Minute

func main() {
	// Set up structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	slog.Info("starting rrss-mcp monitor")

	// Load configuration
	configPath := config.GetConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", "path", configPath, "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	})))
	slog.Info("config loaded", "path", configPath, "tier", cfg.Tier)

	// Initialize database
	db, err := storage.Open(cfg.DatabaseDSN)
	if err != nil {
		slog.Error("failed to initialize database", "dsn", cfg.DatabaseDSN, "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database initialized")

	// Initialize components
	limiter := ratelimit.NewLimiter(cfg.RateWindow(), cfg.RateBudget())
	fetcher := twitter.NewClient(cfg.BearerToken, limiter)
	pipe := pipeline.New(db, classifier.New(classifier.DefaultConfig()))

	reportOpts := []report.Option{}
	if cfg.Telegram.Token != "" {
		sender, err := report.NewTelegramSender(cfg.Telegram.Token, cfg.Telegram.ChatID)
		if err != nil {
			slog.Error("failed to initialize telegram sender", "error", err)
			os.Exit(1)
		}
		reportOpts = append(reportOpts, report.WithSender(sender))
		slog.Info("telegram delivery enabled", "chat_id", cfg.Telegram.ChatID)
	}
	reporter := report.NewGenerator(db, classifier.New(classifier.DefaultConfig()), reportOpts...)

	app := &App{
		cfg:      cfg,
		db:       db,
		fetcher:  fetcher,
		pipe:     pipe,
		reporter: reporter,
	}

	// Initialize scheduler
	sched, err := scheduler.New(cfg.Timezone)
	if err != nil {
		slog.Error("failed to initialize scheduler", "timezone", cfg.Timezone, "error", err)
		os.Exit(1)
	}
	for _, job := range []struct {
		name string
		spec string
		fn   func() error
	}{
		{"collect", cfg.CollectCron, app.runCollect},
		{"report", cfg.ReportCron, app.runReport},
		{"cleanup", cfg.CleanupCron, app.runCleanup},
	} {
		if err := sched.AddJob(job.name, job.spec, job.fn); err != nil {
			slog.Error("failed to schedule job", "job", job.name, "spec", job.spec, "error", err)
			os.Exit(1)
		}
	}
	sched.Start()
	defer sched.Stop()

	// HTTP control surface
	controls := api.NewServer(app, db, reporter, limiter,
		cfg.Keywords, cfg.FetchLimit(), cfg.RateBudget(), cfg.RetentionDays)
	server := &http.Server{
		Addr:         cfg.APIAddr,
		Handler:      controls.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 3 * time.Minute,
	}

	go func() {
		slog.Info("http server listening", "addr", cfg.APIAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("received shutdown signal", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http shutdown incomplete", "error", err)
	}
	slog.Info("monitor stopped")
}

// App ties the fetch, ingest, report, and cleanup operations together.
type App struct {
	cfg      *config.Config
	db       *storage.DB
	fetcher  *twitter.Client
	pipe     *pipeline.Pipeline
	reporter *report.Generator
}

// Collect runs one fetch-and-ingest cycle.
func (a *App) Collect(ctx context.Context) (pipeline.Summary, error) {
	posts, err := a.fetcher.FetchRecent(ctx, a.cfg.Keywords, a.cfg.FetchLimit())
	if err != nil {
		return pipeline.Summary{}, err
	}
	slog.Info("fetched posts", "count", len(posts))
	return a.pipe.Ingest(ctx, posts), nil
}

func (a *App) runCollect() error {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	summary, err := a.Collect(ctx)
	if err != nil {
		var rateErr *twitter.RateLimitError
		if errors.As(err, &rateErr) {
			// The budget recovers on its own, so a skipped run is not a failure.
			slog.Warn("collection deferred by rate limit", "wait_seconds", rateErr.WaitSeconds)
			return nil
		}
		return err
	}

	slog.Info("collection completed",
		"processed", summary.Processed,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"categories", summary.Categories)
	return nil
}

func (a *App) runReport() error {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	yesterday := time.Now().UTC().AddDate(0, 0, -1)
	rep, err := a.reporter.GenerateDaily(ctx, yesterday)
	if err != nil {
		if errors.Is(err, report.ErrNoData) {
			slog.Info("no posts yesterday, skipping report")
			return nil
		}
		return err
	}

	slog.Info("daily report generated", "date", rep.Date.Format("2006-01-02"), "total_posts", rep.TotalPosts)
	return nil
}

func (a *App) runCleanup() error {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	cutoff := time.Now().UTC().AddDate(0, 0, -a.cfg.RetentionDays)
	deleted, err := a.db.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}

	slog.Info("cleanup completed", "deleted", deleted, "cutoff", cutoff)
	return nil
}

func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
