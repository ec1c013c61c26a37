package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"jobmate/feed-service/internal/adzuna"
	"jobmate/feed-service/internal/cache"
	"jobmate/feed-service/internal/config"
	"jobmate/feed-service/internal/db"
	"jobmate/feed-service/internal/feed"
	"jobmate/feed-service/internal/httpapi"
	"jobmate/feed-service/internal/pipeline"
	"jobmate/feed-service/internal/scheduler"
	"jobmate/feed-service/internal/store"
	"jobmate/feed-service/internal/tracker"
)

var serveNoScheduler bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and digest scheduler",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveNoScheduler, "no-scheduler", false, "Serve HTTP only; another replica sends digests")
	rootCmd.AddCommand(serveCmd)
	// Bare invocation serves, as the container entrypoint expects.
	rootCmd.RunE = runServe
}

func runServe(cmd *cobra.Command, _ []string) error {
	// ── Config ──────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	setupLogger(cfg.SlogLevel())

	pcfg, err := config.LoadPipeline(cfg.PipelineConfigPath)
	if err != nil {
		return err
	}
	pipe, err := pipeline.New(pcfg)
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── PostgreSQL + Redis ───────────────────────────────────────────────────
	slog.Info("connecting to PostgreSQL and Redis")
	conns, err := db.Connect(ctx, cfg.DatabaseURL, cfg.RedisURL)
	if err != nil {
		return err
	}
	defer conns.Close()
	slog.Info("PostgreSQL and Redis connected")

	st := store.New(conns.Pool)
	if err := st.EnsureSchema(ctx); err != nil {
		return err
	}

	// ── Services ─────────────────────────────────────────────────────────────
	client := adzuna.NewClient(cfg.AdzunaAppID, cfg.AdzunaAppKey, cfg.AdzunaCountry,
		adzuna.WithBaseURL(cfg.AdzunaBaseURL),
		adzuna.WithMaxPages(cfg.AdzunaMaxPages),
	)
	source := cache.NewCachedSource(conns.Redis, client, cfg.CacheTTL)
	cards := tracker.NewService(conns.Pool, conns.Redis)

	feeds := feed.NewService(pipe, feed.Deps{
		Source:    source,
		Profiles:  st,
		Blacklist: st,
		Marks:     cards,
		Shown:     st,
		Publisher: conns.Redis,
	}, feed.Options{
		DefaultMaxDaysOld: cfg.DefaultMaxDaysOld,
		DigestSize:        cfg.DigestSize,
	})

	// ── Scheduler ────────────────────────────────────────────────────────────
	if !serveNoScheduler {
		sched := scheduler.New(st, st, feeds, conns.Redis, scheduler.Options{
			IntervalHours: cfg.DigestIntervalHours,
			Concurrency:   cfg.DigestConcurrency,
		})
		if err := sched.Start(ctx); err != nil {
			return err
		}
		defer sched.Stop()
	}

	// ── HTTP server ──────────────────────────────────────────────────────────
	h := httpapi.NewHandler(httpapi.Deps{
		Feeds:   feeds,
		Store:   st,
		Cards:   cards,
		Health:  conns,
		Version: version,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      h.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "version", version, "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("shutdown error", "err", err)
	}
	slog.Info("stopped")
	return nil
}
