// Command chatd serves the realtime chat backend over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/GetStream/realtime-chat-backend/api"
	"github.com/GetStream/realtime-chat-backend/chat"
	"github.com/GetStream/realtime-chat-backend/config"
	"github.com/GetStream/realtime-chat-backend/memstore"
	"github.com/GetStream/realtime-chat-backend/postgres"
	"github.com/GetStream/realtime-chat-backend/redis"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	level, _ := cfg.Level()
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// backends is what the service runs on.
type backends struct {
	store    chat.Store
	liveness chat.LivenessStore
	events   api.Events
	notifier chat.Notifier
	locker   chat.Locker
	checks   []func(context.Context) error
	closers  []func() error
}

func connect(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*backends, error) {
	b := &backends{}

	if cfg.PostgresDSN != "" {
		pg, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := pg.CreateSchema(ctx); err != nil {
			return nil, fmt.Errorf("create schema: %w", err)
		}
		b.store = pg
		b.checks = append(b.checks, pg.Ping)
		b.closers = append(b.closers, pg.Close)
		logger.Info("Using PostgreSQL storage")
	} else {
		b.store = memstore.New()
		logger.Info("Using in-memory storage")
	}

	if cfg.RedisAddr != "" {
		rd, err := redis.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		b.liveness, b.events, b.notifier, b.locker = rd, rd, rd, rd
		b.checks = append(b.checks, rd.Ping)
		b.closers = append(b.closers, rd.Close)
		logger.Info("Using Redis for liveness and events", "redis", rd.String())
	} else {
		broker := memstore.NewBroker()
		b.events, b.notifier = broker, broker
	}
	return b, nil
}

func (b *backends) close(logger *slog.Logger) {
	for _, c := range b.closers {
		if err := c(); err != nil {
			logger.Error("Could not close backend", "error", err.Error())
		}
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.close(logger)

	opts := []chat.Option{chat.WithLogger(logger), chat.WithNotifier(b.notifier)}
	if b.locker != nil {
		opts = append(opts, chat.WithLocker(b.locker))
	}
	svc := chat.NewService(b.store, b.liveness, opts...)

	mux := http.NewServeMux()
	mux.Handle("/", api.New(svc, b.events, logger))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		for _, check := range b.checks {
			if err := check(r.Context()); err != nil {
				logger.Error("Health check failed", "error", err.Error())
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
