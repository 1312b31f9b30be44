package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"contribcalc/internal/domain/contribution"
	"contribcalc/internal/platform/config"
	cryptoutil "contribcalc/internal/platform/crypto"
	"contribcalc/internal/platform/db"
	"contribcalc/internal/platform/events"
	"contribcalc/internal/platform/jobs"
	"contribcalc/internal/platform/metrics"
	contributionhandler "contribcalc/internal/transport/http/handlers/contribution"
	"contribcalc/internal/transport/http/middleware"
)

type publisher interface {
	contribution.EventPublisher
	io.Closer
}

type App struct {
	Config  config.Config
	DB      *pgxpool.Pool
	Router  http.Handler
	Jobs    *jobs.Service
	Metrics *metrics.Collector

	events     publisher
	stopWorker context.CancelFunc
}

// New connects every dependency and builds the router. The caller owns the
// returned App and must Close it.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, cfg.MigrationsDir); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
	}

	crypto, err := cryptoutil.New(cfg.DataEncryptionKey)
	if err != nil {
		pool.Close()
		return nil, err
	}

	var pub publisher = events.Noop{}
	if cfg.AMQPURL != "" {
		amqpPub, err := events.Dial(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			pool.Close()
			return nil, err
		}
		pub = amqpPub
	}

	var collector *metrics.Collector
	if cfg.MetricsEnabled {
		collector = metrics.New()
	}

	workerCtx, stopWorker := context.WithCancel(context.Background())
	jobsSvc := jobs.New(pool, cfg.JobQueueSize)
	jobsSvc.Start(workerCtx)

	svc := contribution.NewService(contribution.NewStore(pool, crypto), pub)
	handler := contributionhandler.NewHandler(svc, jobsSvc, collector, contributionhandler.Options{
		DefaultCity:    cfg.DefaultCity,
		MaxUploadBytes: cfg.MaxUploadBytes,
		PDF:            contribution.PDFOptions{FontPath: cfg.PDFFontPath},
		Status:         cfg.Status(),
		Throttle:       middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute),
	})

	app := &App{
		Config:     cfg,
		DB:         pool,
		Jobs:       jobsSvc,
		Metrics:    collector,
		events:     pub,
		stopWorker: stopWorker,
	}
	app.Router = app.routes(handler)
	return app, nil
}

func (a *App) routes(handler *contributionhandler.Handler) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Metrics(a.Metrics))
	router.Use(middleware.SecureHeaders(a.Config.Environment == "production"))
	router.Use(middleware.BodyLimit(a.Config.MaxUploadBytes))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.DB.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	router.Route("/api/v1", handler.RegisterRoutes)
	return router
}

func (a *App) Close() {
	if a.stopWorker != nil {
		a.stopWorker()
	}
	if a.events != nil {
		if err := a.events.Close(); err != nil {
			slog.Warn("event publisher close failed", "err", err)
		}
	}
	if a.DB != nil {
		a.DB.Close()
	}
}

func Run() {
	cfg := config.Load()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := New(ctx, cfg)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}
	defer app.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       time.Minute,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("server shutdown failed", "err", err)
		}
	}()

	log.Printf("contribution server listening on %s", cfg.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server failed: %v", err)
	}
}
