package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	app "github.com/classbank/ledger/internal/app"
	"github.com/classbank/ledger/internal/app/httpapi"
	"github.com/classbank/ledger/internal/app/metrics"
	"github.com/classbank/ledger/internal/app/seed"
	"github.com/classbank/ledger/internal/app/storage/memory"
	"github.com/classbank/ledger/internal/app/storage/postgres"
	"github.com/classbank/ledger/internal/config"
	"github.com/classbank/ledger/internal/platform/migrations"
	"github.com/classbank/ledger/pkg/logger"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to YAML config file")
		envFile    = flag.String("env", "", "Path to .env file with overrides")
	)
	flag.Parse()

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			logger.NewDefault("server").WithError(err).Fatal("load env file")
		}
	} else {
		_ = godotenv.Load()
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.NewDefault("server").WithError(err).Fatal("load configuration")
	}

	log := logger.New(cfg.Logging).WithField("component", "server")

	stores, db, err := buildStores(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("initialise storage")
	}
	if db != nil {
		defer db.Close()
	}

	application, err := app.New(stores, app.Options{InterestSchedule: cfg.InterestSchedule}, log)
	if err != nil {
		log.WithError(err).Fatal("build application")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.Seed {
		if err := seed.Apply(ctx, application.Ledger, stores.Students, log); err != nil {
			log.WithError(err).Fatal("seed demo data")
		}
	}

	apiHandler, err := httpapi.NewHandler(application, httpapi.Options{
		TeacherPIN: cfg.TeacherPIN,
		AuditFile:  cfg.AuditFile,
	}, log)
	if err != nil {
		log.WithError(err).Fatal("build api handler")
	}
	if cfg.RateLimit > 0 {
		apiHandler = httpapi.NewRateLimiter(cfg.RateLimit, cfg.RateBurst, log).Handler(apiHandler)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/", metrics.InstrumentHandler(apiHandler))

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	if err := application.Start(ctx); err != nil {
		log.WithError(err).Fatal("start services")
	}

	go func() {
		log.WithField("addr", cfg.Addr).Info("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("http server failed")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	if err := application.Stop(shutdownCtx); err != nil {
		log.WithError(err).Warn("service shutdown")
	}
	log.Info("goodbye")
}

// buildStores selects the persistence backend. The returned *sql.DB is nil
// when running in-memory.
func buildStores(cfg config.Config, log *logger.Logger) (app.Stores, *sql.DB, error) {
	if cfg.DatabaseURL == "" {
		log.Info("no database configured, using in-memory store")
		mem := memory.New()
		return app.Stores{Students: mem, Missions: mem, Rewards: mem, Pending: mem}, nil, nil
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return app.Stores{}, nil, err
	}

	pingCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return app.Stores{}, nil, err
	}
	if err := migrations.Apply(pingCtx, db); err != nil {
		db.Close()
		return app.Stores{}, nil, err
	}

	log.Info("postgres store ready")
	pg := postgres.New(db)
	return app.Stores{Students: pg, Missions: pg, Rewards: pg, Pending: pg}, db, nil
}
