package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/db"
	app "github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/httpapi"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/metrics"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/plan"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/services/ranking"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/internal/app/storage/postgres"
	"github.com/RSProlipsiOficial/rs-ecosistem-sub001/pkg/logger"
)

const defaultPlanPath = "config/plan.yaml"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "sigmed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	log := logger.New(logger.LoggingConfig{
		Level:  envOr("LOG_LEVEL", "info"),
		Format: envOr("LOG_FORMAT", "json"),
		Output: envOr("LOG_OUTPUT", "stdout"),
	}).WithField("component", "sigmed")

	plans, err := loadPlan(log)
	if err != nil {
		return err
	}

	stores, dbHandle, err := buildStores(log)
	if err != nil {
		return err
	}
	if dbHandle != nil {
		defer dbHandle.Close()
	}

	board, redisClient, err := buildLeaderboard(log)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	application, err := app.New(stores, plans, board, log)
	if err != nil {
		return fmt.Errorf("build application: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Start(ctx); err != nil {
		return fmt.Errorf("start application: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := application.Stop(stopCtx); err != nil {
			log.WithError(err).Warn("stop application")
		}
	}()

	handler := httpapi.NewHandler(application)
	handler = httpapi.WithAudit(handler)
	handler = httpapi.WithRateLimit(handler, envFloat("RATE_LIMIT_PER_SECOND", 50), envInt("RATE_LIMIT_BURST", 100))

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/", handler)

	addr := envOr("HTTP_ADDR", ":8080")
	server := &http.Server{
		Addr:              addr,
		Handler:           metrics.InstrumentHandler(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("HTTP server listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

func loadPlan(log *logger.Logger) (*plan.Store, error) {
	path := os.Getenv("PLAN_CONFIG")
	if path == "" {
		if _, err := os.Stat(defaultPlanPath); err == nil {
			path = defaultPlanPath
		}
	}
	if path == "" {
		cfg := plan.Default()
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return plan.NewStore(cfg, ""), nil
	}

	cfg, err := plan.Load(path)
	if err != nil {
		return nil, err
	}
	log.Infof("compensation plan loaded from %s", path)
	return plan.NewStore(cfg, path), nil
}

// buildStores opens PostgreSQL when DATABASE_URL is set and runs pending
// migrations; otherwise the application falls back to the in-memory store.
func buildStores(log *logger.Logger) (app.Stores, *sql.DB, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Warn("DATABASE_URL not set; using in-memory storage")
		return app.Stores{}, nil, nil
	}

	dbHandle, err := sql.Open("postgres", dsn)
	if err != nil {
		return app.Stores{}, nil, fmt.Errorf("open database: %w", err)
	}
	dbHandle.SetMaxOpenConns(envInt("DB_MAX_OPEN_CONNS", 20))
	dbHandle.SetMaxIdleConns(envInt("DB_MAX_IDLE_CONNS", 5))
	dbHandle.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := dbHandle.PingContext(ctx); err != nil {
		dbHandle.Close()
		return app.Stores{}, nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbHandle); err != nil {
		dbHandle.Close()
		return app.Stores{}, nil, err
	}

	store := postgres.New(dbHandle)
	return app.Stores{
		Participants: store,
		Matrix:       store,
		Events:       store,
		Bonuses:      store,
		Ledger:       store,
	}, dbHandle, nil
}

func runMigrations(dbHandle *sql.DB) error {
	source, err := iofs.New(db.Migrations, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	driver, err := migratepg.WithInstance(dbHandle, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}
	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("build migrator: %w", err)
	}
	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func buildLeaderboard(log *logger.Logger) (ranking.Leaderboard, *redis.Client, error) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		log.Warn("REDIS_URL not set; using in-memory leaderboard")
		return ranking.NewMemory(), nil, nil
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	return ranking.NewRedis(client, envOr("REDIS_RANK_PREFIX", "sigme:rank")), client, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return fallback
}
