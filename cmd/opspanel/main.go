package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	adapthttp "opspanel/internal/adapter/http"
	"opspanel/internal/adapter/memory"
	"opspanel/internal/adapter/postgres"
	"opspanel/internal/adapter/redis"
	"opspanel/internal/adapter/sqlite"
	"opspanel/internal/adapter/upstream"
	"opspanel/internal/app"
	"opspanel/internal/config"
	"opspanel/internal/domain"
	"opspanel/internal/sealer"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.WithError(err).Warn("failed to load .env file")
	}

	cfg, err := config.Load(os.Getenv(config.EnvConfigPath))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	setupLogging(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	sessions, closeStore, err := openSessions(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer closeStore()

	seal, err := newSealer(cfg.Session.Secret)
	if err != nil {
		return err
	}

	client := upstream.New(upstream.Config{
		BaseURL:        cfg.Upstream.BaseURL,
		Timeout:        cfg.Upstream.Timeout,
		AcceptLanguage: cfg.Upstream.AcceptLanguage,
	})
	authSvc := app.NewAuthService(client, sessions, seal, cfg.Session.TTL)
	client.OnUnauthorized(authSvc.ForceLogout)
	metricsSvc := app.NewMetricsService(client)
	authSvc.OnLogout(metricsSvc.Forget)
	authSvc.OnPurge(metricsSvc.PurgeBefore)

	go authSvc.RunSweeper(ctx, cfg.Session.SweepInterval)

	h := adapthttp.New(authSvc, metricsSvc, adapthttp.Options{
		WebDir:      cfg.Server.WebDir,
		UpstreamURL: cfg.Upstream.BaseURL,
		SessionTTL:  cfg.Session.TTL,
		TrustProxy:  cfg.Server.TrustProxy,
	}).Handler()
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{"addr": cfg.Server.Addr, "storage": cfg.Storage.Driver}).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// openSessions builds the configured session repository and a func that
// releases it.
func openSessions(ctx context.Context, cfg config.StorageConfig) (domain.SessionRepository, func(), error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		db, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("db open: %w", err)
		}
		return postgres.NewSessionRepo(db), func() { _ = db.Close() }, nil
	case config.DriverSQLite:
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
		return sqlite.NewSessionRepo(db), closeFn, nil
	case config.DriverRedis:
		client, err := redis.Dial(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		return redis.NewSessionRepo(client, ""), func() { _ = client.Close() }, nil
	default:
		return memory.New().NewSessionRepo(), func() {}, nil
	}
}

func newSealer(secret string) (*sealer.Sealer, error) {
	if strings.TrimSpace(secret) == "" {
		log.Warnf("%s is not set; sessions will not survive a restart", config.EnvSessionSecret)
		return sealer.NewRandom()
	}
	return sealer.New([]byte(secret))
}

func setupLogging(cfg config.LogConfig) {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	if strings.EqualFold(cfg.Format, "json") {
		log.SetFormatter(&log.JSONFormatter{})
		return
	}
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
}
