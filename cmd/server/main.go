package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"

	"idverify/internal/attempts"
	"idverify/internal/audit"
	httpapi "idverify/internal/http"
	"idverify/internal/imagestore"
	"idverify/internal/platform/config"
	"idverify/internal/platform/httpserver"
	"idverify/internal/platform/logger"
	platformredis "idverify/internal/platform/redis"
	"idverify/internal/providers/biometric"
	"idverify/internal/providers/ocr"
	"idverify/internal/steptoken"
	"idverify/internal/verification/handler"
	"idverify/internal/verification/metrics"
	"idverify/internal/verification/service"
	"idverify/internal/verification/store"
)

// main wires dependencies and owns the server lifecycle. Every backing
// service is optional: missing Redis, Postgres, or Kafka degrades to
// in-process fallbacks so a bare binary still runs end to end.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	ctx := context.Background()

	verifCfg, err := config.Load(ctx, config.EnvSource{})
	if err != nil {
		log.Error("invalid verification configuration", "error", err)
		os.Exit(1)
	}

	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}

	var pgPool *pgxpool.Pool
	if cfg.PostgresDSN != "" {
		pgPool, err = pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Error("failed to open postgres pool", "error", err)
			os.Exit(1)
		}
		defer pgPool.Close()
	}

	sessions := buildSessionStore(redisClient, pgPool)
	images := buildImageStore(redisClient, verifCfg.SessionTTL)

	attemptStore := attempts.Store(attempts.NewMemoryStore())
	if redisClient != nil {
		attemptStore = attempts.NewRedisStore(redisClient.Client)
	}
	attemptSvc, err := attempts.New(attemptStore,
		attempts.WithLogger(log),
		attempts.WithCooldown(verifCfg.CooldownAfterExhaust),
	)
	if err != nil {
		log.Error("failed to build attempts service", "error", err)
		os.Exit(1)
	}

	auditPub, auditCleanup, err := buildAuditPublisher(cfg, log)
	if err != nil {
		log.Error("failed to build audit publisher", "error", err)
		os.Exit(1)
	}
	defer auditCleanup()

	ocrClient := ocr.New(cfg.OCRBaseURL, ocr.WithTimeout(cfg.ProviderTimeout))
	biometricClient := biometric.New(cfg.BiometricBaseURL, biometric.WithTimeout(cfg.ProviderTimeout))

	m := metrics.New()
	verifSvc, err := service.New(sessions, ocrClient, biometricClient,
		service.WithLogger(log),
		service.WithConfig(verifCfg),
		service.WithImageStore(images),
		service.WithAttempts(attemptSvc),
		service.WithAuditPublisher(auditPub),
		service.WithMetrics(m),
	)
	if err != nil {
		log.Error("failed to build verification service", "error", err)
		os.Exit(1)
	}

	tokens := steptoken.New(cfg.StepTokenKey)
	verifHandler := handler.New(verifSvc, tokens, log)

	checkers := map[string]httpapi.HealthChecker{
		"ocr":       ocrClient,
		"biometric": biometricClient,
	}
	if redisClient != nil {
		checkers["redis"] = redisClient
	}

	srv := httpserver.New(cfg.Addr, httpapi.NewRouter(verifHandler, checkers))

	go func() {
		log.Info("starting idverify", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func buildSessionStore(redisClient *platformredis.Client, pgPool *pgxpool.Pool) store.Store {
	switch {
	case pgPool != nil:
		return store.NewPostgres(pgPool)
	case redisClient != nil:
		return store.NewRedis(redisClient.Client)
	default:
		return store.NewMemory()
	}
}

func buildImageStore(redisClient *platformredis.Client, ttl time.Duration) imagestore.Store {
	if redisClient != nil {
		return imagestore.NewRedis(redisClient.Client, ttl)
	}
	return imagestore.NewMemory()
}

// buildAuditPublisher prefers Kafka, then Postgres, then memory. The returned
// cleanup closes whatever backend was opened.
func buildAuditPublisher(cfg config.Server, log *slog.Logger) (*audit.Publisher, func(), error) {
	if len(cfg.KafkaBrokers) > 0 {
		sink, err := audit.NewKafkaSink(cfg.KafkaBrokers, cfg.AuditTopic)
		if err != nil {
			return nil, nil, err
		}
		pub := audit.NewPublisher(sink, audit.WithAsyncBuffer(256), audit.WithLogger(log))
		return pub, func() { pub.Close(); sink.Close() }, nil
	}

	if cfg.PostgresDSN != "" {
		db, err := sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		pub := audit.NewPublisher(audit.NewPostgresStore(db), audit.WithAsyncBuffer(256), audit.WithLogger(log))
		return pub, func() { pub.Close(); _ = db.Close() }, nil
	}

	pub := audit.NewPublisher(audit.NewMemoryStore(), audit.WithLogger(log))
	return pub, pub.Close, nil
}
