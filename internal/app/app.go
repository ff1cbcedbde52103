package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/austrobank/interswitch/internal/accounts"
	"github.com/austrobank/interswitch/internal/api"
	"github.com/austrobank/interswitch/internal/auth"
	"github.com/austrobank/interswitch/internal/bin"
	"github.com/austrobank/interswitch/internal/config"
	"github.com/austrobank/interswitch/internal/db"
	"github.com/austrobank/interswitch/internal/directory"
	"github.com/austrobank/interswitch/internal/domain"
	"github.com/austrobank/interswitch/internal/idempotency"
	"github.com/austrobank/interswitch/internal/journal"
	"github.com/austrobank/interswitch/internal/observability"
	"github.com/austrobank/interswitch/internal/service"
	"github.com/austrobank/interswitch/internal/worker"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Run bootstraps the switch, blocking until shutdown.
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	observability.Init()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var pool *pgxpool.Pool
	if cfg.StorageBackend == config.BackendPostgres {
		pool, err = db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer pool.Close()
		if err := db.EnsureSchema(ctx, pool); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = newRedisClient(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer redisClient.Close()
	}

	var accountStore accounts.Store
	var dirStore directory.Store
	var recorder journal.Recorder
	if pool != nil {
		accountStore = accounts.NewPostgresStore(pool)
		dirStore = directory.NewPostgresStore(pool)
		recorder = journal.NewPostgresRecorder(pool)
	} else {
		accountStore = accounts.NewMemoryStore()
		dirStore = directory.NewMemoryStore()
		recorder = journal.NewMemoryRecorder()
	}

	dir, err := directory.New(domain.BankNode{
		Code:    cfg.OwnBankCode,
		Name:    cfg.OwnBankName,
		LegalID: cfg.OwnBankLegalID,
	}, dirStore)
	if err != nil {
		return fmt.Errorf("init directory: %w", err)
	}
	observability.SetDirectorySize(len(dir.ListActive()))

	rules, err := bin.ParseRules(cfg.BINRules)
	if err != nil {
		return fmt.Errorf("parse bin rules: %w", err)
	}
	bins, err := bin.NewRouter(cfg.OwnBankCode, rules)
	if err != nil {
		return fmt.Errorf("init bin router: %w", err)
	}

	var rdb redis.Cmdable
	if redisClient != nil {
		rdb = redisClient
	}

	authorizer := auth.NewJWTAuthorizer(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience)
	results := idempotency.NewStore(rdb, cfg.IdempotencyTTL, logger)
	validator := service.NewValidator(dir, accountStore)
	local := service.NewLocalSettlement(accountStore, results, logger)
	remote := service.NewRemoteDispatcher(cfg.RemoteTimeout, logger)
	payments := service.NewPaymentService(dir, bins, validator, local, remote, recorder, logger)
	admin := directory.NewAdmin(dir, bins, authorizer, logger)

	sweeper := worker.NewSweeper(results, cfg.SweepInterval, logger)
	stopSweeper := sweeper.Run(ctx)
	logger.Info("idempotency sweeper started", zap.Duration("interval", cfg.SweepInterval))

	router := api.NewRouter(payments, admin, dir, bins, authorizer, pool, rdb, logger, cfg.PublicRateLimitRPS, cfg.AdminRateLimitRPS)

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server starting",
			zap.String("port", cfg.HTTPPort),
			zap.String("own_bank", cfg.OwnBankCode),
			zap.String("backend", cfg.StorageBackend),
		)
		serverErr <- server.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("stopping idempotency sweeper")
	stopSweeper()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	switch strings.ToLower(level) {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info", "":
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}

func newRedisClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
