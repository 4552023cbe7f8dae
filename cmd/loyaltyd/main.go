package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"loyaltyd/api"
	"loyaltyd/config"
	"loyaltyd/credstore"
	"loyaltyd/dispatch"
	"loyaltyd/observability/logging"
	"loyaltyd/observability/metrics"
	"loyaltyd/queue"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "path to loyaltyd configuration")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("LOYALTYD_ENV"))
	logger := logging.Setup("loyaltyd", env)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		Password: cfg.Redis.Password,
	}
	asynqClient := asynq.NewClient(redisOpt)
	defer asynqClient.Close()
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		Password: cfg.Redis.Password,
	})
	defer redisClient.Close()

	store := credstore.NewClient(cfg.Store.Endpoint, cfg.Store.APIKey, cfg.Store.JWT, cfg.Store.Timeout)

	flow := queue.NewFlowProducer(
		asynqClient,
		queue.NewScripter(redisClient),
		queue.RetryPolicy{
			Attempts:  cfg.Queue.Attempts,
			Timeout:   cfg.Queue.TaskTimeout,
			Retention: cfg.Queue.CredentialsRetention,
		},
		cfg.Queue.CredentialsRetention,
		logging.Component(logger, "flow"),
	)

	workers := queue.NewServer(redisOpt, cfg.Queue, flow,
		queue.NewCredentialWorker(store, cfg.Store.OrgID, logging.Component(logger, "credential-worker")),
		queue.NewLoyaltyPassWorker(store, cfg.DataModels, cfg.Store.OrgID, logging.Component(logger, "loyalty-worker")),
		logging.Component(logger, "queue"),
	)
	if err := workers.Start(); err != nil {
		logger.Error("start workers", "error", err)
		os.Exit(1)
	}
	defer workers.Shutdown()

	dispatcher := dispatch.NewDispatcher(flow, cfg.DataModels,
		cfg.Dispatch.Interval, workers.Ready(), logging.Component(logger, "dispatcher"))

	ingest := &http.Server{
		Addr:    cfg.ListenAddress,
		Handler: api.NewServer(dispatcher, logging.Component(logger, "api")),
	}
	metricsServer := &http.Server{
		Addr:    cfg.MetricsAddress,
		Handler: metrics.Handler(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("metrics listening", "addr", cfg.MetricsAddress)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server", "error", err)
		}
	}()
	go func() {
		logger.Info("ingest api listening", "addr", cfg.ListenAddress)
		if err := ingest.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("ingest server", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := ingest.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
	_ = metricsServer.Shutdown(shutdownCtx)
}
