package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"loyaltyd/config"
	"loyaltyd/observability/metrics"
)

// ExponentialBackoff returns the runner's retry delay function: base, 2*base,
// 4*base, ... per retry.
func ExponentialBackoff(base time.Duration) asynq.RetryDelayFunc {
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	return func(n int, _ error, _ *asynq.Task) time.Duration {
		return base * (1 << n)
	}
}

// Server runs the two worker pools. The runner weights queues rather than
// bounding them, so each queue gets its own pool to give issuance and
// aggregation independent concurrency limits.
type Server struct {
	credentials *asynq.Server
	loyalty     *asynq.Server
	mux         *asynq.ServeMux
	logger      *slog.Logger
	ready       chan struct{}
}

// NewServer builds the worker pools and routes task types to their handlers.
func NewServer(redisOpt asynq.RedisConnOpt, cfg config.QueueConfig, flow *FlowProducer, issuance asynq.Handler, aggregation asynq.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	delay := ExponentialBackoff(cfg.Backoff)
	adapter := slogAdapter{logger: logger}

	mux := asynq.NewServeMux()
	mux.Use(observeMiddleware(metrics.Pipeline()))
	mux.Use(settleMiddleware(flow, logger))
	mux.Handle(TaskCredentialIssue, issuance)
	mux.Handle(TaskLoyaltyRefresh, aggregation)

	credentials := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency:    cfg.Concurrency,
		Queues:         map[string]int{QueueCredentials: 1},
		RetryDelayFunc: delay,
		Logger:         adapter,
	})
	loyalty := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency:    cfg.LoyaltyConcurrency,
		Queues:         map[string]int{QueueLoyalty: 1},
		RetryDelayFunc: delay,
		Logger:         adapter,
	})

	return &Server{
		credentials: credentials,
		loyalty:     loyalty,
		mux:         mux,
		logger:      logger,
		ready:       make(chan struct{}),
	}
}

// Start launches both pools and signals readiness. Dispatchers block on
// Ready() so no batch begins before the workers can drain it.
func (s *Server) Start() error {
	if err := s.credentials.Start(s.mux); err != nil {
		return fmt.Errorf("queue: start credential workers: %w", err)
	}
	if err := s.loyalty.Start(s.mux); err != nil {
		s.credentials.Shutdown()
		return fmt.Errorf("queue: start loyalty workers: %w", err)
	}
	close(s.ready)
	s.logger.Info("queue workers started")
	return nil
}

// Ready is closed once both pools accept work.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Shutdown stops both pools, waiting for in-flight tasks.
func (s *Server) Shutdown() {
	s.credentials.Shutdown()
	s.loyalty.Shutdown()
}

// settleMiddleware reports terminal child outcomes to the flow tracker. A
// child is terminal on success, on a fatal (SkipRetry) error, or when its last
// retry fails; only then may the parent's pending count drop. A failed
// settlement after a successful task is returned as the task error so the
// runner retries the settlement.
func settleMiddleware(flow *FlowProducer, logger *slog.Logger) asynq.MiddlewareFunc {
	return func(next asynq.Handler) asynq.Handler {
		return asynq.HandlerFunc(func(ctx context.Context, task *asynq.Task) error {
			err := next.ProcessTask(ctx, task)
			if flow == nil || task.Type() != TaskCredentialIssue {
				return err
			}
			var job CredentialJob
			if decodeErr := json.Unmarshal(task.Payload(), &job); decodeErr != nil || job.ParentID == "" {
				return err
			}
			if !terminalOutcome(ctx, err) {
				return err
			}
			childID := job.ID
			if id, ok := asynq.GetTaskID(ctx); ok && childID == "" {
				childID = id
			}
			if settleErr := flow.ChildSettled(ctx, job.ParentID, childID); settleErr != nil {
				logger.Error("flow settlement failed",
					"parent", job.ParentID, "child", childID, "error", settleErr)
				if err == nil {
					return settleErr
				}
			}
			return err
		})
	}
}

func terminalOutcome(ctx context.Context, err error) bool {
	if err == nil || errors.Is(err, asynq.SkipRetry) {
		return true
	}
	retried, okRetried := asynq.GetRetryCount(ctx)
	maxRetry, okMax := asynq.GetMaxRetry(ctx)
	return okRetried && okMax && retried >= maxRetry
}

// observeMiddleware counts task outcomes.
func observeMiddleware(pipeline *metrics.PipelineMetrics) asynq.MiddlewareFunc {
	return func(next asynq.Handler) asynq.Handler {
		return asynq.HandlerFunc(func(ctx context.Context, task *asynq.Task) error {
			err := next.ProcessTask(ctx, task)
			switch {
			case err == nil:
				pipeline.ObserveJob(task.Type(), "ok")
			case errors.Is(err, asynq.SkipRetry):
				pipeline.ObserveJob(task.Type(), "fatal")
			default:
				pipeline.ObserveJob(task.Type(), "error")
			}
			return err
		})
	}
}

// slogAdapter bridges the runner's logger interface onto slog.
type slogAdapter struct {
	logger *slog.Logger
}

func (a slogAdapter) Debug(args ...interface{}) { a.logger.Debug(fmt.Sprint(args...)) }
func (a slogAdapter) Info(args ...interface{})  { a.logger.Info(fmt.Sprint(args...)) }
func (a slogAdapter) Warn(args ...interface{})  { a.logger.Warn(fmt.Sprint(args...)) }
func (a slogAdapter) Error(args ...interface{}) { a.logger.Error(fmt.Sprint(args...)) }
func (a slogAdapter) Fatal(args ...interface{}) { a.logger.Error(fmt.Sprint(args...)) }
