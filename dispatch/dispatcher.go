package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"loyaltyd/config"
	"loyaltyd/observability/metrics"
	"loyaltyd/queue"
	"loyaltyd/report"
)

// FlowSubmitter is the slice of the flow producer the dispatcher needs.
type FlowSubmitter interface {
	Dispatch(ctx context.Context, parent queue.LoyaltyJob, children []queue.CredentialJob) error
	EnqueueLoyaltyRefresh(ctx context.Context, parent queue.LoyaltyJob) error
}

// Dispatcher is the orchestrator between translated report snapshots and the
// task runner. It waits for the worker pools before the first submission and
// paces successive wallets so the credential store is never hammered by a
// batch. Submission is enqueue-only; completion is the flow tracker's problem.
type Dispatcher struct {
	flow       FlowSubmitter
	dataModels config.DataModelConfig
	limiter    *rate.Limiter
	ready      <-chan struct{}
	logger     *slog.Logger
}

// NewDispatcher wires an orchestrator. interval is the pause between wallets
// of a batch; ready gates dispatch on worker startup and may be nil when the
// workers are known to be running.
func NewDispatcher(flow FlowSubmitter, dataModels config.DataModelConfig, interval time.Duration, ready <-chan struct{}, logger *slog.Logger) *Dispatcher {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		flow:       flow,
		dataModels: dataModels,
		limiter:    rate.NewLimiter(rate.Every(interval), 1),
		ready:      ready,
		logger:     logger,
	}
}

// WaitReady blocks until the worker pools accept work.
func (d *Dispatcher) WaitReady(ctx context.Context) error {
	if d.ready == nil {
		return nil
	}
	select {
	case <-d.ready:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("dispatch: waiting for workers: %w", ctx.Err())
	}
}

// Pace blocks for the inter-wallet interval. The first call of a batch passes
// immediately.
func (d *Dispatcher) Pace(ctx context.Context) error {
	return d.limiter.Wait(ctx)
}

// DispatchWallet submits a monthly snapshot's flow: the tiered issuance jobs
// as children, the wallet's loyalty refresh as the parent.
func (d *Dispatcher) DispatchWallet(ctx context.Context, snapshot report.Snapshot) error {
	jobs := BuildWalletJobs(snapshot, d.dataModels)
	d.logger.Info("dispatching wallet",
		"wallet", snapshot.Wallet, "month", snapshot.Month, "jobs", len(jobs))
	metrics.Pipeline().ObserveWalletDispatched(string(report.KindMonthly))
	return d.flow.Dispatch(ctx, queue.LoyaltyJob{Wallet: snapshot.Wallet}, jobs)
}

// DispatchLinea submits a Linea Voyage snapshot's flow.
func (d *Dispatcher) DispatchLinea(ctx context.Context, snapshot report.Snapshot) error {
	job := BuildLineaJob(snapshot, d.dataModels)
	d.logger.Info("dispatching linea wallet", "wallet", snapshot.Wallet, "points", job.Points)
	metrics.Pipeline().ObserveWalletDispatched(string(report.KindLinea))
	parent := queue.LoyaltyJob{Wallet: snapshot.Wallet, Campaign: snapshot.Campaign}
	return d.flow.Dispatch(ctx, parent, []queue.CredentialJob{job})
}

// DispatchCampaign submits a one-off campaign snapshot's flow.
func (d *Dispatcher) DispatchCampaign(ctx context.Context, snapshot report.Snapshot) error {
	job, err := BuildCampaignJob(snapshot, d.dataModels)
	if err != nil {
		return err
	}
	d.logger.Info("dispatching campaign wallet",
		"wallet", snapshot.Wallet, "campaign", snapshot.Campaign)
	metrics.Pipeline().ObserveWalletDispatched(string(report.KindCampaign))
	parent := queue.LoyaltyJob{Wallet: snapshot.Wallet, Campaign: snapshot.Campaign}
	return d.flow.Dispatch(ctx, parent, []queue.CredentialJob{job})
}

// DispatchLoyaltyRefresh enqueues a bare re-aggregation for a wallet, no
// issuance children.
func (d *Dispatcher) DispatchLoyaltyRefresh(ctx context.Context, wallet string) error {
	metrics.Pipeline().ObserveWalletDispatched("loyalty-refresh")
	return d.flow.EnqueueLoyaltyRefresh(ctx, queue.LoyaltyJob{Wallet: wallet})
}

// Run dispatches a translated batch at the configured pace, routing each
// snapshot by kind. Per-wallet failures are logged and the batch carries on;
// idempotency keys make the batch safe to resubmit for the stragglers.
func (d *Dispatcher) Run(ctx context.Context, snapshots []report.Snapshot) {
	if err := d.WaitReady(ctx); err != nil {
		d.logger.Error("batch abandoned", "error", err)
		return
	}
	for _, snapshot := range snapshots {
		if err := d.Pace(ctx); err != nil {
			d.logger.Error("batch interrupted", "error", err)
			return
		}
		var err error
		switch snapshot.Kind {
		case report.KindMonthly:
			err = d.DispatchWallet(ctx, snapshot)
		case report.KindLinea:
			err = d.DispatchLinea(ctx, snapshot)
		case report.KindCampaign:
			err = d.DispatchCampaign(ctx, snapshot)
		default:
			err = fmt.Errorf("dispatch: unknown snapshot kind %q", snapshot.Kind)
		}
		if err != nil {
			d.logger.Error("wallet dispatch failed", "wallet", snapshot.Wallet, "error", err)
		}
	}
	d.logger.Info("batch dispatched", "wallets", len(snapshots))
}

// RunLoyaltyRefresh enqueues a paced refresh for each wallet of a batch.
func (d *Dispatcher) RunLoyaltyRefresh(ctx context.Context, wallets []string) {
	if err := d.WaitReady(ctx); err != nil {
		d.logger.Error("batch abandoned", "error", err)
		return
	}
	for _, wallet := range wallets {
		if err := d.Pace(ctx); err != nil {
			d.logger.Error("batch interrupted", "error", err)
			return
		}
		if err := d.DispatchLoyaltyRefresh(ctx, wallet); err != nil {
			d.logger.Error("loyalty refresh failed", "wallet", wallet, "error", err)
		}
	}
	d.logger.Info("loyalty refresh batch dispatched", "wallets", len(wallets))
}
