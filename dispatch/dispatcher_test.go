package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"loyaltyd/queue"
	"loyaltyd/report"
	"loyaltyd/tiers"
)

type fakeFlow struct {
	mu       sync.Mutex
	flows    []struct {
		parent   queue.LoyaltyJob
		children []queue.CredentialJob
	}
	refreshes []queue.LoyaltyJob
}

func (f *fakeFlow) Dispatch(_ context.Context, parent queue.LoyaltyJob, children []queue.CredentialJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flows = append(f.flows, struct {
		parent   queue.LoyaltyJob
		children []queue.CredentialJob
	}{parent, children})
	return nil
}

func (f *fakeFlow) EnqueueLoyaltyRefresh(_ context.Context, parent queue.LoyaltyJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes = append(f.refreshes, parent)
	return nil
}

func TestDispatchWalletSubmitsFlow(t *testing.T) {
	flow := &fakeFlow{}
	dispatcher := NewDispatcher(flow, testDataModels, time.Millisecond, nil, nil)

	snapshot := report.Snapshot{
		Kind:         report.KindMonthly,
		Wallet:       "0xAbC",
		Month:        report.Sep,
		Volume:       15000,
		Transactions: 60,
		Networks:     6,
	}
	if err := dispatcher.DispatchWallet(context.Background(), snapshot); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(flow.flows) != 1 {
		t.Fatalf("flows = %d, want 1", len(flow.flows))
	}
	if flow.flows[0].parent.Wallet != "0xAbC" {
		t.Fatalf("parent = %+v", flow.flows[0].parent)
	}
	if len(flow.flows[0].children) != 3 {
		t.Fatalf("children = %d, want 3", len(flow.flows[0].children))
	}
}

func TestDispatchWalletInactiveStillSubmitsParent(t *testing.T) {
	flow := &fakeFlow{}
	dispatcher := NewDispatcher(flow, testDataModels, time.Millisecond, nil, nil)

	snapshot := report.Snapshot{Kind: report.KindMonthly, Wallet: "0xAbC", Month: report.Sep}
	if err := dispatcher.DispatchWallet(context.Background(), snapshot); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(flow.flows) != 1 || len(flow.flows[0].children) != 0 {
		t.Fatalf("expected parent with zero children, got %+v", flow.flows)
	}
}

func TestRunRoutesByKind(t *testing.T) {
	flow := &fakeFlow{}
	dispatcher := NewDispatcher(flow, testDataModels, time.Millisecond, nil, nil)

	snapshots := []report.Snapshot{
		{Kind: report.KindMonthly, Wallet: "0xAaA", Month: report.Sep, Volume: 200},
		{Kind: report.KindLinea, Wallet: "0xBbB", Campaign: tiers.CampaignLinea, Volume: 100, Transactions: 2},
		{Kind: report.KindCampaign, Wallet: "0xCcC", Campaign: tiers.CampaignOG, Points: 150},
	}
	dispatcher.Run(context.Background(), snapshots)

	if len(flow.flows) != 3 {
		t.Fatalf("flows = %d, want 3", len(flow.flows))
	}
	if flow.flows[1].children[0].Campaign != tiers.CampaignLinea {
		t.Fatalf("linea child = %+v", flow.flows[1].children[0])
	}
	if flow.flows[2].parent.Campaign != tiers.CampaignOG {
		t.Fatalf("campaign parent = %+v", flow.flows[2].parent)
	}
}

func TestRunLoyaltyRefresh(t *testing.T) {
	flow := &fakeFlow{}
	dispatcher := NewDispatcher(flow, testDataModels, time.Millisecond, nil, nil)

	dispatcher.RunLoyaltyRefresh(context.Background(), []string{"0xAaA", "0xBbB"})
	if len(flow.refreshes) != 2 {
		t.Fatalf("refreshes = %d, want 2", len(flow.refreshes))
	}
	if flow.refreshes[0].Wallet != "0xAaA" || flow.refreshes[1].Wallet != "0xBbB" {
		t.Fatalf("refreshes = %+v", flow.refreshes)
	}
}

func TestWaitReadyBlocksUntilWorkersStart(t *testing.T) {
	ready := make(chan struct{})
	dispatcher := NewDispatcher(&fakeFlow{}, testDataModels, time.Millisecond, ready, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := dispatcher.WaitReady(ctx); err == nil {
		t.Fatal("expected timeout while workers are down")
	}

	close(ready)
	if err := dispatcher.WaitReady(context.Background()); err != nil {
		t.Fatalf("ready workers should not block: %v", err)
	}
}
