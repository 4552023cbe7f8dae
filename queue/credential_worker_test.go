package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"

	"loyaltyd/credstore"
)

func credentialTask(t *testing.T, job CredentialJob) *asynq.Task {
	t.Helper()
	task, err := NewCredentialTask(job)
	if err != nil {
		t.Fatalf("build task: %v", err)
	}
	return task
}

func TestCredentialWorkerCreates(t *testing.T) {
	store := credstore.NewMemoryStore()
	store.AddUser("0xAbC", "user-1")
	worker := NewCredentialWorker(store, "org-1", nil)

	job := CredentialJob{
		ID:          "issue-volume-SEP-0xAbC",
		Recipient:   "0xAbC",
		Title:       "Volumoor - September",
		DataModelID: "dm-volume",
		Claim:       map[string]any{"volume": "$15,000.00", "tier": "Chad", "points": float64(25)},
		Tags:        []string{"DeFi", "Bridging"},
	}
	if err := worker.ProcessTask(context.Background(), credentialTask(t, job)); err != nil {
		t.Fatalf("process: %v", err)
	}
	if store.CreateCalls() != 1 {
		t.Fatalf("create calls = %d, want 1", store.CreateCalls())
	}

	earned, err := store.EarnedCredentials(context.Background(), "user-1", []string{"dm-volume"}, 10)
	if err != nil {
		t.Fatalf("earned: %v", err)
	}
	if len(earned) != 1 || earned[0].Title != "Volumoor - September" {
		t.Fatalf("unexpected credentials: %+v", earned)
	}
}

func TestCredentialWorkerDedupes(t *testing.T) {
	store := credstore.NewMemoryStore()
	store.AddUser("0xAbC", "user-1")
	store.SeedCredential("user-1", credstore.Credential{
		Title:       "Volumoor - September",
		DataModelID: "dm-volume",
	})
	worker := NewCredentialWorker(store, "org-1", nil)

	job := CredentialJob{
		ID:          "issue-volume-SEP-0xAbC",
		Recipient:   "0xAbC",
		Title:       "Volumoor - September",
		DataModelID: "dm-volume",
	}
	if err := worker.ProcessTask(context.Background(), credentialTask(t, job)); err != nil {
		t.Fatalf("process: %v", err)
	}
	if store.CreateCalls() != 0 {
		t.Fatalf("dedupe should not create, got %d calls", store.CreateCalls())
	}
}

func TestCredentialWorkerDedupeRequiresBothTitleAndModel(t *testing.T) {
	store := credstore.NewMemoryStore()
	store.AddUser("0xAbC", "user-1")
	// Same data model, different month: a new credential is due.
	store.SeedCredential("user-1", credstore.Credential{
		Title:       "Volumoor - August",
		DataModelID: "dm-volume",
	})
	worker := NewCredentialWorker(store, "org-1", nil)

	job := CredentialJob{
		ID:          "issue-volume-SEP-0xAbC",
		Recipient:   "0xAbC",
		Title:       "Volumoor - September",
		DataModelID: "dm-volume",
	}
	if err := worker.ProcessTask(context.Background(), credentialTask(t, job)); err != nil {
		t.Fatalf("process: %v", err)
	}
	if store.CreateCalls() != 1 {
		t.Fatalf("create calls = %d, want 1", store.CreateCalls())
	}
}

func TestCredentialWorkerMissingUserIsRetryable(t *testing.T) {
	store := credstore.NewMemoryStore()
	worker := NewCredentialWorker(store, "org-1", nil)

	job := CredentialJob{ID: "issue-volume-SEP-0xAbC", Recipient: "0xAbC", Title: "Volumoor - September"}
	err := worker.ProcessTask(context.Background(), credentialTask(t, job))
	if err == nil {
		t.Fatal("expected error for unknown wallet")
	}
	if errors.Is(err, asynq.SkipRetry) {
		t.Fatal("missing user must stay retryable; the wallet may register later")
	}
}

func TestCredentialWorkerRejectsMalformedPayload(t *testing.T) {
	worker := NewCredentialWorker(credstore.NewMemoryStore(), "org-1", nil)
	task := asynq.NewTask(TaskCredentialIssue, []byte("{"))
	err := worker.ProcessTask(context.Background(), task)
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("malformed payload should be fatal, got %v", err)
	}
}

func TestSettleMiddlewareFiresParentAfterLastChild(t *testing.T) {
	enqueuer := newFakeEnqueuer()
	state := newFakeFlowState()
	producer := newTestProducer(enqueuer, state)
	ctx := context.Background()

	store := credstore.NewMemoryStore()
	store.AddUser("0xAbC", "user-1")
	worker := NewCredentialWorker(store, "org-1", nil)

	children := []CredentialJob{
		{ID: "child-1", Recipient: "0xAbC", Title: "Volumoor - September", DataModelID: "dm-volume"},
		{ID: "child-2", Recipient: "0xAbC", Title: "Transactoor - September", DataModelID: "dm-txn"},
	}
	if err := producer.Dispatch(ctx, LoyaltyJob{Wallet: "0xAbC"}, children); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	handler := settleMiddleware(producer, worker.logger)(worker)
	for _, task := range append([]*asynq.Task{}, enqueuer.tasks...) {
		if task.Type() != TaskCredentialIssue {
			continue
		}
		if err := handler.ProcessTask(ctx, task); err != nil {
			t.Fatalf("process child: %v", err)
		}
	}
	if got := enqueuer.count(TaskLoyaltyRefresh); got != 1 {
		t.Fatalf("loyalty tasks = %d, want 1", got)
	}
	var parent LoyaltyJob
	for _, task := range enqueuer.tasks {
		if task.Type() == TaskLoyaltyRefresh {
			if err := json.Unmarshal(task.Payload(), &parent); err != nil {
				t.Fatalf("decode parent: %v", err)
			}
		}
	}
	if parent.Wallet != "0xAbC" {
		t.Fatalf("parent wallet = %q", parent.Wallet)
	}
}
