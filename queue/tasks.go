package queue

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"loyaltyd/tiers"
)

// Task types registered on the runner. The type string routes a task to its
// worker; the queue name bounds its concurrency.
const (
	TaskCredentialIssue = "credential:issue"
	TaskLoyaltyRefresh  = "loyalty:refresh"

	QueueCredentials = "credentials"
	QueueLoyalty     = "loyalty"
)

// CredentialJob is the payload of a credential:issue task. ID doubles as the
// runner's idempotency key; ParentID ties the job to the flow whose loyalty
// refresh waits on it. Jobs are never mutated after construction.
type CredentialJob struct {
	ID          string         `json:"id"`
	ParentID    string         `json:"parentId,omitempty"`
	Recipient   string         `json:"recipient"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Image       string         `json:"image,omitempty"`
	DataModelID string         `json:"dataModelId"`
	Claim       map[string]any `json:"claim"`
	Tags        []string       `json:"tags,omitempty"`
	Points      float64        `json:"points"`
	Campaign    tiers.Campaign `json:"campaign,omitempty"`
}

// LoyaltyJob is the payload of a loyalty:refresh task, the flow parent that
// re-aggregates a wallet's loyalty pass.
type LoyaltyJob struct {
	Wallet   string         `json:"wallet"`
	Campaign tiers.Campaign `json:"campaign,omitempty"`
}

// LoyaltyTaskID is the idempotency key of a wallet's loyalty refresh. One
// refresh per wallet may be queued at a time; later dispatches for the same
// wallet dedupe against it until the task completes.
func LoyaltyTaskID(wallet string) string {
	return "loyaltypass-" + wallet
}

// NewCredentialTask wraps the job in a runner task. Enqueue options (ID, queue,
// retry policy) are applied by the flow producer.
func NewCredentialTask(job CredentialJob) (*asynq.Task, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("queue: encode credential job %s: %w", job.ID, err)
	}
	return asynq.NewTask(TaskCredentialIssue, payload), nil
}

// NewLoyaltyTask wraps the parent job in a runner task.
func NewLoyaltyTask(job LoyaltyJob) (*asynq.Task, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("queue: encode loyalty job for %s: %w", job.Wallet, err)
	}
	return asynq.NewTask(TaskLoyaltyRefresh, payload), nil
}
