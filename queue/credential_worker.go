package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"loyaltyd/credstore"
	"loyaltyd/observability/metrics"
)

// CredentialWorker processes credential:issue tasks: resolve the recipient,
// skip if an identical credential already exists, otherwise create it.
type CredentialWorker struct {
	store  credstore.Store
	orgID  string
	logger *slog.Logger
}

// NewCredentialWorker wires the issuance worker. orgID is stamped on every
// created credential as the issuer.
func NewCredentialWorker(store credstore.Store, orgID string, logger *slog.Logger) *CredentialWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &CredentialWorker{store: store, orgID: orgID, logger: logger}
}

// ProcessTask implements asynq.Handler.
func (w *CredentialWorker) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var job CredentialJob
	if err := json.Unmarshal(task.Payload(), &job); err != nil {
		// A malformed payload never heals on retry.
		return fmt.Errorf("decode credential job: %v: %w", err, asynq.SkipRetry)
	}
	log := w.logger.With("wallet", job.Recipient, "title", job.Title)
	log.Info("resolving recipient", "progress", 25)

	user, err := w.store.UserByWallet(ctx, job.Recipient)
	if err != nil {
		// Wallets register with the store out of band; a missing user may
		// appear before the retries run out.
		metrics.Pipeline().IncStoreFailure("userByWallet")
		return fmt.Errorf("resolve recipient %s: %w", job.Recipient, err)
	}

	earned, err := w.store.EarnedCredentials(ctx, user.ID, []string{job.DataModelID}, 100)
	if err != nil {
		metrics.Pipeline().IncStoreFailure("earnedCredentials")
		return fmt.Errorf("query credentials for %s: %w", job.Recipient, err)
	}
	for _, credential := range earned {
		if credential.Title == job.Title && credential.DataModelID == job.DataModelID {
			log.Info("redundant issuance, skipping", "progress", 100, "credential", credential.ID)
			return nil
		}
	}

	log.Info("creating credential", "progress", 66)
	created, err := w.store.CreateCredential(ctx, credstore.CreateCredentialInput{
		Recipient:   job.Recipient,
		Title:       job.Title,
		Description: job.Description,
		Image:       job.Image,
		DataModelID: job.DataModelID,
		Claim:       job.Claim,
		Tags:        job.Tags,
		OrgID:       w.orgID,
	})
	if err != nil {
		metrics.Pipeline().IncStoreFailure("createCredential")
		return fmt.Errorf("create credential %q for %s: %w", job.Title, job.Recipient, err)
	}
	metrics.Pipeline().ObserveCredentialIssued(job.DataModelID)
	log.Info("credential issued", "progress", 100, "credential", created.ID)
	return nil
}

var _ asynq.Handler = (*CredentialWorker)(nil)
