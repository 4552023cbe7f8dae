package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"loyaltyd/config"
	"loyaltyd/credstore"
	"loyaltyd/observability/metrics"
	"loyaltyd/tiers"
)

const (
	loyaltyPassTitle = "LI.FI Loyalty Pass"
	loyaltyPassImage = "https://cdn.mygateway.xyz/implementations/jumper_loyalty_pass.png"

	loyaltyPassDescription = "LI.FI Loyalty Pass is a user-owned and operated consumer recognition method. " +
		"Using the Loyalty Pass, LI.FI issues private data assets for on-chain activity via Jumper Exchange, " +
		"interacting with community campaigns, and other engagement across LI.FI powered products." +
		"This loyalty pass can be used in the future for unique experiences and benefits across the LI.FI ecosystem"

	// Every Linea Voyage credential is worth a flat 20 loyalty points, whatever
	// its own claim says.
	lineaFlatPoints = 20

	// Page size for the earned-credentials query. A wallet cannot hold more
	// point-bearing credentials than this under the issuance dedupe rules.
	earnedPageSize = 100
)

// LoyaltyPassWorker processes loyalty:refresh tasks: re-aggregate a wallet's
// earned credentials into its loyalty pass, creating or updating the pass
// credential only when the result actually changed.
type LoyaltyPassWorker struct {
	store      credstore.Store
	dataModels config.DataModelConfig
	orgID      string
	logger     *slog.Logger
}

// NewLoyaltyPassWorker wires the aggregation worker.
func NewLoyaltyPassWorker(store credstore.Store, dataModels config.DataModelConfig, orgID string, logger *slog.Logger) *LoyaltyPassWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoyaltyPassWorker{store: store, dataModels: dataModels, orgID: orgID, logger: logger}
}

// passAggregate is the freshly computed loyalty state for one wallet.
type passAggregate struct {
	Points       float64
	Transactions int64
	Chains       int64
	Volume       float64
}

// Claim renders the aggregate as the loyalty pass claim payload.
func (a passAggregate) Claim() map[string]any {
	return map[string]any{
		"points":      a.Points,
		"totalTxs":    a.Transactions,
		"totalChains": a.Chains,
		"totalVolume": tiers.FormatUSD(a.Volume),
		"tier":        tiers.LoyaltyTierFor(a.Points),
	}
}

// ProcessTask implements asynq.Handler.
func (w *LoyaltyPassWorker) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var job LoyaltyJob
	if err := json.Unmarshal(task.Payload(), &job); err != nil {
		return fmt.Errorf("decode loyalty job: %v: %w", err, asynq.SkipRetry)
	}
	log := w.logger.With("wallet", job.Wallet)

	user, err := w.store.UserByWallet(ctx, job.Wallet)
	if errors.Is(err, credstore.ErrUserNotFound) {
		// The refresh only runs after issuance settled; a wallet still unknown
		// to the store has nothing to aggregate and never will for this flow.
		return fmt.Errorf("wallet %s has no store identity: %w", job.Wallet, asynq.SkipRetry)
	}
	if err != nil {
		metrics.Pipeline().IncStoreFailure("userByWallet")
		return fmt.Errorf("resolve wallet %s: %w", job.Wallet, err)
	}

	earned, err := w.store.EarnedCredentials(ctx, user.ID, w.dataModels.All(), earnedPageSize)
	if err != nil {
		metrics.Pipeline().IncStoreFailure("earnedCredentials")
		return fmt.Errorf("query credentials for %s: %w", job.Wallet, err)
	}

	aggregate := w.aggregate(earned)
	log.Info("aggregated wallet credentials",
		"credentials", len(earned), "points", aggregate.Points)
	if aggregate.Points == 0 {
		metrics.Pipeline().ObserveLoyaltyWrite("skipped")
		return nil
	}
	claim := aggregate.Claim()

	existing, err := w.store.EarnedCredentials(ctx, user.ID, []string{w.dataModels.Loyalty}, 1)
	if err != nil {
		metrics.Pipeline().IncStoreFailure("earnedCredentials")
		return fmt.Errorf("query loyalty pass for %s: %w", job.Wallet, err)
	}

	if len(existing) == 0 {
		created, err := w.store.CreateCredential(ctx, credstore.CreateCredentialInput{
			Recipient:   job.Wallet,
			Title:       loyaltyPassTitle,
			Description: loyaltyPassDescription,
			Image:       loyaltyPassImage,
			DataModelID: w.dataModels.Loyalty,
			Claim:       claim,
			OrgID:       w.orgID,
		})
		if err != nil {
			metrics.Pipeline().IncStoreFailure("createCredential")
			return fmt.Errorf("create loyalty pass for %s: %w", job.Wallet, err)
		}
		metrics.Pipeline().ObserveLoyaltyWrite("created")
		log.Info("loyalty pass created", "credential", created.ID, "tier", claim["tier"])
		return nil
	}

	pass := existing[0]
	if claimsEqual(pass.Claim, claim) {
		metrics.Pipeline().ObserveLoyaltyWrite("unchanged")
		log.Info("loyalty pass unchanged", "credential", pass.ID)
		return nil
	}
	if _, err := w.store.UpdateCredential(ctx, credstore.UpdateCredentialInput{
		ID:    pass.ID,
		Claim: claim,
	}); err != nil {
		metrics.Pipeline().IncStoreFailure("updateCredential")
		return fmt.Errorf("update loyalty pass for %s: %w", job.Wallet, err)
	}
	metrics.Pipeline().ObserveLoyaltyWrite("updated")
	log.Info("loyalty pass updated", "credential", pass.ID, "points", aggregate.Points)
	return nil
}

// aggregate folds the wallet's credentials into fresh loyalty state. Points
// come from each claim except Linea credentials, which count a flat 20. The
// volume/transaction/chain totals accumulate only from the three recurring
// monthly data models.
func (w *LoyaltyPassWorker) aggregate(credentials []credstore.Credential) passAggregate {
	var out passAggregate
	for _, credential := range credentials {
		if credential.DataModelID == w.dataModels.Linea {
			out.Points += lineaFlatPoints
			continue
		}
		out.Points += claimNumber(credential.Claim, "points")

		switch credential.DataModelID {
		case w.dataModels.Volume:
			if raw, ok := credential.Claim["volume"].(string); ok {
				if volume, err := tiers.ParseUSD(raw); err == nil {
					out.Volume += volume
				} else {
					w.logger.Warn("unparseable volume claim", "volume", raw)
				}
			}
		case w.dataModels.Transactions:
			out.Transactions += int64(claimNumber(credential.Claim, "transactions"))
		case w.dataModels.Networks:
			out.Chains += int64(claimNumber(credential.Claim, "chains"))
		}
	}
	return out
}

// claimNumber reads a numeric claim field. Claims round-trip through JSON so
// numbers usually arrive as float64, but locally built claims may hold ints.
func claimNumber(claim map[string]any, key string) float64 {
	switch n := claim[key].(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		f, _ := n.Float64()
		return f
	}
	return 0
}

// claimsEqual reports whether two claims carry the same fields with the same
// values, treating numerically equal values as equal regardless of Go type.
// The fresh claim fully supersedes the stored one, so any difference in either
// direction warrants a write.
func claimsEqual(stored, fresh map[string]any) bool {
	if len(stored) != len(fresh) {
		return false
	}
	for key, storedValue := range stored {
		freshValue, ok := fresh[key]
		if !ok {
			return false
		}
		storedNumber, storedIsNumber := asFloat(storedValue)
		freshNumber, freshIsNumber := asFloat(freshValue)
		if storedIsNumber != freshIsNumber {
			return false
		}
		if storedIsNumber {
			if storedNumber != freshNumber {
				return false
			}
			continue
		}
		if fmt.Sprint(storedValue) != fmt.Sprint(freshValue) {
			return false
		}
	}
	return true
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

var _ asynq.Handler = (*LoyaltyPassWorker)(nil)
