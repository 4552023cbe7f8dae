package report

import (
	"log/slog"
	"strconv"
)

// TransactionStatus mirrors the analytics export's status field.
type TransactionStatus string

const (
	StatusCompleted TransactionStatus = "COMPLETED"
	StatusPending   TransactionStatus = "PENDING"
)

// AmountDetail is one leg of an analytics transaction.
type AmountDetail struct {
	AmountUSD string `json:"amountUSD"`
	ChainID   int64  `json:"chainId"`
}

// WalletTransaction is one raw transaction from the analytics export.
type WalletTransaction struct {
	Status    TransactionStatus `json:"status"`
	Sending   *AmountDetail     `json:"sending,omitempty"`
	Receiving *AmountDetail     `json:"receiving,omitempty"`
}

// WalletAnalytics is the raw per-wallet transaction log.
type WalletAnalytics struct {
	WalletAddress string              `json:"walletAddress"`
	Transactions  []WalletTransaction `json:"transactions"`
}

// MonthlyMetrics is the reduced per-wallet metrics row the stats endpoint
// writes; its shape matches what the issue endpoints later re-ingest.
type MonthlyMetrics struct {
	Wallet              string  `json:"wallet"`
	Month               Month   `json:"month,omitempty"`
	TotalTransactions   int64   `json:"totalTransactions"`
	TotalUniqueNetworks int64   `json:"totalUniqueNetworks"`
	TotalVolume         float64 `json:"totalVolume"`
}

// ComputeWalletMetrics reduces a raw transaction log to monthly metrics.
// Pending transactions are skipped entirely. Volume prefers the sending leg's
// USD amount and falls back to the receiving leg; a transaction with neither
// still counts toward the transaction and chain totals. A wallet with no
// transactions reduces to all zeros.
func ComputeWalletMetrics(stats WalletAnalytics, month Month) MonthlyMetrics {
	metrics := MonthlyMetrics{Wallet: stats.WalletAddress, Month: month}
	if len(stats.Transactions) == 0 {
		slog.Warn("wallet has no transactions", "wallet", stats.WalletAddress)
		return metrics
	}

	chains := make(map[int64]struct{})
	for _, txn := range stats.Transactions {
		if txn.Status == StatusPending {
			continue
		}
		metrics.TotalTransactions++

		switch {
		case txn.Sending != nil && txn.Sending.AmountUSD != "":
			metrics.TotalVolume += parseAmount(txn.Sending.AmountUSD)
		case txn.Receiving != nil && txn.Receiving.AmountUSD != "":
			metrics.TotalVolume += parseAmount(txn.Receiving.AmountUSD)
		default:
			slog.Warn("transaction missing USD amount", "wallet", stats.WalletAddress)
		}

		if txn.Sending != nil {
			chains[txn.Sending.ChainID] = struct{}{}
		} else if txn.Receiving != nil {
			chains[txn.Receiving.ChainID] = struct{}{}
		}
	}
	metrics.TotalUniqueNetworks = int64(len(chains))
	return metrics
}

func parseAmount(s string) float64 {
	amount, err := strconv.ParseFloat(s, 64)
	if err != nil {
		slog.Warn("unparsable USD amount", "value", s)
		return 0
	}
	return amount
}
