// Package report normalises the heterogeneous wallet activity exports
// (standard monthly metrics, one-off campaign metrics, Linea voyage metrics)
// into the canonical snapshot the dispatch pipeline consumes. Every wallet
// address crossing this boundary is EIP-55 checksummed; rows that fail to
// normalise are rejected here and never enqueued.
package report

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"loyaltyd/tiers"
)

// Kind discriminates the snapshot variants.
type Kind string

const (
	KindMonthly  Kind = "monthly"
	KindLinea    Kind = "linea"
	KindCampaign Kind = "campaign"
)

// Snapshot is the canonical per-wallet metrics record. It is immutable once
// constructed; only the fields relevant to its Kind are populated.
type Snapshot struct {
	Kind     Kind
	Wallet   string
	Month    Month          // KindMonthly
	Campaign tiers.Campaign // KindLinea, KindCampaign

	Volume       float64 // KindMonthly, KindLinea
	Bridge       float64 // KindMonthly, optional
	Transactions int64   // KindMonthly, KindLinea
	Networks     int64   // KindMonthly
	Points       float64 // KindCampaign
}

// WalletReport is one row of the exported monthly metrics file.
type WalletReport struct {
	ID                   string  `json:"_id"`
	FromAddress          string  `json:"fromAddress"`
	Bucket               string  `json:"bucket"`
	SumTransferUSD       float64 `json:"sumTransferUsd"`
	SumBridgeTransferUSD float64 `json:"sumBridgeTransferUsd,omitempty"`
	Transfers            int64   `json:"transfers"`
	ChainCount           int64   `json:"chainCount"`
}

// LineaReport is one row of the Linea voyage campaign export. The export keys
// the wallet under _id.
type LineaReport struct {
	ID     string  `json:"_id"`
	Count  int64   `json:"count"`
	Volume float64 `json:"volume"`
}

// CampaignReport is one row of the OG / Boostor / TransferTo campaign exports,
// which all share the same shape.
type CampaignReport struct {
	ID          string  `json:"_id"`
	FromAddress string  `json:"fromAddress"`
	Points      float64 `json:"points"`
}

// LoyaltyPassRow is one row of a bare loyalty-pass refresh file.
type LoyaltyPassRow struct {
	FromAddress string `json:"fromAddress"`
}

// ChecksumAddress normalises a wallet address to its EIP-55 checksummed form.
func ChecksumAddress(address string) (string, error) {
	if !common.IsHexAddress(address) {
		return "", fmt.Errorf("report: invalid wallet address %q", address)
	}
	return common.HexToAddress(address).Hex(), nil
}

// ParseWalletReport translates a monthly export row into a canonical snapshot.
// The reporting month is derived from the row's bucket timestamp.
func ParseWalletReport(row WalletReport) (Snapshot, error) {
	wallet, err := ChecksumAddress(row.FromAddress)
	if err != nil {
		return Snapshot{}, err
	}
	bucket, err := time.Parse(time.RFC3339, row.Bucket)
	if err != nil {
		return Snapshot{}, fmt.Errorf("report: parse bucket %q: %w", row.Bucket, err)
	}
	return Snapshot{
		Kind:         KindMonthly,
		Wallet:       wallet,
		Month:        MonthOf(bucket),
		Volume:       row.SumTransferUSD,
		Bridge:       row.SumBridgeTransferUSD,
		Transactions: row.Transfers,
		Networks:     row.ChainCount,
	}, nil
}

// ParseLineaReport translates a Linea voyage export row.
func ParseLineaReport(row LineaReport) (Snapshot, error) {
	wallet, err := ChecksumAddress(row.ID)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		Kind:         KindLinea,
		Wallet:       wallet,
		Campaign:     tiers.CampaignLinea,
		Volume:       row.Volume,
		Transactions: row.Count,
	}, nil
}

// ParseCampaignReport translates a one-off campaign export row.
func ParseCampaignReport(row CampaignReport, campaign tiers.Campaign) (Snapshot, error) {
	wallet, err := ChecksumAddress(row.FromAddress)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		Kind:     KindCampaign,
		Wallet:   wallet,
		Campaign: campaign,
		Points:   row.Points,
	}, nil
}
