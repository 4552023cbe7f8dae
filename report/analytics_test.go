package report

import "testing"

func completed(amountUSD string, chainID int64) WalletTransaction {
	return WalletTransaction{
		Status:    StatusCompleted,
		Sending:   &AmountDetail{AmountUSD: amountUSD, ChainID: chainID},
		Receiving: &AmountDetail{AmountUSD: amountUSD, ChainID: chainID},
	}
}

func TestComputeWalletMetrics(t *testing.T) {
	stats := WalletAnalytics{
		WalletAddress: "0x0000000000000000000000000000000000000000",
		Transactions: []WalletTransaction{
			completed("100", 1),
			completed("50.5", 1),
			completed("25", 137),
		},
	}
	metrics := ComputeWalletMetrics(stats, Sep)
	if metrics.TotalTransactions != 3 {
		t.Fatalf("transactions = %d, want 3", metrics.TotalTransactions)
	}
	if metrics.TotalUniqueNetworks != 2 {
		t.Fatalf("unique networks = %d, want 2", metrics.TotalUniqueNetworks)
	}
	if metrics.TotalVolume != 175.5 {
		t.Fatalf("volume = %v, want 175.5", metrics.TotalVolume)
	}
	if metrics.Month != Sep {
		t.Fatalf("month = %q, want SEP", metrics.Month)
	}
}

func TestComputeWalletMetricsSkipsPending(t *testing.T) {
	stats := WalletAnalytics{
		WalletAddress: "0x0000000000000000000000000000000000000000",
		Transactions: []WalletTransaction{
			completed("100", 1),
			{Status: StatusPending, Sending: &AmountDetail{AmountUSD: "50", ChainID: 2}},
		},
	}
	metrics := ComputeWalletMetrics(stats, "")
	if metrics.TotalTransactions != 1 || metrics.TotalUniqueNetworks != 1 || metrics.TotalVolume != 100 {
		t.Fatalf("pending transaction leaked into metrics: %+v", metrics)
	}
}

func TestComputeWalletMetricsFallsBackToReceiving(t *testing.T) {
	stats := WalletAnalytics{
		WalletAddress: "0x0000000000000000000000000000000000000000",
		Transactions: []WalletTransaction{
			{Status: StatusCompleted, Receiving: &AmountDetail{AmountUSD: "42", ChainID: 10}},
		},
	}
	metrics := ComputeWalletMetrics(stats, "")
	if metrics.TotalVolume != 42 || metrics.TotalUniqueNetworks != 1 {
		t.Fatalf("receiving fallback not applied: %+v", metrics)
	}
}

func TestComputeWalletMetricsEmpty(t *testing.T) {
	metrics := ComputeWalletMetrics(WalletAnalytics{WalletAddress: "0xabc"}, Sep)
	if metrics.TotalTransactions != 0 || metrics.TotalUniqueNetworks != 0 || metrics.TotalVolume != 0 {
		t.Fatalf("expected zero metrics: %+v", metrics)
	}
}

func TestComputeWalletMetricsCountsTxnWithoutAmount(t *testing.T) {
	stats := WalletAnalytics{
		WalletAddress: "0x0000000000000000000000000000000000000000",
		Transactions: []WalletTransaction{
			{Status: StatusCompleted, Sending: &AmountDetail{ChainID: 5}},
		},
	}
	metrics := ComputeWalletMetrics(stats, "")
	if metrics.TotalTransactions != 1 || metrics.TotalVolume != 0 {
		t.Fatalf("amount-less transaction handling: %+v", metrics)
	}
}
