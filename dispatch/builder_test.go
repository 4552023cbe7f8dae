package dispatch

import (
	"testing"

	"loyaltyd/config"
	"loyaltyd/report"
	"loyaltyd/tiers"
)

var testDataModels = config.DataModelConfig{
	Volume:       "dm-volume",
	Transactions: "dm-txn",
	Networks:     "dm-chains",
	Loyalty:      "dm-loyalty",
	OG:           "dm-og",
	Boostor:      "dm-boostor",
	TransferTo:   "dm-transferto",
	Linea:        "dm-linea",
}

func TestBuildWalletJobs(t *testing.T) {
	snapshot := report.Snapshot{
		Kind:         report.KindMonthly,
		Wallet:       "0xAbC",
		Month:        report.Sep,
		Volume:       15000,
		Transactions: 60,
		Networks:     6,
	}
	jobs := BuildWalletJobs(snapshot, testDataModels)
	if len(jobs) != 3 {
		t.Fatalf("jobs = %d, want 3", len(jobs))
	}

	byModel := make(map[string]int)
	for i, job := range jobs {
		byModel[job.DataModelID] = i
	}

	volume := jobs[byModel["dm-volume"]]
	if volume.Title != "Volumoor - September" {
		t.Fatalf("volume title = %q", volume.Title)
	}
	if volume.ID != "issue-volume-SEP-0xAbC" {
		t.Fatalf("volume id = %q", volume.ID)
	}
	if volume.Claim["tier"] != "Chad" || volume.Points != 25 {
		t.Fatalf("volume tier/points = %v/%v", volume.Claim["tier"], volume.Points)
	}
	if volume.Claim["volume"] != "$15,000.00" {
		t.Fatalf("volume claim = %v", volume.Claim["volume"])
	}
	if volume.Image != "https://cdn.mygateway.xyz/implementations/Designs+-+Volume/03+Volume+-+Chad.png" {
		t.Fatalf("volume image = %q", volume.Image)
	}

	transactions := jobs[byModel["dm-txn"]]
	if transactions.Title != "Transactoor - September" || transactions.ID != "issue-txn-SEP-0xAbC" {
		t.Fatalf("transactions job = %+v", transactions)
	}
	if transactions.Claim["tier"] != "Grand Degen" || transactions.Points != 50 {
		t.Fatalf("transactions tier/points = %v/%v", transactions.Claim["tier"], transactions.Points)
	}
	if transactions.Claim["transactions"] != int64(60) {
		t.Fatalf("transactions claim = %v", transactions.Claim["transactions"])
	}

	networks := jobs[byModel["dm-chains"]]
	if networks.Title != "Chainoor - September" || networks.ID != "issue-network-SEP-0xAbC" {
		t.Fatalf("networks job = %+v", networks)
	}
	// 6 unique chains clears the ape floor of 5 but not degen's 7.
	if networks.Claim["tier"] != "Ape" || networks.Points != 20 {
		t.Fatalf("networks tier/points = %v/%v", networks.Claim["tier"], networks.Points)
	}
	if networks.Claim["chains"] != int64(6) {
		t.Fatalf("chains claim = %v", networks.Claim["chains"])
	}

	for _, job := range jobs {
		if len(job.Tags) != 2 || job.Tags[0] != "DeFi" || job.Tags[1] != "Bridging" {
			t.Fatalf("tags = %v", job.Tags)
		}
		if job.Recipient != "0xAbC" {
			t.Fatalf("recipient = %q", job.Recipient)
		}
	}
}

func TestBuildWalletJobsSkipsUntieredCategories(t *testing.T) {
	snapshot := report.Snapshot{
		Kind:         report.KindMonthly,
		Wallet:       "0xAbC",
		Month:        report.Sep,
		Volume:       50, // below the baby floor of 100
		Transactions: 3,
		Networks:     0,
	}
	jobs := BuildWalletJobs(snapshot, testDataModels)
	if len(jobs) != 1 {
		t.Fatalf("jobs = %d, want 1 (transactions only)", len(jobs))
	}
	if jobs[0].DataModelID != "dm-txn" || jobs[0].Claim["tier"] != "Novice" {
		t.Fatalf("unexpected job: %+v", jobs[0])
	}
}

func TestBuildWalletJobsInactiveWallet(t *testing.T) {
	snapshot := report.Snapshot{Kind: report.KindMonthly, Wallet: "0xAbC", Month: report.Sep}
	if jobs := BuildWalletJobs(snapshot, testDataModels); len(jobs) != 0 {
		t.Fatalf("inactive wallet built %d jobs", len(jobs))
	}
}

func TestBuildLineaJob(t *testing.T) {
	snapshot := report.Snapshot{
		Kind:         report.KindLinea,
		Wallet:       "0xAbC",
		Campaign:     tiers.CampaignLinea,
		Volume:       800, // wanderer
		Transactions: 3,   // explorer
	}
	job := BuildLineaJob(snapshot, testDataModels)
	if job.ID != "issue-volume-0xAbC" {
		t.Fatalf("id = %q", job.ID)
	}
	if job.Title != "Linea Voyage" || job.DataModelID != "dm-linea" {
		t.Fatalf("job = %+v", job)
	}
	want := 30.731 + 8.453
	if job.Points != want || job.Claim["points"] != want {
		t.Fatalf("points = %v, want %v", job.Points, want)
	}
	if job.Claim["volume"] != "$800.00" || job.Claim["transactions"] != int64(3) {
		t.Fatalf("claim = %+v", job.Claim)
	}
}

func TestBuildLineaJobBelowLadderStillEmits(t *testing.T) {
	snapshot := report.Snapshot{
		Kind:     report.KindLinea,
		Wallet:   "0xAbC",
		Campaign: tiers.CampaignLinea,
		Volume:   10,
	}
	job := BuildLineaJob(snapshot, testDataModels)
	if job.Points != 0 {
		t.Fatalf("points = %v, want 0", job.Points)
	}
}

func TestBuildCampaignJob(t *testing.T) {
	snapshot := report.Snapshot{
		Kind:     report.KindCampaign,
		Wallet:   "0xAbC",
		Campaign: tiers.CampaignBoostor,
		Points:   12,
	}
	job, err := BuildCampaignJob(snapshot, testDataModels)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if job.Title != "xp_boost" || job.DataModelID != "dm-boostor" {
		t.Fatalf("job = %+v", job)
	}
	if job.ID != "issue-boostor-0xAbC" {
		t.Fatalf("id = %q", job.ID)
	}
	if job.Claim["points"] != float64(12) || job.Claim["tier"] != "chad" {
		t.Fatalf("claim = %+v", job.Claim)
	}
}

func TestBuildCampaignJobBelowThresholdOmitsTier(t *testing.T) {
	snapshot := report.Snapshot{
		Kind:     report.KindCampaign,
		Wallet:   "0xAbC",
		Campaign: tiers.CampaignOG,
		Points:   50, // og requires 100
	}
	job, err := BuildCampaignJob(snapshot, testDataModels)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, ok := job.Claim["tier"]; ok {
		t.Fatalf("tier should be absent below threshold: %+v", job.Claim)
	}
}

func TestBuildCampaignJobUnknownCampaign(t *testing.T) {
	snapshot := report.Snapshot{Kind: report.KindCampaign, Wallet: "0xAbC", Campaign: "mystery"}
	if _, err := BuildCampaignJob(snapshot, testDataModels); err == nil {
		t.Fatal("expected error for unknown campaign")
	}
}
