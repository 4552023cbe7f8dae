package dispatch

import (
	"fmt"

	"loyaltyd/config"
	"loyaltyd/queue"
	"loyaltyd/report"
	"loyaltyd/tiers"
)

var credentialTags = []string{"DeFi", "Bridging"}

var metricDisplay = map[tiers.Category]string{
	tiers.Networks:     "Chainoor",
	tiers.Transactions: "Transactoor",
	tiers.Volume:       "Volumoor",
}

var metricDescription = map[tiers.Category]string{
	tiers.Volume:       "This is a monthly PDA issued by LI.FI to it's users of the Jumper Exchange platform based on the total volume transacted.",
	tiers.Transactions: "This is a monthly PDA issued by LI.FI to it's users of the Jumper Exchange platform based on the total # of TXs completed.",
	tiers.Networks:     "This is a monthly PDA issued by LI.FI to it's users of the Jumper Exchange platform based on the unique chains used.",
}

// Short metric names used inside idempotency keys, distinct from the display
// names above.
var metricKey = map[tiers.Category]string{
	tiers.Volume:       "volume",
	tiers.Networks:     "network",
	tiers.Transactions: "txn",
}

var tierImageFolder = map[tiers.Category]string{
	tiers.Networks:     "Chains",
	tiers.Transactions: "Transactions",
	tiers.Volume:       "Volume",
}

var tierImageFile = map[tiers.Label]string{
	tiers.Baby:       "01+%s+-+Novice.png",
	tiers.PowerUser:  "02+%s+-+Power.png",
	tiers.Chad:       "03+%s+-+Chad.png",
	tiers.Ape:        "04+%s+-+Ape.png",
	tiers.Degen:      "05+%s+-+Degen.png",
	tiers.GrandDegen: "06+%s+-+Grand.png",
}

func tierImage(category tiers.Category, label tiers.Label) string {
	file, ok := tierImageFile[label]
	if !ok {
		return ""
	}
	folder := tierImageFolder[category]
	return fmt.Sprintf("https://cdn.mygateway.xyz/implementations/Designs+-+%s/"+file, folder, folder)
}

func dataModelFor(category tiers.Category, dm config.DataModelConfig) string {
	switch category {
	case tiers.Volume:
		return dm.Volume
	case tiers.Transactions:
		return dm.Transactions
	case tiers.Networks:
		return dm.Networks
	}
	return ""
}

func campaignDataModel(campaign tiers.Campaign, dm config.DataModelConfig) string {
	switch campaign {
	case tiers.CampaignOG:
		return dm.OG
	case tiers.CampaignBoostor:
		return dm.Boostor
	case tiers.CampaignTransferTo:
		return dm.TransferTo
	case tiers.CampaignLinea:
		return dm.Linea
	}
	return ""
}

func categoryValue(snapshot report.Snapshot, category tiers.Category) float64 {
	switch category {
	case tiers.Volume:
		return snapshot.Volume
	case tiers.Transactions:
		return float64(snapshot.Transactions)
	case tiers.Networks:
		return float64(snapshot.Networks)
	}
	return 0
}

// BuildWalletJobs turns a monthly snapshot into one issuance job per metric
// category the wallet tiered in. A category below its lowest threshold emits
// nothing; an entirely inactive wallet yields an empty slice, and its flow
// degenerates to a bare loyalty refresh.
func BuildWalletJobs(snapshot report.Snapshot, dm config.DataModelConfig) []queue.CredentialJob {
	jobs := make([]queue.CredentialJob, 0, len(tiers.StandardCategories))
	for _, category := range tiers.StandardCategories {
		value := categoryValue(snapshot, category)
		label, ok := tiers.Standard.Classify(category, value)
		if !ok {
			continue
		}
		points := tiers.Points(category, label)

		claim := map[string]any{
			"tier":   tiers.FormatLabel(label),
			"points": points,
		}
		switch category {
		case tiers.Volume:
			claim["volume"] = tiers.FormatUSD(snapshot.Volume)
		case tiers.Transactions:
			claim["transactions"] = snapshot.Transactions
		case tiers.Networks:
			claim["chains"] = snapshot.Networks
		}

		jobs = append(jobs, queue.CredentialJob{
			ID:          fmt.Sprintf("issue-%s-%s-%s", metricKey[category], snapshot.Month, snapshot.Wallet),
			Recipient:   snapshot.Wallet,
			Title:       fmt.Sprintf("%s - %s", metricDisplay[category], snapshot.Month.Display()),
			Description: metricDescription[category],
			Image:       tierImage(category, label),
			DataModelID: dataModelFor(category, dm),
			Claim:       claim,
			Tags:        credentialTags,
			Points:      points,
		})
	}
	return jobs
}

// BuildLineaJob builds the single Linea Voyage issuance job. Volume and
// transaction points from the voyage ladder are summed; a metric below its
// lowest rung contributes zero. The job is always emitted, points or not.
func BuildLineaJob(snapshot report.Snapshot, dm config.DataModelConfig) queue.CredentialJob {
	info, _ := tiers.Info(tiers.CampaignLinea)

	var points float64
	if label, ok := tiers.LineaVoyage.Classify(tiers.Volume, snapshot.Volume); ok {
		points += tiers.LineaPoints(tiers.Volume, label)
	}
	if label, ok := tiers.LineaVoyage.Classify(tiers.Transactions, float64(snapshot.Transactions)); ok {
		points += tiers.LineaPoints(tiers.Transactions, label)
	}

	return queue.CredentialJob{
		ID:          fmt.Sprintf("issue-volume-%s", snapshot.Wallet),
		Recipient:   snapshot.Wallet,
		Title:       info.Title,
		Description: info.Description,
		Image:       info.Image,
		DataModelID: dm.Linea,
		Claim: map[string]any{
			"volume":       tiers.FormatUSD(snapshot.Volume),
			"transactions": snapshot.Transactions,
			"points":       points,
		},
		Tags:     credentialTags,
		Points:   points,
		Campaign: tiers.CampaignLinea,
	}
}

// BuildCampaignJob builds the single issuance job for a one-off campaign
// snapshot. The claim carries the report's raw points and, when the total
// clears a campaign threshold, the internal tier label.
func BuildCampaignJob(snapshot report.Snapshot, dm config.DataModelConfig) (queue.CredentialJob, error) {
	info, ok := tiers.Info(snapshot.Campaign)
	if !ok {
		return queue.CredentialJob{}, fmt.Errorf("dispatch: unknown campaign %q", snapshot.Campaign)
	}

	claim := map[string]any{"points": snapshot.Points}
	if label, ok := tiers.ClassifyCampaign(snapshot.Campaign, snapshot.Points); ok {
		claim["tier"] = string(label)
	}

	return queue.CredentialJob{
		ID:          fmt.Sprintf("issue-%s-%s", snapshot.Campaign, snapshot.Wallet),
		Recipient:   snapshot.Wallet,
		Title:       info.Title,
		Description: info.Description,
		Image:       info.Image,
		DataModelID: campaignDataModel(snapshot.Campaign, dm),
		Claim:       claim,
		Tags:        credentialTags,
		Points:      snapshot.Points,
		Campaign:    snapshot.Campaign,
	}, nil
}
