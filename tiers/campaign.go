package tiers

import "fmt"

// Campaign identifies a one-off (non-recurring) credential campaign with its
// own tier and point rules.
type Campaign string

const (
	CampaignOG         Campaign = "og"
	CampaignBoostor    Campaign = "boostor"
	CampaignTransferTo Campaign = "transferto"
	CampaignLinea      Campaign = "linea"
)

// ParseCampaign maps the external campaign identifier onto the closed
// enumeration. Unknown identifiers are rejected at the ingestion boundary.
func ParseCampaign(s string) (Campaign, error) {
	switch Campaign(s) {
	case CampaignOG, CampaignBoostor, CampaignTransferTo, CampaignLinea:
		return Campaign(s), nil
	}
	return "", fmt.Errorf("tiers: unknown campaign %q", s)
}

// CampaignInfo carries the fixed issuance copy for a campaign credential and,
// for point-threshold campaigns, the sparse subset of the standard ladder the
// campaign uses. Data-model identifiers are injected from configuration, never
// stored here.
type CampaignInfo struct {
	Title       string
	Description string
	Image       string
	// Thresholds holds the minimum qualifying point totals per label. Labels
	// absent from the map are skipped during classification. Empty for the
	// Linea campaign, which uses the LineaVoyage table instead.
	Thresholds map[Label]float64
}

var campaignInfo = map[Campaign]CampaignInfo{
	CampaignBoostor: {
		Title:       "xp_boost",
		Description: "This is a one-off PDA issued by LI.FI to the users of Jumper based on the volume generated through insurance",
		Image:       "https://jumper-static.s3.us-east-2.amazonaws.com/xpboost.png",
		Thresholds: map[Label]float64{
			Baby: 7, PowerUser: 8, Chad: 10, Ape: 18, Degen: 25,
		},
	},
	CampaignTransferTo: {
		Title:       "TransferTo.xyz",
		Description: "This is a one-off PDA issued by LI.FI to the users of transferto.xyz based on the total volume generated",
		Image:       "https://jumper-static.s3.us-east-2.amazonaws.com/transfertoxyz.png",
		Thresholds: map[Label]float64{
			Baby: 100, PowerUser: 300, Chad: 500,
		},
	},
	CampaignOG: {
		Title:       "jumper_og",
		Description: "This is a one-off PDA issued by LI.FI to the Jumper OG community",
		Image:       "https://jumper-static.s3.us-east-2.amazonaws.com/og.png",
		Thresholds: map[Label]float64{
			Baby: 100,
		},
	},
	CampaignLinea: {
		Title:       "Linea Voyage",
		Description: "Representation of users bridging activity on Jumper Exchange during the Linea Voyage Campaign.",
		Image:       "https://cdn.mygateway.xyz/implementations/linea+voyage.png",
	},
}

// Info returns the issuance copy for a campaign.
func Info(campaign Campaign) (CampaignInfo, bool) {
	info, ok := campaignInfo[campaign]
	return info, ok
}

// ClassifyCampaign walks the standard ladder richest to poorest and returns
// the first label whose campaign point threshold the value meets, skipping
// labels the campaign does not define. A value below every defined threshold
// yields no tier, meaning the wallet earns no campaign credential tier.
func ClassifyCampaign(campaign Campaign, points float64) (Label, bool) {
	info, ok := campaignInfo[campaign]
	if !ok || len(info.Thresholds) == 0 {
		return "", false
	}
	if points < 0 {
		return "", false
	}
	for _, label := range []Label{GrandDegen, Degen, Ape, Chad, PowerUser, Baby} {
		min, ok := info.Thresholds[label]
		if !ok {
			continue
		}
		if points >= min {
			return label, true
		}
	}
	return "", false
}
