package tiers

import "testing"

func TestFormatLabel(t *testing.T) {
	cases := map[Label]string{
		Baby:       "Novice",
		PowerUser:  "Power User",
		GrandDegen: "Grand Degen",
		Chad:       "Chad",
		Captain:    "Captain",
	}
	for label, want := range cases {
		if got := FormatLabel(label); got != want {
			t.Fatalf("FormatLabel(%s) = %q, want %q", label, got, want)
		}
	}
}

func TestFormatUSD(t *testing.T) {
	cases := map[float64]string{
		0:        "$0.00",
		1120.41:  "$1,120.41",
		15000:    "$15,000.00",
		500000.5: "$500,000.50",
	}
	for amount, want := range cases {
		if got := FormatUSD(amount); got != want {
			t.Fatalf("FormatUSD(%v) = %q, want %q", amount, got, want)
		}
	}
}

func TestParseUSDRoundTrip(t *testing.T) {
	for _, amount := range []float64{0, 99.99, 1120.41, 15000, 1_000_000} {
		parsed, err := ParseUSD(FormatUSD(amount))
		if err != nil {
			t.Fatalf("ParseUSD(%q): %v", FormatUSD(amount), err)
		}
		if parsed != amount {
			t.Fatalf("round trip %v -> %q -> %v", amount, FormatUSD(amount), parsed)
		}
	}
	if _, err := ParseUSD(""); err == nil {
		t.Fatal("expected error for empty string")
	}
	if _, err := ParseUSD("$not-a-number"); err == nil {
		t.Fatal("expected error for malformed string")
	}
}

func TestLoyaltyTierFor(t *testing.T) {
	cases := map[float64]string{
		0:      "Novice",
		40:     "Novice",
		50:     "Novice",
		51:     "Bronze",
		150:    "Bronze",
		151:    "Silver",
		350:    "Silver", // overlapping boundary resolves to the earlier range
		351:    "Gold",
		700.5:  "Gold", // seam between Gold and Platinum falls back to Gold
		701:    "Platinum",
		1101:   "Tungsten",
		999999: "Tungsten",
	}
	for points, want := range cases {
		if got := LoyaltyTierFor(points); got != want {
			t.Fatalf("LoyaltyTierFor(%v) = %q, want %q", points, got, want)
		}
	}
}

func TestLoyaltyTierSeam(t *testing.T) {
	// Fractional sums between Novice and Bronze resolve to the tier whose
	// minimum they clear rather than failing.
	if got := LoyaltyTierFor(50.5); got != "Novice" {
		t.Fatalf("LoyaltyTierFor(50.5) = %q, want Novice", got)
	}
}
