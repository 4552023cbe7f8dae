package tiers

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// FormatLabel renders an internal tier label for display in a credential
// claim. The lowest standard tier has a dedicated human name; everything else
// is the snake_case key in title case.
func FormatLabel(label Label) string {
	if label == Baby {
		return "Novice"
	}
	words := strings.ReplaceAll(string(label), "_", " ")
	return cases.Title(language.AmericanEnglish).String(words)
}

// FormatUSD renders a dollar amount the way claims store it: fixed en-US
// currency style with cent precision and thousands grouping. Rendering must be
// byte-stable across runs because downstream idempotence checks compare claim
// strings for equality.
func FormatUSD(amount float64) string {
	printer := message.NewPrinter(language.AmericanEnglish)
	return printer.Sprintf("$%.2f", amount)
}

// ParseUSD inverts FormatUSD, accepting any claim value produced by it (or by
// earlier issuers using the same en-US style).
func ParseUSD(s string) (float64, error) {
	cleaned := strings.NewReplacer("$", "", ",", "").Replace(strings.TrimSpace(s))
	if cleaned == "" {
		return 0, fmt.Errorf("tiers: empty currency string")
	}
	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("tiers: parse currency %q: %w", s, err)
	}
	return amount, nil
}
