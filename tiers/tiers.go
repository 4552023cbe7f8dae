// Package tiers holds the immutable classification tables that map raw wallet
// activity metrics onto discrete tiers and point values. Tables are built and
// validated once at package initialisation and never mutated at runtime.
package tiers

import (
	"fmt"
	"math"
)

// Category is a closed enumeration of the metric categories the pipeline
// understands. Referencing a category outside this set is a construction-time
// error, never a runtime lookup miss.
type Category string

const (
	Volume       Category = "volume"
	Transactions Category = "transactions"
	Networks     Category = "networks"
)

// StandardCategories lists the recurring monthly categories in issuance order.
var StandardCategories = []Category{Volume, Networks, Transactions}

// Label is a discrete tier rank such as "chad" or "grand_degen".
type Label string

const (
	Baby       Label = "baby"
	PowerUser  Label = "power_user"
	Chad       Label = "chad"
	Ape        Label = "ape"
	Degen      Label = "degen"
	GrandDegen Label = "grand_degen"
)

// Linea voyage ladder, a campaign-specific tier set.
const (
	Voyager      Label = "voyager"
	Traveler     Label = "traveler"
	Explorer     Label = "explorer"
	Adventurer   Label = "adventurer"
	Seafarer     Label = "seafarer"
	Wanderer     Label = "wanderer"
	Pilgrim      Label = "pilgrim"
	Globetrotter Label = "globetrotter"
	Nomad        Label = "nomad"
	Captain      Label = "captain"
)

// Table is an ordered threshold table. Order runs richest to poorest tier and
// lookup returns the first tier whose per-category minimum the value meets.
// Categories may be sparse: a label with no minimum for a category is skipped
// during classification of that category.
type Table struct {
	name  string
	order []Label
	mins  map[Label]map[Category]float64
}

// NewTable validates and constructs a threshold table. Every label carrying a
// minimum must appear in the order, and minimums must be strictly decreasing
// down the order within each category.
func NewTable(name string, order []Label, mins map[Label]map[Category]float64) (*Table, error) {
	ranked := make(map[Label]int, len(order))
	for i, label := range order {
		ranked[label] = i
	}
	for label := range mins {
		if _, ok := ranked[label]; !ok {
			return nil, fmt.Errorf("tiers: table %s: label %q not in order", name, label)
		}
	}
	seen := make(map[Category]float64)
	for _, label := range order {
		row, ok := mins[label]
		if !ok {
			continue
		}
		for category, min := range row {
			if min < 0 || math.IsNaN(min) || math.IsInf(min, 0) {
				return nil, fmt.Errorf("tiers: table %s: label %q category %q: invalid minimum %v", name, label, category, min)
			}
			if prev, ok := seen[category]; ok && min >= prev {
				return nil, fmt.Errorf("tiers: table %s: category %q: minimum %v at %q does not decrease below %v", name, category, min, label, prev)
			}
			seen[category] = min
		}
	}
	if len(seen) == 0 {
		return nil, fmt.Errorf("tiers: table %s has no thresholds", name)
	}
	return &Table{name: name, order: order, mins: mins}, nil
}

func mustTable(name string, order []Label, mins map[Label]map[Category]float64) *Table {
	table, err := NewTable(name, order, mins)
	if err != nil {
		panic(err)
	}
	return table
}

// Classify returns the richest tier whose minimum for category is less than or
// equal to value. The second return is false when the value clears no tier or
// the input is not a finite non-negative number; both are expected outcomes
// meaning "issue nothing for this category", never errors.
func (t *Table) Classify(category Category, value float64) (Label, bool) {
	if value < 0 || math.IsNaN(value) || math.IsInf(value, 0) {
		return "", false
	}
	for _, label := range t.order {
		row, ok := t.mins[label]
		if !ok {
			continue
		}
		min, ok := row[category]
		if !ok {
			continue
		}
		if value >= min {
			return label, true
		}
	}
	return "", false
}

// Standard is the recurring monthly threshold table. The "baby" minimums are
// the qualification floor: a wallet below them earns nothing for the month.
var Standard = mustTable("standard",
	[]Label{GrandDegen, Degen, Ape, Chad, PowerUser, Baby},
	map[Label]map[Category]float64{
		GrandDegen: {Volume: 500_000, Transactions: 50, Networks: 8},
		Degen:      {Volume: 100_000, Transactions: 36, Networks: 7},
		Ape:        {Volume: 50_000, Transactions: 21, Networks: 5},
		Chad:       {Volume: 10_000, Transactions: 11, Networks: 3},
		PowerUser:  {Volume: 1_000, Transactions: 5, Networks: 2},
		Baby:       {Volume: 100, Transactions: 1, Networks: 1},
	})

// LineaVoyage is the threshold table for the Linea Voyage campaign; it tracks
// only volume and transactions.
var LineaVoyage = mustTable("linea",
	[]Label{Captain, Nomad, Globetrotter, Pilgrim, Wanderer, Seafarer, Adventurer, Explorer, Traveler, Voyager},
	map[Label]map[Category]float64{
		Captain:      {Volume: 3000, Transactions: 16},
		Nomad:        {Volume: 2001, Transactions: 14},
		Globetrotter: {Volume: 1501, Transactions: 12},
		Pilgrim:      {Volume: 1001, Transactions: 10},
		Wanderer:     {Volume: 751, Transactions: 8},
		Seafarer:     {Volume: 501, Transactions: 6},
		Adventurer:   {Volume: 251, Transactions: 4},
		Explorer:     {Volume: 126, Transactions: 3},
		Traveler:     {Volume: 51, Transactions: 2},
		Voyager:      {Volume: 25, Transactions: 1},
	})

var standardPoints = map[Category]map[Label]float64{
	Networks: {
		Baby: 5, PowerUser: 10, Chad: 15, Ape: 20, Degen: 25, GrandDegen: 30,
	},
	Transactions: {
		Baby: 10, PowerUser: 18, Chad: 25, Ape: 33, Degen: 40, GrandDegen: 50,
	},
	Volume: {
		Baby: 10, PowerUser: 18, Chad: 25, Ape: 33, Degen: 40, GrandDegen: 50,
	},
}

var lineaPoints = map[Category]map[Label]float64{
	Volume: {
		Voyager: 5.243, Traveler: 10.313, Explorer: 15.415, Adventurer: 20.524,
		Seafarer: 25.641, Wanderer: 30.731, Pilgrim: 40.824, Globetrotter: 50.983,
		Nomad: 75.99, Captain: 100.999,
	},
	Transactions: {
		Voyager: 2.245, Traveler: 5.321, Explorer: 8.453, Adventurer: 15.548,
		Seafarer: 20.599, Wanderer: 25.689, Pilgrim: 30.78, Globetrotter: 40.898,
		Nomad: 45.911, Captain: 50.999,
	},
}

// Points returns the point value a standard monthly credential is worth for
// the given category and tier. Undefined pairs are worth zero points; that is
// a valid outcome, not a failure.
func Points(category Category, label Label) float64 {
	return standardPoints[category][label]
}

// LineaPoints is the Linea Voyage variant of Points.
func LineaPoints(category Category, label Label) float64 {
	return lineaPoints[category][label]
}
