// Package catalog partitions catalog cards into rarity pools.
package catalog

import (
	"strings"

	"github.com/okian/pokepack/internal/domain/model"
)

// Bucket is a rarity tier.
type Bucket int

const (
	Common Bucket = iota
	Uncommon
	RareOrHigher
)

// Buckets lists every tier in ascending rarity.
var Buckets = []Bucket{Common, Uncommon, RareOrHigher} //nolint:gochecknoglobals // fixed tier order

// String returns the metrics/log label of the bucket.
func (b Bucket) String() string {
	switch b {
	case Common:
		return "common"
	case Uncommon:
		return "uncommon"
	case RareOrHigher:
		return "rare"
	default:
		return "unknown"
	}
}

// rareMarkers promote a label to RareOrHigher when contained anywhere in it.
var rareMarkers = []string{ //nolint:gochecknoglobals // static lookup table
	"Amazing Rare",
	"Promo",
	"Rare Holo VSTAR",
	"Rare Secret",
	"Rare Ultra",
}

// Classify maps a rarity label to exactly one bucket. Labels that are neither
// common nor rare (trainer-type, empty, unknown) land in Uncommon.
func Classify(rarity string) Bucket {
	switch rarity {
	case "Common":
		return Common
	case "Uncommon":
		return Uncommon
	}
	if strings.HasPrefix(rarity, "Rare") {
		return RareOrHigher
	}
	for _, m := range rareMarkers {
		if strings.Contains(rarity, m) {
			return RareOrHigher
		}
	}
	return Uncommon
}

// Pools holds one set's cards split by rarity tier.
type Pools struct {
	Common       []model.Card `json:"common"`
	Uncommon     []model.Card `json:"uncommon"`
	RareOrHigher []model.Card `json:"rare"`
}

// Counts is the per-bucket size of a Pools value.
type Counts struct {
	Common   int `json:"common"`
	Uncommon int `json:"uncommon"`
	Rare     int `json:"rare"`
}

// Partition classifies every card into exactly one bucket, preserving order.
func Partition(cards []model.Card) Pools {
	var p Pools
	for _, c := range cards {
		switch Classify(c.Rarity) {
		case Common:
			p.Common = append(p.Common, c)
		case Uncommon:
			p.Uncommon = append(p.Uncommon, c)
		case RareOrHigher:
			p.RareOrHigher = append(p.RareOrHigher, c)
		}
	}
	return p
}

// Bucket returns the cards of tier b.
func (p Pools) Bucket(b Bucket) []model.Card {
	switch b {
	case Common:
		return p.Common
	case Uncommon:
		return p.Uncommon
	case RareOrHigher:
		return p.RareOrHigher
	default:
		return nil
	}
}

// Total is the number of cards across all buckets.
func (p Pools) Total() int {
	return len(p.Common) + len(p.Uncommon) + len(p.RareOrHigher)
}

// Counts reports the bucket sizes.
func (p Pools) Counts() Counts {
	return Counts{Common: len(p.Common), Uncommon: len(p.Uncommon), Rare: len(p.RareOrHigher)}
}

// Empty reports whether no bucket holds a card.
func (p Pools) Empty() bool { return p.Total() == 0 }
