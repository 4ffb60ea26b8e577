package draw

import (
	"github.com/okian/pokepack/internal/domain/catalog"
	"github.com/okian/pokepack/internal/domain/model"
)

// Step draws Count cards from the first non-empty bucket of Chain.
type Step struct {
	Chain []catalog.Bucket
	Count int
}

// Template is an ordered list of steps. Target is the sum of the step counts.
type Template []Step

// StandardPack is the ten-card booster: one rare slot, three uncommons, six commons.
var StandardPack = Template{ //nolint:gochecknoglobals // fixed pack layout
	{Chain: []catalog.Bucket{catalog.RareOrHigher, catalog.Uncommon, catalog.Common}, Count: 1},
	{Chain: []catalog.Bucket{catalog.Uncommon, catalog.Common}, Count: 3},
	{Chain: []catalog.Bucket{catalog.Common, catalog.Uncommon, catalog.RareOrHigher}, Count: 6},
}

// Target is the number of cards the template asks for.
func (t Template) Target() int {
	n := 0
	for _, s := range t {
		n += s.Count
	}
	return n
}

// Card is a drawn card tagged with the bucket it came from.
type Card struct {
	model.Card
	Bucket catalog.Bucket
}

// Draw runs the template against pools. Each step samples without
// replacement from the first bucket of its chain that still has cards, then
// any shortfall is sampled from whatever remains across all buckets. A card
// is drawn at most once per call, so the result holds exactly
// min(target, pools.Total()) cards. Empty pools yield an empty slice.
func Draw(pools catalog.Pools, tmpl Template, src RandomSource) []Card {
	target := tmpl.Target()
	out := make([]Card, 0, target)

	remaining := make(map[catalog.Bucket][]model.Card, len(catalog.Buckets))
	for _, b := range catalog.Buckets {
		remaining[b] = append([]model.Card(nil), pools.Bucket(b)...)
	}

	take := func(b catalog.Bucket, n int) {
		picked, rest := sample(remaining[b], n, src)
		remaining[b] = rest
		for _, c := range picked {
			out = append(out, Card{Card: c, Bucket: b})
		}
	}

	for _, step := range tmpl {
		for _, b := range step.Chain {
			if len(remaining[b]) > 0 {
				take(b, step.Count)
				break
			}
		}
	}

	// Top-up: pick a bucket weighted by what it has left, one card at a time,
	// which is a uniform draw over the union.
	for len(out) < target {
		left := 0
		for _, b := range catalog.Buckets {
			left += len(remaining[b])
		}
		if left == 0 {
			break
		}
		i := Intn(src, left)
		for _, b := range catalog.Buckets {
			if i < len(remaining[b]) {
				c := remaining[b][i]
				remaining[b] = removeAt(remaining[b], i)
				out = append(out, Card{Card: c, Bucket: b})
				break
			}
			i -= len(remaining[b])
		}
	}
	return out
}

// sample picks up to n distinct cards with a partial Fisher-Yates shuffle and
// returns them along with the cards left behind. items is reordered in place.
func sample(items []model.Card, n int, src RandomSource) ([]model.Card, []model.Card) {
	if n <= 0 || len(items) == 0 {
		return nil, items
	}
	if n > len(items) {
		n = len(items)
	}
	for i := 0; i < n; i++ {
		j := i + Intn(src, len(items)-i)
		items[i], items[j] = items[j], items[i]
	}
	picked := append([]model.Card(nil), items[:n]...)
	return picked, items[n:]
}

func removeAt(cards []model.Card, i int) []model.Card {
	cards[i] = cards[len(cards)-1]
	return cards[:len(cards)-1]
}

// Cards strips the bucket tags.
func Cards(drawn []Card) []model.Card {
	out := make([]model.Card, len(drawn))
	for i, d := range drawn {
		out[i] = d.Card
	}
	return out
}
