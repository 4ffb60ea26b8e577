package catalog

import (
	"fmt"

	"github.com/okian/pokepack/internal/domain/model"
)

// Synthetic pool shape used when no catalog source answers.
const (
	FallbackCommon   = 20
	FallbackUncommon = 10
	FallbackRare     = 10

	// FallbackImage is the placeholder art of every synthetic card.
	FallbackImage = "https://images.pokemontcg.io/sv1/1_small.jpg"
)

// Fallback builds the degraded synthetic pools for setID.
func Fallback(setID string) Pools {
	set := model.CardSet{ID: setID, Name: setID}
	gen := func(tier, label string, n int) []model.Card {
		cards := make([]model.Card, 0, n)
		for i := 1; i <= n; i++ {
			cards = append(cards, model.Card{
				ID:     fmt.Sprintf("%s-%s-%d", setID, tier, i),
				Name:   fmt.Sprintf("Sample %s %d", label, i),
				Rarity: label,
				Number: fmt.Sprint(i),
				Images: model.CardImages{Small: FallbackImage, Large: FallbackImage},
				Set:    set,
			})
		}
		return cards
	}
	return Pools{
		Common:       gen("common", "Common", FallbackCommon),
		Uncommon:     gen("uncommon", "Uncommon", FallbackUncommon),
		RareOrHigher: gen("rare", "Rare", FallbackRare),
	}
}
