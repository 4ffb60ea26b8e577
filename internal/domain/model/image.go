package model

import (
	"fmt"
	"regexp"
	"strings"
)

// PlaceholderImage is the stand-in image older collections stored when a
// card came without one.
const PlaceholderImage = "poke-ball.png"

// CardCDN serves card scans by set and collector number.
const CardCDN = "https://images.pokemontcg.io"

// Accepts "swsh1-1" as well as ids with a rarity chunk like "swsh1-common-14".
var cardIDPattern = regexp.MustCompile(`(?i)^([a-z0-9.]+)-(?:[a-z-]+-)?([a-z0-9]+)$`)

// NeedsImage reports whether the entry has no real image.
func (e CollectionEntry) NeedsImage() bool {
	return e.CardImageURL == "" || strings.Contains(e.CardImageURL, PlaceholderImage)
}

// CardImageURL derives the large CDN image from a card id. Sword & Shield
// numbers are zero-padded to three digits.
func CardImageURL(cardID string) (string, bool) {
	m := cardIDPattern.FindStringSubmatch(cardID)
	if m == nil {
		return "", false
	}
	setID, num := m[1], m[2]
	if strings.HasPrefix(setID, "swsh") && len(num) < 3 {
		num = strings.Repeat("0", 3-len(num)) + num
	}
	return fmt.Sprintf("%s/%s/%s_large.jpg", CardCDN, setID, num), true
}
