// Package model contains domain models passed between layers.
package model

import "time"

// User is a registered player and their PokéCoin balance.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	PokeCoins int64     `json:"poke_coins"`
	CreatedAt time.Time `json:"-"`
}

// CollectionEntry is one card permanently owned by a user.
type CollectionEntry struct {
	ID           int64  `json:"id"`
	UserID       int64  `json:"user_id"`
	CardID       string `json:"card_id"`
	CardImageURL string `json:"card_image_url"`
	CardRarity   string `json:"card_rarity"`
	SetID        string `json:"set_id"`
	SetName      string `json:"set_name"`
}
