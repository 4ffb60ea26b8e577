package repository

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/okian/pokepack/internal/domain/model"
)

type userRow struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID        int64     `bun:"id,pk,autoincrement"`
	Username  string    `bun:"username,unique,notnull"`
	PokeCoins int64     `bun:"poke_coins,notnull,default:1000"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

func (r userRow) toModel() model.User {
	return model.User{ID: r.ID, Username: r.Username, PokeCoins: r.PokeCoins, CreatedAt: r.CreatedAt}
}

type collectionRow struct {
	bun.BaseModel `bun:"table:user_collections,alias:uc"`

	ID           int64     `bun:"id,pk,autoincrement"`
	UserID       int64     `bun:"user_id,notnull"`
	CardID       string    `bun:"card_id,notnull"`
	CardImageURL string    `bun:"card_image_url"`
	CardRarity   string    `bun:"card_rarity"`
	SetID        string    `bun:"set_id"`
	SetName      string    `bun:"set_name"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

func (r collectionRow) toModel() model.CollectionEntry {
	return model.CollectionEntry{
		ID:           r.ID,
		UserID:       r.UserID,
		CardID:       r.CardID,
		CardImageURL: r.CardImageURL,
		CardRarity:   r.CardRarity,
		SetID:        r.SetID,
		SetName:      r.SetName,
	}
}

func collectionRowFrom(e model.CollectionEntry) collectionRow {
	return collectionRow{
		UserID:       e.UserID,
		CardID:       e.CardID,
		CardImageURL: e.CardImageURL,
		CardRarity:   e.CardRarity,
		SetID:        e.SetID,
		SetName:      e.SetName,
	}
}
