// Package repository persists users and their card collections.
package repository

import (
	"context"

	"github.com/okian/pokepack/internal/domain/model"
)

// Store provides read/write access to users and collections.
type Store interface {
	// CreateOrGetUser returns the user named username, creating it with
	// startingCoins when it does not exist. created reports which happened.
	CreateOrGetUser(ctx context.Context, username string, startingCoins int64) (user model.User, created bool, err error)

	// UserByName returns ErrNotFound for unknown usernames.
	UserByName(ctx context.Context, username string) (model.User, error)

	// ListCollection returns the user's cards, newest first.
	ListCollection(ctx context.Context, userID int64) ([]model.CollectionEntry, error)

	// InTx runs fn in one transaction. Any error from fn rolls back every
	// change made through tx; nil commits.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	// Close releases the underlying resources.
	Close() error
}

// Tx is the write surface available inside a transaction.
type Tx interface {
	// LockUser reads the user row and holds it until the transaction ends.
	LockUser(ctx context.Context, userID int64) (model.User, error)

	// SetCoins writes an absolute balance and returns the updated user.
	SetCoins(ctx context.Context, userID, coins int64) (model.User, error)

	// AppendCollection inserts entries for their UserID.
	AppendCollection(ctx context.Context, entries []model.CollectionEntry) error

	// SetCollectionImage sets imageURL on the user's entries of cardID that
	// have no real image yet and returns how many rows changed.
	SetCollectionImage(ctx context.Context, userID int64, cardID, imageURL string) (int64, error)
}
