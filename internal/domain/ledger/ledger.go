// Package ledger applies PokéCoin balance changes. Every mutation runs
// against a locked user row inside the caller's transaction, so it commits or
// rolls back together with whatever else the caller does.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/okian/pokepack/internal/domain/model"
)

// Sentinel kinds for ledger errors.
var (
	ErrInvalidAmount     = errors.New("amount must be a non-negative integer")
	ErrInsufficientFunds = errors.New("not enough PokéCoins")
	ErrBalanceOverflow   = errors.New("balance out of range")
)

// Accounts is the transactional surface the ledger writes through.
type Accounts interface {
	LockUser(ctx context.Context, userID int64) (model.User, error)
	SetCoins(ctx context.Context, userID, coins int64) (model.User, error)
}

// UserReader reads users outside a transaction.
type UserReader interface {
	UserByName(ctx context.Context, username string) (model.User, error)
}

// Policy controls how a credit is applied.
type Policy struct {
	floor    int64
	hasFloor bool
}

// Unbounded applies the amount as is; the balance may go negative.
func Unbounded() Policy { return Policy{} }

// Floor clamps the resulting balance at minimum.
func Floor(minimum int64) Policy { return Policy{floor: minimum, hasFloor: true} }

func (p Policy) apply(balance, amount int64) (int64, error) {
	if (amount > 0 && balance > math.MaxInt64-amount) || (amount < 0 && balance < math.MinInt64-amount) {
		return 0, fmt.Errorf("%w: %d%+d", ErrBalanceOverflow, balance, amount)
	}
	next := balance + amount
	if p.hasFloor && next < p.floor {
		return p.floor, nil
	}
	return next, nil
}

// Entry is the outcome of a credit. Delta is the change actually applied,
// which differs from the requested amount when a floor clamps it.
type Entry struct {
	User  model.User
	Delta int64
}

// Credit adds amount (negative to debit) to the user's balance.
func Credit(ctx context.Context, acct Accounts, userID, amount int64, p Policy) (model.User, error) {
	e, err := Apply(ctx, acct, userID, amount, p)
	return e.User, err
}

// Apply is Credit that also reports the applied delta.
func Apply(ctx context.Context, acct Accounts, userID, amount int64, p Policy) (Entry, error) {
	u, err := acct.LockUser(ctx, userID)
	if err != nil {
		return Entry{}, err
	}
	if amount == 0 && !(p.hasFloor && u.PokeCoins < p.floor) {
		return Entry{User: u}, nil
	}
	next, err := p.apply(u.PokeCoins, amount)
	if err != nil {
		return Entry{}, err
	}
	updated, err := acct.SetCoins(ctx, userID, next)
	if err != nil {
		return Entry{}, err
	}
	return Entry{User: updated, Delta: updated.PokeCoins - u.PokeCoins}, nil
}

// Charge debits cost after checking the locked balance covers it.
func Charge(ctx context.Context, acct Accounts, userID, cost int64) (model.User, error) {
	if cost < 0 {
		return model.User{}, fmt.Errorf("%w: cost %d", ErrInvalidAmount, cost)
	}
	u, err := acct.LockUser(ctx, userID)
	if err != nil {
		return model.User{}, err
	}
	if u.PokeCoins < cost {
		return model.User{}, ErrInsufficientFunds
	}
	return acct.SetCoins(ctx, userID, u.PokeCoins-cost)
}

// SetBalance overwrites the balance. Negative amounts are refused.
func SetBalance(ctx context.Context, acct Accounts, userID, amount int64) (model.User, error) {
	if amount < 0 {
		return model.User{}, fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}
	if _, err := acct.LockUser(ctx, userID); err != nil {
		return model.User{}, err
	}
	return acct.SetCoins(ctx, userID, amount)
}

// Balance reads the current balance of username.
func Balance(ctx context.Context, r UserReader, username string) (int64, error) {
	u, err := r.UserByName(ctx, username)
	if err != nil {
		return 0, err
	}
	return u.PokeCoins, nil
}

// CanAfford is the pre-transaction funds check of paid actions.
func CanAfford(ctx context.Context, r UserReader, username string, cost int64) (model.User, error) {
	u, err := r.UserByName(ctx, username)
	if err != nil {
		return model.User{}, err
	}
	if u.PokeCoins < cost {
		return u, ErrInsufficientFunds
	}
	return u, nil
}
