package repository

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/okian/pokepack/internal/domain/model"
)

// MemoryStore is a process-local Store. Transactions are serialized and
// undone from a journal when fn fails.
type MemoryStore struct {
	mu          sync.RWMutex
	users       map[int64]*model.User
	byName      map[string]int64
	collections map[int64][]model.CollectionEntry
	nextUserID  int64
	nextEntryID int64
	now         func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:       make(map[int64]*model.User),
		byName:      make(map[string]int64),
		collections: make(map[int64][]model.CollectionEntry),
		now:         time.Now,
	}
}

// CreateOrGetUser registers username on first sight.
func (s *MemoryStore) CreateOrGetUser(_ context.Context, username string, startingCoins int64) (model.User, bool, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return model.User{}, false, ErrEmptyUsername
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byName[username]; ok {
		return *s.users[id], false, nil
	}
	s.nextUserID++
	u := &model.User{ID: s.nextUserID, Username: username, PokeCoins: startingCoins, CreatedAt: s.now()}
	s.users[u.ID] = u
	s.byName[username] = u.ID
	return *u, true, nil
}

// UserByName returns a copy of the user.
func (s *MemoryStore) UserByName(_ context.Context, username string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byName[username]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return *s.users[id], nil
}

// ListCollection returns a copy of the user's cards, newest first.
func (s *MemoryStore) ListCollection(_ context.Context, userID int64) ([]model.CollectionEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	src := s.collections[userID]
	out := make([]model.CollectionEntry, len(src))
	for i, e := range src {
		out[len(src)-1-i] = e
	}
	return out, nil
}

// InTx holds the write lock for the whole of fn.
func (s *MemoryStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{s: s}
	defer func() {
		if r := recover(); r != nil {
			tx.rollback()
			panic(r)
		}
		if err != nil {
			tx.rollback()
		}
	}()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx, tx)
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

// UserCount reports the number of registered users.
func (s *MemoryStore) UserCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

type memTx struct {
	s    *MemoryStore
	undo []func()
}

func (t *memTx) LockUser(ctx context.Context, userID int64) (model.User, error) {
	if err := ctx.Err(); err != nil {
		return model.User{}, err
	}
	u, ok := t.s.users[userID]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return *u, nil
}

func (t *memTx) SetCoins(ctx context.Context, userID, coins int64) (model.User, error) {
	if err := ctx.Err(); err != nil {
		return model.User{}, err
	}
	u, ok := t.s.users[userID]
	if !ok {
		return model.User{}, ErrNotFound
	}
	prev := u.PokeCoins
	t.undo = append(t.undo, func() { u.PokeCoins = prev })
	u.PokeCoins = coins
	return *u, nil
}

func (t *memTx) AppendCollection(ctx context.Context, entries []model.CollectionEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, e := range entries {
		if _, ok := t.s.users[e.UserID]; !ok {
			return ErrNotFound
		}
	}
	for _, e := range entries {
		userID := e.UserID
		prevLen := len(t.s.collections[userID])
		prevNext := t.s.nextEntryID
		t.undo = append(t.undo, func() {
			t.s.collections[userID] = slices.Clip(t.s.collections[userID][:prevLen])
			t.s.nextEntryID = prevNext
		})
		t.s.nextEntryID++
		e.ID = t.s.nextEntryID
		t.s.collections[userID] = append(t.s.collections[userID], e)
	}
	return nil
}

func (t *memTx) SetCollectionImage(ctx context.Context, userID int64, cardID, imageURL string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	entries := t.s.collections[userID]
	var n int64
	for i := range entries {
		if entries[i].CardID != cardID || !entries[i].NeedsImage() {
			continue
		}
		idx, prev := i, entries[i].CardImageURL
		t.undo = append(t.undo, func() { t.s.collections[userID][idx].CardImageURL = prev })
		entries[idx].CardImageURL = imageURL
		n++
	}
	return n, nil
}

func (t *memTx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}
