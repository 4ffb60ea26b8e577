// Package catalog resolves card pools and the pack list from the trading-card
// API, its on-disk or object-store snapshots and an in-memory cache.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/okian/pokepack/internal/domain/model"
)

// Snapshot names.
const (
	AggregateSnapshot = "all-pokemon-cards.json"
	PacksSnapshot     = "packs.cache.json"
)

// Snapshot errors.
var (
	ErrSnapshotNotFound = errors.New("snapshot not found")
	ErrInvalidName      = errors.New("invalid snapshot name")
)

// SnapshotStore persists named JSON documents.
type SnapshotStore interface {
	Load(ctx context.Context, name string) ([]byte, error)
	Save(ctx context.Context, name string, data []byte) error
	Delete(ctx context.Context, name string) error
}

// SetSnapshot is the snapshot name of one set's card list.
func SetSnapshot(setID string) string {
	return setID + "-cards-cache.json"
}

// validName rejects names that could escape the store root.
func validName(name string) error {
	if name == "" || name == "." || strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// DirStore keeps snapshots as files in one directory.
type DirStore struct {
	dir string
}

var _ SnapshotStore = (*DirStore)(nil)

// NewDirStore returns a store rooted at dir. The directory is created on
// first save.
func NewDirStore(dir string) *DirStore {
	return &DirStore{dir: dir}
}

// Load reads a snapshot.
func (s *DirStore) Load(_ context.Context, name string) ([]byte, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", name, err)
	}
	return data, nil
}

// Save writes a snapshot through a temp file and rename.
func (s *DirStore) Save(_ context.Context, name string, data []byte) error {
	if err := validName(name); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write snapshot %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close snapshot %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("rename snapshot %s: %w", name, err)
	}
	return nil
}

// Delete removes a snapshot; a missing one is not an error.
func (s *DirStore) Delete(_ context.Context, name string) error {
	if err := validName(name); err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete snapshot %s: %w", name, err)
	}
	return nil
}

// loadCards decodes a card-list snapshot.
func loadCards(ctx context.Context, store SnapshotStore, name string) ([]model.Card, error) {
	data, err := store.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	var cards []model.Card
	if err := json.Unmarshal(data, &cards); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", name, err)
	}
	return cards, nil
}

// saveCards encodes and stores a card-list snapshot.
func saveCards(ctx context.Context, store SnapshotStore, name string, cards []model.Card) error {
	data, err := json.MarshalIndent(cards, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", name, err)
	}
	return store.Save(ctx, name, data)
}
