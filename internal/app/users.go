package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/pokepack/internal/domain/model"
	"github.com/okian/pokepack/pkg/logger"
)

func requireUsername(username string) (string, error) {
	name := strings.TrimSpace(username)
	if name == "" {
		return "", fmt.Errorf("%w: username is required", ErrValidation)
	}
	return name, nil
}

// Register returns the user named username, creating it with the starting
// balance on first sight.
func (s *Service) Register(ctx context.Context, username string) (model.User, error) {
	name, err := requireUsername(username)
	if err != nil {
		return model.User{}, err
	}
	u, created, err := s.store.CreateOrGetUser(ctx, name, s.startingCoins)
	if err != nil {
		return model.User{}, fmt.Errorf("register %q: %w", name, err)
	}
	if created {
		s.logger.Info(ctx, "user registered", logger.String("username", name), logger.Int64("user_id", u.ID))
	}
	return u, nil
}

// User returns a user by name.
func (s *Service) User(ctx context.Context, username string) (model.User, error) {
	name, err := requireUsername(username)
	if err != nil {
		return model.User{}, err
	}
	return s.store.UserByName(ctx, name)
}

// Collection lists the cards a user owns, newest first.
func (s *Service) Collection(ctx context.Context, username string) ([]model.CollectionEntry, error) {
	u, err := s.User(ctx, username)
	if err != nil {
		return nil, err
	}
	entries, err := s.store.ListCollection(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("list collection of %q: %w", u.Username, err)
	}
	if entries == nil {
		entries = []model.CollectionEntry{}
	}
	return entries, nil
}

// Packs lists the openable packs, fuzzy filtered by query. The list is empty
// until the pack catalog is loaded.
func (s *Service) Packs(_ context.Context, query string) []model.PackSet {
	if s.packs == nil || !s.packs.Ready() {
		return []model.PackSet{}
	}
	out := s.packs.Search(strings.TrimSpace(query))
	if out == nil {
		out = []model.PackSet{}
	}
	return out
}
