// Package pokeapi picks random Pokémon with artwork for the silhouette game.
package pokeapi

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/okian/pokepack/internal/domain/draw"
	"github.com/okian/pokepack/pkg/logger"
)

// Defaults for subject selection.
const (
	DefaultMaxID    = 1025
	DefaultAttempts = 10
)

// ErrNoSubject is returned when no attempt found a Pokémon with artwork.
var ErrNoSubject = errors.New("no suitable Pokémon found")

// Subject is a Pokémon to guess.
type Subject struct {
	Name  string `json:"name"`
	Image string `json:"image"`
}

// JSONGetter is the upstream surface the client needs.
type JSONGetter interface {
	GetJSON(ctx context.Context, rawURL string, query url.Values, out any) error
}

type sprite struct {
	FrontDefault string `json:"front_default"`
}

type pokemon struct {
	Name    string `json:"name"`
	Sprites struct {
		FrontDefault string `json:"front_default"`
		Other        struct {
			OfficialArtwork sprite `json:"official-artwork"`
			DreamWorld      sprite `json:"dream_world"`
		} `json:"other"`
	} `json:"sprites"`
}

// image prefers official artwork, then dream world, then the default sprite.
func (p pokemon) image() string {
	switch {
	case p.Sprites.Other.OfficialArtwork.FrontDefault != "":
		return p.Sprites.Other.OfficialArtwork.FrontDefault
	case p.Sprites.Other.DreamWorld.FrontDefault != "":
		return p.Sprites.Other.DreamWorld.FrontDefault
	default:
		return p.Sprites.FrontDefault
	}
}

// Client picks random subjects from PokeAPI.
type Client struct {
	base     string
	getter   JSONGetter
	rnd      draw.RandomSource
	maxID    int
	attempts int
	log      logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithRandomSource replaces the id picker's source.
func WithRandomSource(src draw.RandomSource) Option {
	return func(c *Client) {
		if src != nil {
			c.rnd = src
		}
	}
}

// WithAttempts sets how many random ids are tried.
func WithAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.attempts = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// New returns a client for the API at baseURL.
func New(baseURL string, getter JSONGetter, opts ...Option) *Client {
	c := &Client{
		base:     strings.TrimRight(baseURL, "/"),
		getter:   getter,
		rnd:      draw.NewCryptoSource(),
		maxID:    DefaultMaxID,
		attempts: DefaultAttempts,
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RandomSubject tries random national dex ids until one has a name and an
// image. The answer is lower-cased.
func (c *Client) RandomSubject(ctx context.Context) (Subject, error) {
	for i := 0; i < c.attempts; i++ {
		if err := ctx.Err(); err != nil {
			return Subject{}, err
		}
		id := 1 + draw.Intn(c.rnd, c.maxID)
		var p pokemon
		if err := c.getter.GetJSON(ctx, fmt.Sprintf("%s/pokemon/%d", c.base, id), nil, &p); err != nil {
			c.log.Debug(ctx, "pokemon lookup failed", logger.Int("id", id), logger.Error(err))
			continue
		}
		if img := p.image(); img != "" && p.Name != "" {
			return Subject{Name: strings.ToLower(p.Name), Image: img}, nil
		}
	}
	return Subject{}, ErrNoSubject
}
