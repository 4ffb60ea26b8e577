package service_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	poolsource "github.com/okian/pokepack/internal/adapters/catalog"
	"github.com/okian/pokepack/internal/adapters/pokeapi"
	"github.com/okian/pokepack/internal/adapters/repository"
	service "github.com/okian/pokepack/internal/app"
	"github.com/okian/pokepack/internal/domain/catalog"
	"github.com/okian/pokepack/internal/domain/challenge"
	"github.com/okian/pokepack/internal/domain/draw"
	"github.com/okian/pokepack/internal/domain/model"
	"github.com/okian/pokepack/internal/domain/types"
	"github.com/okian/pokepack/pkg/logger"
	"github.com/okian/pokepack/pkg/metrics"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type fixedSource float64

func (f fixedSource) Float64() float64 { return float64(f) }

type stubPools struct {
	pools catalog.Pools
	calls atomic.Int32
}

func (s *stubPools) Pools(_ context.Context, _ string) (catalog.Pools, poolsource.Source) {
	s.calls.Add(1)
	return s.pools, poolsource.SourceLive
}

func setCards(setID string, tier string, rarity string, n int) []model.Card {
	cards := make([]model.Card, n)
	for i := range n {
		cards[i] = model.Card{
			ID:     fmt.Sprintf("%s-%s-%d", setID, tier, i),
			Name:   fmt.Sprintf("%s %d", rarity, i),
			Rarity: rarity,
			Images: model.CardImages{Small: "s.png", Large: "l.png"},
			Set:    model.CardSet{ID: setID, Name: "Scarlet & Violet"},
		}
	}
	return cards
}

func sv1Pools() *stubPools {
	var all []model.Card
	all = append(all, setCards("sv1", "c", "Common", 10)...)
	all = append(all, setCards("sv1", "u", "Uncommon", 5)...)
	all = append(all, setCards("sv1", "r", "Rare Holo", 2)...)
	return &stubPools{pools: catalog.Partition(all)}
}

type stubPacks struct {
	ids       []string
	preloaded atomic.Bool
}

func (p *stubPacks) Preload(context.Context) poolsource.PackOrigin {
	p.preloaded.Store(true)
	return poolsource.OriginBuiltin
}
func (p *stubPacks) Ready() bool { return p.preloaded.Load() }
func (p *stubPacks) Search(string) []model.PackSet {
	out := make([]model.PackSet, len(p.ids))
	for i, id := range p.ids {
		out[i] = model.PackSet{ID: id, Name: id, Cost: 100}
	}
	return out
}
func (p *stubPacks) IDs() []string                      { return p.ids }
func (p *stubPacks) RandomSetID(draw.RandomSource) string { return p.ids[0] }

type stubSubjects struct {
	subject pokeapi.Subject
	err     error
}

func (s stubSubjects) RandomSubject(context.Context) (pokeapi.Subject, error) {
	return s.subject, s.err
}

type recordingWarmer struct {
	mu    sync.Mutex
	calls [][]string
	force []bool
}

func (w *recordingWarmer) Warm(_ context.Context, ids []string, force bool) []poolsource.WarmResult {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls = append(w.calls, append([]string(nil), ids...))
	w.force = append(w.force, force)
	out := make([]poolsource.WarmResult, len(ids))
	for i, id := range ids {
		out[i] = poolsource.WarmResult{SetID: id, OK: true, Source: poolsource.SourceLive}
	}
	return out
}

func (w *recordingWarmer) snapshot() [][]string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([][]string(nil), w.calls...)
}

var errBoom = errors.New("boom")

// failingStore breaks AppendCollection inside every transaction.
type failingStore struct{ repository.Store }

func (f failingStore) InTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	return f.Store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		return fn(ctx, failingTx{tx})
	})
}

type failingTx struct{ repository.Tx }

func (failingTx) AppendCollection(context.Context, []model.CollectionEntry) error { return errBoom }

// countingRegistry counts Size calls on top of the in-memory registry.
type countingRegistry struct {
	challenge.Registry
	sizes atomic.Int32
}

func (r *countingRegistry) Size(ctx context.Context) int64 {
	r.sizes.Add(1)
	return r.Registry.Size(ctx)
}

// coinCounter reads a coin counter for source from the metrics registry.
func coinCounter(name, source string) float64 {
	families, err := metrics.GetRegistry().Gather()
	So(err, ShouldBeNil)
	for _, f := range families {
		if f.GetName() != "pokepack_"+name {
			continue
		}
		for _, m := range f.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "source" && l.GetValue() == source {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should report a stopped service with empty counters", func() {
			stats := svc.Stats()
			So(stats["started"], ShouldEqual, false)
			So(stats["packs_opened"], ShouldEqual, int64(0))
		})

		Convey("And the pack list is empty without a catalog", func() {
			So(svc.Packs(context.Background(), ""), ShouldBeEmpty)
		})
	})
}

func TestService_StartStop(t *testing.T) {
	Convey("Given a service with a pack list and warm-up on start", t, func() {
		packs := &stubPacks{ids: []string{"sv1", "sv2"}}
		warmer := &recordingWarmer{}
		svc := service.New(
			service.WithPackCatalog(packs),
			service.WithWarmer(warmer),
			service.WithWarmOnStart(true),
			service.WithWorkerCount(1),
		)
		ctx := context.Background()

		Convey("When starting the service", func() {
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()

			Convey("Then the pack list is preloaded", func() {
				So(packs.Ready(), ShouldBeTrue)
				So(svc.Packs(ctx, ""), ShouldHaveLength, 2)
				So(svc.Stats()["started"], ShouldEqual, true)
			})

			Convey("And every listed set is warmed in the background", func() {
				So(eventually(func() bool { return len(warmer.snapshot()) == 1 }), ShouldBeTrue)
				So(warmer.snapshot()[0], ShouldResemble, []string{"sv1", "sv2"})
			})
		})

		Convey("When stopping a started service", func() {
			So(svc.Start(ctx), ShouldBeNil)
			svc.Stop()

			Convey("Then it should be marked as stopped", func() {
				So(svc.Stats()["started"], ShouldEqual, false)
			})
		})
	})
}

func TestService_Register(t *testing.T) {
	Convey("Given a service", t, func() {
		svc := service.New()
		ctx := context.Background()

		Convey("When registering a blank username", func() {
			_, err := svc.Register(ctx, "   ")

			Convey("Then it is a validation error", func() {
				So(errors.Is(err, service.ErrValidation), ShouldBeTrue)
			})
		})

		Convey("When registering the same user twice", func() {
			first, err := svc.Register(ctx, " ash ")
			So(err, ShouldBeNil)
			second, err := svc.Register(ctx, "ash")
			So(err, ShouldBeNil)

			Convey("Then the existing user is returned with the starting balance", func() {
				So(first.Username, ShouldEqual, "ash")
				So(first.PokeCoins, ShouldEqual, 1000)
				So(second.ID, ShouldEqual, first.ID)
			})
		})

		Convey("When looking up an unknown user", func() {
			_, err := svc.User(ctx, "misty")

			Convey("Then it is not found", func() {
				So(errors.Is(err, service.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestService_OpenPack(t *testing.T) {
	Convey("Given ash and a set with every rarity tier", t, func() {
		pools := sv1Pools()
		store := repository.NewMemoryStore()
		svc := service.New(
			service.WithStore(store),
			service.WithPoolProvider(pools),
			service.WithRandomSource(draw.NewSeededSource(7)),
		)
		ctx := context.Background()
		_, err := svc.Register(ctx, "ash")
		So(err, ShouldBeNil)

		Convey("When ash opens an sv1 pack", func() {
			res, err := svc.OpenPack(ctx, "ash", "sv1")
			So(err, ShouldBeNil)

			Convey("Then the balance drops by the pack cost", func() {
				So(res.User.PokeCoins, ShouldEqual, 900)
			})

			Convey("And exactly ten cards join the collection with at least one rare", func() {
				So(res.Cards, ShouldHaveLength, 10)
				entries, err := svc.Collection(ctx, "ash")
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 10)
				rares := 0
				for _, e := range entries {
					if catalog.Classify(e.CardRarity) == catalog.RareOrHigher {
						rares++
					}
				}
				So(rares, ShouldBeGreaterThanOrEqualTo, 1)
			})

			Convey("And the set is named after its cards", func() {
				So(res.Set, ShouldResemble, types.SetRef{ID: "sv1", Name: "Scarlet & Violet"})
			})
		})

		Convey("When the request names no set", func() {
			res, err := svc.OpenPack(ctx, "ash", "  ")
			So(err, ShouldBeNil)

			Convey("Then the default set is opened", func() {
				So(res.Set.ID, ShouldEqual, service.DefaultSetID)
			})
		})

		Convey("When ash cannot afford a pack", func() {
			_, err := svc.SetCoins(ctx, "ash", 99)
			So(err, ShouldBeNil)
			_, err = svc.OpenPack(ctx, "ash", "sv1")

			Convey("Then it fails before touching the catalog", func() {
				So(errors.Is(err, service.ErrInsufficientFunds), ShouldBeTrue)
				So(pools.calls.Load(), ShouldEqual, 0)
				entries, _ := svc.Collection(ctx, "ash")
				So(entries, ShouldBeEmpty)
			})
		})

		Convey("When many openings race for two packs worth of coins", func() {
			_, err := svc.SetCoins(ctx, "ash", 250)
			So(err, ShouldBeNil)

			var wg sync.WaitGroup
			var ok, broke atomic.Int32
			for range 10 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := svc.OpenPack(ctx, "ash", "sv1")
					switch {
					case err == nil:
						ok.Add(1)
					case errors.Is(err, service.ErrInsufficientFunds):
						broke.Add(1)
					}
				}()
			}
			wg.Wait()

			Convey("Then exactly two succeed and the balance never goes negative", func() {
				So(ok.Load(), ShouldEqual, 2)
				So(broke.Load(), ShouldEqual, 8)
				u, _ := svc.User(ctx, "ash")
				So(u.PokeCoins, ShouldEqual, 50)
				entries, _ := svc.Collection(ctx, "ash")
				So(entries, ShouldHaveLength, 20)
			})
		})
	})

	Convey("Given a catalog with no cards", t, func() {
		svc := service.New(service.WithPoolProvider(&stubPools{}))
		ctx := context.Background()
		_, err := svc.Register(ctx, "brock")
		So(err, ShouldBeNil)

		Convey("When opening a pack", func() {
			_, err := svc.OpenPack(ctx, "brock", "sv1")

			Convey("Then the catalog is unavailable and no coins are spent", func() {
				So(errors.Is(err, service.ErrCatalogUnavailable), ShouldBeTrue)
				u, _ := svc.User(ctx, "brock")
				So(u.PokeCoins, ShouldEqual, 1000)
			})
		})
	})

	Convey("Given a store whose collection writes fail", t, func() {
		store := repository.NewMemoryStore()
		svc := service.New(
			service.WithStore(failingStore{store}),
			service.WithPoolProvider(sv1Pools()),
		)
		ctx := context.Background()
		_, err := svc.Register(ctx, "gary")
		So(err, ShouldBeNil)

		Convey("When opening a pack", func() {
			_, err := svc.OpenPack(ctx, "gary", "sv1")

			Convey("Then the debit is rolled back with the failed write", func() {
				So(errors.Is(err, errBoom), ShouldBeTrue)
				u, _ := svc.User(ctx, "gary")
				So(u.PokeCoins, ShouldEqual, 1000)
				entries, _ := svc.Collection(ctx, "gary")
				So(entries, ShouldBeEmpty)
			})
		})
	})
}

func TestService_Memory(t *testing.T) {
	Convey("Given a registered player", t, func() {
		svc := service.New()
		ctx := context.Background()
		_, err := svc.Register(ctx, "ash")
		So(err, ShouldBeNil)

		Convey("When a perfect easy run finishes with ten seconds left", func() {
			total := 99
			res, err := svc.FinishMemory(ctx, types.MemoryFinishRequest{
				Username:     "ash",
				Difficulty:   "easy",
				PairsTotal:   &total,
				PairsMatched: 3,
				TimeLeft:     10,
				StreakMax:    3,
			})
			So(err, ShouldBeNil)

			Convey("Then it pays 35 coins", func() {
				So(res.Won, ShouldBeTrue)
				So(res.Coins, ShouldEqual, 35)
				So(res.Breakdown.Base, ShouldEqual, 15)
				So(res.Breakdown.TimeBonus, ShouldEqual, 10)
				So(res.Breakdown.Bonus, ShouldEqual, 10)
				So(res.User.PokeCoins, ShouldEqual, 1035)
			})
		})

		Convey("When a run reports absurd telemetry", func() {
			for range 2 {
				res, err := svc.FinishMemory(ctx, types.MemoryFinishRequest{
					Username:     "ash",
					Difficulty:   "easy",
					PairsMatched: 3,
					TimeLeft:     9e18,
					StreakMax:    1 << 40,
				})
				So(err, ShouldBeNil)
				So(res.Breakdown.TimeBonus, ShouldEqual, 30)
			}

			Convey("Then the reward stays within the round's limits", func() {
				u, _ := svc.User(ctx, "ash")
				So(u.PokeCoins, ShouldBeGreaterThan, 1000)
				So(u.PokeCoins, ShouldBeLessThanOrEqualTo, 1000+2*100)
			})
		})

		Convey("When the run is lost", func() {
			res, err := svc.FinishMemory(ctx, types.MemoryFinishRequest{
				Username:     "ash",
				Difficulty:   "hard",
				PairsMatched: 7,
				TimeLeft:     30,
			})
			So(err, ShouldBeNil)

			Convey("Then nothing is credited", func() {
				So(res.Won, ShouldBeFalse)
				So(res.Coins, ShouldEqual, 0)
				So(res.User.PokeCoins, ShouldEqual, 1000)
			})
		})

		Convey("When the player is unknown", func() {
			_, err := svc.FinishMemory(ctx, types.MemoryFinishRequest{Username: "nobody"})

			Convey("Then it is not found", func() {
				So(errors.Is(err, service.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestService_Spin(t *testing.T) {
	Convey("Given a player with 20 coins", t, func() {
		ctx := context.Background()
		newSvc := func(r float64) *service.Service {
			svc := service.New(
				service.WithRandomSource(fixedSource(r)),
				service.WithPoolProvider(sv1Pools()),
				service.WithPackCatalog(&stubPacks{ids: []string{"sv1"}}),
			)
			_, err := svc.Register(ctx, "ash")
			So(err, ShouldBeNil)
			_, err = svc.SetCoins(ctx, "ash", 20)
			So(err, ShouldBeNil)
			return svc
		}

		Convey("When the wheel lands on lose 50", func() {
			svc := newSvc(0.05)
			debited := coinCounter("coins_debited_total", "spin")
			res, err := svc.Spin(ctx, "ash")
			So(err, ShouldBeNil)

			Convey("Then the balance stops at zero", func() {
				So(res.Outcome.Delta, ShouldEqual, -50)
				So(res.User.PokeCoins, ShouldEqual, 0)
				So(res.Pack, ShouldBeNil)
			})

			Convey("Then only the 20 coins actually removed are recorded", func() {
				So(coinCounter("coins_debited_total", "spin"), ShouldEqual, debited+20)

				before := coinCounter("coins_debited_total", "spin")
				_, err := svc.Spin(ctx, "ash")
				So(err, ShouldBeNil)
				So(coinCounter("coins_debited_total", "spin"), ShouldEqual, before)
			})
		})

		Convey("When the wheel lands on +250", func() {
			svc := newSvc(0.75)
			res, err := svc.Spin(ctx, "ash")
			So(err, ShouldBeNil)

			Convey("Then the coins are credited", func() {
				So(res.User.PokeCoins, ShouldEqual, 270)
				So(svc.Stats()["coins_granted"], ShouldEqual, int64(250))
			})
		})

		Convey("When the wheel lands on a free pack", func() {
			svc := newSvc(0.9)
			res, err := svc.Spin(ctx, "ash")
			So(err, ShouldBeNil)

			Convey("Then a full pack is granted at no cost", func() {
				So(res.Outcome.FreePack(), ShouldBeTrue)
				So(res.Pack, ShouldNotBeNil)
				So(res.Pack.Set.ID, ShouldEqual, "sv1")
				So(res.Pack.Cards, ShouldHaveLength, 10)
				So(res.User.PokeCoins, ShouldEqual, 20)
				entries, _ := svc.Collection(ctx, "ash")
				So(entries, ShouldHaveLength, 10)
			})
		})
	})
}

func TestService_Silhouette(t *testing.T) {
	Convey("Given a silhouette source that always picks pikachu", t, func() {
		svc := service.New(service.WithSubjectSource(stubSubjects{
			subject: pokeapi.Subject{Name: "pikachu", Image: "https://img/25.png"},
		}))
		ctx := context.Background()
		_, err := svc.Register(ctx, "ash")
		So(err, ShouldBeNil)

		start, err := svc.StartSilhouette(ctx)
		So(err, ShouldBeNil)
		So(start.Token, ShouldNotBeEmpty)
		So(start.Image, ShouldEqual, "https://img/25.png")

		Convey("When ash guesses right", func() {
			res, err := svc.GuessSilhouette(ctx, types.SilhouetteGuessRequest{Username: "ash", Token: start.Token, Guess: "Pikachu"})
			So(err, ShouldBeNil)

			Convey("Then 200 coins are credited and the answer is withheld", func() {
				So(res.Correct, ShouldBeTrue)
				So(res.User.PokeCoins, ShouldEqual, 1200)
				So(res.Answer, ShouldBeEmpty)
				So(res.PokemonName, ShouldEqual, "Pikachu")
			})

			Convey("And the token cannot be used again", func() {
				_, err := svc.GuessSilhouette(ctx, types.SilhouetteGuessRequest{Username: "ash", Token: start.Token, Guess: "pikachu"})
				So(errors.Is(err, service.ErrInvalidChallenge), ShouldBeTrue)
			})
		})

		Convey("When ash guesses wrong", func() {
			res, err := svc.GuessSilhouette(ctx, types.SilhouetteGuessRequest{Username: "ash", Token: start.Token, Guess: "raichu"})
			So(err, ShouldBeNil)

			Convey("Then nothing is credited and the answer is revealed", func() {
				So(res.Correct, ShouldBeFalse)
				So(res.User.PokeCoins, ShouldEqual, 1000)
				So(res.Answer, ShouldEqual, "pikachu")
			})
		})

		Convey("When an unknown user guesses", func() {
			_, err := svc.GuessSilhouette(ctx, types.SilhouetteGuessRequest{Username: "misty", Token: start.Token, Guess: "pikachu"})

			Convey("Then it is not found and the token survives", func() {
				So(errors.Is(err, service.ErrNotFound), ShouldBeTrue)
				res, err := svc.GuessSilhouette(ctx, types.SilhouetteGuessRequest{Username: "ash", Token: start.Token, Guess: "pikachu"})
				So(err, ShouldBeNil)
				So(res.Correct, ShouldBeTrue)
			})
		})

		Convey("When the token is missing", func() {
			_, err := svc.GuessSilhouette(ctx, types.SilhouetteGuessRequest{Username: "ash"})

			Convey("Then it is a validation error", func() {
				So(errors.Is(err, service.ErrValidation), ShouldBeTrue)
			})
		})
	})

	Convey("Given a registry that counts Size calls", t, func() {
		reg := &countingRegistry{Registry: challenge.NewMemoryRegistry()}
		svc := service.New(
			service.WithChallengeRegistry(reg),
			service.WithSubjectSource(stubSubjects{subject: pokeapi.Subject{Name: "eevee", Image: "https://img/133.png"}}),
		)
		ctx := context.Background()
		_, err := svc.Register(ctx, "ash")
		So(err, ShouldBeNil)

		Convey("When a challenge is started and answered", func() {
			start, err := svc.StartSilhouette(ctx)
			So(err, ShouldBeNil)
			_, err = svc.GuessSilhouette(ctx, types.SilhouetteGuessRequest{Username: "ash", Token: start.Token, Guess: "eevee"})
			So(err, ShouldBeNil)

			Convey("Then the request path never counts the registry", func() {
				So(reg.sizes.Load(), ShouldEqual, 0)
			})
		})
	})

	Convey("Given a silhouette source that finds nothing", t, func() {
		svc := service.New(service.WithSubjectSource(stubSubjects{err: pokeapi.ErrNoSubject}))

		Convey("When starting a challenge", func() {
			_, err := svc.StartSilhouette(context.Background())

			Convey("Then the source is unavailable", func() {
				So(errors.Is(err, service.ErrSubjectUnavailable), ShouldBeTrue)
				So(errors.Is(err, pokeapi.ErrNoSubject), ShouldBeTrue)
			})
		})
	})
}

func TestService_Typing(t *testing.T) {
	Convey("Given a registered player", t, func() {
		svc := service.New()
		ctx := context.Background()
		_, err := svc.Register(ctx, "ash")
		So(err, ShouldBeNil)

		Convey("When a typing run ends with five words and a streak of three", func() {
			res, err := svc.FinishTyping(ctx, types.TypingFinishRequest{Username: "ash", CorrectWords: 5, MaxStreak: 3})
			So(err, ShouldBeNil)

			Convey("Then it pays 130 coins", func() {
				So(res.Coins, ShouldEqual, 130)
				So(res.User.PokeCoins, ShouldEqual, 1130)
			})
		})

		Convey("When no word was typed", func() {
			res, err := svc.FinishTyping(ctx, types.TypingFinishRequest{Username: "ash", MaxStreak: 4})
			So(err, ShouldBeNil)

			Convey("Then nothing is paid", func() {
				So(res.Coins, ShouldEqual, 0)
				So(res.User.PokeCoins, ShouldEqual, 1000)
			})
		})
	})
}

func TestService_Admin(t *testing.T) {
	Convey("Given a service without an admin token", t, func() {
		svc := service.New()

		Convey("Then every admin call is refused as misconfigured", func() {
			So(errors.Is(svc.CheckAdmin("anything"), service.ErrAdminNotConfigured), ShouldBeTrue)
		})
	})

	Convey("Given a service with an admin token", t, func() {
		packs := &stubPacks{ids: []string{"sv1", "sv2"}}
		warmer := &recordingWarmer{}
		var fetched atomic.Int32
		svc := service.New(
			service.WithAdminToken("s3cret"),
			service.WithPackCatalog(packs),
			service.WithWarmer(warmer),
			service.WithCatalogFetcher(func(context.Context) (poolsource.CatalogSummary, error) {
				fetched.Add(1)
				return poolsource.CatalogSummary{Cards: 3, Sets: 1}, nil
			}),
		)
		ctx := context.Background()
		_, err := svc.Register(ctx, "ash")
		So(err, ShouldBeNil)

		Convey("Then only the right token is accepted", func() {
			So(svc.CheckAdmin("s3cret"), ShouldBeNil)
			So(errors.Is(svc.CheckAdmin("wrong"), service.ErrUnauthorized), ShouldBeTrue)
			So(errors.Is(svc.CheckAdmin(""), service.ErrUnauthorized), ShouldBeTrue)
		})

		Convey("When setting a fractional balance", func() {
			u, err := svc.SetCoins(ctx, "ash", 12.7)
			So(err, ShouldBeNil)

			Convey("Then it is floored", func() {
				So(u.PokeCoins, ShouldEqual, 12)
			})
		})

		Convey("When setting an invalid balance", func() {
			for _, amount := range []float64{-1, math.NaN(), math.Inf(1)} {
				_, err := svc.SetCoins(ctx, "ash", amount)
				So(errors.Is(err, service.ErrInvalidAmount), ShouldBeTrue)
			}

			Convey("Then the balance is untouched", func() {
				u, _ := svc.User(ctx, "ash")
				So(u.PokeCoins, ShouldEqual, 1000)
			})
		})

		Convey("When warming with various targets", func() {
			no := false
			yes := true
			cases := []struct {
				req  types.WarmRequest
				want []string
			}{
				{types.WarmRequest{}, []string{"sv1", "sv2"}},
				{types.WarmRequest{SetID: "ALL"}, []string{"sv1", "sv2"}},
				{types.WarmRequest{SetID: "sv9", All: &yes}, []string{"sv1", "sv2"}},
				{types.WarmRequest{SetID: " sv3 ", Force: true}, []string{"sv3"}},
			}
			for _, c := range cases {
				rep, err := svc.WarmSetCache(ctx, c.req)
				So(err, ShouldBeNil)
				So(rep.Warmed, ShouldEqual, len(c.want))
			}
			_, err := svc.WarmSetCache(ctx, types.WarmRequest{All: &no})

			Convey("Then the targets expand as requested", func() {
				calls := warmer.snapshot()
				So(calls, ShouldHaveLength, len(cases))
				for i, c := range cases {
					So(calls[i], ShouldResemble, c.want)
				}
				So(warmer.force[3], ShouldBeTrue)
			})

			Convey("And all=false without a set is rejected", func() {
				So(errors.Is(err, service.ErrValidation), ShouldBeTrue)
			})
		})

		Convey("When fetching all cards before start", func() {
			_, err := svc.FetchAllCards(ctx)

			Convey("Then the job cannot be queued", func() {
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			})
		})

		Convey("When fetching all cards on a started service", func() {
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()
			id, err := svc.FetchAllCards(ctx)
			So(err, ShouldBeNil)

			Convey("Then the download runs in the background", func() {
				So(id, ShouldNotBeEmpty)
				So(eventually(func() bool { return fetched.Load() == 1 }), ShouldBeTrue)
			})
		})
	})
}

type stubCards struct {
	cards   map[string]model.Card
	lookups []string
}

func (c *stubCards) Card(_ context.Context, id string) (model.Card, error) {
	c.lookups = append(c.lookups, id)
	card, ok := c.cards[id]
	if !ok {
		return model.Card{}, errBoom
	}
	return card, nil
}

func TestService_RehydrateImages(t *testing.T) {
	Convey("Given a collection stored with missing images", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()
		cards := &stubCards{cards: map[string]model.Card{
			"promo_xy": {ID: "promo_xy", Images: model.CardImages{Small: "https://img/promo_xy.png"}},
		}}
		svc := service.New(service.WithStore(store), service.WithCardLookup(cards))
		ash, err := svc.Register(ctx, "ash")
		So(err, ShouldBeNil)

		err = store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
			return tx.AppendCollection(ctx, []model.CollectionEntry{
				{UserID: ash.ID, CardID: "swsh1-1"},
				{UserID: ash.ID, CardID: "swsh1-1", CardImageURL: "/static/poke-ball.png"},
				{UserID: ash.ID, CardID: "sv1-common-25", CardImageURL: ""},
				{UserID: ash.ID, CardID: "sv1-26", CardImageURL: "https://img/sv1-26.png"},
				{UserID: ash.ID, CardID: "promo_xy"},
				{UserID: ash.ID, CardID: "mystery_card"},
			})
		})
		So(err, ShouldBeNil)

		Convey("When the images are rehydrated", func() {
			res, err := svc.RehydrateImages(ctx, "ash")
			So(err, ShouldBeNil)

			Convey("Then every resolvable placeholder gets an image", func() {
				So(res.Updated, ShouldEqual, 4)
				images := map[string][]string{}
				list, _ := svc.Collection(ctx, "ash")
				for _, e := range list {
					images[e.CardID] = append(images[e.CardID], e.CardImageURL)
				}
				So(images["swsh1-1"], ShouldResemble, []string{
					"https://images.pokemontcg.io/swsh1/001_large.jpg",
					"https://images.pokemontcg.io/swsh1/001_large.jpg",
				})
				So(images["sv1-common-25"], ShouldResemble, []string{"https://images.pokemontcg.io/sv1/25_large.jpg"})
				So(images["sv1-26"], ShouldResemble, []string{"https://img/sv1-26.png"})
				So(images["promo_xy"], ShouldResemble, []string{"https://img/promo_xy.png"})
				So(images["mystery_card"], ShouldResemble, []string{""})
			})

			Convey("Then only ids off the CDN pattern are looked up", func() {
				So(cards.lookups, ShouldResemble, []string{"mystery_card", "promo_xy"})
			})

			Convey("And a second pass finds nothing new", func() {
				res, err := svc.RehydrateImages(ctx, "ash")
				So(err, ShouldBeNil)
				So(res.Updated, ShouldEqual, 0)
			})
		})

		Convey("When the user is unknown", func() {
			_, err := svc.RehydrateImages(ctx, "gary")

			Convey("Then it is not found", func() {
				So(errors.Is(err, service.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}
