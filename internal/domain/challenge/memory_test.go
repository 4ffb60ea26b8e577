package challenge_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/pokepack/internal/domain/challenge"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestMemoryRegistry(t *testing.T) {
	Convey("Given a registry with a fake clock", t, func() {
		ctx := context.Background()
		clock := &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
		reg := challenge.NewMemoryRegistry(challenge.WithClock(clock.Now))

		token, err := reg.Create(ctx, challenge.Challenge{Answer: "pikachu", ImageURL: "https://img/25.png"})
		So(err, ShouldBeNil)
		So(token, ShouldHaveLength, 36)

		Convey("Resolve returns the challenge without consuming it", func() {
			c, err := reg.Resolve(ctx, token)
			So(err, ShouldBeNil)
			So(c.Answer, ShouldEqual, "pikachu")
			So(c.CreatedAt, ShouldEqual, clock.Now())

			_, err = reg.Resolve(ctx, token)
			So(err, ShouldBeNil)
		})

		Convey("Consume works once", func() {
			c, err := reg.Consume(ctx, token)
			So(err, ShouldBeNil)
			So(c.Answer, ShouldEqual, "pikachu")

			_, err = reg.Consume(ctx, token)
			So(errors.Is(err, challenge.ErrNotFound), ShouldBeTrue)
			So(reg.Size(ctx), ShouldEqual, 0)
		})

		Convey("Invalidate removes it and tolerates unknown tokens", func() {
			So(reg.Invalidate(ctx, token), ShouldBeNil)
			So(reg.Invalidate(ctx, "nope"), ShouldBeNil)
			_, err := reg.Resolve(ctx, token)
			So(errors.Is(err, challenge.ErrNotFound), ShouldBeTrue)
		})

		Convey("After ten minutes the token is gone", func() {
			clock.Advance(9*time.Minute + 59*time.Second)
			_, err := reg.Resolve(ctx, token)
			So(err, ShouldBeNil)

			clock.Advance(time.Second)
			_, err = reg.Consume(ctx, token)
			So(errors.Is(err, challenge.ErrNotFound), ShouldBeTrue)
			So(reg.Size(ctx), ShouldEqual, 0)
		})

		Convey("Create sweeps expired entries", func() {
			clock.Advance(11 * time.Minute)
			_, err := reg.Create(ctx, challenge.Challenge{Answer: "eevee"})
			So(err, ShouldBeNil)
			So(reg.Size(ctx), ShouldEqual, 1)
		})

		Convey("Concurrent consumers: exactly one wins", func() {
			var wins atomic.Int32
			var wg sync.WaitGroup
			for i := 0; i < 32; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if _, err := reg.Consume(ctx, token); err == nil {
						wins.Add(1)
					}
				}()
			}
			wg.Wait()
			So(wins.Load(), ShouldEqual, 1)
		})
	})

	Convey("Given a bounded registry", t, func() {
		ctx := context.Background()
		n := 0
		reg := challenge.NewMemoryRegistry(
			challenge.WithMaxEntries(2),
			challenge.WithTTL(time.Hour),
			challenge.WithTokenFunc(func() string { n++; return fmt.Sprintf("t%d", n) }),
		)

		for _, a := range []string{"a", "b", "c"} {
			_, err := reg.Create(ctx, challenge.Challenge{Answer: a})
			So(err, ShouldBeNil)
		}

		Convey("The oldest challenge is evicted", func() {
			So(reg.Size(ctx), ShouldEqual, 2)
			_, err := reg.Resolve(ctx, "t1")
			So(errors.Is(err, challenge.ErrNotFound), ShouldBeTrue)
			c, err := reg.Resolve(ctx, "t3")
			So(err, ShouldBeNil)
			So(c.Answer, ShouldEqual, "c")
		})
	})

	Convey("Given a cancelled context", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := challenge.NewMemoryRegistry().Create(ctx, challenge.Challenge{})
		So(err, ShouldNotBeNil)
	})

	Convey("Tokens are unique", t, func() {
		seen := map[string]bool{}
		for i := 0; i < 1000; i++ {
			tok := challenge.NewToken()
			So(seen[tok], ShouldBeFalse)
			seen[tok] = true
		}
	})
}
