package smoke_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/pokepack/internal/adapters/http/api"
	service "github.com/okian/pokepack/internal/app"
	"github.com/okian/pokepack/internal/smoke"
	"github.com/okian/pokepack/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func newServer(ctx context.Context) (*httptest.Server, *service.Service) {
	svc := service.New(service.WithWorkerCount(1))
	if err := svc.Start(ctx); err != nil {
		panic(err)
	}
	srv := api.NewServer(svc, svc, svc, api.WithRateLimit(0, 0))
	return httptest.NewServer(srv.Handler(ctx)), svc
}

func TestRun(t *testing.T) {
	convey.Convey("Given a pokepack server with the default economy", t, func() {
		ctx := context.Background()
		ts, svc := newServer(ctx)
		defer ts.Close()
		defer svc.Stop()

		convey.Convey("When several players run the full journey", func() {
			stats, err := smoke.Run(ctx, &smoke.Config{
				BaseURL:      ts.URL,
				Users:        4,
				PacksPerUser: 2,
				Workers:      2,
				Timeout:      5 * time.Second,
			})

			convey.Convey("Then every check passes", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(stats.Failures, convey.ShouldEqual, int64(0))
				convey.So(stats.UsersRegistered, convey.ShouldEqual, int64(4))
				convey.So(stats.PacksOpened, convey.ShouldEqual, int64(8))
				convey.So(stats.CardsReceived, convey.ShouldBeGreaterThanOrEqualTo, int64(80))
				convey.So(stats.CoinsEarned, convey.ShouldEqual, int64(4*(130+35)))
				convey.So(stats.Spins, convey.ShouldEqual, int64(4))
			})

			convey.Convey("And the server counted the packs", func() {
				convey.So(svc.Stats()["packs_opened"], convey.ShouldBeGreaterThanOrEqualTo, int64(8))
			})
		})
	})

	convey.Convey("Given a server that is down", t, func() {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer ts.Close()

		convey.Convey("Run fails on the health check", func() {
			_, err := smoke.Run(context.Background(), &smoke.Config{
				BaseURL: ts.URL, Users: 1, PacksPerUser: 1, Workers: 1, Timeout: time.Second,
			})
			convey.So(err, convey.ShouldNotBeNil)

			var se *smoke.StatusError
			convey.So(errors.As(err, &se), convey.ShouldBeTrue)
			convey.So(se.Status, convey.ShouldEqual, http.StatusServiceUnavailable)
		})
	})
}
