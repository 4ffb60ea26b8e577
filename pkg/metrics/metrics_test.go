package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManager(t *testing.T) {
	Convey("Given a manager on its own registry", t, func() {
		reg := prometheus.NewRegistry()
		m := NewManager(
			WithPrometheusRegistry(reg),
			WithNamespace("test"),
			WithSubsystem("economy"),
			WithHistogramBuckets([]float64{1, 10}),
		)

		Convey("Collectors are registered under the namespace", func() {
			m.packsOpened.WithLabelValues("purchase").Inc()
			families, err := reg.Gather()
			So(err, ShouldBeNil)

			names := map[string]bool{}
			for _, f := range families {
				names[f.GetName()] = true
			}
			So(names["test_economy_packs_opened_total"], ShouldBeTrue)
		})

		Convey("Empty options keep defaults", func() {
			d := NewManager(WithPrometheusRegistry(prometheus.NewRegistry()), WithNamespace(""), WithHistogramBuckets(nil))
			So(d.namespace, ShouldEqual, "pokepack")
			So(len(d.histogramBuckets), ShouldBeGreaterThan, 2)
		})
	})
}

func TestGlobalRecorders(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("RecordCoins splits credits and debits", func() {
			credited := testutil.ToFloat64(globalManager.coinsCredited.WithLabelValues("spin"))
			debited := testutil.ToFloat64(globalManager.coinsDebited.WithLabelValues("spin"))

			RecordCoins("spin", 250)
			RecordCoins("spin", -50)
			RecordCoins("spin", 0)

			So(testutil.ToFloat64(globalManager.coinsCredited.WithLabelValues("spin")), ShouldEqual, credited+250)
			So(testutil.ToFloat64(globalManager.coinsDebited.WithLabelValues("spin")), ShouldEqual, debited+50)
		})

		Convey("Counters and gauges move", func() {
			before := testutil.ToFloat64(globalManager.cardsDrawn.WithLabelValues("rare"))
			RecordCardsDrawn("rare", 3)
			So(testutil.ToFloat64(globalManager.cardsDrawn.WithLabelValues("rare")), ShouldEqual, before+3)

			UpdateCachedPoolSets(7)
			So(testutil.ToFloat64(globalManager.cachedPoolSets), ShouldEqual, 7)

			UpdatePendingChallenges(2)
			So(testutil.ToFloat64(globalManager.pendingChallenges), ShouldEqual, 2)
		})

		Convey("The remaining recorders do not panic", func() {
			So(func() {
				RecordPackOpened("spin")
				RecordGameFinished("memory", "won")
				RecordChallenge("started")
				RecordLedgerTx("open_pack", "commit")
				RecordPoolResolution("memory")
				RecordUpstream("tcg", "ok", 12)
				RecordUpstreamRetry("tcg")
				UpdateQueueDepth(1)
				RecordQueueRejection()
				RecordJob("warm_set", "ok", 5)
				RecordHTTPRequest("/api/packs", "GET", "200")
				RecordHTTPRequestDuration("/api/packs", "GET", "200", 3)
				RecordErrorByEndpoint("/api/packs/open", "POST", "insufficient_funds")
				RecordRateLimited()
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(10)
			}, ShouldNotPanic)
		})

		Convey("GetRegistry exposes the custom registry", func() {
			So(GetRegistry(), ShouldEqual, customRegistry)
		})
	})
}
