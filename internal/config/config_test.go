package config_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/pokepack/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with defaults", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should carry the economy defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":3001")
			convey.So(cfg.PackCost, convey.ShouldEqual, 100)
			convey.So(cfg.StartingCoins, convey.ShouldEqual, 1000)
			convey.So(cfg.DefaultSetID, convey.ShouldEqual, "swsh1")
			convey.So(cfg.CardPoolTTL, convey.ShouldEqual, 12*time.Hour)
			convey.So(cfg.ChallengeTTL, convey.ShouldEqual, 10*time.Minute)
			convey.So(cfg.CORSOrigin, convey.ShouldEqual, "http://localhost:5173")
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then Validate should reject a non-positive pack cost", func() {
			cfg.PackCost = 0
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("Then Validate should reject an empty memory mode", func() {
			cfg.MemoryModes = map[string]config.MemoryMode{"hard": {}}
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("Then Validate should reject an unknown time rule", func() {
			cfg.MemoryModes = map[string]config.MemoryMode{"hard": {Pairs: 8, TimeRule: "ceil"}}
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)

			cfg.MemoryModes = map[string]config.MemoryMode{"hard": {Pairs: 8, TimeRule: "double"}}
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}
