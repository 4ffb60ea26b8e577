package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLogger(t *testing.T) {
	Convey("Given a logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(InitWithWriter(&buf), ShouldBeNil)
		defer func() { _ = SetLevelString("info") }()
		ctx := context.Background()

		Convey("Info lines are JSON with fields and a source", func() {
			Get().Info(ctx, "pack opened", String("set", "sv1"), Int64("coins", 900))

			var line map[string]any
			So(json.Unmarshal(buf.Bytes(), &line), ShouldBeNil)
			So(line["msg"], ShouldEqual, "pack opened")
			So(line["set"], ShouldEqual, "sv1")
			So(line["coins"], ShouldEqual, float64(900))
			So(line["source"], ShouldContainSubstring, "logger_test.go")
		})

		Convey("Named loggers tag their lines", func() {
			Named("catalog").Named("provider").Warn(ctx, "stale pools", Error(errors.New("boom")))
			So(buf.String(), ShouldContainSubstring, `"logger":"catalog.provider"`)
			So(buf.String(), ShouldContainSubstring, `"error":"boom"`)
		})

		Convey("Debug is suppressed until the level is lowered", func() {
			Get().Debug(ctx, "hidden")
			So(buf.Len(), ShouldEqual, 0)

			So(SetLevelString("DEBUG"), ShouldBeNil)
			Get().Debug(ctx, "visible")
			So(strings.Count(buf.String(), "\n"), ShouldEqual, 1)
		})

		Convey("Unknown levels are rejected", func() {
			So(SetLevelString("chatty"), ShouldNotBeNil)
		})

		Convey("Sync is a no-op", func() {
			So(Sync(), ShouldBeNil)
		})
	})

	Convey("Nop swallows everything", t, func() {
		So(func() { Nop().Error(context.Background(), "ignored") }, ShouldNotPanic)
	})

	Convey("A nil writer is refused", t, func() {
		So(InitWithWriter(nil), ShouldNotBeNil)
	})
}
