package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given an initialised text logger", t, func() {
		var buf bytes.Buffer
		So(Init(WithWriter(&buf)), ShouldBeNil)
		Reset(func() { _ = Sync() })

		Convey("When logging at info", func() {
			Get().Info(context.Background(), "plan built", String("strategy", "anneal"), Int("teams", 4))

			Convey("Then fields and the caller location are written", func() {
				out := buf.String()
				So(out, ShouldContainSubstring, "plan built")
				So(out, ShouldContainSubstring, "strategy=anneal")
				So(out, ShouldContainSubstring, "teams=4")
				So(out, ShouldContainSubstring, "logger_test.go")
			})
		})

		Convey("When debug is below the level", func() {
			Get().Debug(context.Background(), "hidden")
			So(buf.String(), ShouldBeEmpty)

			So(SetLevelString("debug"), ShouldBeNil)
			Get().Debug(context.Background(), "shown")
			So(buf.String(), ShouldContainSubstring, "shown")
		})

		Convey("When a named logger is used", func() {
			Named("worker").Warn(context.Background(), "slow", Duration("took", time.Second))
			So(buf.String(), ShouldContainSubstring, "worker.took=1s")
		})
	})
}

func TestLoggerJSON(t *testing.T) {
	Convey("Given a json logger", t, func() {
		var buf bytes.Buffer
		So(Init(WithWriter(&buf), WithFormat("JSON")), ShouldBeNil)

		Get().Error(context.Background(), "apply failed", Error(errors.New("boom")), Bool("fallback", true), Float64("delta", 2.5))

		Convey("Then each line is a json object", func() {
			var line map[string]any
			So(json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &line), ShouldBeNil)
			So(line["msg"], ShouldEqual, "apply failed")
			So(line["level"], ShouldEqual, "ERROR")
			So(line["fallback"], ShouldEqual, true)
			So(line["delta"], ShouldEqual, 2.5)
			So(line["error"], ShouldEqual, "boom")
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given level names", t, func() {
		So(Init(WithWriter(&bytes.Buffer{})), ShouldBeNil)
		for _, lvl := range []string{"debug", "info", "", "warn", "WARNING", "error"} {
			So(SetLevelString(lvl), ShouldBeNil)
		}
		So(SetLevelString("verbose"), ShouldNotBeNil)
	})
}
