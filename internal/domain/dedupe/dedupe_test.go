package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/okian/rally/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new deduper", t, func() {
		d := dedupe.NewInMemoryDeduper()
		So(d.Size(), ShouldEqual, 0)

		Convey("When a game id is recorded for the first time", func() {
			seen := d.SeenAndRecord(ctx, "game-1")

			Convey("Then it is reported as new", func() {
				So(seen, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
			})

			Convey("And a resubmission is reported as seen", func() {
				So(d.SeenAndRecord(ctx, "game-1"), ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When a recorded id is unrecorded", func() {
			d.SeenAndRecord(ctx, "game-1")
			d.Unrecord(ctx, "game-1")
			d.Unrecord(ctx, "never-seen")

			Convey("Then it can be recorded again", func() {
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(ctx, "game-1"), ShouldBeFalse)
			})
		})
	})

	Convey("Given a bounded deduper", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))
		for i := 1; i <= 4; i++ {
			d.SeenAndRecord(ctx, fmt.Sprintf("game-%d", i))
		}

		Convey("Then the oldest id is forgotten first", func() {
			So(d.Size(), ShouldEqual, 3)
			So(d.SeenAndRecord(ctx, "game-4"), ShouldBeTrue)
			So(d.SeenAndRecord(ctx, "game-2"), ShouldBeTrue)
			So(d.SeenAndRecord(ctx, "game-1"), ShouldBeFalse)
		})
	})

	Convey("Given an unbounded deduper", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
		for i := 0; i < 1000; i++ {
			d.SeenAndRecord(ctx, fmt.Sprintf("game-%d", i))
		}
		So(d.Size(), ShouldEqual, 1000)
		So(d.SeenAndRecord(ctx, "game-0"), ShouldBeTrue)
	})

	Convey("Given concurrent submissions of the same game", t, func() {
		d := dedupe.NewInMemoryDeduper()
		var fresh atomic.Int64
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if !d.SeenAndRecord(ctx, "game-x") {
					fresh.Add(1)
				}
			}()
		}
		wg.Wait()

		Convey("Then exactly one caller wins", func() {
			So(fresh.Load(), ShouldEqual, 1)
		})
	})
}
