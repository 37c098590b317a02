package chemistry_test

import (
	"testing"

	"github.com/okian/rally/internal/domain/chemistry"
	. "github.com/smartystreets/goconvey/convey"
)

func TestTable(t *testing.T) {
	Convey("Given an empty chemistry table", t, func() {
		tbl := chemistry.New()

		Convey("Then unknown pairs have no score", func() {
			_, ok := tbl.Score("a", "b")
			So(ok, ShouldBeFalse)
			So(tbl.TeamScore([]string{"a", "b", "c"}), ShouldEqual, 0)
		})

		Convey("When a team wins twice", func() {
			tbl.Record([]string{"a", "b", "c"}, chemistry.Win)
			tbl.Record([]string{"a", "b", "c"}, chemistry.Win)

			Convey("Then every pair accumulates with retention", func() {
				s, ok := tbl.Score("b", "a")
				So(ok, ShouldBeTrue)
				So(s, ShouldAlmostEqual, 5*0.95+5, 1e-9)
				So(tbl.TeamScore([]string{"c", "a", "b"}), ShouldAlmostEqual, 9.75, 1e-9)
			})

			Convey("And a loss pulls the pair down", func() {
				tbl.Record([]string{"a", "b"}, chemistry.Loss)
				s, _ := tbl.Score("a", "b")
				So(s, ShouldAlmostEqual, 9.75*0.95-2, 1e-9)
			})

			Convey("And best partners are ordered by score", func() {
				tbl.Record([]string{"a", "c"}, chemistry.Win)
				best := tbl.Best("a", 1)
				So(len(best), ShouldEqual, 1)
				So(best[0].B, ShouldEqual, "c")
			})

			Convey("And forgetting a participant drops their pairs", func() {
				tbl.Forget("a")
				_, ok := tbl.Score("a", "b")
				So(ok, ShouldBeFalse)
				_, ok = tbl.Score("b", "c")
				So(ok, ShouldBeTrue)
			})
		})

		Convey("When entries are exported and loaded", func() {
			tbl.Record([]string{"x", "y"}, chemistry.Tie)
			other := chemistry.New()
			other.Load(tbl.Entries())
			_, ok := other.Score("y", "x")
			So(ok, ShouldBeTrue)
		})
	})

	Convey("Given a nil table", t, func() {
		var tbl *chemistry.Table
		So(tbl.TeamScore([]string{"a", "b"}), ShouldEqual, 0)
		So(func() { tbl.Record([]string{"a", "b"}, chemistry.Win) }, ShouldNotPanic)
	})
}
