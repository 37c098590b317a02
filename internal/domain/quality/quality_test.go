package quality_test

import (
	"fmt"
	"testing"

	"github.com/okian/rally/internal/domain/chemistry"
	"github.com/okian/rally/internal/domain/model"
	"github.com/okian/rally/internal/domain/quality"
	. "github.com/smartystreets/goconvey/convey"
)

func team(prefix string, ratings []float64, sigma float64) []model.Participant {
	out := make([]model.Participant, len(ratings))
	for i, r := range ratings {
		out[i] = model.Participant{ID: fmt.Sprintf("%s%d", prefix, i), Rating: r, Sigma: sigma}
	}
	return out
}

func TestPredict(t *testing.T) {
	Convey("Given a default predictor", t, func() {
		p := quality.New()

		Convey("When both teams are identical in rating", func() {
			a := team("a", []float64{500, 500}, 0)
			b := team("b", []float64{500, 500}, 0)

			Convey("Then quality is 100 with no uncertainty", func() {
				So(p.Predict(a, b), ShouldAlmostEqual, 100, 1e-9)
			})
		})

		Convey("When teams differ", func() {
			a := team("a", []float64{620, 480, 530}, 40)
			b := team("b", []float64{450, 510, 700}, 60)

			Convey("Then the prediction is symmetric", func() {
				So(p.Predict(a, b), ShouldEqual, p.Predict(b, a))
			})

			Convey("Then the value lies in [0, 100]", func() {
				q := p.Predict(a, b)
				So(q, ShouldBeGreaterThanOrEqualTo, 0)
				So(q, ShouldBeLessThanOrEqualTo, 100)
			})
		})

		Convey("When the rating gap grows with fixed uncertainty", func() {
			base := team("a", []float64{500, 500}, 30)
			prev := 101.0
			for gap := 0.0; gap <= 400; gap += 25 {
				other := team("b", []float64{500 + gap, 500 + gap}, 30)
				q := p.Predict(base, other)
				So(q, ShouldBeLessThan, prev)
				prev = q
			}
		})

		Convey("When uncertainty rises with a fixed gap", func() {
			low := p.Predict(team("a", []float64{500}, 10), team("b", []float64{550}, 10))
			high := p.Predict(team("a", []float64{500}, 90), team("b", []float64{550}, 90))
			So(high, ShouldBeLessThan, low)
		})

		Convey("When a team is empty", func() {
			So(p.Predict(nil, team("b", []float64{500}, 0)), ShouldEqual, 0)
		})

		Convey("When the gap equals the closeness", func() {
			So(p.Predict(team("a", []float64{500}, 0), team("b", []float64{537.5}, 0)), ShouldAlmostEqual, 50, 1e-9)
		})
	})

	Convey("Given a predictor with a wider closeness", t, func() {
		p := quality.New(quality.WithCloseness(75))
		a := team("a", []float64{500}, 0)

		Convey("Then quality halves at the wider gap", func() {
			So(p.Predict(a, team("b", []float64{575}, 0)), ShouldAlmostEqual, 50, 1e-9)
			So(p.Predict(a, team("b", []float64{537.5}, 0)), ShouldBeGreaterThan, quality.New().Predict(a, team("b", []float64{537.5}, 0)))
		})
	})

	Convey("Given a predictor with chemistry", t, func() {
		tbl := chemistry.New()
		a := team("a", []float64{500, 500}, 0)
		b := team("b", []float64{500, 500}, 0)
		tbl.Record([]string{"a0", "a1"}, chemistry.Win)
		p := quality.New(quality.WithChemistry(tbl, 1))

		Convey("Then the synergy of team a opens a gap", func() {
			So(p.Predict(a, b), ShouldBeLessThan, 100)
			So(p.Predict(a, b), ShouldEqual, p.Predict(b, a))
			So(p.Chemistry(a), ShouldEqual, 5)
		})
	})

	Convey("Given the confidence factor", t, func() {
		So(quality.ConfidenceFactor(0), ShouldEqual, 1)
		So(quality.ConfidenceFactor(100), ShouldEqual, 0.5)
	})
}
