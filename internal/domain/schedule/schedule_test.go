package schedule_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/okian/rally/internal/domain/model"
	"github.com/okian/rally/internal/domain/optimizer"
	"github.com/okian/rally/internal/domain/quality"
	"github.com/okian/rally/internal/domain/schedule"
	. "github.com/smartystreets/goconvey/convey"
)

func singles(ratings ...float64) []model.Team {
	teams := make([]model.Team, len(ratings))
	for i, r := range ratings {
		teams[i] = model.Team{
			Index:   i,
			Members: []model.Participant{{ID: fmt.Sprintf("t%d", i), Rating: r, Sigma: 50}},
		}
	}
	return teams
}

func pairKey(m model.Matchup) [2]int {
	if m.TeamA > m.TeamB {
		return [2]int{m.TeamB, m.TeamA}
	}
	return [2]int{m.TeamA, m.TeamB}
}

func TestBuild_OddTeams(t *testing.T) {
	Convey("Given 5 teams and 4 requested rounds", t, func() {
		s := schedule.New()
		sched, err := s.Build(singles(500, 520, 480, 610, 390), 4)
		So(err, ShouldBeNil)

		Convey("Then every round has two matchups and one bye", func() {
			So(len(sched.Rounds), ShouldEqual, 4)
			So(sched.MaxUniqueRounds, ShouldEqual, 5)
			So(sched.RepeatedRounds, ShouldEqual, 0)
			for i, r := range sched.Rounds {
				So(r.Number, ShouldEqual, i+1)
				So(len(r.Matchups), ShouldEqual, 2)
				So(len(r.Byes), ShouldEqual, 1)
				So(r.Repeat, ShouldBeFalse)
			}
		})

		Convey("Then no team sits out twice and no pairing repeats", func() {
			byes := map[int]int{}
			pairs := map[[2]int]int{}
			for _, r := range sched.Rounds {
				inRound := map[int]bool{r.Byes[0]: true}
				byes[r.Byes[0]]++
				for _, m := range r.Matchups {
					So(m.Round, ShouldEqual, r.Number)
					So(m.TeamA, ShouldNotEqual, m.TeamB)
					So(inRound[m.TeamA], ShouldBeFalse)
					So(inRound[m.TeamB], ShouldBeFalse)
					inRound[m.TeamA], inRound[m.TeamB] = true, true
					pairs[pairKey(m)]++
				}
				So(len(inRound), ShouldEqual, 5)
			}
			So(len(byes), ShouldEqual, 4)
			for _, c := range byes {
				So(c, ShouldEqual, 1)
			}
			for _, c := range pairs {
				So(c, ShouldEqual, 1)
			}
		})

		Convey("Then matchups within a round are ordered by quality", func() {
			for _, r := range sched.Rounds {
				So(r.Matchups[0].Quality, ShouldBeGreaterThanOrEqualTo, r.Matchups[1].Quality)
			}
		})
	})
}

func TestBuild_FullRoundRobin(t *testing.T) {
	Convey("Given 6 teams and a full round robin", t, func() {
		sched, err := schedule.New().Build(singles(500, 510, 520, 530, 540, 550), 5)
		So(err, ShouldBeNil)

		Convey("Then every pairing occurs exactly once", func() {
			pairs := map[[2]int]int{}
			for _, m := range sched.Matchups() {
				pairs[pairKey(m)]++
			}
			So(len(pairs), ShouldEqual, 15)
			for _, c := range pairs {
				So(c, ShouldEqual, 1)
			}
			for _, r := range sched.Rounds {
				So(r.Byes, ShouldBeEmpty)
			}
		})
	})
}

func TestBuild_RepeatedRounds(t *testing.T) {
	Convey("Given 4 teams and more rounds than a round robin holds", t, func() {
		sched, err := schedule.New().Build(singles(400, 600, 410, 590), 5)
		So(err, ShouldBeNil)

		Convey("Then the extra rounds are reported, not truncated", func() {
			So(len(sched.Rounds), ShouldEqual, 5)
			So(sched.MaxUniqueRounds, ShouldEqual, 3)
			So(sched.RepeatedRounds, ShouldEqual, 2)
			for i, r := range sched.Rounds {
				So(r.Repeat, ShouldEqual, i >= 3)
			}
		})

		Convey("Then the first reused round is the best quality round", func() {
			avg := func(r model.Round) float64 {
				sum := 0.0
				for _, m := range r.Matchups {
					sum += m.Quality
				}
				return sum / float64(len(r.Matchups))
			}
			for _, r := range sched.Rounds[:3] {
				So(avg(sched.Rounds[3]), ShouldBeGreaterThanOrEqualTo, avg(r))
			}
			So(avg(sched.Rounds[3]), ShouldBeGreaterThanOrEqualTo, avg(sched.Rounds[4]))
		})
	})
}

func TestBuild_Errors(t *testing.T) {
	Convey("Given invalid schedule requests", t, func() {
		s := schedule.New()

		_, err := s.Build(singles(500), 3)
		So(errors.Is(err, model.ErrInvalidConfiguration), ShouldBeTrue)

		_, err = s.Build(singles(500, 500), 0)
		So(errors.Is(err, model.ErrInvalidConfiguration), ShouldBeTrue)

		_, err = s.Integrate(singles(500, 500), 0)
		So(errors.Is(err, model.ErrInvalidConfiguration), ShouldBeTrue)

		_, err = s.OptimalMatchups(nil)
		So(errors.Is(err, model.ErrInvalidConfiguration), ShouldBeTrue)
	})
}

func TestOptimalMatchups(t *testing.T) {
	Convey("Given two clusters of close teams", t, func() {
		round, err := schedule.New().OptimalMatchups(singles(400, 600, 410, 610))
		So(err, ShouldBeNil)

		Convey("Then close teams are paired with each other", func() {
			pairs := map[[2]int]bool{}
			for _, m := range round.Matchups {
				pairs[pairKey(m)] = true
			}
			So(pairs, ShouldResemble, map[[2]int]bool{{0, 2}: true, {1, 3}: true})
			So(round.Byes, ShouldBeEmpty)
		})
	})

	Convey("Given an odd count with one outlier", t, func() {
		round, err := schedule.New().OptimalMatchups(singles(400, 410, 600, 610, 1000))
		So(err, ShouldBeNil)

		Convey("Then the outlier takes the bye", func() {
			So(round.Byes, ShouldResemble, []int{4})
			So(len(round.Matchups), ShouldEqual, 2)
		})
	})

	Convey("Given more teams than the exact solver handles", t, func() {
		ratings := make([]float64, 18)
		for i := range ratings {
			ratings[i] = 300 + float64(i*23%400)
		}
		round, err := schedule.New().OptimalMatchups(singles(ratings...))
		So(err, ShouldBeNil)

		Convey("Then every team still plays exactly once", func() {
			seen := map[int]bool{}
			for _, m := range round.Matchups {
				So(seen[m.TeamA], ShouldBeFalse)
				So(seen[m.TeamB], ShouldBeFalse)
				seen[m.TeamA], seen[m.TeamB] = true, true
			}
			So(len(round.Matchups), ShouldEqual, 9)
			So(round.Byes, ShouldBeEmpty)
		})
	})
}

func TestIntegrate(t *testing.T) {
	Convey("Given deliberately unbalanced teams", t, func() {
		ratings := []float64{800, 780, 760, 300, 320, 340, 500, 520, 540, 450, 470, 490}
		ps := make([]model.Participant, len(ratings))
		for i, r := range ratings {
			ps[i] = model.Participant{ID: fmt.Sprintf("p%02d", i), Rating: r, Sigma: 40}
		}
		teams := optimizer.Teams(ps, optimizer.Partition{{0, 1, 2}, {3, 4, 5}, {6, 7, 8}, {9, 10, 11}}, quality.New())

		annealer := optimizer.Annealer{Start: 50, Cooling: 0.99, Floor: 0.1, MaxSteps: 800}
		s := schedule.New(schedule.WithSeed(7), schedule.WithAnnealer(annealer), schedule.WithIterations(5))
		res, err := s.Integrate(teams, 3)
		So(err, ShouldBeNil)

		base, err := schedule.New().Build(teams, 3)
		So(err, ShouldBeNil)

		Convey("Then the joint result is at least as good as the circle schedule", func() {
			So(res.Schedule.TotalQuality(), ShouldBeGreaterThanOrEqualTo, base.TotalQuality()-1e-9)
			So(res.Iterations, ShouldBeGreaterThan, 0)
			So(res.Iterations, ShouldBeLessThanOrEqualTo, 5)
		})

		Convey("Then every participant is on exactly one team and sizes hold", func() {
			seen := map[string]int{}
			for _, team := range res.Teams {
				So(team.Size(), ShouldEqual, 3)
				for _, id := range team.MemberIDs() {
					seen[id]++
				}
			}
			So(len(seen), ShouldEqual, 12)
		})

		Convey("Then no pairing repeats within a round robin", func() {
			So(res.Schedule.RepeatedRounds, ShouldEqual, 0)
			So(len(res.Schedule.Rounds), ShouldEqual, 3)
		})

		Convey("Then the same seed reproduces the result", func() {
			again, err := schedule.New(schedule.WithSeed(7), schedule.WithAnnealer(annealer), schedule.WithIterations(5)).
				Integrate(teams, 3)
			So(err, ShouldBeNil)
			for i := range res.Teams {
				So(again.Teams[i].MemberIDs(), ShouldResemble, res.Teams[i].MemberIDs())
			}
		})
	})
}

func byeCounts(sched model.Schedule) map[int]int {
	out := map[int]int{}
	for _, r := range sched.Rounds {
		for _, b := range r.Byes {
			out[b]++
		}
	}
	return out
}

func TestIntegrate_OddTeamsShareByes(t *testing.T) {
	Convey("Given seven teams with one clearly weaker team", t, func() {
		teams := singles(100, 500, 505, 510, 515, 520, 525)

		for _, rounds := range []int{3, 4, 7} {
			res, err := schedule.New(schedule.WithSeed(1)).Integrate(teams, rounds)
			So(err, ShouldBeNil)
			So(len(res.Schedule.Rounds), ShouldEqual, rounds)

			counts := byeCounts(res.Schedule)
			total := 0
			for team, n := range counts {
				So(n, ShouldBeLessThanOrEqualTo, 1)
				So(team, ShouldBeBetweenOrEqual, 0, 6)
				total += n
			}
			So(total, ShouldEqual, rounds)
			So(res.Schedule.RepeatedRounds, ShouldEqual, 0)
		}
	})

	Convey("Given more teams than exact matching handles", t, func() {
		ratings := make([]float64, 17)
		for i := range ratings {
			ratings[i] = 300 + float64(i)*20
		}
		res, err := schedule.New(schedule.WithSeed(3)).Integrate(singles(ratings...), 6)
		So(err, ShouldBeNil)

		for _, n := range byeCounts(res.Schedule) {
			So(n, ShouldBeLessThanOrEqualTo, 1)
		}
		for _, r := range res.Schedule.Rounds {
			So(len(r.Byes), ShouldEqual, 1)
			So(len(r.Matchups), ShouldEqual, 8)
		}
	})
}
