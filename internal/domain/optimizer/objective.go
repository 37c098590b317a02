package optimizer

import (
	"math"

	"github.com/okian/rally/internal/domain/model"
	"github.com/okian/rally/internal/domain/quality"
	"github.com/okian/rally/internal/domain/rating"
)

// Balance objective weights. Lower scores are better.
const (
	varianceWeight  = 10.0
	rangeWeight     = 3.0
	qualityDivisor  = 100.0
	chemistryDivide = 10.0
)

// Partition assigns roster indices to teams.
type Partition [][]int

// Clone deep-copies the partition.
func (p Partition) Clone() Partition {
	out := make(Partition, len(p))
	for i, t := range p {
		out[i] = append([]int(nil), t...)
	}
	return out
}

// Sizes returns the team sizes.
func (p Partition) Sizes() []int {
	out := make([]int, len(p))
	for i, t := range p {
		out[i] = len(t)
	}
	return out
}

// Objective scores a partition; lower is better.
type Objective func(Partition) float64

// balance scores partitions of one roster.
type balance struct {
	roster    []model.Participant
	blended   []float64
	globalAvg float64
	predictor *quality.Predictor
}

func newBalance(roster []model.Participant, predictor *quality.Predictor) *balance {
	b := &balance{
		roster:    roster,
		blended:   make([]float64, len(roster)),
		predictor: predictor,
	}
	sum := 0.0
	for i, p := range roster {
		b.blended[i] = rating.BlendedRating(p)
		sum += b.blended[i]
	}
	if len(roster) > 0 {
		b.globalAvg = sum / float64(len(roster))
	}
	return b
}

func (b *balance) members(team []int) []model.Participant {
	out := make([]model.Participant, len(team))
	for i, idx := range team {
		out[i] = b.roster[idx]
	}
	return out
}

// normalized returns a team's average rating with missing slots (relative to
// the largest team) filled at the global average.
func (b *balance) normalized(team []int, size int) float64 {
	if size == 0 {
		return b.globalAvg
	}
	sum := 0.0
	for _, idx := range team {
		sum += b.blended[idx]
	}
	sum += float64(size-len(team)) * b.globalAvg
	return sum / float64(size)
}

// score combines rating variance, rating range, average pairwise quality and
// average chemistry across teams.
func (b *balance) score(p Partition) float64 {
	if len(p) == 0 {
		return math.Inf(1)
	}
	size := 0
	for _, t := range p {
		if len(t) > size {
			size = len(t)
		}
	}
	norms := make([]float64, len(p))
	sides := make([]quality.Side, len(p))
	chem := 0.0
	for i, t := range p {
		norms[i] = b.normalized(t, size)
		ms := b.members(t)
		sides[i] = b.predictor.Summarize(ms)
		chem += b.predictor.Chemistry(ms)
	}
	chem /= float64(len(p))

	q, pairs := 0.0, 0
	for i := 0; i < len(sides); i++ {
		for j := i + 1; j < len(sides); j++ {
			q += b.predictor.Compare(sides[i], sides[j])
			pairs++
		}
	}
	if pairs > 0 {
		q /= float64(pairs)
	}

	variance, spread := dispersion(norms)
	return variance*varianceWeight + spread*rangeWeight - q/qualityDivisor - chem/chemistryDivide
}

// dispersion returns the population variance and max-min range of xs.
func dispersion(xs []float64) (variance, spread float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	mean, lo, hi := 0.0, xs[0], xs[0]
	for _, x := range xs {
		mean += x
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	mean /= float64(len(xs))
	for _, x := range xs {
		variance += (x - mean) * (x - mean)
	}
	return variance / float64(len(xs)), hi - lo
}
