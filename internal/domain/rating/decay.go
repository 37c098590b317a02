package rating

import (
	"math"
	"time"

	"github.com/okian/rally/internal/domain/model"
)

// Inactivity decay parameters.
const (
	decayGraceDays    = 30
	decayDaysPerFull  = 200.0
	maxDecayFactor    = 0.25
	sigmaGainPerMonth = 10.0
	daysPerMonth      = 30.0
	hoursPerDay       = 24
)

// Decay regresses an inactive participant toward the scale mean and widens
// their uncertainty. Participants active in the last 30 days are unchanged.
func Decay(p model.Participant, now time.Time, s Scale) (model.Participant, bool) {
	if p.LastPlayed.IsZero() {
		return p, false
	}
	days := int(now.Sub(p.LastPlayed).Hours() / hoursPerDay)
	if days <= decayGraceDays {
		return p, false
	}
	f := math.Min(float64(days)/decayDaysPerFull, maxDecayFactor)
	p.Rating = s.Clamp(p.Rating*(1-f) + s.Mean*f)
	p.Sigma = math.Min(p.Sigma+float64(days)/daysPerMonth*sigmaGainPerMonth, s.SigmaCeiling)
	return p, true
}
