package rating

import "strings"

// Tier ratings on the canonical scale. The letters were historically rated
// on a 0-200 scale (A=160 ... F=0); multiply by 5 to convert.
var tierRatings = map[string]float64{ //nolint:gochecknoglobals // fixed lookup table
	"A": 800,
	"B": 600,
	"C": 500,
	"D": 400,
	"E": 200,
	"F": 0,
}

// ParseTier normalises a tier letter. ok is false for unknown tiers.
func ParseTier(s string) (string, bool) {
	t := strings.ToUpper(strings.TrimSpace(s))
	_, ok := tierRatings[t]
	return t, ok
}

// TierRating returns the canonical rating for a tier letter.
func TierRating(tier string) (float64, bool) {
	t, ok := ParseTier(tier)
	if !ok {
		return 0, false
	}
	return tierRatings[t], true
}
