package rules

import (
	"math"
	"time"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
)

// WithinChallengeWindow reports whether challengedRank - challengerRank lies
// inside the configured window. A missing bound is unbounded.
func WithinChallengeWindow(r bracket.LadderRules, challengerRank, challengedRank int) bool {
	lo, hi := math.MinInt, math.MaxInt
	if w := r.ChallengeWindow; w != nil {
		if w.MinRank != nil {
			lo = *w.MinRank
		}
		if w.MaxRank != nil {
			hi = *w.MaxRank
		}
	}
	delta := challengedRank - challengerRank
	return delta >= lo && delta <= hi
}

// OnCooldown reports whether a participant whose last match was at lastMatchAt
// may not challenge yet at time at.
func OnCooldown(r bracket.LadderRules, lastMatchAt *time.Time, at time.Time) bool {
	if r.CooldownHours <= 0 || lastMatchAt == nil {
		return false
	}
	cooldown := time.Duration(r.CooldownHours * float64(time.Hour))
	return at.Sub(*lastMatchAt) < cooldown
}
