package rules

import (
	"cmp"
	"slices"
	"time"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"github.com/AdamBeresnev/bracket-engine/internal/utils"
)

const (
	defaultDecayThresholdDays = 30
	defaultDecayPointsPerDay  = 1
)

// DefaultLadderRules is the rule set used when a ladder is generated without one.
func DefaultLadderRules() bracket.LadderRules {
	return bracket.LadderRules{
		SwapRule:      bracket.SwapOnWin,
		CooldownHours: 24,
		ChallengeWindow: &bracket.ChallengeWindow{
			MinRank: utils.Ptr(-5),
			MaxRank: utils.Ptr(5),
		},
		Decay: &bracket.DecayPolicy{
			Enabled:             false,
			DaysInactiveToStart: utils.Ptr(defaultDecayThresholdDays),
			PointsPerDay:        utils.Ptr(defaultDecayPointsPerDay),
		},
		Points: DefaultLadderPoints(),
	}
}

func DefaultLadderPoints() *bracket.LadderPoints {
	return &bracket.LadderPoints{Win: 3, Loss: 0, Draw: utils.Ptr(1), BonusStreak: 0}
}

// NormalizeStandings sorts by points descending, prior rank ascending, and
// rewrites ranks to 1..N.
func NormalizeStandings(standings []bracket.Standing) {
	slices.SortStableFunc(standings, func(a, b bracket.Standing) int {
		if c := cmp.Compare(b.Points, a.Points); c != 0 {
			return c
		}
		return cmp.Compare(a.Rank, b.Rank)
	})
	for i := range standings {
		standings[i].Rank = i + 1
	}
}

// RanksContiguous reports whether the ranks are exactly {1..N}.
func RanksContiguous(standings []bracket.Standing) bool {
	seen := make([]bool, len(standings)+1)
	for _, s := range standings {
		if s.Rank < 1 || s.Rank > len(standings) || seen[s.Rank] {
			return false
		}
		seen[s.Rank] = true
	}
	return true
}

// ApplyDecay removes points from every standing inactive for longer than the
// policy threshold and renormalises. Standings that never played are skipped.
// It reports whether the policy was enabled.
func ApplyDecay(standings []bracket.Standing, policy *bracket.DecayPolicy, at time.Time) bool {
	if policy == nil || !policy.Enabled {
		return false
	}
	threshold := utils.OrDefault(policy.DaysInactiveToStart, defaultDecayThresholdDays)
	perDay := utils.OrDefault(policy.PointsPerDay, defaultDecayPointsPerDay)

	for i := range standings {
		last := standings[i].LastMatchAt
		if last == nil {
			continue
		}
		inactive := at.Sub(*last).Hours() / 24
		if inactive <= float64(threshold) {
			continue
		}
		decayed := int(inactive - float64(threshold))
		standings[i].Points = max(0, standings[i].Points-decayed*perDay)
	}
	NormalizeStandings(standings)
	return true
}

// CompactRanks keeps the current rank order and closes any gaps so ranks are 1..N again.
func CompactRanks(standings []bracket.Standing) {
	slices.SortStableFunc(standings, func(a, b bracket.Standing) int {
		return cmp.Compare(a.Rank, b.Rank)
	})
	for i := range standings {
		standings[i].Rank = i + 1
	}
}
