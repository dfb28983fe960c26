package format

import (
	"fmt"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"github.com/AdamBeresnev/bracket-engine/internal/rules"
)

type RoundRobin struct{}

func (RoundRobin) Name() bracket.Format { return bracket.RoundRobin }

// CirclePairings schedules every participant against every other one. The
// first entry stays fixed while the rest rotate one place per round. ids must
// have an even length; pad with an empty id for a bye.
func CirclePairings(ids []string) [][]bracket.SlotPair {
	pool := append([]string(nil), ids...)
	n := len(pool)
	var rounds [][]bracket.SlotPair
	for r := 0; r < n-1; r++ {
		round := make([]bracket.SlotPair, 0, n/2)
		for i := 0; i < n/2; i++ {
			round = append(round, bracket.SlotPair{pool[i], pool[n-1-i]})
		}
		rounds = append(rounds, round)

		rotated := make([]string, 0, n)
		rotated = append(rotated, pool[0], pool[n-1])
		rotated = append(rotated, pool[1:n-1]...)
		pool = rotated
	}
	return rounds
}

func (RoundRobin) GenerateStage(in GenerateInput) Generated {
	pool := rules.SortForSeed(in.Participants)
	if len(pool)%2 == 1 {
		pool = append(pool, "")
	}

	legs := CirclePairings(pool)
	if in.Settings.DoubleRoundRobin {
		first := len(legs)
		for r := 0; r < first; r++ {
			mirrored := make([]bracket.SlotPair, len(legs[r]))
			for i, p := range legs[r] {
				mirrored[i] = bracket.SlotPair{p[1], p[0]}
			}
			legs = append(legs, mirrored)
		}
	}

	var (
		matches []bracket.Match
		rounds  []bracket.Round
	)
	for r, pairs := range legs {
		roundID := fmt.Sprintf("%s_rr_round_%d", in.StageID, r+1)
		round := bracket.Round{ID: roundID, Name: fmt.Sprintf("Round Robin %d", r+1), Order: r}
		for i, pair := range pairs {
			m := newMatch(fmt.Sprintf("%s_rr_r%d_m%d", in.StageID, r+1, i+1), bracket.RoundRobin, in.StageID, roundID, bracket.GroupSide, i, pair)
			if in.Settings.AutoAdvanceByes && len(pair.Real()) == 1 {
				completeBye(&m, "Round-robin bye", in.At)
			}
			matches = append(matches, m)
			round.MatchIDs = append(round.MatchIDs, m.ID)
		}
		rounds = append(rounds, round)
	}

	return Generated{
		Stage: &bracket.BracketStage{
			ID:       in.StageID,
			Name:     in.StageName,
			Format:   bracket.RoundRobin,
			Rounds:   rounds,
			MatchIDs: matchIDs(matches),
			Edges:    []bracket.AdvancementEdge{},
			Settings: in.Settings,
		},
		Matches: matches,
	}
}

func (RoundRobin) ProcessMatchResult(in ResultInput) []bracket.Event {
	_, events := processBracketResult(in)
	return events
}
