package format

import (
	"fmt"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"github.com/AdamBeresnev/bracket-engine/internal/rules"
)

type SingleElimination struct{}

func (SingleElimination) Name() bracket.Format { return bracket.SingleElimination }

func (SingleElimination) GenerateStage(in GenerateInput) Generated {
	ordered := rules.SortForSeed(in.Participants)
	size := BracketSize(len(ordered))
	firstRound := SeedPairs(Pad(ordered, size))
	totalRounds := log2(size)

	var (
		matches []bracket.Match
		rounds  []bracket.Round
		edges   []bracket.AdvancementEdge
	)

	for r := 0; r < totalRounds; r++ {
		roundID := fmt.Sprintf("%s_round_%d", in.StageID, r+1)
		round := bracket.Round{ID: roundID, Name: fmt.Sprintf("Round %d", r+1), Order: r}
		for i := 0; i < size>>(r+1); i++ {
			var pair bracket.SlotPair
			if r == 0 {
				pair = firstRound[i]
			}
			m := newMatch(fmt.Sprintf("%s_r%d_m%d", in.StageID, r+1, i+1), bracket.SingleElimination, in.StageID, roundID, bracket.UpperSide, i, pair)
			matches = append(matches, m)
			round.MatchIDs = append(round.MatchIDs, m.ID)
		}
		rounds = append(rounds, round)
	}

	for r := 0; r < len(rounds)-1; r++ {
		edges = append(edges, halvingEdges(rounds[r].MatchIDs, rounds[r+1].MatchIDs)...)
	}

	if in.Settings.ThirdPlaceMatch && len(rounds) >= 2 {
		semis := rounds[len(rounds)-2]
		roundID := in.StageID + "_round_third"
		m := newMatch(in.StageID+"_third_place", bracket.SingleElimination, in.StageID, roundID, bracket.UpperSide, 0, bracket.SlotPair{})
		matches = append(matches, m)
		rounds = append(rounds, bracket.Round{ID: roundID, Name: "Third Place", Order: len(rounds), MatchIDs: []string{m.ID}})
		for idx, from := range semis.MatchIDs {
			edges = append(edges, bracket.AdvancementEdge{
				FromMatchID: from,
				From:        bracket.EdgeSource{Kind: bracket.FromLoser},
				ToMatchID:   m.ID,
				ToSlot:      alternateSlot(idx),
			})
		}
	}

	return Generated{
		Stage: &bracket.BracketStage{
			ID:       in.StageID,
			Name:     in.StageName,
			Format:   bracket.SingleElimination,
			Rounds:   rounds,
			MatchIDs: matchIDs(matches),
			Edges:    edges,
			Settings: in.Settings,
		},
		Matches: matches,
	}
}

func (SingleElimination) ProcessMatchResult(in ResultInput) []bracket.Event {
	_, events := processBracketResult(in)
	return events
}

// halvingEdges sends the winners of two neighbouring matches into one match of
// the next round, the even one into slot A.
func halvingEdges(current, next []string) []bracket.AdvancementEdge {
	edges := make([]bracket.AdvancementEdge, 0, len(current))
	for idx, from := range current {
		edges = append(edges, bracket.AdvancementEdge{
			FromMatchID: from,
			From:        bracket.EdgeSource{Kind: bracket.FromWinner},
			ToMatchID:   next[idx/2],
			ToSlot:      alternateSlot(idx),
		})
	}
	return edges
}

func alternateSlot(idx int) bracket.Slot {
	if idx%2 == 0 {
		return bracket.SlotA
	}
	return bracket.SlotB
}

func log2(size int) int {
	n := 0
	for size > 1 {
		size >>= 1
		n++
	}
	return n
}
