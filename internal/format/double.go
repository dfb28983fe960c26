package format

import (
	"fmt"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"github.com/AdamBeresnev/bracket-engine/internal/rules"
)

type DoubleElimination struct{}

func (DoubleElimination) Name() bracket.Format { return bracket.DoubleElimination }

func (DoubleElimination) GenerateStage(in GenerateInput) Generated {
	ordered := rules.SortForSeed(in.Participants)
	size := BracketSize(len(ordered))
	firstRound := SeedPairs(Pad(ordered, size))
	upperCount := log2(size)

	var (
		matches []bracket.Match
		rounds  []bracket.Round
		edges   []bracket.AdvancementEdge
		upper   [][]string
		lower   [][]string
	)

	addRound := func(roundID, name string, ids []string) {
		rounds = append(rounds, bracket.Round{ID: roundID, Name: name, Order: len(rounds), MatchIDs: ids})
	}

	for r := 0; r < upperCount; r++ {
		roundID := fmt.Sprintf("%s_upper_round_%d", in.StageID, r+1)
		var ids []string
		for i := 0; i < size>>(r+1); i++ {
			var pair bracket.SlotPair
			if r == 0 {
				pair = firstRound[i]
			}
			m := newMatch(fmt.Sprintf("%s_u_r%d_m%d", in.StageID, r+1, i+1), bracket.DoubleElimination, in.StageID, roundID, bracket.UpperSide, i, pair)
			matches = append(matches, m)
			ids = append(ids, m.ID)
		}
		addRound(roundID, fmt.Sprintf("Upper Round %d", r+1), ids)
		upper = append(upper, ids)
	}
	for r := 0; r < len(upper)-1; r++ {
		edges = append(edges, halvingEdges(upper[r], upper[r+1])...)
	}

	// Lower rounds alternate: an even round plays survivors against each
	// other, the following odd round meets the losers dropping from upper.
	lowerCount := 0
	if upperCount > 1 {
		lowerCount = (upperCount - 1) * 2
	}
	for lr := 0; lr < lowerCount; lr++ {
		roundID := fmt.Sprintf("%s_lower_round_%d", in.StageID, lr+1)
		var ids []string
		for i := 0; i < 1<<((lowerCount-lr-1)/2); i++ {
			m := newMatch(fmt.Sprintf("%s_l_r%d_m%d", in.StageID, lr+1, i+1), bracket.DoubleElimination, in.StageID, roundID, bracket.LowerSide, i, bracket.SlotPair{})
			matches = append(matches, m)
			ids = append(ids, m.ID)
		}
		addRound(roundID, fmt.Sprintf("Lower Round %d", lr+1), ids)
		lower = append(lower, ids)
	}
	for lr := 0; lr < len(lower)-1; lr++ {
		if lr%2 == 1 {
			edges = append(edges, halvingEdges(lower[lr], lower[lr+1])...)
			continue
		}
		for idx, from := range lower[lr] {
			edges = append(edges, bracket.AdvancementEdge{
				FromMatchID: from,
				From:        bracket.EdgeSource{Kind: bracket.FromWinner},
				ToMatchID:   lower[lr+1][idx],
				ToSlot:      bracket.SlotA,
			})
		}
	}

	if len(lower) > 0 {
		for idx, from := range upper[0] {
			edges = append(edges, bracket.AdvancementEdge{
				FromMatchID: from,
				From:        bracket.EdgeSource{Kind: bracket.FromLoser},
				ToMatchID:   lower[0][idx/2],
				ToSlot:      alternateSlot(idx),
			})
		}
		// Losers of upper round r (1-based, r >= 2) drop into lower round 2r-2,
		// which sits at index 2r-3.
		for r := 2; r <= upperCount; r++ {
			target := 2*r - 3
			if target >= len(lower) || len(lower[target]) < len(upper[r-1]) {
				break
			}
			for idx, from := range upper[r-1] {
				edges = append(edges, bracket.AdvancementEdge{
					FromMatchID: from,
					From:        bracket.EdgeSource{Kind: bracket.FromLoser},
					ToMatchID:   lower[target][idx],
					ToSlot:      bracket.SlotB,
				})
			}
		}
	}

	meta := &bracket.DoubleElimMeta{UpperFinalMatchID: upper[len(upper)-1][0]}
	if len(lower) > 0 {
		meta.LowerFinalMatchID = lower[len(lower)-1][0]
	}

	if upperCount > 1 {
		roundID := in.StageID + "_grand_round"
		gf := newMatch(in.StageID+"_grand_final", bracket.DoubleElimination, in.StageID, roundID, bracket.GrandSide, 0, bracket.SlotPair{})
		matches = append(matches, gf)
		addRound(roundID, "Grand Final", []string{gf.ID})
		edges = append(edges,
			bracket.AdvancementEdge{FromMatchID: meta.UpperFinalMatchID, From: bracket.EdgeSource{Kind: bracket.FromWinner}, ToMatchID: gf.ID, ToSlot: bracket.SlotA},
			bracket.AdvancementEdge{FromMatchID: meta.LowerFinalMatchID, From: bracket.EdgeSource{Kind: bracket.FromWinner}, ToMatchID: gf.ID, ToSlot: bracket.SlotB},
		)
		meta.GrandFinalMatchID = gf.ID

		if in.Settings.GrandFinalReset {
			resetRoundID := in.StageID + "_grand_reset_round"
			reset := newMatch(in.StageID+"_grand_final_reset", bracket.DoubleElimination, in.StageID, resetRoundID, bracket.GrandSide, 0, bracket.SlotPair{})
			reset.Status = bracket.MatchScheduled
			matches = append(matches, reset)
			addRound(resetRoundID, "Grand Final Reset", []string{reset.ID})
			meta.GrandFinalResetMatchID = reset.ID
		}
	}

	return Generated{
		Stage: &bracket.BracketStage{
			ID:         in.StageID,
			Name:       in.StageName,
			Format:     bracket.DoubleElimination,
			Rounds:     rounds,
			MatchIDs:   matchIDs(matches),
			Edges:      edges,
			Settings:   in.Settings,
			DoubleElim: meta,
		},
		Matches: matches,
	}
}

// ProcessMatchResult advances the bracket and, when the grand final is decided,
// either opens the reset match or voids it.
func (DoubleElimination) ProcessMatchResult(in ResultInput) []bracket.Event {
	stage, events := processBracketResult(in)
	if stage == nil || stage.DoubleElim == nil {
		return events
	}
	meta := stage.DoubleElim
	if meta.GrandFinalResetMatchID == "" || in.MatchID != meta.GrandFinalMatchID || in.Outcome.Kind != bracket.OutcomeWinner {
		return events
	}

	gf := in.Tournament.Match(in.MatchID)
	reset := in.Tournament.Match(meta.GrandFinalResetMatchID)
	upperChamp, lowerChamp := gf.Participants[0], gf.Participants[1]
	if reset == nil || !bracket.IsRealParticipant(upperChamp) || !bracket.IsRealParticipant(lowerChamp) {
		return events
	}

	reset.Participants = bracket.SlotPair{upperChamp, lowerChamp}
	if in.Outcome.WinnerID == lowerChamp {
		reset.Status = bracket.MatchPending
	} else {
		outcome := bracket.WinnerOutcome(upperChamp, lowerChamp)
		reset.Outcome = &outcome
		reset.Status = bracket.MatchVoid
		at := in.At
		reset.CompletedAt = &at
	}
	return append(events, bracket.MatchUpdated(reset.ID, in.At))
}
