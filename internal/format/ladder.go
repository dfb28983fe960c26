package format

import (
	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"github.com/AdamBeresnev/bracket-engine/internal/rules"
	"github.com/AdamBeresnev/bracket-engine/internal/utils"
)

type Ladder struct{}

func (Ladder) Name() bracket.Format { return bracket.Ladder }

// GenerateStage seeds the standings in seed order. Ladder matches are only
// created by challenges.
func (Ladder) GenerateStage(in GenerateInput) Generated {
	ruleSet := rules.DefaultLadderRules()
	if in.Options.Rules != nil {
		ruleSet = in.Options.Rules.Clone()
	}

	ordered := rules.SortForSeed(in.Participants)
	standings := make([]bracket.Standing, len(ordered))
	for i, id := range ordered {
		standings[i] = bracket.Standing{ParticipantID: id, Rank: i + 1}
	}

	return Generated{
		Stage: &bracket.LadderStage{
			ID:        in.StageID,
			Name:      in.StageName,
			Format:    bracket.Ladder,
			Rules:     ruleSet,
			Standings: standings,
			MatchIDs:  []string{},
			Settings:  in.Settings,
		},
		Matches: []bracket.Match{},
	}
}

func (Ladder) ProcessMatchResult(in ResultInput) []bracket.Event {
	m := in.Tournament.Match(in.MatchID)
	if m == nil {
		return nil
	}
	stage := in.Tournament.LadderStage(m.StageID)
	if stage == nil {
		return nil
	}

	ApplyResult(m, in.Score, in.Outcome, in.At)
	points := stage.Rules.Points
	if points == nil {
		points = rules.DefaultLadderPoints()
	}
	at := in.At

	switch in.Outcome.Kind {
	case bracket.OutcomeWinner:
		winner := stage.Standing(in.Outcome.WinnerID)
		loser := stage.Standing(in.Outcome.LoserID)
		if winner != nil {
			winner.Streak++
			winner.LastMatchAt = &at
		}
		if loser != nil {
			loser.Streak = 0
			loser.LastMatchAt = &at
		}
		if winner != nil && loser != nil {
			swap := stage.Rules.SwapRule == bracket.SwapOnWin || stage.Rules.SwapRule == bracket.SwapHybrid
			if swap && winner.Rank > loser.Rank {
				winner.Rank, loser.Rank = loser.Rank, winner.Rank
			}
			if stage.Rules.SwapRule == bracket.SwapPoints || stage.Rules.SwapRule == bracket.SwapHybrid {
				gain := points.Win
				if points.BonusStreak > 0 && winner.Streak >= 3 {
					gain += points.BonusStreak
				}
				winner.Points += gain
				loser.Points += points.Loss
			}
		}
	case bracket.OutcomeDraw:
		draw := utils.OrDefault(points.Draw, 1)
		for _, id := range m.Participants.Real() {
			if s := stage.Standing(id); s != nil {
				s.Points += draw
				s.Streak = 0
				s.LastMatchAt = &at
			}
		}
	}

	rules.NormalizeStandings(stage.Standings)

	return []bracket.Event{
		bracket.MatchUpdated(in.MatchID, in.At),
		bracket.MatchCompleted(in.MatchID, in.At),
		bracket.StandingsUpdated(stage.ID, in.At),
	}
}
