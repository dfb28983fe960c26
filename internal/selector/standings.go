package selector

import (
	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"github.com/AdamBeresnev/bracket-engine/internal/rules"
)

const (
	groupWinPoints  = 3
	groupDrawPoints = 1
)

// GroupStandings builds the table of a round-robin or Swiss stage and orders
// it by the stage tiebreakers. Byes count as wins without a point difference
// and without an opponent for Buchholz.
func GroupStandings(t *bracket.Tournament, stageID string) []rules.TiebreakRow {
	s := t.BracketStage(stageID)
	if s == nil {
		return []rules.TiebreakRow{}
	}

	index := map[string]int{}
	var rows []rules.TiebreakRow
	row := func(id string) *rules.TiebreakRow {
		i, ok := index[id]
		if !ok {
			i = len(rows)
			index[id] = i
			rows = append(rows, rules.TiebreakRow{ParticipantID: id})
		}
		return &rows[i]
	}

	opponents := map[string][]string{}
	for _, m := range matchesByID(t, s.MatchIDs) {
		for _, id := range m.Participants.Real() {
			row(id)
		}
		if m.Outcome == nil || m.Status != bracket.MatchCompleted {
			continue
		}
		a, b := m.Participants[0], m.Participants[1]
		switch m.Outcome.Kind {
		case bracket.OutcomeWinner:
			if bracket.IsRealParticipant(m.Outcome.WinnerID) {
				row(m.Outcome.WinnerID).Points += groupWinPoints
			}
		case bracket.OutcomeDraw:
			for _, id := range m.Participants.Real() {
				row(id).Points += groupDrawPoints
			}
		}
		if !bracket.IsRealParticipant(a) || !bracket.IsRealParticipant(b) {
			continue
		}
		if sc := m.Score; sc != nil {
			row(a).PointDiff += sc.A - sc.B
			row(b).PointDiff += sc.B - sc.A
		}
		opponents[a] = append(opponents[a], b)
		opponents[b] = append(opponents[b], a)
	}

	points := make(map[string]int, len(rows))
	for _, r := range rows {
		points[r.ParticipantID] = r.Points
	}
	for i := range rows {
		for _, opp := range opponents[rows[i].ParticipantID] {
			rows[i].Buchholz += points[opp]
		}
	}
	if rows == nil {
		return []rules.TiebreakRow{}
	}
	return rules.SortWithTiebreakers(rows, s.Settings.Tiebreakers)
}
