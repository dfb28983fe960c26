// Package selector answers read-only questions about a tournament snapshot.
// Nothing here mutates the state it is given.
package selector

import (
	"cmp"
	"slices"
	"strings"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
)

func matchesByID(t *bracket.Tournament, ids []string) []bracket.Match {
	out := make([]bracket.Match, 0, len(ids))
	for _, id := range ids {
		if m := t.Match(id); m != nil {
			out = append(out, *m)
		}
	}
	return out
}

// StageMatches returns the matches listed by the stage in stage order.
func StageMatches(t *bracket.Tournament, stageID string) []bracket.Match {
	s := t.Stage(stageID)
	if s == nil {
		return []bracket.Match{}
	}
	return matchesByID(t, s.StageMatchIDs())
}

func RoundMatches(t *bracket.Tournament, stageID, roundID string) []bracket.Match {
	s := t.BracketStage(stageID)
	if s == nil {
		return []bracket.Match{}
	}
	for _, r := range s.Rounds {
		if r.ID == roundID {
			return matchesByID(t, r.MatchIDs)
		}
	}
	return []bracket.Match{}
}

// PathToFinal walks the advancement edges from every match the participant
// sits in, following targets that hold them or still have an open slot. Once
// a match is decided only the edge matching the participant's result is taken.
func PathToFinal(t *bracket.Tournament, stageID, participantID string) []string {
	s := t.BracketStage(stageID)
	if s == nil {
		return []string{}
	}

	var queue []string
	for _, m := range t.Matches {
		if slices.Contains(s.MatchIDs, m.ID) && m.Participants.Contains(participantID) {
			queue = append(queue, m.ID)
		}
	}

	path := []string{}
	seen := map[string]bool{}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if seen[current] {
			continue
		}
		seen[current] = true
		path = append(path, current)

		m := t.Match(current)
		decided := m != nil && m.Outcome != nil && m.Outcome.Kind == bracket.OutcomeWinner
		for _, edge := range s.OutgoingEdges(current) {
			if decided {
				if edge.From.Kind == bracket.FromWinner && !m.IsWinner(participantID) {
					continue
				}
				if edge.From.Kind == bracket.FromLoser && !m.IsLoser(participantID) {
					continue
				}
			}
			next := t.Match(edge.ToMatchID)
			if next == nil {
				continue
			}
			if next.Participants.Contains(participantID) || next.Participants[0] == "" || next.Participants[1] == "" {
				queue = append(queue, next.ID)
			}
		}
	}
	return path
}

// Upsets returns decided matches whose winner was seeded worse than the loser.
func Upsets(t *bracket.Tournament, stageID string) []bracket.Match {
	s := t.Stage(stageID)
	if s == nil {
		return []bracket.Match{}
	}
	out := []bracket.Match{}
	for _, m := range t.Matches {
		if !slices.Contains(s.StageMatchIDs(), m.ID) || m.Outcome == nil || m.Outcome.Kind != bracket.OutcomeWinner {
			continue
		}
		winner, loser := t.Participant(m.Outcome.WinnerID), t.Participant(m.Outcome.LoserID)
		if winner == nil || loser == nil || winner.Seed == nil || loser.Seed == nil {
			continue
		}
		if *winner.Seed > *loser.Seed {
			out = append(out, m)
		}
	}
	return out
}

type LadderRow struct {
	Participant *bracket.Participant `json:"participant,omitempty"`
	Rank        int                  `json:"rank"`
	Points      int                  `json:"points"`
	Streak      int                  `json:"streak"`
}

// LadderStandings joins the standings of a ladder stage with their
// participants, ordered by rank.
func LadderStandings(t *bracket.Tournament, stageID string) []LadderRow {
	s := t.LadderStage(stageID)
	if s == nil {
		return []LadderRow{}
	}
	standings := slices.Clone(s.Standings)
	slices.SortStableFunc(standings, func(a, b bracket.Standing) int {
		return cmp.Compare(a.Rank, b.Rank)
	})

	rows := make([]LadderRow, len(standings))
	for i, st := range standings {
		rows[i] = LadderRow{Rank: st.Rank, Points: st.Points, Streak: st.Streak}
		if p := t.Participant(st.ParticipantID); p != nil {
			cp := *p
			rows[i].Participant = &cp
		}
	}
	return rows
}

// SearchParticipants matches query case-insensitively against participant
// names. A blank query matches nobody.
func SearchParticipants(t *bracket.Tournament, query string) []bracket.Participant {
	q := strings.ToLower(strings.TrimSpace(query))
	out := []bracket.Participant{}
	if q == "" {
		return out
	}
	for _, p := range t.Participants {
		if strings.Contains(strings.ToLower(p.Name), q) {
			out = append(out, p)
		}
	}
	return out
}
