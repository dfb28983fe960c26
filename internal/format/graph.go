package format

import (
	"math"
	"time"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
)

// BracketSize rounds count up to the next power of two, so 5 becomes 8.
// A bracket always has at least two slots.
func BracketSize(count int) int {
	if count <= 2 {
		return 2
	}

	log2 := math.Ceil(math.Log2(float64(count)))
	return int(math.Pow(2, log2))
}

// SeedPairs pairs the ends of ids moving inward: first with last, second
// with second to last.
func SeedPairs(ids []string) []bracket.SlotPair {
	pairs := make([]bracket.SlotPair, 0, len(ids)/2)
	for left, right := 0, len(ids)-1; left < right; left, right = left+1, right-1 {
		pairs = append(pairs, bracket.SlotPair{ids[left], ids[right]})
	}
	return pairs
}

// Pad extends ids with empty slots up to size.
func Pad(ids []string, size int) []string {
	out := make([]string, size)
	copy(out, ids)
	return out
}

func newMatch(id string, format bracket.Format, stageID, roundID string, side bracket.BracketSide, orderKey int, pair bracket.SlotPair) bracket.Match {
	return bracket.Match{
		ID:           id,
		Format:       format,
		StageID:      stageID,
		RoundID:      roundID,
		BracketSide:  side,
		OrderKey:     orderKey,
		Participants: pair,
		Status:       bracket.MatchPending,
	}
}

func matchIDs(matches []bracket.Match) []string {
	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
	}
	return ids
}

// ApplyResult writes score and outcome and resolves the status.
func ApplyResult(m *bracket.Match, score *bracket.MatchScore, outcome bracket.Outcome, at time.Time) {
	m.Score = score
	m.Outcome = &outcome
	m.Status = outcome.Status()
	m.CompletedAt = &at
}

// completeBye records an unopposed win for the only participant of m.
func completeBye(m *bracket.Match, notes string, at time.Time) string {
	winner, scoreA, scoreB := m.Participants[0], 1, 0
	if !bracket.IsRealParticipant(winner) {
		winner, scoreA, scoreB = m.Participants[1], 0, 1
	}
	ApplyResult(m, &bracket.MatchScore{Mode: bracket.ScorePoints, A: scoreA, B: scoreB, Notes: notes},
		bracket.WinnerOutcome(winner, bracket.Bye), at)
	return winner
}

func edgeParticipant(outcome *bracket.Outcome, kind bracket.EdgeKind) string {
	if outcome == nil || outcome.Kind != bracket.OutcomeWinner {
		return ""
	}
	id := outcome.WinnerID
	if kind == bracket.FromLoser {
		id = outcome.LoserID
	}
	if !bracket.IsRealParticipant(id) {
		return ""
	}
	return id
}

// Propagate seats the winner and loser of fromMatchID into every match its
// edges point at, then resolves byes if the stage advances them automatically.
func Propagate(t *bracket.Tournament, stage *bracket.BracketStage, fromMatchID string, at time.Time) []bracket.Event {
	events := Seat(t, stage, fromMatchID, at)
	if stage.Settings.AutoAdvanceByes {
		events = append(events, ResolveByes(t, stage, at)...)
	}
	return events
}

// Seat is Propagate without bye resolution.
func Seat(t *bracket.Tournament, stage *bracket.BracketStage, fromMatchID string, at time.Time) []bracket.Event {
	from := t.Match(fromMatchID)
	if from == nil {
		return nil
	}

	var events []bracket.Event
	for _, edge := range stage.OutgoingEdges(fromMatchID) {
		id := edgeParticipant(from.Outcome, edge.From.Kind)
		if id == "" {
			continue
		}
		target := t.Match(edge.ToMatchID)
		if target == nil {
			continue
		}
		target.Participants[edge.ToSlot.Index()] = id
		if target.Status == bracket.MatchScheduled {
			target.Status = bracket.MatchPending
		}
		events = append(events, bracket.AdvancementApplied(fromMatchID, edge.ToMatchID, at))
	}
	return events
}

// slotDead reports whether nobody can ever arrive in the given empty slot:
// either no edge feeds it or every feeding match is already finished.
func slotDead(t *bracket.Tournament, stage *bracket.BracketStage, m *bracket.Match, slot bracket.Slot) bool {
	if bracket.IsRealParticipant(m.Participants[slot.Index()]) {
		return false
	}
	for _, edge := range stage.IncomingEdges(m.ID, slot) {
		feeder := t.Match(edge.FromMatchID)
		if feeder != nil && !feeder.Status.Terminal() {
			return false
		}
	}
	return true
}

// ResolveByes completes every match whose lone participant can no longer
// receive an opponent and voids fed matches that can no longer receive anyone.
// It repeats until nothing changes, since each bye can unlock the next.
func ResolveByes(t *bracket.Tournament, stage *bracket.BracketStage, at time.Time) []bracket.Event {
	var events []bracket.Event
	for changed := true; changed; {
		changed = false
		for _, id := range stage.MatchIDs {
			m := t.Match(id)
			if m == nil || (m.Status != bracket.MatchPending && m.Status != bracket.MatchScheduled) {
				continue
			}
			deadA := slotDead(t, stage, m, bracket.SlotA)
			deadB := slotDead(t, stage, m, bracket.SlotB)

			switch seated := len(m.Participants.Real()); {
			case seated == 1 && (deadA || deadB):
				winner := completeBye(m, "Auto-advance bye", at)
				for _, edge := range stage.OutgoingEdges(id) {
					if edge.From.Kind != bracket.FromWinner {
						continue
					}
					if target := t.Match(edge.ToMatchID); target != nil {
						target.Participants[edge.ToSlot.Index()] = winner
						if target.Status == bracket.MatchScheduled {
							target.Status = bracket.MatchPending
						}
						events = append(events, bracket.AdvancementApplied(id, edge.ToMatchID, at))
					}
				}
				events = append(events, bracket.MatchCompleted(id, at))
				changed = true
			case seated == 0 && deadA && deadB && hasIncoming(stage, id):
				outcome := bracket.NoContestOutcome()
				m.Outcome = &outcome
				m.Status = bracket.MatchVoid
				m.CompletedAt = &at
				events = append(events, bracket.MatchUpdated(id, at))
				changed = true
			}
		}
	}
	return events
}

func hasIncoming(stage *bracket.BracketStage, matchID string) bool {
	for _, e := range stage.Edges {
		if e.ToMatchID == matchID {
			return true
		}
	}
	return false
}

// CascadeUndo clears the result of matchID and, recursively, every match that
// received a participant from it. Slots are emptied only when they still hold
// the participant the edge delivered.
func CascadeUndo(t *bracket.Tournament, stage *bracket.BracketStage, matchID string, at time.Time) []bracket.Event {
	visited := map[string]bool{}
	var touched []string

	var undo func(id string)
	undo = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true
		m := t.Match(id)
		if m == nil {
			return
		}

		previous := m.Outcome
		m.ClearResult()
		touched = append(touched, id)

		for _, edge := range stage.OutgoingEdges(id) {
			delivered := edgeParticipant(previous, edge.From.Kind)
			target := t.Match(edge.ToMatchID)
			if delivered == "" || target == nil {
				continue
			}
			idx := edge.ToSlot.Index()
			if target.Participants[idx] != delivered {
				continue
			}
			target.Participants[idx] = ""
			undo(edge.ToMatchID)
		}

		if meta := stage.DoubleElim; meta != nil && id == meta.GrandFinalMatchID && meta.GrandFinalResetMatchID != "" {
			if reset := t.Match(meta.GrandFinalResetMatchID); reset != nil && !visited[reset.ID] {
				visited[reset.ID] = true
				reset.Participants = bracket.SlotPair{}
				reset.ClearResult()
				touched = append(touched, reset.ID)
			}
		}
	}
	undo(matchID)

	events := make([]bracket.Event, len(touched))
	for i, id := range touched {
		events[i] = bracket.MatchUpdated(id, at)
	}
	return events
}

// processBracketResult applies a result, propagates it and reports
// MATCH_UPDATED, the advancement events and MATCH_COMPLETED.
func processBracketResult(in ResultInput) (*bracket.BracketStage, []bracket.Event) {
	m := in.Tournament.Match(in.MatchID)
	if m == nil {
		return nil, nil
	}
	stage := in.Tournament.BracketStage(m.StageID)
	if stage == nil {
		return nil, nil
	}

	ApplyResult(m, in.Score, in.Outcome, in.At)
	events := []bracket.Event{bracket.MatchUpdated(in.MatchID, in.At)}
	events = append(events, Propagate(in.Tournament, stage, in.MatchID, in.At)...)
	events = append(events, bracket.MatchCompleted(in.MatchID, in.At))
	return stage, events
}
