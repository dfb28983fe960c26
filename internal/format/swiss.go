package format

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"github.com/AdamBeresnev/bracket-engine/internal/rules"
)

const defaultSwissRounds = 5

type Swiss struct{}

func (Swiss) Name() bracket.Format { return bracket.Swiss }

func swissRounds(in GenerateInput) int {
	switch {
	case in.Settings.RoundsCount > 0:
		return in.Settings.RoundsCount
	case in.Options.Rounds > 0:
		return in.Options.Rounds
	}
	return defaultSwissRounds
}

func (Swiss) GenerateStage(in GenerateInput) Generated {
	ordered := rules.SortForSeed(in.Participants)
	perRound := (len(ordered) + 1) / 2

	var (
		matches []bracket.Match
		rounds  []bracket.Round
	)
	for r := 0; r < swissRounds(in); r++ {
		roundID := fmt.Sprintf("%s_swiss_round_%d", in.StageID, r+1)
		round := bracket.Round{ID: roundID, Name: fmt.Sprintf("Swiss Round %d", r+1), Order: r}
		for i := 0; i < perRound; i++ {
			var pair bracket.SlotPair
			if r == 0 {
				pair[0] = ordered[i*2]
				if i*2+1 < len(ordered) {
					pair[1] = ordered[i*2+1]
				}
			}
			m := newMatch(fmt.Sprintf("%s_swiss_r%d_m%d", in.StageID, r+1, i+1), bracket.Swiss, in.StageID, roundID, bracket.GroupSide, i, pair)
			switch len(pair.Real()) {
			case 0:
				m.Status = bracket.MatchScheduled
			case 1:
				completeBye(&m, "Swiss bye", in.At)
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
			Format:   bracket.Swiss,
			Rounds:   rounds,
			MatchIDs: matchIDs(matches),
			Edges:    []bracket.AdvancementEdge{},
			Settings: in.Settings,
		},
		Matches: matches,
	}
}

// ProcessMatchResult records the result and pairs the next round once every
// match of the current round is finished and the next round is still empty.
func (Swiss) ProcessMatchResult(in ResultInput) []bracket.Event {
	stage, events := processBracketResult(in)
	if stage == nil {
		return events
	}
	t := in.Tournament
	m := t.Match(in.MatchID)

	roundIdx := slices.IndexFunc(stage.Rounds, func(r bracket.Round) bool { return r.ID == m.RoundID })
	if roundIdx < 0 || roundIdx >= len(stage.Rounds)-1 {
		return events
	}
	for _, id := range stage.Rounds[roundIdx].MatchIDs {
		if rm := t.Match(id); rm != nil && !rm.Status.Terminal() {
			return events
		}
	}
	next := stage.Rounds[roundIdx+1]
	for _, id := range next.MatchIDs {
		if nm := t.Match(id); nm != nil && !nm.Participants.Empty() {
			return events
		}
	}

	stageMatches := t.StageMatches(stage.ID)
	pool := swissPool(t, stageMatches)
	pairs := PairSwissRound(pool, stageMatches)

	for idx, id := range next.MatchIDs {
		nm := t.Match(id)
		if nm == nil {
			continue
		}
		var pair bracket.SlotPair
		if idx < len(pairs) {
			pair = pairs[idx]
		}
		nm.Participants = pair
		switch len(pair.Real()) {
		case 0:
			nm.Status = bracket.MatchScheduled
		case 1:
			completeBye(nm, "Swiss bye", in.At)
			events = append(events, bracket.MatchUpdated(id, in.At), bracket.MatchCompleted(id, in.At))
			continue
		default:
			nm.Status = bracket.MatchPending
		}
		events = append(events, bracket.MatchUpdated(id, in.At))
	}
	return events
}

// swissPool returns the tournament participants seated anywhere in the stage.
func swissPool(t *bracket.Tournament, stageMatches []*bracket.Match) []bracket.Participant {
	var pool []bracket.Participant
	for _, p := range t.Participants {
		for _, m := range stageMatches {
			if m.Participants.Contains(p.ID) {
				pool = append(pool, p)
				break
			}
		}
	}
	return pool
}

// SwissRecord is one participant's running Swiss score.
type SwissRecord struct {
	ParticipantID string
	Wins          int
	Losses        int
	Draws         int
	Buchholz      int
	HadBye        bool
	opponents     map[string]bool
	seed          int
}

// SwissTable computes records for participants from the stage matches, ranked
// by wins, draws and Buchholz descending, then seed and id ascending.
func SwissTable(participants []bracket.Participant, stageMatches []*bracket.Match) []*SwissRecord {
	byID := make(map[string]*SwissRecord, len(participants))
	records := make([]*SwissRecord, 0, len(participants))
	for _, p := range participants {
		rec := &SwissRecord{ParticipantID: p.ID, opponents: map[string]bool{}, seed: math.MaxInt}
		if p.Seed != nil {
			rec.seed = *p.Seed
		}
		byID[p.ID] = rec
		records = append(records, rec)
	}

	for _, m := range stageMatches {
		a, b := m.Participants[0], m.Participants[1]
		if bracket.IsRealParticipant(a) && bracket.IsRealParticipant(b) {
			if ra := byID[a]; ra != nil {
				ra.opponents[b] = true
			}
			if rb := byID[b]; rb != nil {
				rb.opponents[a] = true
			}
		}
		if m.Status != bracket.MatchCompleted || m.Outcome == nil {
			continue
		}
		switch m.Outcome.Kind {
		case bracket.OutcomeWinner:
			if w := byID[m.Outcome.WinnerID]; w != nil {
				w.Wins++
				if m.Outcome.LoserID == bracket.Bye {
					w.HadBye = true
				}
			}
			if l := byID[m.Outcome.LoserID]; l != nil {
				l.Losses++
			}
		case bracket.OutcomeDraw:
			for _, id := range m.Participants.Real() {
				if r := byID[id]; r != nil {
					r.Draws++
				}
			}
		}
	}

	for _, rec := range records {
		for opp := range rec.opponents {
			if o := byID[opp]; o != nil {
				rec.Buchholz += o.Wins
			}
		}
	}

	slices.SortStableFunc(records, func(a, b *SwissRecord) int {
		if c := cmp.Compare(b.Wins, a.Wins); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Draws, a.Draws); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Buchholz, a.Buchholz); c != 0 {
			return c
		}
		if c := cmp.Compare(a.seed, b.seed); c != 0 {
			return c
		}
		return cmp.Compare(a.ParticipantID, b.ParticipantID)
	})
	return records
}

// PairSwissRound pairs each participant, in ranking order, with the best ranked
// remaining opponent it has not met yet, or the best ranked remaining one if
// it has met them all. With an odd count the lowest ranked participant without
// a previous bye sits out; that pairing comes last.
func PairSwissRound(participants []bracket.Participant, stageMatches []*bracket.Match) []bracket.SlotPair {
	records := SwissTable(participants, stageMatches)

	var bye *SwissRecord
	if len(records)%2 == 1 {
		byeIdx := len(records) - 1
		for i := len(records) - 1; i >= 0; i-- {
			if !records[i].HadBye {
				byeIdx = i
				break
			}
		}
		bye = records[byeIdx]
		records = slices.Delete(slices.Clone(records), byeIdx, byeIdx+1)
	}

	var pairs []bracket.SlotPair
	remaining := records
	for len(remaining) > 0 {
		a := remaining[0]
		remaining = remaining[1:]
		chosen := slices.IndexFunc(remaining, func(r *SwissRecord) bool { return !a.opponents[r.ParticipantID] })
		if chosen < 0 {
			chosen = 0
		}
		pairs = append(pairs, bracket.SlotPair{a.ParticipantID, remaining[chosen].ParticipantID})
		remaining = slices.Delete(slices.Clone(remaining), chosen, chosen+1)
	}

	if bye != nil {
		pairs = append(pairs, bracket.SlotPair{bye.ParticipantID, ""})
	}
	return pairs
}
