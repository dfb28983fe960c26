package bracket

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

// Bye is written into a slot or an outcome's loser when a participant advances unopposed.
const Bye = "BYE"

type MatchStatus string

const (
	MatchScheduled    MatchStatus = "scheduled"
	MatchPending      MatchStatus = "pending"
	MatchInProgress   MatchStatus = "in_progress"
	MatchCompleted    MatchStatus = "completed"
	MatchForfeit      MatchStatus = "forfeit"
	MatchDisqualified MatchStatus = "disqualified"
	MatchVoid         MatchStatus = "void"
)

func (s MatchStatus) Valid() bool {
	switch s {
	case MatchScheduled, MatchPending, MatchInProgress, MatchCompleted, MatchForfeit, MatchDisqualified, MatchVoid:
		return true
	}
	return false
}

// Terminal reports whether a match in this status will not be played any further.
func (s MatchStatus) Terminal() bool {
	return s == MatchCompleted || s == MatchVoid
}

type BracketSide string

const (
	UpperSide  BracketSide = "upper"
	LowerSide  BracketSide = "lower"
	GrandSide  BracketSide = "grand"
	GroupSide  BracketSide = "group"
	LadderSide BracketSide = "ladder"
)

type Slot string

const (
	SlotA Slot = "A"
	SlotB Slot = "B"
)

func (s Slot) Index() int {
	if s == SlotB {
		return 1
	}
	return 0
}

func (s Slot) Valid() bool {
	return s == SlotA || s == SlotB
}

// SlotPair holds the two participant slots of a match. An empty string is an
// unassigned slot and is encoded as JSON null.
type SlotPair [2]string

func (p SlotPair) MarshalJSON() ([]byte, error) {
	out := [2]*string{}
	for i := range p {
		if p[i] != "" {
			v := p[i]
			out[i] = &v
		}
	}
	return json.Marshal(out)
}

func (p *SlotPair) UnmarshalJSON(data []byte) error {
	var raw [2]*string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode match participants: %w", err)
	}
	for i := range raw {
		p[i] = ""
		if raw[i] != nil {
			p[i] = *raw[i]
		}
	}
	return nil
}

// Real returns the slot values that name an actual participant.
func (p SlotPair) Real() []string {
	var out []string
	for _, id := range p {
		if IsRealParticipant(id) {
			out = append(out, id)
		}
	}
	return out
}

func (p SlotPair) Contains(participantID string) bool {
	return participantID != "" && (p[0] == participantID || p[1] == participantID)
}

func (p SlotPair) Empty() bool {
	return p[0] == "" && p[1] == ""
}

func IsRealParticipant(id string) bool {
	return id != "" && id != Bye
}

type OutcomeKind string

const (
	OutcomeWinner    OutcomeKind = "winner"
	OutcomeDraw      OutcomeKind = "draw"
	OutcomeNoContest OutcomeKind = "no_contest"
)

type Outcome struct {
	Kind     OutcomeKind `json:"kind"`
	WinnerID string      `json:"winnerId,omitempty"`
	LoserID  string      `json:"loserId,omitempty"`
}

func WinnerOutcome(winnerID, loserID string) Outcome {
	return Outcome{Kind: OutcomeWinner, WinnerID: winnerID, LoserID: loserID}
}

func DrawOutcome() Outcome {
	return Outcome{Kind: OutcomeDraw}
}

func NoContestOutcome() Outcome {
	return Outcome{Kind: OutcomeNoContest}
}

func (o Outcome) Valid() bool {
	switch o.Kind {
	case OutcomeWinner:
		return o.WinnerID != "" && o.LoserID != ""
	case OutcomeDraw, OutcomeNoContest:
		return true
	}
	return false
}

// Status is the match status a recorded outcome resolves to.
func (o Outcome) Status() MatchStatus {
	if o.Kind == OutcomeNoContest {
		return MatchVoid
	}
	return MatchCompleted
}

type ScoreMode string

const (
	ScorePoints    ScoreMode = "points"
	ScoreSets      ScoreMode = "sets"
	ScoreAggregate ScoreMode = "aggregate"
)

type SetScore struct {
	A     int    `json:"a"`
	B     int    `json:"b"`
	Label string `json:"label,omitempty"`
}

type MatchScore struct {
	Mode  ScoreMode  `json:"mode"`
	A     int        `json:"a"`
	B     int        `json:"b"`
	Sets  []SetScore `json:"sets,omitempty"`
	Notes string     `json:"notes,omitempty"`
}

func (s *MatchScore) clone() *MatchScore {
	if s == nil {
		return nil
	}
	out := *s
	out.Sets = slices.Clone(s.Sets)
	return &out
}

type MatchSources struct {
	VODURL    string `json:"vodUrl,omitempty"`
	ReplayURL string `json:"replayUrl,omitempty"`
	StreamURL string `json:"streamUrl,omitempty"`
}

type Officiating struct {
	Referee    string     `json:"referee,omitempty"`
	VerifiedBy string     `json:"verifiedBy,omitempty"`
	VerifiedAt *time.Time `json:"verifiedAt,omitempty"`
}

type Match struct {
	ID      string `json:"id"`
	Format  Format `json:"format"`
	StageID string `json:"stageId"`

	// Position inside the stage, used for layout and for regeneration keys
	RoundID     string      `json:"roundId,omitempty"`
	BracketSide BracketSide `json:"bracketSide,omitempty"`
	OrderKey    int         `json:"orderKey"`

	Participants SlotPair    `json:"participants"`
	Score        *MatchScore `json:"score,omitempty"`
	Outcome      *Outcome    `json:"outcome,omitempty"`
	Status       MatchStatus `json:"status"`

	ScheduledAt *time.Time `json:"scheduledAt,omitempty"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`

	Sources     *MatchSources     `json:"sources,omitempty"`
	Officiating *Officiating      `json:"officiating,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// ClearResult drops score, outcome and completion time and puts the match
// back to pending, or scheduled when nobody is seated yet.
func (m *Match) ClearResult() {
	m.Score = nil
	m.Outcome = nil
	m.CompletedAt = nil
	if m.Participants.Empty() {
		m.Status = MatchScheduled
	} else {
		m.Status = MatchPending
	}
}

// IsWinner reports whether participantID won this match.
func (m *Match) IsWinner(participantID string) bool {
	return m.Outcome != nil && m.Outcome.Kind == OutcomeWinner && m.Outcome.WinnerID == participantID
}

// IsLoser reports whether participantID lost this match.
func (m *Match) IsLoser(participantID string) bool {
	return m.Outcome != nil && m.Outcome.Kind == OutcomeWinner && m.Outcome.LoserID == participantID
}

func (m Match) clone() Match {
	out := m
	out.Score = m.Score.clone()
	if m.Outcome != nil {
		o := *m.Outcome
		out.Outcome = &o
	}
	out.ScheduledAt = cloneTime(m.ScheduledAt)
	out.StartedAt = cloneTime(m.StartedAt)
	out.CompletedAt = cloneTime(m.CompletedAt)
	if m.Sources != nil {
		s := *m.Sources
		out.Sources = &s
	}
	if m.Officiating != nil {
		o := *m.Officiating
		o.VerifiedAt = cloneTime(m.Officiating.VerifiedAt)
		out.Officiating = &o
	}
	out.Metadata = cloneMetadata(m.Metadata)
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
