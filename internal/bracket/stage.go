package bracket

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

type Format string

const (
	SingleElimination Format = "single_elimination"
	DoubleElimination Format = "double_elimination"
	Swiss             Format = "swiss"
	RoundRobin        Format = "round_robin"
	Ladder            Format = "ladder"
)

type StageSettings struct {
	BestOf           int               `json:"bestOf,omitempty"`
	AllowDraws       bool              `json:"allowDraws,omitempty"`
	ReseedAfterRound bool              `json:"reseedAfterRound,omitempty"`
	AutoAdvanceByes  bool              `json:"autoAdvanceByes,omitempty"`
	GrandFinalReset  bool              `json:"grandFinalReset,omitempty"`
	ThirdPlaceMatch  bool              `json:"thirdPlaceMatch,omitempty"`
	RoundsCount      int               `json:"roundsCount,omitempty"`
	DoubleRoundRobin bool              `json:"doubleRoundRobin,omitempty"`
	Tiebreakers      []string          `json:"tiebreakers,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

func (s StageSettings) clone() StageSettings {
	out := s
	out.Tiebreakers = slices.Clone(s.Tiebreakers)
	out.Metadata = cloneMetadata(s.Metadata)
	return out
}

// StageOptions carries format specific generation inputs.
type StageOptions struct {
	Rules  *LadderRules `json:"rules,omitempty"`
	Rounds int          `json:"rounds,omitempty"`
}

// Stage is either a *BracketStage or a *LadderStage.
type Stage interface {
	StageID() string
	StageName() string
	StageFormat() Format
	StageSettings() StageSettings
	StageMatchIDs() []string
	CloneStage() Stage
}

type EdgeKind string

const (
	FromWinner EdgeKind = "winner"
	FromLoser  EdgeKind = "loser"
)

type EdgeSource struct {
	Kind EdgeKind `json:"kind"`
}

// AdvancementEdge moves the winner or loser of one match into a slot of another.
type AdvancementEdge struct {
	FromMatchID string     `json:"fromMatchId"`
	From        EdgeSource `json:"from"`
	ToMatchID   string     `json:"toMatchId"`
	ToSlot      Slot       `json:"toSlot"`
}

type Round struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Order    int      `json:"order"`
	MatchIDs []string `json:"matchIds"`
}

// DoubleElimMeta remembers the key matches of a double elimination stage.
type DoubleElimMeta struct {
	UpperFinalMatchID      string `json:"upperFinalMatchId,omitempty"`
	LowerFinalMatchID      string `json:"lowerFinalMatchId,omitempty"`
	GrandFinalMatchID      string `json:"grandFinalMatchId,omitempty"`
	GrandFinalResetMatchID string `json:"grandFinalResetMatchId,omitempty"`
}

type BracketStage struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Format     Format            `json:"format"`
	Rounds     []Round           `json:"rounds"`
	MatchIDs   []string          `json:"matchIds"`
	Edges      []AdvancementEdge `json:"edges"`
	Settings   StageSettings     `json:"settings"`
	DoubleElim *DoubleElimMeta   `json:"doubleElimination,omitempty"`
}

func (s *BracketStage) StageID() string              { return s.ID }
func (s *BracketStage) StageName() string            { return s.Name }
func (s *BracketStage) StageFormat() Format          { return s.Format }
func (s *BracketStage) StageSettings() StageSettings { return s.Settings }
func (s *BracketStage) StageMatchIDs() []string      { return s.MatchIDs }

func (s *BracketStage) CloneStage() Stage {
	out := *s
	out.Rounds = slices.Clone(s.Rounds)
	for i := range out.Rounds {
		out.Rounds[i].MatchIDs = slices.Clone(s.Rounds[i].MatchIDs)
	}
	out.MatchIDs = slices.Clone(s.MatchIDs)
	out.Edges = slices.Clone(s.Edges)
	out.Settings = s.Settings.clone()
	if s.DoubleElim != nil {
		meta := *s.DoubleElim
		out.DoubleElim = &meta
	}
	return &out
}

// OutgoingEdges returns the edges leaving matchID in declaration order.
func (s *BracketStage) OutgoingEdges(matchID string) []AdvancementEdge {
	var out []AdvancementEdge
	for _, e := range s.Edges {
		if e.FromMatchID == matchID {
			out = append(out, e)
		}
	}
	return out
}

// IncomingEdges returns the edges feeding the given slot of matchID.
func (s *BracketStage) IncomingEdges(matchID string, slot Slot) []AdvancementEdge {
	var out []AdvancementEdge
	for _, e := range s.Edges {
		if e.ToMatchID == matchID && e.ToSlot == slot {
			out = append(out, e)
		}
	}
	return out
}

// RoundIndex returns the index of the round listing matchID, or -1.
func (s *BracketStage) RoundIndex(matchID string) int {
	for i, r := range s.Rounds {
		for _, id := range r.MatchIDs {
			if id == matchID {
				return i
			}
		}
	}
	return -1
}

type SwapRule string

const (
	SwapOnWin  SwapRule = "swap_on_win"
	SwapPoints SwapRule = "points"
	SwapHybrid SwapRule = "hybrid"
)

type ChallengeWindow struct {
	MinRank *int `json:"minRank,omitempty"`
	MaxRank *int `json:"maxRank,omitempty"`
}

type DecayPolicy struct {
	Enabled             bool `json:"enabled"`
	DaysInactiveToStart *int `json:"daysInactiveToStart,omitempty"`
	PointsPerDay        *int `json:"pointsPerDay,omitempty"`
}

type LadderPoints struct {
	Win         int  `json:"win"`
	Loss        int  `json:"loss"`
	Draw        *int `json:"draw,omitempty"`
	BonusStreak int  `json:"bonusStreak,omitempty"`
}

type LadderRules struct {
	SwapRule        SwapRule         `json:"swapRule"`
	CooldownHours   float64          `json:"cooldownHours,omitempty"`
	ChallengeWindow *ChallengeWindow `json:"challengeWindow,omitempty"`
	Decay           *DecayPolicy     `json:"decay,omitempty"`
	Points          *LadderPoints    `json:"points,omitempty"`
}

func (r LadderRules) clone() LadderRules {
	out := r
	if r.ChallengeWindow != nil {
		w := ChallengeWindow{MinRank: cloneInt(r.ChallengeWindow.MinRank), MaxRank: cloneInt(r.ChallengeWindow.MaxRank)}
		out.ChallengeWindow = &w
	}
	if r.Decay != nil {
		d := DecayPolicy{
			Enabled:             r.Decay.Enabled,
			DaysInactiveToStart: cloneInt(r.Decay.DaysInactiveToStart),
			PointsPerDay:        cloneInt(r.Decay.PointsPerDay),
		}
		out.Decay = &d
	}
	if r.Points != nil {
		p := *r.Points
		p.Draw = cloneInt(r.Points.Draw)
		out.Points = &p
	}
	return out
}

// Clone returns a deep copy of the rule set.
func (r LadderRules) Clone() LadderRules {
	return r.clone()
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

type Standing struct {
	ParticipantID string     `json:"participantId"`
	Rank          int        `json:"rank"`
	Points        int        `json:"points"`
	Streak        int        `json:"streak"`
	LastMatchAt   *time.Time `json:"lastMatchAt,omitempty"`
}

type LadderStage struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Format      Format        `json:"format"`
	Rules       LadderRules   `json:"rules"`
	Standings   []Standing    `json:"standings"`
	MatchIDs    []string      `json:"matchIds"`
	Settings    StageSettings `json:"settings"`
	LastDecayAt *time.Time    `json:"lastDecayAt,omitempty"`
}

func (s *LadderStage) StageID() string              { return s.ID }
func (s *LadderStage) StageName() string            { return s.Name }
func (s *LadderStage) StageFormat() Format          { return Ladder }
func (s *LadderStage) StageSettings() StageSettings { return s.Settings }
func (s *LadderStage) StageMatchIDs() []string      { return s.MatchIDs }

func (s *LadderStage) CloneStage() Stage {
	out := *s
	out.Rules = s.Rules.clone()
	out.Standings = slices.Clone(s.Standings)
	for i := range out.Standings {
		out.Standings[i].LastMatchAt = cloneTime(s.Standings[i].LastMatchAt)
	}
	out.MatchIDs = slices.Clone(s.MatchIDs)
	out.Settings = s.Settings.clone()
	out.LastDecayAt = cloneTime(s.LastDecayAt)
	return &out
}

// Standing returns a pointer into the standings for participantID, or nil.
func (s *LadderStage) Standing(participantID string) *Standing {
	for i := range s.Standings {
		if s.Standings[i].ParticipantID == participantID {
			return &s.Standings[i]
		}
	}
	return nil
}

func decodeStage(data json.RawMessage) (Stage, error) {
	var head struct {
		Format Format `json:"format"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode stage format: %w", err)
	}
	if head.Format == Ladder {
		var s LadderStage
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("decode ladder stage: %w", err)
		}
		s.Format = Ladder
		return &s, nil
	}
	var s BracketStage
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode bracket stage: %w", err)
	}
	return &s, nil
}
