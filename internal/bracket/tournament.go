package bracket

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

// SchemaVersion is the snapshot layout this code reads and writes.
const SchemaVersion = 1

type Role string

const (
	RoleViewer Role = "viewer"
	RoleStaff  Role = "staff"
	RoleAdmin  Role = "admin"
)

type Actor struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
	Role Role   `json:"role,omitempty"`
}

func (a *Actor) IsAdmin() bool {
	return a != nil && a.Role == RoleAdmin
}

type AuditEntry struct {
	ID          string          `json:"id"`
	At          time.Time       `json:"at"`
	Actor       *Actor          `json:"actor,omitempty"`
	CommandType string          `json:"commandType"`
	Summary     string          `json:"summary"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

func (e AuditEntry) clone() AuditEntry {
	out := e
	if e.Actor != nil {
		a := *e.Actor
		out.Actor = &a
	}
	out.Payload = slices.Clone(e.Payload)
	return out
}

// Tournament is the aggregate root. Values are never mutated after they are
// handed out; every transition works on a Clone.
type Tournament struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Version       int             `json:"version"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
	Participants  []Participant   `json:"participants"`
	Stages        []Stage         `json:"stages"`
	Matches       []Match         `json:"matches"`
	Audit         []AuditEntry    `json:"audit"`
	Settings      json.RawMessage `json:"settings,omitempty"`
	RNGSeed       string          `json:"rngSeed,omitempty"`
	Locked        bool            `json:"locked,omitempty"`
	SchemaVersion int             `json:"stateSchemaVersion"`
}

// NewTournament returns an empty aggregate at version 0.
func NewTournament(id, name string, at time.Time) *Tournament {
	return &Tournament{
		ID:            id,
		Name:          name,
		CreatedAt:     at,
		UpdatedAt:     at,
		Participants:  []Participant{},
		Stages:        []Stage{},
		Matches:       []Match{},
		Audit:         []AuditEntry{},
		SchemaVersion: SchemaVersion,
	}
}

func (t *Tournament) Clone() *Tournament {
	out := *t
	out.Participants = slices.Clone(t.Participants)
	for i := range out.Participants {
		out.Participants[i] = out.Participants[i].clone()
	}
	out.Stages = slices.Clone(t.Stages)
	for i := range out.Stages {
		out.Stages[i] = out.Stages[i].CloneStage()
	}
	out.Matches = slices.Clone(t.Matches)
	for i := range out.Matches {
		out.Matches[i] = out.Matches[i].clone()
	}
	out.Audit = slices.Clone(t.Audit)
	for i := range out.Audit {
		out.Audit[i] = out.Audit[i].clone()
	}
	out.Settings = slices.Clone(t.Settings)
	return &out
}

func (t *Tournament) Participant(id string) *Participant {
	for i := range t.Participants {
		if t.Participants[i].ID == id {
			return &t.Participants[i]
		}
	}
	return nil
}

func (t *Tournament) HasParticipant(id string) bool {
	return t.Participant(id) != nil
}

func (t *Tournament) Match(id string) *Match {
	for i := range t.Matches {
		if t.Matches[i].ID == id {
			return &t.Matches[i]
		}
	}
	return nil
}

func (t *Tournament) Stage(id string) Stage {
	for _, s := range t.Stages {
		if s.StageID() == id {
			return s
		}
	}
	return nil
}

// BracketStage returns the bracket stage with the given id, or nil when it is
// missing or a ladder.
func (t *Tournament) BracketStage(id string) *BracketStage {
	s, _ := t.Stage(id).(*BracketStage)
	return s
}

func (t *Tournament) LadderStage(id string) *LadderStage {
	s, _ := t.Stage(id).(*LadderStage)
	return s
}

// FirstLadder returns the first ladder stage in declaration order.
func (t *Tournament) FirstLadder() *LadderStage {
	for _, s := range t.Stages {
		if l, ok := s.(*LadderStage); ok {
			return l
		}
	}
	return nil
}

// StageMatches returns pointers to the matches owned by stageID in match list order.
func (t *Tournament) StageMatches(stageID string) []*Match {
	var out []*Match
	for i := range t.Matches {
		if t.Matches[i].StageID == stageID {
			out = append(out, &t.Matches[i])
		}
	}
	return out
}

// ReplaceStage swaps the stage with the same id, or appends it.
func (t *Tournament) ReplaceStage(stage Stage) {
	for i, s := range t.Stages {
		if s.StageID() == stage.StageID() {
			t.Stages[i] = stage
			return
		}
	}
	t.Stages = append(t.Stages, stage)
}

// RemoveStageMatches drops every match owned by stageID or listed by the
// stored stage of that id.
func (t *Tournament) RemoveStageMatches(stageID string) {
	var listed []string
	if s := t.Stage(stageID); s != nil {
		listed = s.StageMatchIDs()
	}
	t.Matches = slices.DeleteFunc(t.Matches, func(m Match) bool {
		return m.StageID == stageID || slices.Contains(listed, m.ID)
	})
}

func (t *Tournament) UnmarshalJSON(data []byte) error {
	type plain Tournament
	var raw struct {
		plain
		Stages []json.RawMessage `json:"stages"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode tournament: %w", err)
	}
	*t = Tournament(raw.plain)
	t.Stages = nil
	if raw.Stages != nil {
		t.Stages = make([]Stage, 0, len(raw.Stages))
	}
	for i, s := range raw.Stages {
		stage, err := decodeStage(s)
		if err != nil {
			return fmt.Errorf("stage %d: %w", i, err)
		}
		t.Stages = append(t.Stages, stage)
	}
	return nil
}
