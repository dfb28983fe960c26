package validate

import (
	"fmt"
	"slices"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"github.com/AdamBeresnev/bracket-engine/internal/rules"
)

type Level string

const (
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
)

type EntityKind string

const (
	EntityMatch       EntityKind = "match"
	EntityStage       EntityKind = "stage"
	EntityParticipant EntityKind = "participant"
)

type Entity struct {
	Kind EntityKind `json:"kind"`
	ID   string     `json:"id"`
}

type Issue struct {
	Level   Level   `json:"level"`
	Code    Code    `json:"code"`
	Message string  `json:"message"`
	Entity  *Entity `json:"entity,omitempty"`
}

type Report struct {
	OK     bool    `json:"ok"`
	Issues []Issue `json:"issues"`
}

// Reject is the report of a command refused before any mutation.
func Reject(code Code, format string, args ...any) Report {
	return Report{
		OK:     false,
		Issues: []Issue{{Level: LevelError, Code: code, Message: fmt.Sprintf(format, args...)}},
	}
}

// Errors returns the error level issues.
func (r Report) Errors() []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Level == LevelError {
			out = append(out, i)
		}
	}
	return out
}

type checker struct {
	issues []Issue
}

func (c *checker) add(level Level, code Code, entity *Entity, format string, args ...any) {
	c.issues = append(c.issues, Issue{Level: level, Code: code, Message: fmt.Sprintf(format, args...), Entity: entity})
}

func matchEntity(id string) *Entity { return &Entity{Kind: EntityMatch, ID: id} }
func stageEntity(id string) *Entity { return &Entity{Kind: EntityStage, ID: id} }

// Validate checks the structural invariants of t without changing it.
// formats lists the registered plugin names.
func Validate(t *bracket.Tournament, formats []bracket.Format) Report {
	c := &checker{issues: []Issue{}}

	participantIDs := make([]string, len(t.Participants))
	for i, p := range t.Participants {
		participantIDs[i] = p.ID
	}
	matchIDs := make([]string, len(t.Matches))
	for i, m := range t.Matches {
		matchIDs[i] = m.ID
	}
	stageIDs := make([]string, len(t.Stages))
	for i, s := range t.Stages {
		stageIDs[i] = s.StageID()
	}
	c.duplicates(EntityParticipant, participantIDs)
	c.duplicates(EntityMatch, matchIDs)
	c.duplicates(EntityStage, stageIDs)

	knownParticipants := toSet(participantIDs)
	knownMatches := toSet(matchIDs)

	for _, m := range t.Matches {
		for _, id := range m.Participants {
			if bracket.IsRealParticipant(id) && !knownParticipants[id] {
				c.add(LevelError, CodeMatchParticipantMissing, matchEntity(m.ID),
					"Match participant '%s' does not exist in participants list", id)
			}
		}
		if m.Status == bracket.MatchCompleted && m.Outcome == nil {
			c.add(LevelError, CodeMatchCompletedWithoutOutcome, matchEntity(m.ID), "Completed match must include an outcome")
		}
		if !slices.Contains(formats, m.Format) {
			c.add(LevelError, CodeUnknownMatchFormat, matchEntity(m.ID),
				"Match '%s' uses unregistered format '%s'", m.ID, m.Format)
		}
	}

	for _, s := range t.Stages {
		if !slices.Contains(formats, s.StageFormat()) {
			c.add(LevelError, CodeUnknownStageFormat, stageEntity(s.StageID()),
				"Stage '%s' uses unregistered format '%s'", s.StageID(), s.StageFormat())
		}
		switch stage := s.(type) {
		case *bracket.BracketStage:
			c.bracketStage(stage, knownMatches)
		case *bracket.LadderStage:
			c.ladderStage(stage, knownParticipants, knownMatches)
		}
	}

	return Report{OK: len(c.errorsOnly()) == 0, Issues: c.issues}
}

func (c *checker) errorsOnly() []Issue {
	return Report{Issues: c.issues}.Errors()
}

func (c *checker) duplicates(kind EntityKind, ids []string) {
	seen := map[string]bool{}
	reported := map[string]bool{}
	for _, id := range ids {
		if seen[id] && !reported[id] {
			reported[id] = true
			c.add(LevelError, CodeDuplicateID, &Entity{Kind: kind, ID: id}, "%s '%s' appears more than once", kind, id)
		}
		seen[id] = true
	}
}

func (c *checker) bracketStage(stage *bracket.BracketStage, knownMatches map[string]bool) {
	entity := stageEntity(stage.ID)

	for _, id := range stage.MatchIDs {
		if !knownMatches[id] {
			c.add(LevelError, CodeStageMatchReferenceMissing, entity, "Stage references unknown match '%s'", id)
		}
	}

	slots := map[string]bool{}
	for _, e := range stage.Edges {
		if !knownMatches[e.FromMatchID] || !knownMatches[e.ToMatchID] {
			c.add(LevelError, CodeEdgeMatchReferenceMissing, entity,
				"Edge references unknown match (%s -> %s)", e.FromMatchID, e.ToMatchID)
		}
		key := e.ToMatchID + "/" + string(e.ToSlot)
		if slots[key] {
			c.add(LevelError, CodeEdgeSlotConflict, entity, "More than one edge feeds slot %s of match '%s'", e.ToSlot, e.ToMatchID)
		}
		slots[key] = true
	}
	if cycle := findCycle(stage.Edges); cycle != "" {
		c.add(LevelError, CodeEdgeCycle, entity, "Advancement edges form a cycle through match '%s'", cycle)
	}

	inRound := map[string]bool{}
	for _, r := range stage.Rounds {
		for _, id := range r.MatchIDs {
			inRound[id] = true
		}
	}
	for _, id := range stage.MatchIDs {
		if !inRound[id] {
			c.add(LevelWarning, CodeStageMatchNotInRound, entity, "Match '%s' is not listed in any stage round", id)
		}
	}
}

func (c *checker) ladderStage(stage *bracket.LadderStage, knownParticipants, knownMatches map[string]bool) {
	entity := stageEntity(stage.ID)
	seen := map[string]bool{}
	for _, st := range stage.Standings {
		if !knownParticipants[st.ParticipantID] {
			c.add(LevelError, CodeLadderParticipantMissing, entity,
				"Ladder standing references unknown participant '%s'", st.ParticipantID)
		}
		if seen[st.ParticipantID] {
			c.add(LevelError, CodeLadderDuplicateStanding, entity,
				"Participant '%s' appears more than once in standings", st.ParticipantID)
		}
		seen[st.ParticipantID] = true
	}
	if !rules.RanksContiguous(stage.Standings) {
		c.add(LevelError, CodeLadderRankInvalid, entity, "Ladder ranks must be exactly 1..%d", len(stage.Standings))
	}
	for _, id := range stage.MatchIDs {
		if !knownMatches[id] {
			c.add(LevelError, CodeLadderMatchReferenceMissing, entity, "Ladder stage references unknown match '%s'", id)
		}
	}
}

// findCycle returns a match id on a cycle of edges, or "" when the edges form a DAG.
func findCycle(edges []bracket.AdvancementEdge) string {
	next := map[string][]string{}
	var nodes []string
	for _, e := range edges {
		if _, ok := next[e.FromMatchID]; !ok {
			nodes = append(nodes, e.FromMatchID)
		}
		next[e.FromMatchID] = append(next[e.FromMatchID], e.ToMatchID)
	}

	const (
		active = iota + 1
		done
	)
	state := map[string]int{}
	var visit func(id string) string
	visit = func(id string) string {
		switch state[id] {
		case active:
			return id
		case done:
			return ""
		}
		state[id] = active
		for _, to := range next[id] {
			if found := visit(to); found != "" {
				return found
			}
		}
		state[id] = done
		return ""
	}

	for _, id := range nodes {
		if found := visit(id); found != "" {
			return found
		}
	}
	return ""
}

func toSet(ids []string) map[string]bool {
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}
