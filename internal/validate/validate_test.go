package validate

import (
	"testing"
	"time"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allFormats = []bracket.Format{
	bracket.SingleElimination, bracket.DoubleElimination, bracket.Swiss, bracket.RoundRobin, bracket.Ladder,
}

func baseTournament() *bracket.Tournament {
	t := bracket.NewTournament("t1", "Cup", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	t.Participants = []bracket.Participant{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}, {ID: "c", Name: "C"}}
	t.Matches = []bracket.Match{
		{ID: "m1", Format: bracket.SingleElimination, StageID: "s", Participants: bracket.SlotPair{"a", "b"}, Status: bracket.MatchPending},
		{ID: "m2", Format: bracket.SingleElimination, StageID: "s", Participants: bracket.SlotPair{"c", bracket.Bye}, Status: bracket.MatchPending},
		{ID: "m3", Format: bracket.SingleElimination, StageID: "s", Status: bracket.MatchScheduled},
	}
	t.Stages = []bracket.Stage{
		&bracket.BracketStage{
			ID:       "s",
			Format:   bracket.SingleElimination,
			MatchIDs: []string{"m1", "m2", "m3"},
			Rounds: []bracket.Round{
				{ID: "r1", MatchIDs: []string{"m1", "m2"}},
				{ID: "r2", MatchIDs: []string{"m3"}},
			},
			Edges: []bracket.AdvancementEdge{
				{FromMatchID: "m1", From: bracket.EdgeSource{Kind: bracket.FromWinner}, ToMatchID: "m3", ToSlot: bracket.SlotA},
				{FromMatchID: "m2", From: bracket.EdgeSource{Kind: bracket.FromWinner}, ToMatchID: "m3", ToSlot: bracket.SlotB},
			},
		},
		&bracket.LadderStage{
			ID:     "l",
			Format: bracket.Ladder,
			Standings: []bracket.Standing{
				{ParticipantID: "a", Rank: 1},
				{ParticipantID: "b", Rank: 2},
			},
			MatchIDs: []string{},
		},
	}
	return t
}

func codes(r Report) []Code {
	var out []Code
	for _, i := range r.Issues {
		out = append(out, i.Code)
	}
	return out
}

func TestValidateCleanState(t *testing.T) {
	r := Validate(baseTournament(), allFormats)

	assert.True(t, r.OK)
	assert.Empty(t, r.Issues)
}

func TestValidateIssues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(t *bracket.Tournament)
		want   Code
		level  Level
	}{
		{
			name:   "duplicate participant",
			mutate: func(t *bracket.Tournament) { t.Participants = append(t.Participants, bracket.Participant{ID: "a"}) },
			want:   CodeDuplicateID,
			level:  LevelError,
		},
		{
			name:   "unknown match participant",
			mutate: func(t *bracket.Tournament) { t.Matches[0].Participants[0] = "ghost" },
			want:   CodeMatchParticipantMissing,
			level:  LevelError,
		},
		{
			name:   "completed without outcome",
			mutate: func(t *bracket.Tournament) { t.Matches[0].Status = bracket.MatchCompleted },
			want:   CodeMatchCompletedWithoutOutcome,
			level:  LevelError,
		},
		{
			name:   "unregistered match format",
			mutate: func(t *bracket.Tournament) { t.Matches[0].Format = "custom" },
			want:   CodeUnknownMatchFormat,
			level:  LevelError,
		},
		{
			name:   "stage references unknown match",
			mutate: func(t *bracket.Tournament) { t.Matches = t.Matches[:2] },
			want:   CodeStageMatchReferenceMissing,
			level:  LevelError,
		},
		{
			name: "match not in a round",
			mutate: func(t *bracket.Tournament) {
				t.BracketStage("s").Rounds[1].MatchIDs = nil
			},
			want:  CodeStageMatchNotInRound,
			level: LevelWarning,
		},
		{
			name: "edge cycle",
			mutate: func(t *bracket.Tournament) {
				s := t.BracketStage("s")
				s.Edges = append(s.Edges, bracket.AdvancementEdge{FromMatchID: "m3", From: bracket.EdgeSource{Kind: bracket.FromLoser}, ToMatchID: "m1", ToSlot: bracket.SlotA})
			},
			want:  CodeEdgeCycle,
			level: LevelError,
		},
		{
			name: "edge slot conflict",
			mutate: func(t *bracket.Tournament) {
				s := t.BracketStage("s")
				s.Edges[1].ToSlot = bracket.SlotA
			},
			want:  CodeEdgeSlotConflict,
			level: LevelError,
		},
		{
			name: "ladder standing unknown participant",
			mutate: func(t *bracket.Tournament) {
				t.LadderStage("l").Standings = append(t.LadderStage("l").Standings, bracket.Standing{ParticipantID: "zed", Rank: 3})
			},
			want:  CodeLadderParticipantMissing,
			level: LevelError,
		},
		{
			name: "ladder duplicate standing",
			mutate: func(t *bracket.Tournament) {
				t.LadderStage("l").Standings = append(t.LadderStage("l").Standings, bracket.Standing{ParticipantID: "a", Rank: 3})
			},
			want:  CodeLadderDuplicateStanding,
			level: LevelError,
		},
		{
			name:   "ladder rank gap",
			mutate: func(t *bracket.Tournament) { t.LadderStage("l").Standings[1].Rank = 3 },
			want:   CodeLadderRankInvalid,
			level:  LevelError,
		},
		{
			name: "ladder unknown match",
			mutate: func(t *bracket.Tournament) {
				t.LadderStage("l").MatchIDs = []string{"nope"}
			},
			want:  CodeLadderMatchReferenceMissing,
			level: LevelError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := baseTournament()
			tt.mutate(state)

			r := Validate(state, allFormats)

			require.Contains(t, codes(r), tt.want)
			assert.Equal(t, tt.level == LevelWarning, r.OK)
			for _, issue := range r.Issues {
				if issue.Code == tt.want {
					assert.Equal(t, tt.level, issue.Level)
				}
			}
		})
	}
}

func TestValidateUnknownStageFormat(t *testing.T) {
	r := Validate(baseTournament(), []bracket.Format{bracket.SingleElimination})

	assert.False(t, r.OK)
	assert.Contains(t, codes(r), CodeUnknownStageFormat)
}

func TestValidateDoesNotMutate(t *testing.T) {
	state := baseTournament()
	before := state.Clone()

	Validate(state, allFormats)

	assert.Equal(t, before, state)
}

func TestReject(t *testing.T) {
	r := Reject(CodeMatchNotFound, "Match '%s' not found.", "m9")

	assert.False(t, r.OK)
	require.Len(t, r.Errors(), 1)
	assert.Equal(t, "Match 'm9' not found.", r.Issues[0].Message)
	assert.True(t, CodeMatchNotFound.IsReference())
	assert.True(t, CodeLadderCooldown.IsBusinessRule())
	assert.False(t, CodeTournamentLocked.IsReference())
}
