package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"github.com/AdamBeresnev/bracket-engine/internal/db"
	"github.com/AdamBeresnev/bracket-engine/internal/engine"
	"github.com/AdamBeresnev/bracket-engine/internal/realtime"
	"github.com/AdamBeresnev/bracket-engine/internal/rules"
	"github.com/AdamBeresnev/bracket-engine/internal/store"
	"github.com/AdamBeresnev/bracket-engine/internal/utils"
	"github.com/AdamBeresnev/bracket-engine/internal/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testNow = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	staff   = &bracket.Actor{ID: "u2", Name: "Bob", Role: bracket.RoleStaff}
)

type fixture struct {
	svc   *TournamentService
	feed  *realtime.Mock
	got   *[]realtime.Message
	clock *time.Time
}

func setup(t *testing.T) fixture {
	t.Helper()
	database, err := db.Open("file::memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, db.RunMigrations(database))

	feed := realtime.NewMock()
	require.NoError(t, feed.Connect(context.Background()))
	var got []realtime.Message
	feed.OnEvent(func(m realtime.Message) { got = append(got, m) })

	svc := NewTournamentService(engine.New(nil), store.NewSnapshotStore(database), feed)
	clock := testNow
	svc.now = func() time.Time { return clock }
	return fixture{svc: svc, feed: feed, got: &got, clock: &clock}
}

func players(n int) []bracket.Participant {
	ps := make([]bracket.Participant, n)
	for i := range ps {
		ps[i] = bracket.Participant{ID: fmt.Sprintf("p%d", i+1), Name: fmt.Sprintf("Player %d", i+1), Seed: utils.Ptr(i + 1)}
	}
	return ps
}

func TestCreateAndExecute(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	created, err := f.svc.Create(ctx, "Spring Open", "seed", staff)
	require.NoError(t, err)
	id := created.State.ID
	require.NotEmpty(t, id)

	_, err = f.svc.Execute(ctx, id, utils.Ptr(1), engine.AddParticipants{Participants: players(4)}, staff)
	require.NoError(t, err)
	res, err := f.svc.Execute(ctx, id, utils.Ptr(2), engine.GenerateStage{
		StageID: "main", StageName: "Main", Format: bracket.SingleElimination,
	}, staff)
	require.NoError(t, err)
	assert.Equal(t, 3, res.State.Version)

	res, err = f.svc.Execute(ctx, id, nil, engine.RecordMatchResult{
		MatchID: "main_r1_m1",
		Outcome: bracket.WinnerOutcome("p1", "p4"),
	}, staff)
	require.NoError(t, err)
	require.Len(t, *f.got, 3)
	assert.Equal(t, realtime.Message{TournamentID: id, Version: 4, Event: bracket.MatchCompleted("main_r1_m1", testNow)}, (*f.got)[2])

	stored, err := f.svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, res.State, stored)

	audit, err := f.svc.Audit(ctx, id, 0)
	require.NoError(t, err)
	assert.Len(t, audit, 4)

	list, err := f.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Spring Open", list[0].Name)
}

func TestShrinkingStageKeepsAuditWritable(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	created, err := f.svc.Create(ctx, "Big Open", "seed", staff)
	require.NoError(t, err)
	id := created.State.ID

	_, err = f.svc.Execute(ctx, id, nil, engine.AddParticipants{Participants: players(16)}, staff)
	require.NoError(t, err)
	res, err := f.svc.Execute(ctx, id, nil, engine.GenerateStage{
		StageID: "main", StageName: "Main", Format: bracket.SingleElimination,
	}, staff)
	require.NoError(t, err)
	require.Len(t, res.State.Matches, 15)

	res, err = f.svc.Execute(ctx, id, nil, engine.GenerateStage{
		StageID: "main", StageName: "Main", Format: bracket.SingleElimination,
		ParticipantIDs: []string{"p1", "p2"},
	}, staff)
	require.NoError(t, err)
	require.Len(t, res.State.Matches, 1)

	statuses := []bracket.MatchStatus{bracket.MatchInProgress, bracket.MatchPending}
	for i := range 12 {
		_, err := f.svc.Execute(ctx, id, nil, engine.SetMatchStatus{MatchID: "main_r1_m1", Status: statuses[i%2]}, staff)
		require.NoError(t, err, "command %d after regeneration", i+1)
	}

	stored, err := f.svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 16, stored.Version)

	seen := map[string]bool{}
	for _, entry := range stored.Audit {
		assert.False(t, seen[entry.ID], "duplicate audit id %s", entry.ID)
		seen[entry.ID] = true
	}

	audit, err := f.svc.Audit(ctx, id, 0)
	require.NoError(t, err)
	assert.Len(t, audit, 16)
}

func TestExecuteStaleVersion(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	created, err := f.svc.Create(ctx, "Open", "", staff)
	require.NoError(t, err)

	_, err = f.svc.Execute(ctx, created.State.ID, utils.Ptr(7), engine.LockTournament{Locked: true}, staff)
	assert.ErrorIs(t, err, ErrStaleVersion)

	stored, err := f.svc.Get(ctx, created.State.ID)
	require.NoError(t, err)
	assert.False(t, stored.Locked)
}

func TestExecuteRejected(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	created, err := f.svc.Create(ctx, "Open", "", staff)
	require.NoError(t, err)

	res, err := f.svc.Execute(ctx, created.State.ID, nil, engine.RecordMatchResult{MatchID: "nope", Outcome: bracket.DrawOutcome()}, staff)
	var rej *engine.RejectedError
	require.True(t, errors.As(err, &rej))
	assert.Equal(t, validate.CodeMatchNotFound, rej.Code)
	assert.False(t, res.Committed)

	stored, err := f.svc.Get(ctx, created.State.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Version)
}

func TestExecuteInitTournament(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	created, err := f.svc.Create(ctx, "Open", "", staff)
	require.NoError(t, err)

	_, err = f.svc.Execute(ctx, created.State.ID, nil, engine.InitTournament{ID: "other", Name: "x"}, staff)
	assert.ErrorIs(t, err, ErrTournamentIDMismatch)
	_, err = f.svc.Execute(ctx, created.State.ID, nil, engine.InitTournament{ID: created.State.ID, Name: "x"}, staff)
	assert.ErrorIs(t, err, ErrAlreadyInitialized)
}

func TestExecuteUnknownTournament(t *testing.T) {
	f := setup(t)
	_, err := f.svc.Execute(context.Background(), "missing", nil, engine.LockTournament{Locked: true}, staff)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestConcurrentCommandsSerialize(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	created, err := f.svc.Create(ctx, "Open", "", staff)
	require.NoError(t, err)

	const n = 10
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func(i int) {
			_, err := f.svc.Execute(ctx, created.State.ID, nil, engine.AddParticipants{
				Participants: []bracket.Participant{{ID: fmt.Sprintf("p%d", i), Name: "P"}},
			}, staff)
			errs <- err
		}(i)
	}
	for i := 0; i < n; i++ {
		require.NoError(t, <-errs)
	}

	stored, err := f.svc.Get(ctx, created.State.ID)
	require.NoError(t, err)
	assert.Equal(t, n+1, stored.Version)
	assert.Len(t, stored.Participants, n)
}

func TestApplyDecayAll(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	created, err := f.svc.Create(ctx, "Ladder", "", staff)
	require.NoError(t, err)
	id := created.State.ID

	ruleSet := rules.DefaultLadderRules()
	ruleSet.SwapRule = bracket.SwapPoints
	ruleSet.Decay = &bracket.DecayPolicy{Enabled: true, DaysInactiveToStart: utils.Ptr(5), PointsPerDay: utils.Ptr(1)}
	for _, cmd := range []engine.Command{
		engine.AddParticipants{Participants: players(3)},
		engine.GenerateStage{StageID: "ladder", StageName: "Ladder", Format: bracket.Ladder, Options: &bracket.StageOptions{Rules: &ruleSet}},
		engine.LadderChallenge{ChallengerID: "p3", ChallengedID: "p1"},
	} {
		_, err := f.svc.Execute(ctx, id, nil, cmd, staff)
		require.NoError(t, err)
	}
	state, err := f.svc.Get(ctx, id)
	require.NoError(t, err)
	matchID := state.LadderStage("ladder").MatchIDs[0]
	_, err = f.svc.Execute(ctx, id, nil, engine.RecordMatchResult{MatchID: matchID, Outcome: bracket.WinnerOutcome("p3", "p1")}, staff)
	require.NoError(t, err)

	// A second tournament without a ladder is skipped.
	_, err = f.svc.Create(ctx, "Bracket", "", staff)
	require.NoError(t, err)

	*f.clock = testNow.Add(7 * 24 * time.Hour)
	applied, err := f.svc.ApplyDecayAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, applied)

	state, err = f.svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, state.LadderStage("ladder").Standing("p3").Points)
	assert.Equal(t, "system", state.Audit[len(state.Audit)-1].Actor.ID)
}
