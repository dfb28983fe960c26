package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"github.com/AdamBeresnev/bracket-engine/internal/db"
	"github.com/AdamBeresnev/bracket-engine/internal/engine"
	"github.com/AdamBeresnev/bracket-engine/internal/middleware"
	"github.com/AdamBeresnev/bracket-engine/internal/realtime"
	"github.com/AdamBeresnev/bracket-engine/internal/selector"
	"github.com/AdamBeresnev/bracket-engine/internal/service"
	"github.com/AdamBeresnev/bracket-engine/internal/store"
	"github.com/AdamBeresnev/bracket-engine/internal/utils"
	"github.com/AdamBeresnev/bracket-engine/internal/video"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testApp struct {
	handler http.Handler
	hub     *realtime.Hub
}

func setupApp(t *testing.T) testApp {
	t.Helper()
	database, err := db.Open("file::memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, db.RunMigrations(database))

	hub := realtime.NewHub()
	require.NoError(t, hub.Connect(context.Background()))
	t.Cleanup(func() { _ = hub.Disconnect() })

	app := &application{
		tournaments: service.NewTournamentService(engine.New(nil), store.NewSnapshotStore(database), hub),
		hub:         hub,
		corsOrigins: []string{"*"},
	}
	return testApp{handler: newRouter(app), hub: hub}
}

func (a testApp) do(t *testing.T, method, path string, body any, role bracket.Role) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set(middleware.HeaderActorID, "u-"+string(role))
		req.Header.Set(middleware.HeaderActorName, strings.ToUpper(string(role[:1]))+string(role[1:]))
		req.Header.Set(middleware.HeaderActorRole, string(role))
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func envelope(t *testing.T, cmd engine.Command) engine.Envelope {
	t.Helper()
	data, err := engine.EncodeCommand(cmd)
	require.NoError(t, err)
	var env engine.Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func players(n int) []bracket.Participant {
	ps := make([]bracket.Participant, n)
	for i := range ps {
		ps[i] = bracket.Participant{ID: fmt.Sprintf("p%d", i+1), Name: fmt.Sprintf("Player %d", i+1), Seed: utils.Ptr(i + 1)}
	}
	return ps
}

// createBracket creates a tournament with n seeded players and a single
// elimination stage "main", returning its id.
func (a testApp) createBracket(t *testing.T, n int) string {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/tournaments", createTournamentRequest{Name: "Spring Cup", RNGSeed: "seed"}, bracket.RoleStaff)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[commandResponse](t, rec)
	id := created.State.ID

	for _, cmd := range []engine.Command{
		engine.AddParticipants{Participants: players(n)},
		engine.GenerateStage{StageID: "main", StageName: "Main", Format: bracket.SingleElimination},
	} {
		rec := a.command(t, id, nil, cmd, bracket.RoleStaff)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
	return id
}

func (a testApp) command(t *testing.T, id string, expected *int, cmd engine.Command, role bracket.Role) *httptest.ResponseRecorder {
	t.Helper()
	return a.do(t, http.MethodPost, "/api/tournaments/"+id+"/commands",
		commandRequest{ExpectedVersion: expected, Command: envelope(t, cmd)}, role)
}

func TestHealthz(t *testing.T) {
	app := setupApp(t)
	rec := app.do(t, http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestListFormats(t *testing.T) {
	app := setupApp(t)
	rec := app.do(t, http.MethodGet, "/api/formats", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	formats := decode[[]bracket.Format](t, rec)
	assert.Contains(t, formats, bracket.SingleElimination)
	assert.Contains(t, formats, bracket.DoubleElimination)
	assert.Contains(t, formats, bracket.Ladder)
}

func TestCreateRequiresActor(t *testing.T) {
	app := setupApp(t)
	rec := app.do(t, http.MethodPost, "/api/tournaments", createTournamentRequest{Name: "Cup"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateListAndGet(t *testing.T) {
	app := setupApp(t)
	id := app.createBracket(t, 4)

	list := decode[[]store.TournamentSummary](t, app.do(t, http.MethodGet, "/api/tournaments", nil, ""))
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)
	assert.Equal(t, "Spring Cup", list[0].Name)
	assert.Equal(t, 3, list[0].Version)

	rec := app.do(t, http.MethodGet, "/api/tournaments/"+id, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	state := decode[bracket.Tournament](t, rec)
	assert.Len(t, state.Participants, 4)
	require.NotNil(t, state.BracketStage("main"))
	assert.Len(t, state.StageMatches("main"), 3)

	rec = app.do(t, http.MethodGet, "/api/tournaments/missing", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCommandErrors(t *testing.T) {
	app := setupApp(t)
	id := app.createBracket(t, 4)

	tests := []struct {
		name     string
		id       string
		expected *int
		cmd      engine.Command
		role     bracket.Role
		status   int
		code     string
	}{
		{
			name:   "unknown match",
			id:     id,
			cmd:    engine.RecordMatchResult{MatchID: "nope", Outcome: bracket.WinnerOutcome("p1", "p2")},
			role:   bracket.RoleStaff,
			status: http.StatusNotFound,
			code:   "MATCH_NOT_FOUND",
		},
		{
			name:   "invalid outcome",
			id:     id,
			cmd:    engine.RecordMatchResult{MatchID: "main_r1_m1", Outcome: bracket.Outcome{Kind: bracket.OutcomeWinner}},
			role:   bracket.RoleStaff,
			status: http.StatusUnprocessableEntity,
			code:   "INVALID_COMMAND",
		},
		{
			name:     "stale version",
			id:       id,
			expected: utils.Ptr(1),
			cmd:      engine.SetMatchStatus{MatchID: "main_r1_m1", Status: bracket.MatchInProgress},
			role:     bracket.RoleStaff,
			status:   http.StatusConflict,
		},
		{
			name:   "unknown tournament",
			id:     "missing",
			cmd:    engine.LockTournament{Locked: true},
			role:   bracket.RoleAdmin,
			status: http.StatusNotFound,
		},
		{
			name:   "init on existing tournament",
			id:     id,
			cmd:    engine.InitTournament{ID: id, Name: "again"},
			role:   bracket.RoleAdmin,
			status: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.command(t, tt.id, tt.expected, tt.cmd, tt.role)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.code != "" {
				body := decode[map[string]any](t, rec)
				assert.Equal(t, tt.code, body["code"])
			}
		})
	}
}

func TestUnknownCommandType(t *testing.T) {
	app := setupApp(t)
	id := app.createBracket(t, 2)

	rec := app.do(t, http.MethodPost, "/api/tournaments/"+id+"/commands",
		map[string]any{"command": map[string]any{"type": "SHUFFLE"}}, bracket.RoleStaff)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLockedTournament(t *testing.T) {
	app := setupApp(t)
	id := app.createBracket(t, 4)

	rec := app.command(t, id, nil, engine.LockTournament{Locked: true}, bracket.RoleAdmin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = app.command(t, id, nil, engine.SetMatchStatus{MatchID: "main_r1_m1", Status: bracket.MatchInProgress}, bracket.RoleStaff)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "TOURNAMENT_LOCKED", decode[map[string]any](t, rec)["code"])

	rec = app.command(t, id, nil, engine.SetMatchStatus{MatchID: "main_r1_m1", Status: bracket.MatchInProgress}, bracket.RoleAdmin)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRecordResultAndSelectors(t *testing.T) {
	app := setupApp(t)
	id := app.createBracket(t, 4)

	state := decode[bracket.Tournament](t, app.do(t, http.MethodGet, "/api/tournaments/"+id, nil, ""))
	first := state.Match("main_r1_m1")
	require.NotNil(t, first)
	winner, loser := first.Participants[0], first.Participants[1]

	rec := app.command(t, id, utils.Ptr(state.Version), engine.RecordMatchResult{
		MatchID: first.ID,
		Score:   &bracket.MatchScore{Mode: bracket.ScorePoints, A: 2, B: 1},
		Outcome: bracket.WinnerOutcome(winner, loser),
		Sources: &bracket.MatchSources{VODURL: "https://www.youtube.com/watch?v=final1"},
	}, bracket.RoleStaff)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[commandResponse](t, rec)
	assert.True(t, res.Committed)
	assert.Equal(t, state.Version+1, res.Version)
	assert.NotEmpty(t, res.Events)
	assert.True(t, res.Validation.OK)

	base := "/api/tournaments/" + id + "/stages/main"

	matches := decode[[]bracket.Match](t, app.do(t, http.MethodGet, base+"/matches", nil, ""))
	assert.Len(t, matches, 3)

	path := decode[[]string](t, app.do(t, http.MethodGet, base+"/path/"+winner, nil, ""))
	assert.Equal(t, []string{"main_r1_m1", "main_r2_m1"}, path)

	rec = app.do(t, http.MethodGet, base+"/path/ghost", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	adj := decode[map[string]any](t, app.do(t, http.MethodGet, base+"/matches/main_r1_m1/adjacent?direction=right", nil, ""))
	assert.Equal(t, "main_r2_m1", adj["matchId"])

	rec = app.do(t, http.MethodGet, base+"/matches/main_r1_m1/adjacent?direction=sideways", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	layout := decode[[]selector.NodeLayout](t, app.do(t, http.MethodGet, base+"/layout", nil, ""))
	assert.Len(t, layout, 3)

	visible := decode[[]selector.NodeLayout](t, app.do(t, http.MethodGet, base+"/layout?x=0&y=0&w=100&h=50", nil, ""))
	require.Len(t, visible, 1)
	assert.Equal(t, "main_r1_m1", visible[0].MatchID)

	found := decode[[]bracket.Participant](t, app.do(t, http.MethodGet, "/api/tournaments/"+id+"/participants?q=player%203", nil, ""))
	require.Len(t, found, 1)
	assert.Equal(t, "p3", found[0].ID)

	media := decode[[]video.Embed](t, app.do(t, http.MethodGet, "/api/tournaments/"+id+"/matches/main_r1_m1/media", nil, ""))
	assert.Equal(t, []video.Embed{{Source: "vod", Kind: video.KindYouTube, URL: "https://www.youtube.com/embed/final1"}}, media)

	rec = app.do(t, http.MethodGet, "/api/tournaments/"+id+"/matches/nope/media", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = app.do(t, http.MethodGet, "/api/tournaments/"+id+"/stages/nope/matches", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAuditNewestFirst(t *testing.T) {
	app := setupApp(t)
	id := app.createBracket(t, 4)

	rec := app.do(t, http.MethodGet, "/api/tournaments/"+id+"/audit?limit=2", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	entries := decode[[]auditResponse](t, rec)
	require.Len(t, entries, 2)
	assert.Equal(t, "GENERATE_STAGE", entries[0].CommandType)
	assert.Equal(t, "ADD_PARTICIPANTS", entries[1].CommandType)
	require.NotNil(t, entries[0].Actor)
	assert.Equal(t, "u-staff", entries[0].Actor.ID)
	assert.Equal(t, bracket.RoleStaff, entries[0].Actor.Role)
	assert.Contains(t, entries[0].Line, " • Staff • ")

	rec = app.do(t, http.MethodGet, "/api/tournaments/"+id+"/audit?limit=zero", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEventFeed(t *testing.T) {
	app := setupApp(t)
	id := app.createBracket(t, 4)

	srv := httptest.NewServer(app.handler)
	t.Cleanup(srv.Close)

	client := realtime.NewClient("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws?tournament="+id, srv.URL)
	var (
		mu  sync.Mutex
		got []realtime.Message
	)
	client.OnEvent(func(m realtime.Message) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, m)
	})
	require.NoError(t, client.Connect(context.Background()))
	t.Cleanup(func() { _ = client.Disconnect() })
	require.Eventually(t, func() bool { return app.hub.Peers() == 1 }, time.Second, 10*time.Millisecond)

	rec := app.command(t, id, nil, engine.SetMatchStatus{MatchID: "main_r1_m2", Status: bracket.MatchInProgress}, bracket.RoleStaff)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1 && got[0].TournamentID == id && got[0].Event.MatchID == "main_r1_m2"
	}, time.Second, 10*time.Millisecond)
}
