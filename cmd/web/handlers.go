package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"github.com/AdamBeresnev/bracket-engine/internal/engine"
	"github.com/AdamBeresnev/bracket-engine/internal/httputil"
	"github.com/AdamBeresnev/bracket-engine/internal/middleware"
	"github.com/AdamBeresnev/bracket-engine/internal/selector"
	"github.com/AdamBeresnev/bracket-engine/internal/service"
	"github.com/AdamBeresnev/bracket-engine/internal/store"
	"github.com/AdamBeresnev/bracket-engine/internal/validate"
	"github.com/AdamBeresnev/bracket-engine/internal/video"
	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

type createTournamentRequest struct {
	Name    string `json:"name"`
	RNGSeed string `json:"rngSeed"`
}

type commandRequest struct {
	ExpectedVersion *int            `json:"expectedVersion,omitempty"`
	Command         engine.Envelope `json:"command"`
}

type commandResponse struct {
	Committed  bool                `json:"committed"`
	Version    int                 `json:"version"`
	Events     []bracket.Event     `json:"events"`
	Validation validate.Report     `json:"validation"`
	State      *bracket.Tournament `json:"state,omitempty"`
}

type auditResponse struct {
	ID          string         `json:"id"`
	Seq         int            `json:"seq"`
	Actor       *bracket.Actor `json:"actor,omitempty"`
	CommandType string         `json:"commandType"`
	Summary     string         `json:"summary"`
	Line        string         `json:"line"`
}

func newCommandResponse(res engine.Result) commandResponse {
	out := commandResponse{
		Committed:  res.Committed,
		Events:     res.Events,
		Validation: res.Validation,
		State:      res.State,
	}
	if out.Events == nil {
		out.Events = []bracket.Event{}
	}
	if res.State != nil {
		out.Version = res.State.Version
	}
	return out
}

func (app *application) listFormats(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, app.tournaments.Formats())
}

func (app *application) listTournaments(w http.ResponseWriter, r *http.Request) {
	list, err := app.tournaments.List(r.Context())
	if err != nil {
		httputil.InternalServerError(w, "Failed to list tournaments", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}

func (app *application) createTournament(w http.ResponseWriter, r *http.Request) {
	var req createTournamentRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		httputil.BadRequest(w, "Invalid request body", err)
		return
	}

	res, err := app.tournaments.Create(r.Context(), req.Name, req.RNGSeed, middleware.GetActor(r.Context()))
	if err != nil {
		writeCommandError(w, res, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, newCommandResponse(res))
}

func (app *application) executeCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		httputil.BadRequest(w, "Invalid request body", err)
		return
	}
	cmd, err := req.Command.Command()
	if err != nil {
		httputil.BadRequest(w, "Invalid command", err)
		return
	}

	id := chi.URLParam(r, "id")
	res, err := app.tournaments.Execute(r.Context(), id, req.ExpectedVersion, cmd, middleware.GetActor(r.Context()))
	if err != nil {
		writeCommandError(w, res, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newCommandResponse(res))
}

// writeCommandError maps service and engine failures onto status codes.
// Rejected commands carry the engine's validation report in the body.
func writeCommandError(w http.ResponseWriter, res engine.Result, err error) {
	var rejected *engine.RejectedError
	switch {
	case errors.As(err, &rejected):
		status := http.StatusUnprocessableEntity
		switch {
		case rejected.Code.IsReference():
			status = http.StatusNotFound
		case rejected.Code == validate.CodeTournamentLocked:
			status = http.StatusConflict
		}
		httputil.Rejected(w, status, string(rejected.Code), rejected.Message, res.Validation)
	case errors.Is(err, store.ErrNotFound):
		httputil.NotFound(w, "Tournament not found", err)
	case errors.Is(err, service.ErrStaleVersion), errors.Is(err, store.ErrVersionConflict):
		httputil.Conflict(w, "Tournament was modified, reload and retry", err)
	case errors.Is(err, service.ErrAlreadyInitialized):
		httputil.Conflict(w, "Tournament is already initialized", err)
	case errors.Is(err, service.ErrTournamentIDMismatch):
		httputil.BadRequest(w, "Command targets a different tournament", err)
	default:
		httputil.InternalServerError(w, "Failed to execute command", err)
	}
}

// loadTournament writes the error response itself and reports false when
// the tournament could not be loaded.
func (app *application) loadTournament(w http.ResponseWriter, r *http.Request) (*bracket.Tournament, bool) {
	t, err := app.tournaments.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httputil.NotFound(w, "Tournament not found", err)
			return nil, false
		}
		httputil.InternalServerError(w, "Failed to get tournament", err)
		return nil, false
	}
	return t, true
}

func (app *application) loadStage(w http.ResponseWriter, r *http.Request) (*bracket.Tournament, bracket.Stage, bool) {
	t, ok := app.loadTournament(w, r)
	if !ok {
		return nil, nil, false
	}
	stage := t.Stage(chi.URLParam(r, "stageID"))
	if stage == nil {
		httputil.NotFound(w, "Stage not found", nil)
		return nil, nil, false
	}
	return t, stage, true
}

func (app *application) getTournament(w http.ResponseWriter, r *http.Request) {
	t, ok := app.loadTournament(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, t)
}

func (app *application) getAudit(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			httputil.BadRequest(w, "Invalid limit", err)
			return
		}
		limit = n
	}

	rows, err := app.tournaments.Audit(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httputil.NotFound(w, "Tournament not found", err)
			return
		}
		httputil.InternalServerError(w, "Failed to get audit log", err)
		return
	}

	out := make([]auditResponse, len(rows))
	for i, row := range rows {
		entry := bracket.AuditEntry{ID: row.ID, At: row.At, CommandType: row.CommandType, Summary: row.Summary}
		if row.ActorID.Valid {
			entry.Actor = &bracket.Actor{
				ID:   row.ActorID.String,
				Name: row.ActorName.String,
				Role: bracket.Role(row.ActorRole.String),
			}
		}
		out[i] = auditResponse{
			ID:          row.ID,
			Seq:         row.Seq,
			Actor:       entry.Actor,
			CommandType: row.CommandType,
			Summary:     row.Summary,
			Line:        engine.FormatAuditLine(entry),
		}
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (app *application) searchParticipants(w http.ResponseWriter, r *http.Request) {
	t, ok := app.loadTournament(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, selector.SearchParticipants(t, r.URL.Query().Get("q")))
}

func (app *application) matchMedia(w http.ResponseWriter, r *http.Request) {
	t, ok := app.loadTournament(w, r)
	if !ok {
		return
	}
	m := t.Match(chi.URLParam(r, "matchID"))
	if m == nil {
		httputil.NotFound(w, "Match not found", nil)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, video.MatchEmbeds(m))
}

func (app *application) stageMatches(w http.ResponseWriter, r *http.Request) {
	t, stage, ok := app.loadStage(w, r)
	if !ok {
		return
	}
	if round := r.URL.Query().Get("round"); round != "" {
		httputil.WriteJSON(w, http.StatusOK, selector.RoundMatches(t, stage.StageID(), round))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, selector.StageMatches(t, stage.StageID()))
}

func (app *application) adjacentMatch(w http.ResponseWriter, r *http.Request) {
	t, stage, ok := app.loadStage(w, r)
	if !ok {
		return
	}
	dir, err := selector.ParseDirection(r.URL.Query().Get("direction"))
	if err != nil {
		httputil.BadRequest(w, "Invalid direction", err)
		return
	}
	matchID := chi.URLParam(r, "matchID")
	if t.Match(matchID) == nil {
		httputil.NotFound(w, "Match not found", nil)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"matchId": selector.AdjacentMatch(t, stage.StageID(), matchID, dir),
	})
}

func (app *application) stageLayout(w http.ResponseWriter, r *http.Request) {
	t, stage, ok := app.loadStage(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	orientation := selector.Horizontal
	if q.Get("orientation") == string(selector.Vertical) {
		orientation = selector.Vertical
	}

	var viewport *selector.Rect
	if q.Has("w") || q.Has("h") {
		vals := make([]int, 4)
		for i, key := range []string{"x", "y", "w", "h"} {
			if s := q.Get(key); s != "" {
				n, err := strconv.Atoi(s)
				if err != nil {
					httputil.BadRequest(w, "Invalid viewport "+key, err)
					return
				}
				vals[i] = n
			}
		}
		viewport = &selector.Rect{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}
	}
	httputil.WriteJSON(w, http.StatusOK, selector.NodeLayouts(t, stage.StageID(), orientation, viewport))
}

func (app *application) stageStandings(w http.ResponseWriter, r *http.Request) {
	t, stage, ok := app.loadStage(w, r)
	if !ok {
		return
	}
	if stage.StageFormat() == bracket.Ladder {
		httputil.WriteJSON(w, http.StatusOK, selector.LadderStandings(t, stage.StageID()))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, selector.GroupStandings(t, stage.StageID()))
}

func (app *application) stageUpsets(w http.ResponseWriter, r *http.Request) {
	t, stage, ok := app.loadStage(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, selector.Upsets(t, stage.StageID()))
}

func (app *application) pathToFinal(w http.ResponseWriter, r *http.Request) {
	t, stage, ok := app.loadStage(w, r)
	if !ok {
		return
	}
	participantID := chi.URLParam(r, "participantID")
	if !t.HasParticipant(participantID) {
		httputil.NotFound(w, "Participant not found", nil)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, selector.PathToFinal(t, stage.StageID(), participantID))
}
