package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"github.com/AdamBeresnev/bracket-engine/internal/engine"
	"github.com/AdamBeresnev/bracket-engine/internal/realtime"
	"github.com/AdamBeresnev/bracket-engine/internal/store"
	"github.com/google/uuid"
)

var (
	ErrStaleVersion         = errors.New("stale tournament version")
	ErrTournamentIDMismatch = errors.New("command targets a different tournament")
	ErrAlreadyInitialized   = errors.New("tournament is already initialized")
)

// SystemActor signs commands issued by the server itself.
var SystemActor = &bracket.Actor{ID: "system", Name: "Scheduler", Role: bracket.RoleAdmin}

// TournamentService is the single writer for stored tournaments. Commands for
// one tournament run one at a time; different tournaments proceed in parallel.
type TournamentService struct {
	engine   *engine.Engine
	store    *store.SnapshotStore
	realtime realtime.Adapter
	now      func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewTournamentService(e *engine.Engine, st *store.SnapshotStore, rt realtime.Adapter) *TournamentService {
	return &TournamentService{
		engine:   e,
		store:    st,
		realtime: rt,
		now:      time.Now,
		locks:    make(map[string]*sync.Mutex),
	}
}

func (s *TournamentService) lock(id string) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Create initializes and stores a new tournament under a fresh id.
func (s *TournamentService) Create(ctx context.Context, name, rngSeed string, actor *bracket.Actor) (engine.Result, error) {
	cmd := engine.InitTournament{ID: uuid.New().String(), Name: name, RNGSeed: rngSeed}
	res := s.engine.Apply(nil, cmd, s.now(), actor)
	if err := res.Err(); err != nil {
		return res, err
	}
	if err := s.store.Save(ctx, res.State, 0); err != nil {
		return res, fmt.Errorf("failed to save tournament: %w", err)
	}

	slog.Info("tournament created", "tournament", cmd.ID, "name", name)
	s.broadcast(ctx, res)
	return res, nil
}

// Execute applies cmd to the stored tournament. When expectedVersion is set
// and differs from the stored version the command is refused with
// ErrStaleVersion. A rejected command returns its result together with a
// *engine.RejectedError.
func (s *TournamentService) Execute(ctx context.Context, tournamentID string, expectedVersion *int, cmd engine.Command, actor *bracket.Actor) (engine.Result, error) {
	if init, ok := cmd.(engine.InitTournament); ok {
		if init.ID != tournamentID {
			return engine.Result{}, fmt.Errorf("%w: %s", ErrTournamentIDMismatch, init.ID)
		}
		return engine.Result{}, ErrAlreadyInitialized
	}

	unlock := s.lock(tournamentID)
	defer unlock()

	state, err := s.store.Load(ctx, tournamentID)
	if err != nil {
		return engine.Result{}, err
	}
	if expectedVersion != nil && *expectedVersion != state.Version {
		return engine.Result{State: state}, fmt.Errorf("%w: expected %d, current %d", ErrStaleVersion, *expectedVersion, state.Version)
	}

	res := s.engine.Apply(state, cmd, s.now(), actor)
	if err := res.Err(); err != nil {
		slog.Warn("command rejected", "tournament", tournamentID, "command", cmd.Type(), "error", err)
		return res, err
	}

	if err := s.store.Save(ctx, res.State, state.Version); err != nil {
		return res, fmt.Errorf("failed to save tournament: %w", err)
	}

	slog.Info("command applied",
		"tournament", tournamentID,
		"command", cmd.Type(),
		"version", res.State.Version,
		"issues", len(res.Validation.Issues))
	s.broadcast(ctx, res)
	return res, nil
}

func (s *TournamentService) broadcast(ctx context.Context, res engine.Result) {
	if s.realtime == nil {
		return
	}
	for _, msg := range realtime.Messages(res.State.ID, res.State.Version, res.Events) {
		if err := s.realtime.Broadcast(ctx, msg); err != nil {
			slog.Error("broadcast failed", "tournament", msg.TournamentID, "event", msg.Event.Type, "error", err)
		}
	}
}

// Formats lists the stage formats the engine can generate.
func (s *TournamentService) Formats() []bracket.Format {
	return s.engine.Registry().Formats()
}

func (s *TournamentService) Get(ctx context.Context, id string) (*bracket.Tournament, error) {
	return s.store.Load(ctx, id)
}

func (s *TournamentService) List(ctx context.Context) ([]store.TournamentSummary, error) {
	return s.store.List(ctx)
}

func (s *TournamentService) Audit(ctx context.Context, id string, limit int) ([]store.AuditRow, error) {
	if _, err := s.store.Load(ctx, id); err != nil {
		return nil, err
	}
	return s.store.Audit(ctx, id, limit)
}

// ApplyDecayAll runs APPLY_DECAY on every ladder stage that has decay
// enabled and reports how many stages were processed. A failure on one
// tournament does not stop the sweep.
func (s *TournamentService) ApplyDecayAll(ctx context.Context) (int, error) {
	ids, err := s.store.ListIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list tournaments: %w", err)
	}

	at := s.now().UTC()
	applied := 0
	var errs []error
	for _, id := range ids {
		state, err := s.store.Load(ctx, id)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, stage := range state.Stages {
			ladder, ok := stage.(*bracket.LadderStage)
			if !ok || ladder.Rules.Decay == nil || !ladder.Rules.Decay.Enabled {
				continue
			}
			if _, err := s.Execute(ctx, id, nil, engine.ApplyDecay{StageID: ladder.ID, At: at}, SystemActor); err != nil {
				errs = append(errs, fmt.Errorf("decay %s/%s: %w", id, ladder.ID, err))
				continue
			}
			applied++
		}
	}
	return applied, errors.Join(errs...)
}
