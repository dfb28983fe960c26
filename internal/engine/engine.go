package engine

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"github.com/AdamBeresnev/bracket-engine/internal/format"
	"github.com/AdamBeresnev/bracket-engine/internal/rules"
	"github.com/AdamBeresnev/bracket-engine/internal/validate"
	"github.com/google/uuid"
)

// auditNamespace scopes the name based audit entry ids.
var auditNamespace = uuid.MustParse("6f1c1a52-3b0e-4c8e-9d43-5b7b1f0d8a11")

type Result struct {
	State      *bracket.Tournament `json:"state"`
	Events     []bracket.Event     `json:"events"`
	Validation validate.Report     `json:"validation"`
	// Committed is false when the command was refused and State is the input.
	Committed bool `json:"committed"`
}

// RejectedError is a command refused before any mutation.
type RejectedError struct {
	Code    validate.Code
	Message string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Err returns a *RejectedError for a refused command and nil otherwise.
func (r Result) Err() error {
	if r.Committed {
		return nil
	}
	rej := &RejectedError{Code: validate.CodeInvalidCommand, Message: "command rejected"}
	if errs := r.Validation.Errors(); len(errs) > 0 {
		rej.Code, rej.Message = errs[0].Code, errs[0].Message
	}
	return rej
}

// Engine is the pure tournament state machine. It performs no I/O, and the
// same state, command and time always yield the same result.
type Engine struct {
	registry *format.Registry
}

// New returns an engine backed by registry, or by every built-in format when nil.
func New(registry *format.Registry) *Engine {
	if registry == nil {
		registry = format.DefaultRegistry()
	}
	return &Engine{registry: registry}
}

func (e *Engine) Registry() *format.Registry {
	return e.registry
}

func (e *Engine) Validate(t *bracket.Tournament) validate.Report {
	return validate.Validate(t, e.registry.Formats())
}

func reject(state *bracket.Tournament, code validate.Code, msg string, args ...any) Result {
	return Result{State: state, Events: []bracket.Event{}, Validation: validate.Reject(code, msg, args...)}
}

// Apply runs cmd against state at time at. The input state is never modified;
// a refused command returns it unchanged with a failing report.
func (e *Engine) Apply(state *bracket.Tournament, cmd Command, at time.Time, actor *bracket.Actor) Result {
	at = at.UTC()
	if state == nil {
		state = bracket.NewTournament("", "", at)
	}
	if state.Locked && cmd.Type() != CmdLockTournament && !actor.IsAdmin() {
		return reject(state, validate.CodeTournamentLocked, "Tournament is locked for non-admin mutations.")
	}

	var (
		next   *bracket.Tournament
		events []bracket.Event
		rej    *Result
	)
	switch c := cmd.(type) {
	case InitTournament:
		next = bracket.NewTournament(c.ID, c.Name, at)
		next.RNGSeed = c.RNGSeed
		next.Settings = slices.Clone(c.Settings)
	case AddParticipants:
		next, events = e.addParticipants(state, c)
	case RemoveParticipant:
		next, events = e.removeParticipant(state, c, at)
	case SeedParticipants:
		next, rej = e.seedParticipants(state, c)
	case GenerateStage:
		next, events, rej = e.generateStage(state, c, at)
	case SetMatchStatus:
		next, events, rej = e.setMatchStatus(state, c, at)
	case RecordMatchResult:
		next, events, rej = e.recordMatchResult(state, c, at)
	case UndoMatchResult:
		next, events, rej = e.undoMatchResult(state, c, at)
	case ForceAdvance:
		next, events, rej = e.forceAdvance(state, c, at)
	case LockTournament:
		next = state.Clone()
		next.Locked = c.Locked
		events = []bracket.Event{bracket.TournamentLocked(c.Locked, at)}
	case RegenerateStage:
		next, events, rej = e.regenerateStage(state, c, at)
	case LadderChallenge:
		next, events, rej = e.ladderChallenge(state, c, at)
	case ApplyDecay:
		next, events, rej = e.applyDecay(state, c, at)
	default:
		return reject(state, validate.CodeInvalidCommand, "Unknown command type '%s'.", cmd.Type())
	}
	if rej != nil {
		return *rej
	}

	next.Version++
	next.UpdatedAt = at
	next.Audit = append(next.Audit, auditEntry(next, cmd, at, actor))

	if events == nil {
		events = []bracket.Event{}
	}
	return Result{State: next, Events: events, Validation: e.Validate(next), Committed: true}
}

// serial mirrors the id counter used for generated entity ids.
func serial(t *bracket.Tournament) int {
	return t.Version + len(t.Matches) + len(t.Stages) + len(t.Participants) + len(t.Audit) + 1
}

// auditEntry names the entry after its position in the append-only log, so
// ids never repeat even when a command shrinks the match list.
func auditEntry(t *bracket.Tournament, cmd Command, at time.Time, actor *bracket.Actor) bracket.AuditEntry {
	name := fmt.Sprintf("%s/audit_%d", t.ID, len(t.Audit)+1)
	payload, err := json.Marshal(cmd)
	if err != nil {
		payload = nil
	}
	entry := bracket.AuditEntry{
		ID:          uuid.NewSHA1(auditNamespace, []byte(name)).String(),
		At:          at,
		CommandType: string(cmd.Type()),
		Summary:     auditSummary(cmd),
		Payload:     payload,
	}
	if actor != nil {
		a := *actor
		entry.Actor = &a
	}
	return entry
}

func (e *Engine) addParticipants(state *bracket.Tournament, c AddParticipants) (*bracket.Tournament, []bracket.Event) {
	next := state.Clone()
	seen := make(map[string]bool, len(next.Participants))
	for _, p := range next.Participants {
		seen[p.ID] = true
	}
	for _, p := range c.Participants {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		if p.Type == "" {
			p.Type = bracket.PlayerParticipant
		}
		next.Participants = append(next.Participants, p)
	}
	// Payload values share maps and pointers with the caller.
	return next.Clone(), nil
}

func (e *Engine) removeParticipant(state *bracket.Tournament, c RemoveParticipant, at time.Time) (*bracket.Tournament, []bracket.Event) {
	next := state.Clone()
	var events []bracket.Event

	next.Participants = slices.DeleteFunc(next.Participants, func(p bracket.Participant) bool {
		return p.ID == c.ParticipantID
	})
	for i := range next.Matches {
		m := &next.Matches[i]
		if !m.Participants.Contains(c.ParticipantID) {
			continue
		}
		for slot := range m.Participants {
			if m.Participants[slot] == c.ParticipantID {
				m.Participants[slot] = ""
			}
		}
		events = append(events, bracket.MatchUpdated(m.ID, at))
	}
	for _, s := range next.Stages {
		ladder, ok := s.(*bracket.LadderStage)
		if !ok || ladder.Standing(c.ParticipantID) == nil {
			continue
		}
		ladder.Standings = slices.DeleteFunc(ladder.Standings, func(st bracket.Standing) bool {
			return st.ParticipantID == c.ParticipantID
		})
		rules.CompactRanks(ladder.Standings)
		events = append(events, bracket.StandingsUpdated(ladder.ID, at))
	}
	return next, events
}

func (e *Engine) seedParticipants(state *bracket.Tournament, c SeedParticipants) (*bracket.Tournament, *Result) {
	next := state.Clone()
	switch c.Method {
	case rules.SeedManual:
		next.Participants = rules.ApplyManualSeeds(next.Participants, c.SeedMap)
	case rules.SeedRating:
		next.Participants = rules.SeedByRating(next.Participants)
	case rules.SeedShuffle:
		seed := next.RNGSeed
		if seed == "" {
			seed = next.ID
		}
		next.Participants = rules.SeedByShuffle(next.Participants, seed)
	default:
		r := reject(state, validate.CodeInvalidCommand, "Unknown seeding method '%s'.", c.Method)
		return nil, &r
	}
	return next, nil
}

func selectParticipants(t *bracket.Tournament, ids []string) []bracket.Participant {
	if len(ids) == 0 {
		return t.Participants
	}
	var out []bracket.Participant
	for _, p := range t.Participants {
		if slices.Contains(ids, p.ID) {
			out = append(out, p)
		}
	}
	return out
}

// installStage replaces the stage and its matches and resolves byes for
// bracket stages that advance them automatically.
func installStage(next *bracket.Tournament, gen format.Generated, at time.Time) []bracket.Event {
	replaceStage(next, gen)
	return resolveByes(next, gen.Stage, at)
}

func resolveByes(next *bracket.Tournament, stage bracket.Stage, at time.Time) []bracket.Event {
	bs, ok := stage.(*bracket.BracketStage)
	if !ok || !bs.Settings.AutoAdvanceByes {
		return nil
	}
	return format.ResolveByes(next, bs, at)
}

func replaceStage(next *bracket.Tournament, gen format.Generated) {
	next.RemoveStageMatches(gen.Stage.StageID())
	next.ReplaceStage(gen.Stage)
	for _, m := range gen.Matches {
		if m.Status == "" {
			m.Status = bracket.MatchPending
		}
		next.Matches = append(next.Matches, m)
	}
}

func (e *Engine) generateStage(state *bracket.Tournament, c GenerateStage, at time.Time) (*bracket.Tournament, []bracket.Event, *Result) {
	plugin, ok := e.registry.Get(c.Format)
	if !ok {
		r := reject(state, validate.CodeUnknownStageFormat, "Unknown stage format '%s'.", c.Format)
		return nil, nil, &r
	}

	next := state.Clone()
	var options bracket.StageOptions
	if c.Options != nil {
		options = *c.Options
	}
	gen := plugin.GenerateStage(format.GenerateInput{
		StageID:      c.StageID,
		StageName:    c.StageName,
		Participants: selectParticipants(next, c.ParticipantIDs),
		Settings:     c.Settings,
		Options:      options,
		RNGSeed:      next.RNGSeed,
		At:           at,
	})
	events := installStage(next, gen, at)
	// The generated stage may share settings with the command payload.
	return next.Clone(), events, nil
}

func (e *Engine) setMatchStatus(state *bracket.Tournament, c SetMatchStatus, at time.Time) (*bracket.Tournament, []bracket.Event, *Result) {
	if state.Match(c.MatchID) == nil {
		r := reject(state, validate.CodeMatchNotFound, "Match '%s' not found.", c.MatchID)
		return nil, nil, &r
	}
	if !c.Status.Valid() {
		r := reject(state, validate.CodeInvalidCommand, "Unknown match status '%s'.", c.Status)
		return nil, nil, &r
	}

	next := state.Clone()
	m := next.Match(c.MatchID)
	m.Status = c.Status
	if c.Status == bracket.MatchInProgress && m.StartedAt == nil {
		m.StartedAt = &at
	}
	return next, []bracket.Event{bracket.MatchUpdated(c.MatchID, at)}, nil
}

func (e *Engine) recordMatchResult(state *bracket.Tournament, c RecordMatchResult, at time.Time) (*bracket.Tournament, []bracket.Event, *Result) {
	m := state.Match(c.MatchID)
	if m == nil {
		r := reject(state, validate.CodeMatchNotFound, "Match '%s' not found.", c.MatchID)
		return nil, nil, &r
	}
	plugin, ok := e.registry.Get(m.Format)
	if !ok {
		r := reject(state, validate.CodeMatchFormatUnavailable, "No plugin for match '%s'.", c.MatchID)
		return nil, nil, &r
	}
	if !c.Outcome.Valid() {
		r := reject(state, validate.CodeInvalidCommand, "Outcome for match '%s' is incomplete.", c.MatchID)
		return nil, nil, &r
	}

	next := state.Clone()
	var score *bracket.MatchScore
	if c.Score != nil {
		s := *c.Score
		s.Sets = slices.Clone(c.Score.Sets)
		score = &s
	}
	events := plugin.ProcessMatchResult(format.ResultInput{
		Tournament: next,
		MatchID:    c.MatchID,
		Score:      score,
		Outcome:    c.Outcome,
		At:         at,
	})

	if recorded := next.Match(c.MatchID); recorded != nil {
		if c.Sources != nil {
			src := *c.Sources
			recorded.Sources = &src
		}
		if c.Officiating != nil {
			off := *c.Officiating
			if c.Officiating.VerifiedAt != nil {
				v := *c.Officiating.VerifiedAt
				off.VerifiedAt = &v
			}
			recorded.Officiating = &off
		}
	}
	return next, events, nil
}

// stageOfMatch returns the stage listing matchID.
func stageOfMatch(t *bracket.Tournament, matchID string) bracket.Stage {
	for _, s := range t.Stages {
		if slices.Contains(s.StageMatchIDs(), matchID) {
			return s
		}
	}
	return nil
}

func (e *Engine) undoMatchResult(state *bracket.Tournament, c UndoMatchResult, at time.Time) (*bracket.Tournament, []bracket.Event, *Result) {
	if stageOfMatch(state, c.MatchID) == nil {
		r := reject(state, validate.CodeMatchStageNotFound, "Match '%s' is not in a stage.", c.MatchID)
		return nil, nil, &r
	}

	next := state.Clone()
	switch stage := stageOfMatch(next, c.MatchID).(type) {
	case *bracket.LadderStage:
		m := next.Match(c.MatchID)
		if m == nil {
			r := reject(state, validate.CodeMatchNotFound, "Match '%s' not found.", c.MatchID)
			return nil, nil, &r
		}
		m.Score, m.Outcome, m.CompletedAt = nil, nil, nil
		m.Status = bracket.MatchPending
		return next, []bracket.Event{bracket.MatchUpdated(c.MatchID, at)}, nil
	case *bracket.BracketStage:
		return next, format.CascadeUndo(next, stage, c.MatchID, at), nil
	}
	r := reject(state, validate.CodeMatchStageNotFound, "Match '%s' is not in a stage.", c.MatchID)
	return nil, nil, &r
}

// forceAdvance seats a participant without consulting the edges.
func (e *Engine) forceAdvance(state *bracket.Tournament, c ForceAdvance, at time.Time) (*bracket.Tournament, []bracket.Event, *Result) {
	if state.Match(c.ToMatchID) == nil {
		r := reject(state, validate.CodeMatchNotFound, "Match '%s' not found.", c.ToMatchID)
		return nil, nil, &r
	}
	if !c.ToSlot.Valid() {
		r := reject(state, validate.CodeInvalidCommand, "Unknown slot '%s'.", c.ToSlot)
		return nil, nil, &r
	}

	next := state.Clone()
	m := next.Match(c.ToMatchID)
	m.Participants[c.ToSlot.Index()] = c.ParticipantID
	m.Status = bracket.MatchPending
	return next, []bracket.Event{bracket.AdvancementApplied(c.FromMatchID, c.ToMatchID, at)}, nil
}

func regenerateKey(m bracket.Match) string {
	return fmt.Sprintf("%s|%d", m.RoundID, m.OrderKey)
}

func (e *Engine) regenerateStage(state *bracket.Tournament, c RegenerateStage, at time.Time) (*bracket.Tournament, []bracket.Event, *Result) {
	existing := state.Stage(c.StageID)
	if existing == nil {
		r := reject(state, validate.CodeStageNotFound, "Stage '%s' not found.", c.StageID)
		return nil, nil, &r
	}
	plugin, ok := e.registry.Get(existing.StageFormat())
	if !ok {
		r := reject(state, validate.CodeUnknownStageFormat, "Unknown stage format '%s'.", existing.StageFormat())
		return nil, nil, &r
	}

	next := state.Clone()
	existing = next.Stage(c.StageID)

	present := map[string]bool{}
	var oldMatches []bracket.Match
	for _, m := range next.Matches {
		if !slices.Contains(existing.StageMatchIDs(), m.ID) {
			continue
		}
		oldMatches = append(oldMatches, m)
		for _, id := range m.Participants.Real() {
			present[id] = true
		}
	}
	var options bracket.StageOptions
	switch s := existing.(type) {
	case *bracket.LadderStage:
		for _, st := range s.Standings {
			present[st.ParticipantID] = true
		}
		rulesCopy := s.Rules.Clone()
		options.Rules = &rulesCopy
	case *bracket.BracketStage:
		options.Rounds = len(s.Rounds)
	}
	var participants []bracket.Participant
	for _, p := range next.Participants {
		if present[p.ID] {
			participants = append(participants, p)
		}
	}

	gen := plugin.GenerateStage(format.GenerateInput{
		StageID:      existing.StageID(),
		StageName:    existing.StageName(),
		Participants: participants,
		Settings:     existing.StageSettings(),
		Options:      options,
		RNGSeed:      next.RNGSeed,
		At:           at,
	})

	var preserved []string
	if c.PreserveResults {
		old := make(map[string]bracket.Match, len(oldMatches))
		for _, m := range oldMatches {
			old[regenerateKey(m)] = m
		}
		for i := range gen.Matches {
			m := &gen.Matches[i]
			prev, ok := old[regenerateKey(*m)]
			if !ok || prev.Status != bracket.MatchCompleted {
				continue
			}
			m.Score, m.Outcome, m.Status, m.CompletedAt = prev.Score, prev.Outcome, prev.Status, prev.CompletedAt
			preserved = append(preserved, m.ID)
		}
	}

	// Preserved winners are seated before byes resolve so that their
	// targets are not mistaken for dead slots.
	replaceStage(next, gen)
	var events []bracket.Event
	if bs, ok := gen.Stage.(*bracket.BracketStage); ok {
		for _, id := range preserved {
			m := next.Match(id)
			switch {
			case m.Outcome.Kind != bracket.OutcomeWinner:
			case m.Participants.Contains(m.Outcome.WinnerID):
				events = append(events, format.Seat(next, bs, id, at)...)
			default:
				m.ClearResult()
			}
		}
	}
	events = append(events, resolveByes(next, gen.Stage, at)...)
	return next.Clone(), events, nil
}

// challengeMatchID derives the id of a new challenge match from the state
// counters, skipping ids already taken.
func challengeMatchID(t *bracket.Tournament) string {
	for n := serial(t); ; n++ {
		id := fmt.Sprintf("ladder_match_%d", n)
		if t.Match(id) == nil {
			return id
		}
	}
}

func (e *Engine) ladderChallenge(state *bracket.Tournament, c LadderChallenge, at time.Time) (*bracket.Tournament, []bracket.Event, *Result) {
	ladder := state.FirstLadder()
	if ladder == nil {
		r := reject(state, validate.CodeLadderStageNotFound, "No ladder stage available for challenge command.")
		return nil, nil, &r
	}
	challenger := ladder.Standing(c.ChallengerID)
	challenged := ladder.Standing(c.ChallengedID)
	if challenger == nil || challenged == nil {
		r := reject(state, validate.CodeLadderParticipantNotFound, "Challenge participants must exist in ladder standings.")
		return nil, nil, &r
	}
	if !rules.WithinChallengeWindow(ladder.Rules, challenger.Rank, challenged.Rank) {
		r := reject(state, validate.CodeLadderChallengeWindow, "Challenge violates ladder challenge window rules.")
		return nil, nil, &r
	}
	if rules.OnCooldown(ladder.Rules, challenger.LastMatchAt, at) {
		r := reject(state, validate.CodeLadderCooldown, "Challenger is still on cooldown.")
		return nil, nil, &r
	}

	next := state.Clone()
	ladder = next.LadderStage(ladder.ID)
	m := bracket.Match{
		ID:           challengeMatchID(next),
		Format:       bracket.Ladder,
		StageID:      ladder.ID,
		BracketSide:  bracket.LadderSide,
		OrderKey:     len(ladder.MatchIDs),
		Participants: bracket.SlotPair{c.ChallengerID, c.ChallengedID},
		Status:       bracket.MatchPending,
	}
	if c.ScheduledAt != nil {
		scheduled := c.ScheduledAt.UTC()
		m.ScheduledAt = &scheduled
		m.Status = bracket.MatchScheduled
	}
	next.Matches = append(next.Matches, m)
	ladder.MatchIDs = append(ladder.MatchIDs, m.ID)
	return next, []bracket.Event{bracket.MatchUpdated(m.ID, at)}, nil
}

func (e *Engine) applyDecay(state *bracket.Tournament, c ApplyDecay, at time.Time) (*bracket.Tournament, []bracket.Event, *Result) {
	if state.LadderStage(c.StageID) == nil {
		r := reject(state, validate.CodeLadderStageNotFound, "Ladder stage '%s' not found.", c.StageID)
		return nil, nil, &r
	}
	decayAt := c.At.UTC()
	if c.At.IsZero() {
		decayAt = at
	}

	next := state.Clone()
	ladder := next.LadderStage(c.StageID)
	if ladder.LastDecayAt != nil && ladder.LastDecayAt.Equal(decayAt) {
		return next, nil, nil
	}
	if !rules.ApplyDecay(ladder.Standings, ladder.Rules.Decay, decayAt) {
		return next, nil, nil
	}
	ladder.LastDecayAt = &decayAt
	return next, []bracket.Event{bracket.StandingsUpdated(ladder.ID, at)}, nil
}
