package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"github.com/AdamBeresnev/bracket-engine/internal/rules"
)

type CommandType string

const (
	CmdInitTournament    CommandType = "INIT_TOURNAMENT"
	CmdAddParticipants   CommandType = "ADD_PARTICIPANTS"
	CmdRemoveParticipant CommandType = "REMOVE_PARTICIPANT"
	CmdSeedParticipants  CommandType = "SEED_PARTICIPANTS"
	CmdGenerateStage     CommandType = "GENERATE_STAGE"
	CmdSetMatchStatus    CommandType = "SET_MATCH_STATUS"
	CmdRecordMatchResult CommandType = "RECORD_MATCH_RESULT"
	CmdUndoMatchResult   CommandType = "UNDO_MATCH_RESULT"
	CmdForceAdvance      CommandType = "FORCE_ADVANCE"
	CmdLockTournament    CommandType = "LOCK_TOURNAMENT"
	CmdRegenerateStage   CommandType = "REGENERATE_STAGE"
	CmdLadderChallenge   CommandType = "LADDER_CHALLENGE"
	CmdApplyDecay        CommandType = "APPLY_DECAY"
)

// Command is one of the payload types below.
type Command interface {
	Type() CommandType
}

type InitTournament struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	RNGSeed  string          `json:"rngSeed,omitempty"`
	Settings json.RawMessage `json:"settings,omitempty"`
}

type AddParticipants struct {
	Participants []bracket.Participant `json:"participants"`
}

type RemoveParticipant struct {
	ParticipantID string `json:"participantId"`
}

type SeedParticipants struct {
	Method  rules.SeedMethod `json:"method"`
	SeedMap map[string]int   `json:"seedMap,omitempty"`
}

type GenerateStage struct {
	StageID        string                `json:"stageId"`
	StageName      string                `json:"stageName"`
	Format         bracket.Format        `json:"format"`
	ParticipantIDs []string              `json:"participantIds,omitempty"`
	Settings       bracket.StageSettings `json:"settings"`
	Options        *bracket.StageOptions `json:"options,omitempty"`
}

type SetMatchStatus struct {
	MatchID string              `json:"matchId"`
	Status  bracket.MatchStatus `json:"status"`
}

type RecordMatchResult struct {
	MatchID string              `json:"matchId"`
	Score   *bracket.MatchScore `json:"score,omitempty"`
	Outcome bracket.Outcome     `json:"outcome"`

	// Replace the match's links and officiating record when set
	Sources     *bracket.MatchSources `json:"sources,omitempty"`
	Officiating *bracket.Officiating  `json:"officiating,omitempty"`
}

type UndoMatchResult struct {
	MatchID string `json:"matchId"`
	Reason  string `json:"reason,omitempty"`
}

type ForceAdvance struct {
	FromMatchID   string       `json:"fromMatchId"`
	ParticipantID string       `json:"participantId"`
	ToMatchID     string       `json:"toMatchId"`
	ToSlot        bracket.Slot `json:"toSlot"`
	Reason        string       `json:"reason,omitempty"`
}

type LockTournament struct {
	Locked bool `json:"locked"`
}

type RegenerateStage struct {
	StageID         string `json:"stageId"`
	PreserveResults bool   `json:"preserveResults,omitempty"`
}

type LadderChallenge struct {
	ChallengerID string     `json:"challengerId"`
	ChallengedID string     `json:"challengedId"`
	ScheduledAt  *time.Time `json:"scheduledAt,omitempty"`
}

type ApplyDecay struct {
	StageID string    `json:"stageId"`
	At      time.Time `json:"at"`
}

func (InitTournament) Type() CommandType    { return CmdInitTournament }
func (AddParticipants) Type() CommandType   { return CmdAddParticipants }
func (RemoveParticipant) Type() CommandType { return CmdRemoveParticipant }
func (SeedParticipants) Type() CommandType  { return CmdSeedParticipants }
func (GenerateStage) Type() CommandType     { return CmdGenerateStage }
func (SetMatchStatus) Type() CommandType    { return CmdSetMatchStatus }
func (RecordMatchResult) Type() CommandType { return CmdRecordMatchResult }
func (UndoMatchResult) Type() CommandType   { return CmdUndoMatchResult }
func (ForceAdvance) Type() CommandType      { return CmdForceAdvance }
func (LockTournament) Type() CommandType    { return CmdLockTournament }
func (RegenerateStage) Type() CommandType   { return CmdRegenerateStage }
func (LadderChallenge) Type() CommandType   { return CmdLadderChallenge }
func (ApplyDecay) Type() CommandType        { return CmdApplyDecay }

var ErrUnknownCommand = errors.New("unknown command type")

// Envelope is the wire form of a command.
type Envelope struct {
	Type    CommandType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func EncodeCommand(cmd Command) ([]byte, error) {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", cmd.Type(), err)
	}
	return json.Marshal(Envelope{Type: cmd.Type(), Payload: payload})
}

func DecodeCommand(data []byte) (Command, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode command envelope: %w", err)
	}
	return env.Command()
}

// Command decodes the payload into the type named by the envelope.
func (env Envelope) Command() (Command, error) {
	var cmd Command
	switch env.Type {
	case CmdInitTournament:
		cmd = &InitTournament{}
	case CmdAddParticipants:
		cmd = &AddParticipants{}
	case CmdRemoveParticipant:
		cmd = &RemoveParticipant{}
	case CmdSeedParticipants:
		cmd = &SeedParticipants{}
	case CmdGenerateStage:
		cmd = &GenerateStage{}
	case CmdSetMatchStatus:
		cmd = &SetMatchStatus{}
	case CmdRecordMatchResult:
		cmd = &RecordMatchResult{}
	case CmdUndoMatchResult:
		cmd = &UndoMatchResult{}
	case CmdForceAdvance:
		cmd = &ForceAdvance{}
	case CmdLockTournament:
		cmd = &LockTournament{}
	case CmdRegenerateStage:
		cmd = &RegenerateStage{}
	case CmdLadderChallenge:
		cmd = &LadderChallenge{}
	case CmdApplyDecay:
		cmd = &ApplyDecay{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, env.Type)
	}

	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, cmd); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", env.Type, err)
		}
	}
	return deref(cmd), nil
}

// deref turns the decoding pointer back into the value form used everywhere else.
func deref(cmd Command) Command {
	switch c := cmd.(type) {
	case *InitTournament:
		return *c
	case *AddParticipants:
		return *c
	case *RemoveParticipant:
		return *c
	case *SeedParticipants:
		return *c
	case *GenerateStage:
		return *c
	case *SetMatchStatus:
		return *c
	case *RecordMatchResult:
		return *c
	case *UndoMatchResult:
		return *c
	case *ForceAdvance:
		return *c
	case *LockTournament:
		return *c
	case *RegenerateStage:
		return *c
	case *LadderChallenge:
		return *c
	case *ApplyDecay:
		return *c
	}
	return cmd
}

func auditSummary(cmd Command) string {
	switch c := cmd.(type) {
	case InitTournament:
		return fmt.Sprintf("Initialized tournament '%s'", c.Name)
	case AddParticipants:
		return fmt.Sprintf("Added %d participant(s)", len(c.Participants))
	case RemoveParticipant:
		return fmt.Sprintf("Removed participant '%s'", c.ParticipantID)
	case SeedParticipants:
		return fmt.Sprintf("Applied %s seeding", c.Method)
	case GenerateStage:
		return fmt.Sprintf("Generated stage '%s' (%s)", c.StageName, c.Format)
	case SetMatchStatus:
		return fmt.Sprintf("Set match '%s' to %s", c.MatchID, c.Status)
	case RecordMatchResult:
		return fmt.Sprintf("Recorded result for match '%s'", c.MatchID)
	case UndoMatchResult:
		return fmt.Sprintf("Undid result for match '%s'", c.MatchID)
	case ForceAdvance:
		return fmt.Sprintf("Force advanced participant '%s'", c.ParticipantID)
	case LockTournament:
		if c.Locked {
			return "Locked tournament"
		}
		return "Unlocked tournament"
	case RegenerateStage:
		return fmt.Sprintf("Regenerated stage '%s'", c.StageID)
	case LadderChallenge:
		return fmt.Sprintf("Created challenge '%s' vs '%s'", c.ChallengerID, c.ChallengedID)
	case ApplyDecay:
		return fmt.Sprintf("Applied decay to stage '%s'", c.StageID)
	}
	return "Unknown command"
}
