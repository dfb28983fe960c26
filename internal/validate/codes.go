package validate

// Code is a machine-readable issue code.
type Code string

const (
	// Command rejections
	CodeTournamentLocked          Code = "TOURNAMENT_LOCKED"
	CodeInvalidCommand            Code = "INVALID_COMMAND"
	CodeUnknownStageFormat        Code = "UNKNOWN_STAGE_FORMAT"
	CodeStageNotFound             Code = "STAGE_NOT_FOUND"
	CodeMatchNotFound             Code = "MATCH_NOT_FOUND"
	CodeMatchFormatUnavailable    Code = "MATCH_FORMAT_UNAVAILABLE"
	CodeMatchStageNotFound        Code = "MATCH_STAGE_NOT_FOUND"
	CodeLadderStageNotFound       Code = "LADDER_STAGE_NOT_FOUND"
	CodeLadderParticipantNotFound Code = "LADDER_PARTICIPANT_NOT_FOUND"
	CodeLadderChallengeWindow     Code = "LADDER_CHALLENGE_WINDOW"
	CodeLadderCooldown            Code = "LADDER_COOLDOWN"

	// Structural issues
	CodeDuplicateID                  Code = "DUPLICATE_ID"
	CodeMatchParticipantMissing      Code = "MATCH_PARTICIPANT_MISSING"
	CodeMatchCompletedWithoutOutcome Code = "MATCH_COMPLETED_WITHOUT_OUTCOME"
	CodeUnknownMatchFormat           Code = "UNKNOWN_MATCH_FORMAT"
	CodeStageMatchReferenceMissing   Code = "STAGE_MATCH_REFERENCE_MISSING"
	CodeEdgeMatchReferenceMissing    Code = "EDGE_MATCH_REFERENCE_MISSING"
	CodeEdgeCycle                    Code = "EDGE_CYCLE"
	CodeEdgeSlotConflict             Code = "EDGE_SLOT_CONFLICT"
	CodeStageMatchNotInRound         Code = "STAGE_MATCH_NOT_IN_ROUND"
	CodeLadderParticipantMissing     Code = "LADDER_PARTICIPANT_MISSING"
	CodeLadderDuplicateStanding      Code = "LADDER_DUPLICATE_STANDING"
	CodeLadderMatchReferenceMissing  Code = "LADDER_MATCH_REFERENCE_MISSING"
	CodeLadderRankInvalid            Code = "LADDER_RANK_INVALID"
)

// IsReference reports whether c names an unknown id.
func (c Code) IsReference() bool {
	switch c {
	case CodeUnknownStageFormat, CodeStageNotFound, CodeMatchNotFound, CodeMatchFormatUnavailable,
		CodeMatchStageNotFound, CodeLadderStageNotFound, CodeLadderParticipantNotFound:
		return true
	}
	return false
}

// IsBusinessRule reports whether c is a ladder rule violation.
func (c Code) IsBusinessRule() bool {
	return c == CodeLadderChallengeWindow || c == CodeLadderCooldown
}
