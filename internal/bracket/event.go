package bracket

import "time"

type EventType string

const (
	EventMatchUpdated       EventType = "MATCH_UPDATED"
	EventMatchCompleted     EventType = "MATCH_COMPLETED"
	EventAdvancementApplied EventType = "ADVANCEMENT_APPLIED"
	EventStandingsUpdated   EventType = "STANDINGS_UPDATED"
	EventTournamentLocked   EventType = "TOURNAMENT_LOCKED"
)

// Event is a fact emitted by a transition. Only the fields relevant to Type are set.
type Event struct {
	Type        EventType `json:"type"`
	MatchID     string    `json:"matchId,omitempty"`
	FromMatchID string    `json:"fromMatchId,omitempty"`
	ToMatchID   string    `json:"toMatchId,omitempty"`
	StageID     string    `json:"stageId,omitempty"`
	Locked      *bool     `json:"locked,omitempty"`
	At          time.Time `json:"at"`
}

func MatchUpdated(matchID string, at time.Time) Event {
	return Event{Type: EventMatchUpdated, MatchID: matchID, At: at}
}

func MatchCompleted(matchID string, at time.Time) Event {
	return Event{Type: EventMatchCompleted, MatchID: matchID, At: at}
}

func AdvancementApplied(fromMatchID, toMatchID string, at time.Time) Event {
	return Event{Type: EventAdvancementApplied, FromMatchID: fromMatchID, ToMatchID: toMatchID, At: at}
}

func StandingsUpdated(stageID string, at time.Time) Event {
	return Event{Type: EventStandingsUpdated, StageID: stageID, At: at}
}

func TournamentLocked(locked bool, at time.Time) Event {
	return Event{Type: EventTournamentLocked, Locked: &locked, At: at}
}
