// Package realtime fans committed tournament events out to observers.
// Delivery is best effort: a failed broadcast never affects committed state.
package realtime

import (
	"context"
	"errors"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
)

var ErrNotConnected = errors.New("realtime adapter is not connected")

// Message is one domain event tagged with the tournament and the version
// that produced it.
type Message struct {
	TournamentID string        `json:"tournamentId"`
	Version      int           `json:"version"`
	Event        bracket.Event `json:"event"`
}

type Adapter interface {
	Connect(ctx context.Context) error
	Disconnect() error
	OnEvent(fn func(Message))
	Broadcast(ctx context.Context, msg Message) error
}

// Messages wraps events produced by one committed command.
func Messages(tournamentID string, version int, events []bracket.Event) []Message {
	out := make([]Message, len(events))
	for i, ev := range events {
		out[i] = Message{TournamentID: tournamentID, Version: version, Event: ev}
	}
	return out
}
