package snapshot

import (
	"testing"
	"time"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() *bracket.Tournament {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	t := bracket.NewTournament("t1", "Spring Open", at)
	t.Version = 3
	t.Participants = []bracket.Participant{{ID: "p1", Name: "Ann", Type: bracket.PlayerParticipant}}
	t.Stages = []bracket.Stage{&bracket.LadderStage{
		ID:        "ladder",
		Name:      "Ladder",
		Format:    bracket.Ladder,
		Standings: []bracket.Standing{{ParticipantID: "p1", Rank: 1}},
		MatchIDs:  []string{},
	}}
	return t
}

func TestRoundTrip(t *testing.T) {
	state := sample()

	data, err := Encode(state)
	require.NoError(t, err)
	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, state, decoded)
}

func TestDecodeMigratesLegacyDocuments(t *testing.T) {
	legacy := `{"id":"t1","name":"Old","version":2,"createdAt":"2024-01-01T00:00:00Z","updatedAt":"2024-01-01T00:00:00Z","participants":[],"stages":[],"matches":[],"audit":[],"locked":false}`

	decoded, err := Decode([]byte(legacy))
	require.NoError(t, err)
	assert.Equal(t, bracket.SchemaVersion, decoded.SchemaVersion)
	assert.Equal(t, "Old", decoded.Name)
	assert.Equal(t, 2, decoded.Version)
}

func TestDecodeRejectsFutureSchema(t *testing.T) {
	_, err := Decode([]byte(`{"id":"t1","stateSchemaVersion":99}`))
	assert.ErrorIs(t, err, ErrFutureSchema)
}

func TestDecodeInvalidJSON(t *testing.T) {
	_, err := Decode([]byte(`{"id":`))
	assert.Error(t, err)
}

func TestMigrateRunsInOrder(t *testing.T) {
	saved := Migrations
	t.Cleanup(func() { Migrations = saved })

	var order []int
	Migrations = []Migration{
		{From: 1, Migrate: func(doc Document) error { order = append(order, 1); return nil }},
		{From: 0, Migrate: func(doc Document) error { order = append(order, 0); return nil }},
	}

	require.NoError(t, Migrate(Document{}, 0, 2))
	assert.Equal(t, []int{0, 1}, order)
}
