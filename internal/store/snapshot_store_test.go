package store

import (
	"context"
	"testing"
	"time"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"github.com/AdamBeresnev/bracket-engine/internal/db"
	"github.com/AdamBeresnev/bracket-engine/internal/engine"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

// setupTestDB creates an in-memory SQLite database and applies migrations
func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	database, err := db.Open("file::memory:")
	require.NoError(t, err, "Failed to connect to in-memory DB")
	t.Cleanup(func() { database.Close() })

	require.NoError(t, db.RunMigrations(database), "Failed to apply migrations")
	return database
}

// tournament builds a state with n committed commands.
func tournament(t *testing.T, id string, commands ...engine.Command) *bracket.Tournament {
	t.Helper()
	e := engine.New(nil)
	actor := &bracket.Actor{ID: "u1", Name: "Alice", Role: bracket.RoleAdmin}
	res := e.Apply(nil, engine.InitTournament{ID: id, Name: "Spring Open"}, testNow, actor)
	require.NoError(t, res.Err())
	state := res.State
	for _, cmd := range commands {
		res = e.Apply(state, cmd, testNow, actor)
		require.NoError(t, res.Err())
		state = res.State
	}
	return state
}

func TestSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	store := NewSnapshotStore(setupTestDB(t))

	state := tournament(t, "t1", engine.AddParticipants{Participants: []bracket.Participant{{ID: "p1", Name: "Ann"}, {ID: "p2", Name: "Ben"}}})
	require.NoError(t, store.Save(ctx, state, 0))

	loaded, err := store.Load(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, state, loaded)

	_, err = store.Load(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveVersionCheck(t *testing.T) {
	ctx := context.Background()
	store := NewSnapshotStore(setupTestDB(t))

	v1 := tournament(t, "t1")
	require.NoError(t, store.Save(ctx, v1, 0))
	assert.ErrorIs(t, store.Save(ctx, v1, 0), ErrVersionConflict)

	v2 := tournament(t, "t1", engine.LockTournament{Locked: true})
	require.NoError(t, store.Save(ctx, v2, 1))
	assert.ErrorIs(t, store.Save(ctx, v2, 1), ErrVersionConflict)

	assert.ErrorIs(t, store.Save(ctx, tournament(t, "ghost", engine.LockTournament{Locked: true}), 1), ErrNotFound)

	loaded, err := store.Load(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Version)
	assert.True(t, loaded.Locked)
}

func TestAuditIsAppendOnly(t *testing.T) {
	ctx := context.Background()
	store := NewSnapshotStore(setupTestDB(t))

	v1 := tournament(t, "t1")
	require.NoError(t, store.Save(ctx, v1, 0))
	v3 := tournament(t, "t1", engine.LockTournament{Locked: true}, engine.LockTournament{Locked: false})
	require.NoError(t, store.Save(ctx, v3, 1))

	rows, err := store.Audit(ctx, "t1", 0)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, 3, rows[0].Seq)
	assert.Equal(t, "Unlocked tournament", rows[0].Summary)
	assert.Equal(t, "INIT_TOURNAMENT", rows[2].CommandType)
	assert.Equal(t, "Alice", rows[2].ActorName.String)
	assert.Equal(t, "admin", rows[2].ActorRole.String)
	assert.True(t, rows[2].Payload.Valid)

	limited, err := store.Audit(ctx, "t1", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestListAndDelete(t *testing.T) {
	ctx := context.Background()
	store := NewSnapshotStore(setupTestDB(t))

	require.NoError(t, store.Save(ctx, tournament(t, "t1"), 0))
	require.NoError(t, store.Save(ctx, tournament(t, "t2"), 0))

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "t1", list[0].ID)
	assert.Equal(t, "Spring Open", list[0].Name)
	assert.Equal(t, 1, list[0].Version)

	ids, err := store.ListIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "t2"}, ids)

	require.NoError(t, store.Delete(ctx, "t1"))
	assert.ErrorIs(t, store.Delete(ctx, "t1"), ErrNotFound)

	rows, err := store.Audit(ctx, "t1", 0)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
