package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AdamBeresnev/bracket-engine/internal/db"
	"github.com/AdamBeresnev/bracket-engine/internal/replay"
	"github.com/AdamBeresnev/bracket-engine/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const script = "../../internal/replay/testdata/single_elimination.yaml"

func TestRunPrintsReport(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(script, false, false, "", &out))

	var report replay.Report
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	require.NotNil(t, report.State)
	assert.True(t, report.State.Locked)
	assert.Len(t, report.Steps, 6)
}

func TestRunStrictStopsAtRejection(t *testing.T) {
	var out bytes.Buffer
	err := run(script, true, false, "", &out)
	require.ErrorIs(t, err, replay.ErrRejected)

	var report replay.Report
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Len(t, report.Steps, 5)
}

func TestRunSummaryAndSave(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "replay.db")
	var out bytes.Buffer
	require.NoError(t, run(script, false, true, dbPath, &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, lines[0], "Locked tournament")

	database, err := db.Open(dbPath)
	require.NoError(t, err)
	defer database.Close()
	list, err := store.NewSnapshotStore(database).List(t.Context())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 5, list[0].Version)
}
