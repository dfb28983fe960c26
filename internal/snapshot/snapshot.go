package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
)

var ErrFutureSchema = errors.New("snapshot schema is newer than supported")

// Document is a decoded snapshot before it is bound to the typed model.
type Document map[string]any

// Migration upgrades a document from schema version From to From+1.
type Migration struct {
	From    int
	Migrate func(Document) error
}

// Migrations run in order. Documents written before the schema field existed
// are treated as version 0.
var Migrations = []Migration{
	{From: 0, Migrate: func(doc Document) error {
		doc[schemaField] = 1
		return nil
	}},
}

const schemaField = "stateSchemaVersion"

func Encode(t *bracket.Tournament) ([]byte, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// Decode parses a snapshot, migrating it to the current schema first.
func Decode(data []byte) (*bracket.Tournament, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	from := SchemaVersion(doc)
	if from > bracket.SchemaVersion {
		return nil, fmt.Errorf("%w: version %d, latest %d", ErrFutureSchema, from, bracket.SchemaVersion)
	}

	if from < bracket.SchemaVersion {
		if err := Migrate(doc, from, bracket.SchemaVersion); err != nil {
			return nil, err
		}
		var err error
		if data, err = json.Marshal(doc); err != nil {
			return nil, fmt.Errorf("re-encode migrated snapshot: %w", err)
		}
	}

	var t bracket.Tournament
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &t, nil
}

// SchemaVersion reads the schema version of doc, 0 when absent.
func SchemaVersion(doc Document) int {
	v, ok := doc[schemaField].(float64)
	if !ok {
		return 0
	}
	return int(v)
}

// Migrate applies every migration between from and to in order.
func Migrate(doc Document, from, to int) error {
	for version := from; version < to; version++ {
		for _, m := range Migrations {
			if m.From != version {
				continue
			}
			if err := m.Migrate(doc); err != nil {
				return fmt.Errorf("migrate snapshot from version %d: %w", version, err)
			}
		}
	}
	return nil
}
