package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"github.com/AdamBeresnev/bracket-engine/internal/snapshot"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
)

var (
	ErrNotFound        = errors.New("tournament not found")
	ErrVersionConflict = errors.New("tournament version conflict")
)

// TournamentSummary is the listing row of a stored tournament.
type TournamentSummary struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Version   int       `db:"version" json:"version"`
	Locked    bool      `db:"locked" json:"locked"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

type tournamentRow struct {
	TournamentSummary
	SchemaVersion int    `db:"schema_version"`
	Snapshot      []byte `db:"snapshot"`
}

// AuditRow is one persisted audit entry.
type AuditRow struct {
	ID           string         `db:"id" json:"id"`
	TournamentID string         `db:"tournament_id" json:"tournamentId"`
	Seq          int            `db:"seq" json:"seq"`
	At           time.Time      `db:"at" json:"at"`
	ActorID      sql.NullString `db:"actor_id" json:"-"`
	ActorName    sql.NullString `db:"actor_name" json:"-"`
	ActorRole    sql.NullString `db:"actor_role" json:"-"`
	CommandType  string         `db:"command_type" json:"commandType"`
	Summary      string         `db:"summary" json:"summary"`
	Payload      sql.NullString `db:"payload" json:"-"`
}

// SnapshotStore keeps the latest snapshot of every tournament plus an
// append-only copy of its audit log.
type SnapshotStore struct {
	db *sqlx.DB
}

func NewSnapshotStore(db *sqlx.DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

// Save writes state if the stored version still equals previousVersion.
// A previousVersion of 0 creates the tournament. Audit entries not yet
// stored are appended in the same transaction.
func (s *SnapshotStore) Save(ctx context.Context, state *bracket.Tournament, previousVersion int) error {
	data, err := snapshot.Encode(state)
	if err != nil {
		return err
	}
	row := tournamentRow{
		TournamentSummary: TournamentSummary{
			ID:        state.ID,
			Name:      state.Name,
			Version:   state.Version,
			Locked:    state.Locked,
			CreatedAt: state.CreatedAt,
			UpdatedAt: state.UpdatedAt,
		},
		SchemaVersion: state.SchemaVersion,
		Snapshot:      data,
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if previousVersion == 0 {
		err = s.insert(ctx, tx, row)
	} else {
		err = s.update(ctx, tx, row, previousVersion)
	}
	if err != nil {
		return err
	}

	if err := s.appendAudit(ctx, tx, state); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SnapshotStore) insert(ctx context.Context, tx *sqlx.Tx, row tournamentRow) error {
	_, err := tx.NamedExecContext(ctx, `INSERT INTO tournaments (id, name, version, locked, schema_version, snapshot, created_at, updated_at)
		VALUES (:id, :name, :version, :locked, :schema_version, :snapshot, :created_at, :updated_at)`, row)
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return fmt.Errorf("%w: %s already exists", ErrVersionConflict, row.ID)
	}
	return err
}

func (s *SnapshotStore) update(ctx context.Context, tx *sqlx.Tx, row tournamentRow, previousVersion int) error {
	res, err := tx.ExecContext(ctx, `UPDATE tournaments
		SET name = ?, version = ?, locked = ?, schema_version = ?, snapshot = ?, updated_at = ?
		WHERE id = ? AND version = ?`,
		row.Name, row.Version, row.Locked, row.SchemaVersion, row.Snapshot, row.UpdatedAt, row.ID, previousVersion)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	var current int
	err = tx.GetContext(ctx, &current, "SELECT version FROM tournaments WHERE id = ?", row.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNotFound, row.ID)
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s is at version %d, expected %d", ErrVersionConflict, row.ID, current, previousVersion)
}

func (s *SnapshotStore) appendAudit(ctx context.Context, tx *sqlx.Tx, state *bracket.Tournament) error {
	var stored int
	if err := tx.GetContext(ctx, &stored, "SELECT COUNT(*) FROM audit_entries WHERE tournament_id = ?", state.ID); err != nil {
		return err
	}
	if stored >= len(state.Audit) {
		return nil
	}

	rows := make([]AuditRow, 0, len(state.Audit)-stored)
	for i, entry := range state.Audit[stored:] {
		row := AuditRow{
			ID:           entry.ID,
			TournamentID: state.ID,
			Seq:          stored + i + 1,
			At:           entry.At,
			CommandType:  entry.CommandType,
			Summary:      entry.Summary,
			Payload:      sql.NullString{String: string(entry.Payload), Valid: len(entry.Payload) > 0},
		}
		if a := entry.Actor; a != nil {
			row.ActorID = sql.NullString{String: a.ID, Valid: a.ID != ""}
			row.ActorName = sql.NullString{String: a.Name, Valid: a.Name != ""}
			row.ActorRole = sql.NullString{String: string(a.Role), Valid: a.Role != ""}
		}
		rows = append(rows, row)
	}
	_, err := tx.NamedExecContext(ctx, `INSERT INTO audit_entries (id, tournament_id, seq, at, actor_id, actor_name, actor_role, command_type, summary, payload)
		VALUES (:id, :tournament_id, :seq, :at, :actor_id, :actor_name, :actor_role, :command_type, :summary, :payload)`, rows)
	return err
}

func (s *SnapshotStore) Load(ctx context.Context, id string) (*bracket.Tournament, error) {
	var data []byte
	err := s.db.GetContext(ctx, &data, "SELECT snapshot FROM tournaments WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return snapshot.Decode(data)
}

func (s *SnapshotStore) List(ctx context.Context) ([]TournamentSummary, error) {
	tournaments := []TournamentSummary{}
	err := s.db.SelectContext(ctx, &tournaments, "SELECT id, name, version, locked, created_at, updated_at FROM tournaments ORDER BY created_at DESC, id ASC")
	return tournaments, err
}

// ListIDs returns the ids of every stored tournament.
func (s *SnapshotStore) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.SelectContext(ctx, &ids, "SELECT id FROM tournaments ORDER BY id ASC")
	return ids, err
}

// Audit returns the newest entries first. A limit of 0 returns everything.
func (s *SnapshotStore) Audit(ctx context.Context, tournamentID string, limit int) ([]AuditRow, error) {
	query := "SELECT * FROM audit_entries WHERE tournament_id = ? ORDER BY seq DESC"
	args := []any{tournamentID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows := []AuditRow{}
	err := s.db.SelectContext(ctx, &rows, query, args...)
	return rows, err
}

func (s *SnapshotStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM tournaments WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
