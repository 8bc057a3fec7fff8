// Package history keeps a Postgres log of retrain attempts: when, which file,
// how many records, and the resulting report. Training records themselves are
// never stored.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/JonMunkholm/textclass/internal/core"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS training_runs (
    id           UUID PRIMARY KEY,
    file_name    TEXT NOT NULL,
    format       TEXT NOT NULL DEFAULT '',
    row_count    INTEGER NOT NULL DEFAULT 0,
    record_count INTEGER NOT NULL DEFAULT 0,
    f1_macro     DOUBLE PRECISION,
    report       JSONB,
    error        TEXT,
    started_at   TIMESTAMPTZ NOT NULL,
    duration_ms  BIGINT NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS training_runs_started_at_idx ON training_runs (started_at DESC);
`

const insertRunSQL = `
INSERT INTO training_runs (id, file_name, format, row_count, record_count, f1_macro, report, error, started_at, duration_ms)
VALUES ($1, $2, $3, $4, $5, $6, $7::text::jsonb, $8, $9, $10)`

const recentRunsSQL = `
SELECT id, file_name, format, row_count, record_count, report, error, started_at, duration_ms
FROM training_runs
ORDER BY started_at DESC
LIMIT $1`

const purgeRunsSQL = `DELETE FROM training_runs WHERE started_at < $1`

// MaxRecentRuns caps the limit accepted by Recent.
const MaxRecentRuns = 200

// Store reads and writes training runs.
type Store struct {
	db  DBTX
	now func() time.Time
}

// NewStore creates a Store on db.
func NewStore(db DBTX) *Store {
	return &Store{db: db, now: time.Now}
}

// EnsureSchema creates the training_runs table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create training_runs: %w", err)
	}
	return nil
}

// RecordRun inserts one run. It satisfies core.RunRecorder.
func (s *Store) RecordRun(ctx context.Context, run core.TrainingRun) error {
	report, err := reportJSON(run.Report)
	if err != nil {
		return err
	}

	var f1 *float64
	if run.Report != nil {
		f1 = run.Report.F1Macro
	}

	_, err = s.db.Exec(ctx, insertRunSQL,
		toPgUUID(run.ID),
		run.FileName,
		string(run.Format),
		run.Rows,
		run.Records,
		toPgFloat8(f1),
		report,
		toPgText(run.Error),
		run.StartedAt,
		run.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("insert training run %s: %w", run.ID, err)
	}
	return nil
}

// Recent returns the newest runs first. limit is clamped to 1..MaxRecentRuns.
func (s *Store) Recent(ctx context.Context, limit int) ([]core.TrainingRun, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > MaxRecentRuns {
		limit = MaxRecentRuns
	}

	rows, err := s.db.Query(ctx, recentRunsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("query training runs: %w", err)
	}
	defer rows.Close()

	runs := make([]core.TrainingRun, 0, limit)
	for rows.Next() {
		var (
			id      pgtype.UUID
			format  string
			report  []byte
			errText pgtype.Text
			run     core.TrainingRun
		)
		if err := rows.Scan(&id, &run.FileName, &format, &run.Rows, &run.Records,
			&report, &errText, &run.StartedAt, &run.DurationMs); err != nil {
			return nil, fmt.Errorf("scan training run: %w", err)
		}
		run.ID = uuidToString(id)
		run.Format = core.FileFormat(format)
		run.Error = errText.String
		if len(report) > 0 {
			var rep core.TrainingReport
			if err := json.Unmarshal(report, &rep); err != nil {
				return nil, fmt.Errorf("decode report for run %s: %w", run.ID, err)
			}
			run.Report = &rep
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate training runs: %w", err)
	}
	return runs, nil
}

// PurgeOlderThan deletes runs started more than days ago.
func (s *Store) PurgeOlderThan(ctx context.Context, days int) (int64, error) {
	cutoff := s.now().AddDate(0, 0, -days)
	tag, err := s.db.Exec(ctx, purgeRunsSQL, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge training runs: %w", err)
	}
	return tag.RowsAffected(), nil
}

func reportJSON(rep *core.TrainingReport) (pgtype.Text, error) {
	if rep == nil {
		return pgtype.Text{}, nil
	}
	data, err := json.Marshal(rep)
	if err != nil {
		return pgtype.Text{}, fmt.Errorf("encode report: %w", err)
	}
	return pgtype.Text{String: string(data), Valid: true}, nil
}

// Helper functions for type conversion

func toPgText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

func toPgFloat8(f *float64) pgtype.Float8 {
	if f == nil {
		return pgtype.Float8{Valid: false}
	}
	return pgtype.Float8{Float64: *f, Valid: true}
}

func toPgUUID(s string) pgtype.UUID {
	if s == "" {
		return pgtype.UUID{Valid: false}
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{Valid: false}
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}
}

func uuidToString(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	return uuid.UUID(u.Bytes).String()
}
