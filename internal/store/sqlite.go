package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/attribution-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// imported_at holds unix milliseconds; aggregates over DATETIME columns come
// back as text.
const sqliteMigration = `
CREATE TABLE IF NOT EXISTS journeys (
	batch              TEXT    NOT NULL,
	seq                INTEGER NOT NULL,
	journey_id         TEXT    NOT NULL,
	steps              TEXT    NOT NULL,
	conversion_channel TEXT    NOT NULL DEFAULT '',
	revenue            REAL    NOT NULL DEFAULT 0,
	imported_at        INTEGER NOT NULL,
	PRIMARY KEY (batch, seq)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_journeys_batch_id ON journeys(batch, journey_id);
`

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveBatch(ctx context.Context, batch string, journeys []model.Journey) (int, error) {
	batch, err := checkBatch(batch, journeys)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM journeys WHERE batch = ?`, batch); err != nil {
		return 0, eris.Wrapf(err, "sqlite: clear batch %s", batch)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO journeys (batch, seq, journey_id, steps, conversion_channel, revenue, imported_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare insert")
	}
	defer stmt.Close() //nolint:errcheck

	now := time.Now().UTC().UnixMilli()
	for i, j := range journeys {
		steps, err := marshalSteps(j.Steps)
		if err != nil {
			return 0, err
		}
		if _, err := stmt.ExecContext(ctx, batch, i+1, j.ID, steps, j.ConversionChannel, j.Revenue, now); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert journey %s", j.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit tx")
	}
	return len(journeys), nil
}

func (s *SQLiteStore) ListJourneys(ctx context.Context, filter JourneyFilter) ([]model.Journey, error) {
	query := `SELECT journey_id, steps, conversion_channel, revenue FROM journeys WHERE 1=1`
	var args []any

	if filter.Batch != "" {
		query += ` AND batch = ?`
		args = append(args, filter.Batch)
	}
	query += ` ORDER BY batch, seq`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	} else if filter.Offset > 0 {
		query += ` LIMIT -1`
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list journeys")
	}
	defer rows.Close() //nolint:errcheck

	journeys := []model.Journey{}
	for rows.Next() {
		var j model.Journey
		var steps string
		if err := rows.Scan(&j.ID, &steps, &j.ConversionChannel, &j.Revenue); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan journey")
		}
		if err := json.Unmarshal([]byte(steps), &j.Steps); err != nil {
			return nil, eris.Wrapf(err, "sqlite: unmarshal steps for %s", j.ID)
		}
		journeys = append(journeys, j)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: list journeys iterate")
	}
	if err := notFound(filter, journeys); err != nil {
		return nil, err
	}
	return journeys, nil
}

func (s *SQLiteStore) ListBatches(ctx context.Context) ([]BatchInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT batch, COUNT(*), MIN(imported_at) FROM journeys GROUP BY batch ORDER BY batch`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list batches")
	}
	defer rows.Close() //nolint:errcheck

	batches := []BatchInfo{}
	for rows.Next() {
		var b BatchInfo
		var importedAt int64
		if err := rows.Scan(&b.Name, &b.Journeys, &importedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan batch")
		}
		b.ImportedAt = time.UnixMilli(importedAt).UTC()
		batches = append(batches, b)
	}
	return batches, eris.Wrap(rows.Err(), "sqlite: list batches iterate")
}

func (s *SQLiteStore) DeleteBatch(ctx context.Context, batch string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM journeys WHERE batch = ?`, batch)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: delete batch %s", batch)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return 0, eris.Wrapf(ErrBatchNotFound, "sqlite: delete batch %q", batch)
	}
	return int(n), nil
}
