package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/attribution-cli/internal/db"
	"github.com/sells-group/attribution-cli/internal/model"
)

const journeysTable = "journeys"

var journeyColumns = []string{"batch", "seq", "journey_id", "steps", "conversion_channel", "revenue", "imported_at"}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection.
var preparedStatements = map[string]string{
	"clear_batch":    `DELETE FROM journeys WHERE batch = $1`,
	"list_batches":   `SELECT batch, COUNT(*), MIN(imported_at) FROM journeys GROUP BY batch ORDER BY batch`,
	"batch_journeys": `SELECT journey_id, steps, conversion_channel, revenue FROM journeys WHERE batch = $1 ORDER BY seq`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS journeys (
	batch              TEXT             NOT NULL,
	seq                INTEGER          NOT NULL,
	journey_id         TEXT             NOT NULL,
	steps              TEXT[]           NOT NULL,
	conversion_channel TEXT             NOT NULL DEFAULT '',
	revenue            DOUBLE PRECISION NOT NULL DEFAULT 0,
	imported_at        TIMESTAMPTZ      NOT NULL DEFAULT now(),
	PRIMARY KEY (batch, seq)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_journeys_batch_id ON journeys(batch, journey_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SaveBatch(ctx context.Context, batch string, journeys []model.Journey) (int, error) {
	batch, err := checkBatch(batch, journeys)
	if err != nil {
		return 0, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM journeys WHERE batch = $1`, batch); err != nil {
		return 0, eris.Wrapf(err, "postgres: clear batch %s", batch)
	}

	now := time.Now().UTC()
	rows := make([][]any, len(journeys))
	for i, j := range journeys {
		steps := j.Steps
		if steps == nil {
			steps = []string{}
		}
		rows[i] = []any{batch, int32(i + 1), j.ID, steps, j.ConversionChannel, j.Revenue, now}
	}

	n, err := db.CopyFrom(ctx, tx, journeysTable, journeyColumns, rows)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: copy batch %s", batch)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "postgres: commit tx")
	}
	return int(n), nil
}

func (s *PostgresStore) ListJourneys(ctx context.Context, filter JourneyFilter) ([]model.Journey, error) {
	query := `SELECT journey_id, steps, conversion_channel, revenue FROM journeys WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Batch != "" {
		query += fmt.Sprintf(` AND batch = $%d`, argIdx)
		args = append(args, filter.Batch)
		argIdx++
	}
	query += ` ORDER BY batch, seq`

	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, argIdx)
		args = append(args, filter.Limit)
		argIdx++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list journeys")
	}
	defer rows.Close()

	journeys := []model.Journey{}
	for rows.Next() {
		var j model.Journey
		if err := rows.Scan(&j.ID, &j.Steps, &j.ConversionChannel, &j.Revenue); err != nil {
			return nil, eris.Wrap(err, "postgres: scan journey")
		}
		journeys = append(journeys, j)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: list journeys iterate")
	}
	if err := notFound(filter, journeys); err != nil {
		return nil, err
	}
	return journeys, nil
}

func (s *PostgresStore) ListBatches(ctx context.Context) ([]BatchInfo, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT batch, COUNT(*), MIN(imported_at) FROM journeys GROUP BY batch ORDER BY batch`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list batches")
	}
	defer rows.Close()

	batches := []BatchInfo{}
	for rows.Next() {
		var b BatchInfo
		var count int64
		if err := rows.Scan(&b.Name, &count, &b.ImportedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan batch")
		}
		b.Journeys = int(count)
		batches = append(batches, b)
	}
	return batches, eris.Wrap(rows.Err(), "postgres: list batches iterate")
}

func (s *PostgresStore) DeleteBatch(ctx context.Context, batch string) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM journeys WHERE batch = $1`, batch)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: delete batch %s", batch)
	}
	if tag.RowsAffected() == 0 {
		return 0, eris.Wrapf(ErrBatchNotFound, "postgres: delete batch %q", batch)
	}
	return int(tag.RowsAffected()), nil
}
