package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/movie-etl/internal/db"
	"github.com/sells-group/movie-etl/internal/frame"
	"github.com/sells-group/movie-etl/internal/ratings"
)

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

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// The pipeline is a single writer; a small pool is enough.
	maxConns := int32(4)
	minConns := int32(1)
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

// Pool returns the underlying database pool.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS etl_runs (
	id          TEXT PRIMARY KEY,
	status      TEXT NOT NULL DEFAULT 'running',
	summary     JSONB,
	error       TEXT,
	started_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_etl_runs_status ON etl_runs(status);
`

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

// ensureTable creates table when absent and adds any missing columns.
func (s *PostgresStore) ensureTable(ctx context.Context, table string, cols []column) error {
	defs := make([]string, len(cols))
	adds := make([]string, len(cols))
	for i, c := range cols {
		def := fmt.Sprintf("%s %s", db.QuoteAndJoin([]string{c.name}), postgresDialect.types[c.kind])
		defs[i] = def
		adds[i] = "ADD COLUMN IF NOT EXISTS " + def
	}
	name := db.SanitizeTable(table)

	if _, err := s.pool.Exec(ctx, fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", name, strings.Join(defs, ", "))); err != nil {
		return eris.Wrapf(err, "postgres: create table %s", table)
	}
	if len(adds) == 0 {
		return nil
	}
	if _, err := s.pool.Exec(ctx, fmt.Sprintf("ALTER TABLE %s %s", name, strings.Join(adds, ", "))); err != nil {
		return eris.Wrapf(err, "postgres: add columns to %s", table)
	}
	return nil
}

func (s *PostgresStore) CreateOrAppend(ctx context.Context, table string, f *frame.Frame) (int64, error) {
	cols := frameColumns(f)
	if err := s.ensureTable(ctx, table, cols); err != nil {
		return 0, err
	}
	rows, err := postgresDialect.rows(f, cols)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: encode rows for %s", table)
	}
	n, err := db.CopyFrom(ctx, s.pool, table, columnNames(cols), rows)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: write %s", table)
	}
	return n, nil
}

func (s *PostgresStore) AppendRatings(ctx context.Context, table string, events []ratings.Event) (int64, error) {
	if err := s.ensureTable(ctx, table, ratingColumns); err != nil {
		return 0, err
	}
	n, err := db.CopyFrom(ctx, s.pool, table, columnNames(ratingColumns), ratingRows(events))
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: append ratings to %s", table)
	}
	return n, nil
}

func (s *PostgresStore) CountRows(ctx context.Context, table string) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, "SELECT count(*) FROM "+db.SanitizeTable(table)).Scan(&n)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: count %s", table)
	}
	return n, nil
}

func (s *PostgresStore) StartRun(ctx context.Context, runID string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO etl_runs (id, status, started_at) VALUES ($1, $2, $3)`,
		runID, string(RunStatusRunning), time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: start run %s", runID)
}

func (s *PostgresStore) FinishRun(ctx context.Context, runID string, status RunStatus, summary []byte, runErr string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE etl_runs SET status = $1, summary = $2, error = $3, finished_at = $4 WHERE id = $5`,
		string(status), nullableJSON(summary), nullableString(runErr), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	var r Run
	var errText *string
	err := s.pool.QueryRow(ctx,
		`SELECT id, status, summary, error, started_at, finished_at FROM etl_runs WHERE id = $1`,
		runID,
	).Scan(&r.ID, &r.Status, &r.Summary, &errText, &r.StartedAt, &r.FinishedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	if errText != nil {
		r.Error = *errText
	}
	return &r, nil
}

func nullableJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
