package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/movie-etl/internal/db"
	"github.com/sells-group/movie-etl/internal/frame"
	"github.com/sells-group/movie-etl/internal/ratings"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: conn}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS etl_runs (
	id          TEXT PRIMARY KEY,
	status      TEXT NOT NULL DEFAULT 'running',
	summary     TEXT,
	error       TEXT,
	started_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	finished_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_etl_runs_status ON etl_runs(status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// existingColumns returns the column names of table, or nil when it does
// not exist.
func (s *SQLiteStore) existingColumns(ctx context.Context, table string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: table info %s", table)
	}
	defer rows.Close() //nolint:errcheck

	cols := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan column name")
		}
		cols[name] = true
	}
	return cols, eris.Wrap(rows.Err(), "sqlite: iterate table info")
}

// ensureTable creates table when absent and adds any missing columns.
func (s *SQLiteStore) ensureTable(ctx context.Context, table string, cols []column) error {
	existing, err := s.existingColumns(ctx, table)
	if err != nil {
		return err
	}
	name := db.SanitizeTable(table)

	if len(existing) == 0 {
		defs := make([]string, len(cols))
		for i, c := range cols {
			defs[i] = fmt.Sprintf("%s %s", db.QuoteAndJoin([]string{c.name}), sqliteDialect.types[c.kind])
		}
		_, err := s.db.ExecContext(ctx, fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", name, strings.Join(defs, ", ")))
		return eris.Wrapf(err, "sqlite: create table %s", table)
	}

	for _, c := range cols {
		if existing[c.name] {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", name, db.QuoteAndJoin([]string{c.name}), sqliteDialect.types[c.kind])
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return eris.Wrapf(err, "sqlite: add column %s.%s", table, c.name)
		}
	}
	return nil
}

// insert writes rows inside one transaction. Either every row commits or
// none does.
func (s *SQLiteStore) insert(ctx context.Context, table string, cols []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		db.SanitizeTable(table), db.QuoteAndJoin(cols), placeholders))
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: prepare insert into %s", table)
	}
	defer stmt.Close() //nolint:errcheck

	for i, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert row %d into %s", i, table)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrapf(err, "sqlite: commit %s", table)
	}
	return int64(len(rows)), nil
}

func (s *SQLiteStore) CreateOrAppend(ctx context.Context, table string, f *frame.Frame) (int64, error) {
	cols := frameColumns(f)
	if err := s.ensureTable(ctx, table, cols); err != nil {
		return 0, err
	}
	rows, err := sqliteDialect.rows(f, cols)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: encode rows for %s", table)
	}
	return s.insert(ctx, table, columnNames(cols), rows)
}

func (s *SQLiteStore) AppendRatings(ctx context.Context, table string, events []ratings.Event) (int64, error) {
	if err := s.ensureTable(ctx, table, ratingColumns); err != nil {
		return 0, err
	}
	return s.insert(ctx, table, columnNames(ratingColumns), ratingRows(events))
}

func (s *SQLiteStore) CountRows(ctx context.Context, table string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM "+db.SanitizeTable(table)).Scan(&n)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: count %s", table)
	}
	return n, nil
}

func (s *SQLiteStore) StartRun(ctx context.Context, runID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO etl_runs (id, status, started_at) VALUES (?, ?, ?)`,
		runID, string(RunStatusRunning), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: start run %s", runID)
}

func (s *SQLiteStore) FinishRun(ctx context.Context, runID string, status RunStatus, summary []byte, runErr string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE etl_runs SET status = ?, summary = ?, error = ?, finished_at = ? WHERE id = ?`,
		string(status), nullableJSON(summary), nullableString(runErr), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	var r Run
	var status string
	var summary, errText sql.NullString
	var finished sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT id, status, summary, error, started_at, finished_at FROM etl_runs WHERE id = ?`,
		runID,
	).Scan(&r.ID, &status, &summary, &errText, &r.StartedAt, &finished)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", runID)
	}
	r.Status = RunStatus(status)
	if summary.Valid {
		r.Summary = []byte(summary.String)
	}
	r.Error = errText.String
	if finished.Valid {
		t := finished.Time
		r.FinishedAt = &t
	}
	return &r, nil
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}
