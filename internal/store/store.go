// Package store persists the canonical movies table, the raw rating log and
// a per-run log to Postgres or SQLite.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/movie-etl/internal/config"
	"github.com/sells-group/movie-etl/internal/frame"
	"github.com/sells-group/movie-etl/internal/ratings"
)

// RunStatus is the lifecycle state of a pipeline run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one row of the run log.
type Run struct {
	ID         string
	Status     RunStatus
	Summary    []byte
	Error      string
	StartedAt  time.Time
	FinishedAt *time.Time
}

// Store defines the persistence interface for the pipeline.
type Store interface {
	// Tables
	CreateOrAppend(ctx context.Context, table string, f *frame.Frame) (int64, error)
	AppendRatings(ctx context.Context, table string, events []ratings.Event) (int64, error)
	CountRows(ctx context.Context, table string) (int64, error)

	// Run log
	StartRun(ctx context.Context, runID string) error
	FinishRun(ctx context.Context, runID string, status RunStatus, summary []byte, runErr string) error
	GetRun(ctx context.Context, runID string) (*Run, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// DefaultSQLitePath is used when the sqlite driver has no database_url.
const DefaultSQLitePath = "movies.db"

// Open connects to the configured backend and applies the run-log migration.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		st  Store
		err error
	)
	switch cfg.Driver {
	case "sqlite":
		dsn := cfg.DatabaseURL
		if dsn == "" {
			dsn = DefaultSQLitePath
		}
		st, err = NewSQLite(dsn)
	case "postgres":
		st, err = NewPostgres(ctx, cfg.DatabaseURL, &PoolConfig{MaxConns: cfg.MaxConns, MinConns: cfg.MinConns})
	default:
		return nil, eris.Errorf("store: unsupported driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}
