package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/movie-etl/internal/frame"
	"github.com/sells-group/movie-etl/internal/ratings"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS etl_runs`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateOrAppend(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	f := frame.New("imdb_id", "kaggle_id", "budget", "starring", "release_date")
	require.NoError(t, f.Append(frame.Text("tt1"), frame.Int(1), frame.Int(5), frame.List("A"),
		frame.Date(time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC))))
	require.NoError(t, f.Append(frame.Text("tt2"), frame.Int(2), frame.Float(1.5), frame.Null(), frame.Null()))

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "movies" \("imdb_id" TEXT, "kaggle_id" BIGINT, "budget" DOUBLE PRECISION, "starring" JSONB, "release_date" DATE\)`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(`ALTER TABLE "movies" ADD COLUMN IF NOT EXISTS "imdb_id" TEXT, .*ADD COLUMN IF NOT EXISTS "release_date" DATE`).
		WillReturnResult(pgxmock.NewResult("ALTER", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"movies"}, []string{"imdb_id", "kaggle_id", "budget", "starring", "release_date"}).
		WillReturnResult(2)

	n, err := s.CreateOrAppend(context.Background(), "movies", f)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateOrAppend_DDLError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "movies"`).
		WillReturnError(errors.New("permission denied"))

	f := frame.New("a")
	require.NoError(t, f.Append(frame.Int(1)))
	_, err := s.CreateOrAppend(context.Background(), "movies", f)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create table movies")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AppendRatings(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "ratings" \("userId" BIGINT, "movieId" BIGINT, "rating" DOUBLE PRECISION, "timestamp" BIGINT\)`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(`ALTER TABLE "ratings"`).
		WillReturnResult(pgxmock.NewResult("ALTER", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"ratings"}, ratings.Columns).
		WillReturnResult(1)

	n, err := s.AppendRatings(context.Background(), "ratings", []ratings.Event{{UserID: 1, MovieID: 2, Rating: 3.5, Timestamp: 4}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AppendRatings_CopyError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "ratings"`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(`ALTER TABLE "ratings"`).
		WillReturnResult(pgxmock.NewResult("ALTER", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"ratings"}, ratings.Columns).
		WillReturnError(errors.New("connection reset"))

	_, err := s.AppendRatings(context.Background(), "ratings", []ratings.Event{{UserID: 1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "append ratings")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CountRows(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "ratings"`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(42)))

	n, err := s.CountRows(context.Background(), "ratings")
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RunLog(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	ctx := context.Background()

	mock.ExpectExec(`INSERT INTO etl_runs`).
		WithArgs("run-1", "running", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`UPDATE etl_runs SET status = \$1`).
		WithArgs("complete", `{"movies":2}`, nil, pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE etl_runs SET status = \$1`).
		WithArgs("failed", nil, "boom", pgxmock.AnyArg(), "ghost").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.NoError(t, s.StartRun(ctx, "run-1"))
	require.NoError(t, s.FinishRun(ctx, "run-1", RunStatusComplete, []byte(`{"movies":2}`), ""))
	err := s.FinishRun(ctx, "ghost", RunStatusFailed, nil, "boom")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, status, summary, error, started_at, finished_at FROM etl_runs WHERE id = \$1`).
		WithArgs("nonexistent-run").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRun(context.Background(), "nonexistent-run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get run")
	assert.NoError(t, mock.ExpectationsWereMet())
}
