package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/movie-etl/internal/config"
	"github.com/sells-group/movie-etl/internal/frame"
	"github.com/sells-group/movie-etl/internal/normalize"
	"github.com/sells-group/movie-etl/internal/ratings"
)

func newTestSQLite(t *testing.T) Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func moviesFrame(t *testing.T) *frame.Frame {
	t.Helper()
	f := frame.New("imdb_id", "kaggle_id", "title", "budget", "release_date", "starring", "alt_titles", "video", "rating_5.0")
	require.NoError(t, f.Append(
		frame.Text("tt0114709"), frame.Int(862), frame.Text("Toy Story"), frame.Int(30_000_000),
		frame.Date(time.Date(1995, 10, 30, 0, 0, 0, 0, time.UTC)),
		frame.List("Tom Hanks", "Tim Allen"),
		frame.Map(map[string]normalize.Value{"Japanese": normalize.String("トイ・ストーリー")}),
		frame.Bool(false), frame.Int(3),
	))
	require.NoError(t, f.Append(
		frame.Text("tt0113497"), frame.Int(8844), frame.Text("Jumanji"), frame.Float(6.5e7),
		frame.Null(), frame.Null(), frame.Null(), frame.Bool(false), frame.Int(0),
	))
	return f
}

func storeTestSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("CreateOrAppendCreatesThenAppends", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		n, err := s.CreateOrAppend(ctx, "movies", moviesFrame(t))
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		n, err = s.CreateOrAppend(ctx, "movies", moviesFrame(t))
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		count, err := s.CountRows(ctx, "movies")
		require.NoError(t, err)
		assert.Equal(t, int64(4), count)
	})

	t.Run("CreateOrAppendAddsNewColumns", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.CreateOrAppend(ctx, "movies", moviesFrame(t))
		require.NoError(t, err)

		wider := moviesFrame(t)
		require.NoError(t, wider.Set("rating_0.5", []frame.Cell{frame.Int(1), frame.Int(2)}))
		_, err = s.CreateOrAppend(ctx, "movies", wider)
		require.NoError(t, err)

		count, err := s.CountRows(ctx, "movies")
		require.NoError(t, err)
		assert.Equal(t, int64(4), count)
	})

	t.Run("AppendRatings", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		events := []ratings.Event{
			{UserID: 1, MovieID: 31, Rating: 2.5, Timestamp: 1260759144},
			{UserID: 1, MovieID: 1029, Rating: 3, Timestamp: 1260759179},
		}
		n, err := s.AppendRatings(ctx, "ratings", events)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		n, err = s.AppendRatings(ctx, "ratings", events[:1])
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		count, err := s.CountRows(ctx, "ratings")
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)
	})

	t.Run("CountMissingTable", func(t *testing.T) {
		s := newStore(t)
		_, err := s.CountRows(context.Background(), "nope")
		assert.Error(t, err)
	})

	t.Run("RunLifecycle", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.StartRun(ctx, "run-1"))
		got, err := s.GetRun(ctx, "run-1")
		require.NoError(t, err)
		assert.Equal(t, RunStatusRunning, got.Status)
		assert.Nil(t, got.FinishedAt)

		require.NoError(t, s.FinishRun(ctx, "run-1", RunStatusFailed, []byte(`{"movies":1}`), "load ratings: boom"))
		got, err = s.GetRun(ctx, "run-1")
		require.NoError(t, err)
		assert.Equal(t, RunStatusFailed, got.Status)
		assert.JSONEq(t, `{"movies":1}`, string(got.Summary))
		assert.Equal(t, "load ratings: boom", got.Error)
		assert.NotNil(t, got.FinishedAt)
	})

	t.Run("FinishRunNotFound", func(t *testing.T) {
		s := newStore(t)
		err := s.FinishRun(context.Background(), "missing", RunStatusComplete, nil, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})
}

func TestSQLiteStore_Suite(t *testing.T) {
	storeTestSuite(t, newTestSQLite)
}

func TestOpen_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "open.db")
	st, err := Open(context.Background(), config.StoreConfig{Driver: "sqlite", DatabaseURL: path})
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	require.NoError(t, st.StartRun(context.Background(), "r"))
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), config.StoreConfig{Driver: "oracle"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported driver")
}

func TestOpen_PostgresBadURL(t *testing.T) {
	_, err := Open(context.Background(), config.StoreConfig{Driver: "postgres", DatabaseURL: "://bad"})
	assert.Error(t, err)
}

func TestDialectValue(t *testing.T) {
	date := time.Date(1999, 7, 16, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		d    dialect
		cell frame.Cell
		kind frame.Kind
		want any
	}{
		{"null", postgresDialect, frame.Null(), frame.KindInt, nil},
		{"text", postgresDialect, frame.Text("a"), frame.KindText, "a"},
		{"list json", postgresDialect, frame.List("a", "b"), frame.KindList, `["a","b"]`},
		{"int widened", postgresDialect, frame.Int(3), frame.KindFloat, 3.0},
		{"int", sqliteDialect, frame.Int(3), frame.KindInt, int64(3)},
		{"mixed column as text", sqliteDialect, frame.Int(3), frame.KindText, "3"},
		{"pg date", postgresDialect, frame.Date(date), frame.KindDate, date},
		{"sqlite date", sqliteDialect, frame.Date(date), frame.KindDate, "1999-07-16"},
		{"bool", sqliteDialect, frame.Bool(true), frame.KindBool, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.d.value(tt.cell, tt.kind)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRatingColumnsMatchEvent(t *testing.T) {
	assert.Equal(t, ratings.Columns, columnNames(ratingColumns))
}
