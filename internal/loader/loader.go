// Package loader writes the canonical movies table and the raw rating log
// into the store. Ratings are appended in sequential chunks so that peak
// memory is bounded by one chunk.
package loader

import (
	"context"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/movie-etl/internal/etlerr"
	"github.com/sells-group/movie-etl/internal/frame"
	"github.com/sells-group/movie-etl/internal/ratings"
	"github.com/sells-group/movie-etl/internal/store"
)

// DefaultChunkSize is the number of rating rows appended per chunk.
const DefaultChunkSize = 1_000_000

const (
	stageLoadMovies  = "load movies"
	stageLoadRatings = "load ratings"
)

// MoviesResult summarizes the movies write.
type MoviesResult struct {
	Rows      int64 `json:"rows"`
	StoreRows int64 `json:"store_rows"`
}

// RatingsResult summarizes the chunked rating load.
type RatingsResult struct {
	Chunks    int           `json:"chunks"`
	Rows      int64         `json:"rows"`
	StoreRows int64         `json:"store_rows"`
	Elapsed   time.Duration `json:"elapsed"`
}

// LoadMovies writes f to table in one call, creating the table or adding
// missing columns as needed, then reads back the table's row count.
func LoadMovies(ctx context.Context, st store.Store, table string, f *frame.Frame) (*MoviesResult, error) {
	log := zap.L().With(zap.String("component", "loader"), zap.String("table", table))

	n, err := st.CreateOrAppend(ctx, table, f)
	if err != nil {
		return nil, etlerr.New(etlerr.StoreWriteFailure, stageLoadMovies, eris.Wrapf(err, "loader: write %s", table))
	}
	total, err := st.CountRows(ctx, table)
	if err != nil {
		return nil, etlerr.New(etlerr.StoreWriteFailure, stageLoadMovies, eris.Wrapf(err, "loader: count %s", table))
	}

	log.Info("loaded movies",
		zap.Int64("rows", n),
		zap.Int64("table_rows", total),
	)
	return &MoviesResult{Rows: n, StoreRows: total}, nil
}

// LoadRatings streams the rating log from r and appends it to table in
// chunks of chunkSize rows (DefaultChunkSize when chunkSize <= 0). Chunks
// run strictly one after another; after each append the table's row count
// is read back and logged with the chunk's row range.
//
// The first failing chunk aborts the load with a StoreWriteFailure. Chunks
// appended before it stay committed, and the partial result reports them.
func LoadRatings(ctx context.Context, st store.Store, table string, r io.Reader, chunkSize int) (*RatingsResult, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	log := zap.L().With(zap.String("component", "loader"), zap.String("table", table))

	rd, err := ratings.NewReader(ctx, r)
	if err != nil {
		return nil, etlerr.New(etlerr.SourceUnavailable, stageLoadRatings, eris.Wrap(err, "loader: open rating log"))
	}
	defer rd.Close()

	start := time.Now()
	res := &RatingsResult{}
	for {
		chunk, readErr := rd.ReadChunk(chunkSize)
		if readErr != nil && readErr != io.EOF {
			res.Elapsed = time.Since(start)
			return res, etlerr.New(etlerr.SourceUnavailable, stageLoadRatings,
				eris.Wrapf(readErr, "loader: read chunk %d", res.Chunks+1))
		}

		if len(chunk) > 0 {
			from := res.Rows
			to := from + int64(len(chunk))
			log.Info("importing rows",
				zap.String("range", humanize.Comma(from)+" to "+humanize.Comma(to)),
				zap.Int("chunk", res.Chunks+1),
			)

			n, err := st.AppendRatings(ctx, table, chunk)
			if err != nil {
				res.Elapsed = time.Since(start)
				return res, etlerr.New(etlerr.StoreWriteFailure, stageLoadRatings,
					eris.Wrapf(err, "loader: append chunk %d (rows %d to %d)", res.Chunks+1, from, to))
			}
			res.Chunks++
			res.Rows += n

			total, err := st.CountRows(ctx, table)
			if err != nil {
				res.Elapsed = time.Since(start)
				return res, etlerr.New(etlerr.StoreWriteFailure, stageLoadRatings,
					eris.Wrapf(err, "loader: count %s after chunk %d", table, res.Chunks))
			}
			res.StoreRows = total

			log.Info("imported chunk",
				zap.Int("chunk", res.Chunks),
				zap.String("table_rows", humanize.Comma(total)),
				zap.Float64("elapsed_seconds", time.Since(start).Seconds()),
			)
		}

		if readErr == io.EOF {
			break
		}
	}

	res.Elapsed = time.Since(start)
	log.Info("rating load complete",
		zap.Int("chunks", res.Chunks),
		zap.Int64("rows", res.Rows),
		zap.Float64("elapsed_seconds", res.Elapsed.Seconds()),
	)
	return res, nil
}
