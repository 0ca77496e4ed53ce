package reconcile

import (
	"context"
	"os"
	"regexp"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/movie-etl/internal/etlerr"
	"github.com/sells-group/movie-etl/internal/fetcher"
	"github.com/sells-group/movie-etl/internal/frame"
	"github.com/sells-group/movie-etl/internal/normalize"
	"github.com/sells-group/movie-etl/internal/parse"
)

const stageWiki = "transform wiki"

var imdbIDRe = regexp.MustCompile(`tt\d{7}`)

// LoadWiki reads a JSON array of wiki movie records.
func LoadWiki(ctx context.Context, path string) ([]normalize.RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, etlerr.New(etlerr.SourceUnavailable, "load wiki", eris.Wrapf(err, "reconcile: open %s", path))
	}
	defer f.Close() //nolint:errcheck

	recCh, errCh := fetcher.DecodeJSONArray[normalize.RawRecord](ctx, f)
	var records []normalize.RawRecord
	for rec := range recCh {
		records = append(records, rec)
	}
	for err := range errCh {
		if err != nil {
			return nil, etlerr.New(etlerr.SourceUnavailable, "load wiki", eris.Wrapf(err, "reconcile: decode %s", path))
		}
	}

	zap.L().Info("loaded wiki records",
		zap.String("component", "reconcile"),
		zap.String("path", path),
		zap.Int("records", len(records)),
	)
	return records, nil
}

// IsFeatureFilm reports whether a wiki record names a director, links to
// IMDb and is not a television series.
func IsFeatureFilm(rec normalize.RawRecord) bool {
	return (rec.Has("Director") || rec.Has("Directed by")) &&
		rec.Has("imdb_link") &&
		!rec.Has("No. of episodes")
}

// IMDbID returns the first IMDb title identifier inside v.
func IMDbID(v normalize.Value) (string, bool) {
	s, ok := normalize.Join(v)
	if !ok {
		return "", false
	}
	id := imdbIDRe.FindString(s)
	return id, id != ""
}

// BuildWikiFrame filters, cleans and types the wiki records.
func BuildWikiFrame(ctx context.Context, records []normalize.RawRecord, rules normalize.Rules, opts Options, rep *Report) (*frame.Frame, error) {
	log := zap.L().With(zap.String("component", "reconcile"), zap.String("stage", stageWiki))
	rep.WikiRecords = len(records)

	rows := make([]map[string]frame.Cell, 0, len(records))
	for _, rec := range records {
		if !IsFeatureFilm(rec) {
			continue
		}
		movie := normalize.Clean(rec, rules)
		row := make(map[string]frame.Cell, len(movie)+1)
		for k, v := range movie {
			row[k] = frame.FromValue(v)
		}
		if id, ok := IMDbID(movie["imdb_link"]); ok {
			row["imdb_id"] = frame.Text(id)
		} else {
			row["imdb_id"] = frame.Null()
		}
		rows = append(rows, row)
	}
	rep.WikiKept = len(rows)

	wiki := frame.FromRecords(rows)
	if !wiki.Has("imdb_id") {
		if err := wiki.Set("imdb_id", nil); err != nil {
			return nil, eris.Wrap(err, "reconcile: add imdb_id")
		}
	}
	wiki = wiki.DedupBy("imdb_id")
	rep.WikiRows = wiki.Len()

	rep.PrunedColumns = pruneSparse(wiki, opts.SparsityThreshold)
	log.Debug("pruned sparse columns", zap.Strings("columns", rep.PrunedColumns))

	if err := parseFreeText(ctx, wiki, rep); err != nil {
		return nil, err
	}
	rep.summarizeUnparsed(stageWiki)

	log.Info("wiki frame built",
		zap.Int("records", rep.WikiRecords),
		zap.Int("kept", rep.WikiKept),
		zap.Int("rows", rep.WikiRows),
		zap.Int("columns", len(wiki.Columns())),
	)
	return wiki, nil
}

// pruneSparse drops every column whose missing count exceeds threshold*n
// and returns the dropped names.
func pruneSparse(f *frame.Frame, threshold float64) []string {
	limit := threshold * float64(f.Len())
	var sparse []string
	for _, c := range f.Columns() {
		if float64(f.NullCount(c)) > limit {
			sparse = append(sparse, c)
		}
	}
	f.Drop(sparse...)
	return sparse
}

type freeTextColumn struct {
	source string
	target string
	parse  func(normalize.Value) (frame.Cell, bool)
}

var freeTextColumns = []freeTextColumn{
	{"Box office", "box_office", dollarsCell},
	{"Budget", "budget", dollarsCell},
	{"Release date", "release_date", dateCell},
	{"Running time", "running_time", runningTimeCell},
}

func dollarsCell(v normalize.Value) (frame.Cell, bool) {
	if n, ok := parse.ExtractDollars(v); ok {
		return frame.Float(n), true
	}
	return frame.Null(), false
}

func dateCell(v normalize.Value) (frame.Cell, bool) {
	if t, ok := parse.ExtractReleaseDate(v); ok {
		return frame.Date(t), true
	}
	return frame.Null(), false
}

func runningTimeCell(v normalize.Value) (frame.Cell, bool) {
	if n, ok := parse.ExtractRunningTime(v); ok {
		return frame.Int(int64(n)), true
	}
	return frame.Null(), false
}

// parseFreeText derives the typed money, date and duration columns and drops
// their free-text sources. The four columns are parsed concurrently; the
// frame is only mutated after all of them finish.
func parseFreeText(ctx context.Context, f *frame.Frame, rep *Report) error {
	results := make([][]frame.Cell, len(freeTextColumns))
	failures := make([]int, len(freeTextColumns))

	g, gctx := errgroup.WithContext(ctx)
	for i, col := range freeTextColumns {
		g.Go(func() error {
			cells := make([]frame.Cell, f.Len())
			for r := range cells {
				if r%4096 == 0 && gctx.Err() != nil {
					return gctx.Err()
				}
				src := f.Get(r, col.source)
				if src.IsNull() {
					continue
				}
				c, ok := col.parse(src.ToValue())
				if !ok {
					failures[i]++
				}
				cells[r] = c
			}
			results[i] = cells
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return eris.Wrap(err, "reconcile: parse wiki free text")
	}

	for i, col := range freeTextColumns {
		if err := f.Set(col.target, results[i]); err != nil {
			return eris.Wrap(err, "reconcile: set parsed column")
		}
		rep.unparsed(col.source, failures[i])
	}
	for _, col := range freeTextColumns {
		f.Drop(col.source)
	}
	return nil
}
