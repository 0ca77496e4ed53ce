package reconcile

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/movie-etl/internal/etlerr"
	"github.com/sells-group/movie-etl/internal/fetcher"
	"github.com/sells-group/movie-etl/internal/frame"
)

const stageCatalog = "load catalog"

// catalogRow is one raw catalog record. Every field is read as text and
// cast explicitly so failures can be reported per column.
type catalogRow struct {
	Adult               string `csv:"adult"`
	BelongsToCollection string `csv:"belongs_to_collection"`
	Budget              string `csv:"budget"`
	Genres              string `csv:"genres"`
	Homepage            string `csv:"homepage"`
	ID                  string `csv:"id"`
	IMDbID              string `csv:"imdb_id"`
	OriginalLanguage    string `csv:"original_language"`
	OriginalTitle       string `csv:"original_title"`
	Overview            string `csv:"overview"`
	Popularity          string `csv:"popularity"`
	PosterPath          string `csv:"poster_path"`
	ProductionCompanies string `csv:"production_companies"`
	ProductionCountries string `csv:"production_countries"`
	ReleaseDate         string `csv:"release_date"`
	Revenue             string `csv:"revenue"`
	Runtime             string `csv:"runtime"`
	SpokenLanguages     string `csv:"spoken_languages"`
	Status              string `csv:"status"`
	Tagline             string `csv:"tagline"`
	Title               string `csv:"title"`
	Video               string `csv:"video"`
	VoteAverage         string `csv:"vote_average"`
	VoteCount           string `csv:"vote_count"`
}

// catalogColumns is the column order of the catalog frame; adult is
// consumed by the row filter and not kept.
var catalogColumns = []string{
	"belongs_to_collection", "budget", "genres", "homepage", "id", "imdb_id",
	"original_language", "original_title", "overview", "popularity",
	"poster_path", "production_companies", "production_countries",
	"release_date", "revenue", "runtime", "spoken_languages", "status",
	"tagline", "title", "video", "vote_average", "vote_count",
}

var catalogDateLayouts = []string{time.DateOnly, time.DateTime, "01-02-06", "1/2/2006"}

// coercion is a failed cast of one catalog value.
type coercion struct {
	column string
	value  string
}

// castRow converts a raw catalog record into frame cells. It returns the
// first strict cast failure, if any.
func castRow(r catalogRow) ([]frame.Cell, *coercion) {
	budget, err := strconv.ParseInt(strings.TrimSpace(r.Budget), 10, 64)
	if err != nil {
		return nil, &coercion{"budget", r.Budget}
	}
	id, err := strconv.ParseInt(strings.TrimSpace(r.ID), 10, 64)
	if err != nil {
		return nil, &coercion{"id", r.ID}
	}
	popularity := frame.Null()
	if s := strings.TrimSpace(r.Popularity); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, &coercion{"popularity", r.Popularity}
		}
		popularity = frame.Float(v)
	}
	release := frame.Null()
	if s := strings.TrimSpace(r.ReleaseDate); s != "" {
		t, ok := parseCatalogDate(s)
		if !ok {
			return nil, &coercion{"release_date", r.ReleaseDate}
		}
		release = frame.Date(t)
	}

	return []frame.Cell{
		text(r.BelongsToCollection),
		frame.Int(budget),
		text(r.Genres),
		text(r.Homepage),
		frame.Int(id),
		text(r.IMDbID),
		text(r.OriginalLanguage),
		text(r.OriginalTitle),
		text(r.Overview),
		popularity,
		text(r.PosterPath),
		text(r.ProductionCompanies),
		text(r.ProductionCountries),
		release,
		lenientFloat(r.Revenue),
		lenientFloat(r.Runtime),
		text(r.SpokenLanguages),
		text(r.Status),
		text(r.Tagline),
		text(r.Title),
		frame.Bool(r.Video == "True"),
		lenientFloat(r.VoteAverage),
		lenientFloat(r.VoteCount),
	}, nil
}

func text(s string) frame.Cell {
	if s == "" {
		return frame.Null()
	}
	return frame.Text(s)
}

// lenientFloat reads a float, treating anything unparseable as missing.
func lenientFloat(s string) frame.Cell {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return frame.Null()
	}
	return frame.Float(v)
}

func parseCatalogDate(s string) (time.Time, bool) {
	for _, layout := range catalogDateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// openCatalog returns a row reader for a CSV or XLSX catalog and a closer.
func openCatalog(ctx context.Context, path string) (*fetcher.RowReader, func(), error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		if _, err := os.Stat(path); err != nil {
			return nil, nil, eris.Wrapf(err, "reconcile: stat %s", path)
		}
		rows, errs := fetcher.StreamXLSX(ctx, path, fetcher.XLSXOptions{})
		return fetcher.NewRowReader(rows, errs), func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "reconcile: open %s", path)
	}
	rows, errs := fetcher.StreamCSV(ctx, f, fetcher.CSVOptions{LazyQuotes: true})
	return fetcher.NewRowReader(rows, errs), func() { _ = f.Close() }, nil
}

// LoadCatalog reads the catalog export and applies the adult filter and the
// column casts. Rows failing a strict cast are dropped and recorded in
// rep.Coercion, or abort the load when opts.StrictCoercion is set.
func LoadCatalog(ctx context.Context, path string, opts Options, rep *Report) (*frame.Frame, error) {
	log := zap.L().With(zap.String("component", "reconcile"), zap.String("stage", stageCatalog))

	// Cancelling stops the stream producer when the load returns early.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	rr, closeFn, err := openCatalog(ctx, path)
	if err != nil {
		return nil, etlerr.New(etlerr.SourceUnavailable, stageCatalog, err)
	}
	defer closeFn()

	dec, err := csvutil.NewDecoder(rr)
	if err != nil {
		return nil, etlerr.New(etlerr.SourceUnavailable, stageCatalog, eris.Wrapf(err, "reconcile: read catalog header %s", path))
	}

	catalog := frame.New(catalogColumns...)
	line := 1
	for {
		var raw catalogRow
		err := dec.Decode(&raw)
		if err == io.EOF {
			break
		}
		line++
		var bad *coercion
		var cells []frame.Cell
		switch {
		case errors.Is(err, csvutil.ErrFieldCount):
			bad = &coercion{"row", strconv.Itoa(line)}
		case err != nil:
			return nil, etlerr.New(etlerr.SourceUnavailable, stageCatalog, eris.Wrapf(err, "reconcile: decode catalog row %d", line))
		case raw.Adult != "False":
			continue
		default:
			cells, bad = castRow(raw)
		}
		if bad != nil {
			if opts.StrictCoercion {
				return nil, etlerr.New(etlerr.TypeCoercionFailure, stageCatalog,
					eris.Errorf("reconcile: row %d: cannot cast %s value %q", line, bad.column, bad.value))
			}
			rep.Coercion.add(bad.column, bad.value)
			rep.Coercion.DroppedRows++
			continue
		}
		if err := catalog.Append(cells...); err != nil {
			return nil, eris.Wrap(err, "reconcile: append catalog row")
		}
	}
	rep.CatalogRows = catalog.Len()

	if rep.Coercion.DroppedRows > 0 {
		for _, col := range sortedColumns(rep.Coercion.Columns) {
			cf := rep.Coercion.Columns[col]
			rep.warn(etlerr.TypeCoercionFailure, stageCatalog,
				"dropped %d catalog rows with uncastable %s (e.g. %q)", cf.Count, col, cf.Samples[0])
		}
	}

	log.Info("catalog loaded",
		zap.String("path", path),
		zap.Int("rows", catalog.Len()),
		zap.Int("dropped", rep.Coercion.DroppedRows),
	)
	return catalog, nil
}

func sortedColumns(m map[string]*ColumnFailures) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
