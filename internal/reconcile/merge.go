package reconcile

import (
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/movie-etl/internal/etlerr"
	"github.com/sells-group/movie-etl/internal/frame"
)

const (
	stageMerge = "merge"
	mergeKey   = "imdb_id"
)

// MergeSuffixes tags columns present in both sources.
var MergeSuffixes = frame.Suffixes{Left: "_wiki", Right: "_kaggle"}

// Merge inner-joins the wiki and catalog frames on imdb_id. Duplicate
// catalog keys and an empty overlap are reported as warnings; neither stops
// the run.
func Merge(wiki, catalog *frame.Frame, rep *Report) (*frame.Frame, error) {
	if dups := catalog.DuplicateKeys(mergeKey); dups > 0 {
		rep.warn(etlerr.MergeInconsistency, stageMerge,
			"catalog repeats %d imdb_id values; matching wiki rows are duplicated", dups)
	}

	merged, err := frame.InnerMerge(wiki, catalog, mergeKey, MergeSuffixes)
	if err != nil {
		return nil, etlerr.New(etlerr.MergeInconsistency, stageMerge, eris.Wrap(err, "reconcile: merge sources"))
	}
	rep.MergedRows = merged.Len()

	if merged.Len() == 0 && wiki.Len() > 0 && catalog.Len() > 0 {
		rep.warn(etlerr.MergeInconsistency, stageMerge,
			"no imdb_id overlap between %d wiki rows and %d catalog rows", wiki.Len(), catalog.Len())
	}

	zap.L().Info("sources merged",
		zap.String("component", "reconcile"),
		zap.Int("wiki_rows", wiki.Len()),
		zap.Int("catalog_rows", catalog.Len()),
		zap.Int("merged_rows", merged.Len()),
	)
	return merged, nil
}

// DropMismerged removes rows whose wiki release date is after wikiAfter
// while the catalog date is before catalogBefore. Rows missing either date
// are kept.
func DropMismerged(f *frame.Frame, wikiAfter, catalogBefore time.Time) (*frame.Frame, int) {
	wikiCol := "release_date" + MergeSuffixes.Left
	catCol := "release_date" + MergeSuffixes.Right
	out := f.Filter(func(r frame.Row) bool {
		w, c := r.Get(wikiCol), r.Get(catCol)
		if w.Kind != frame.KindDate || c.Kind != frame.KindDate {
			return true
		}
		return !(w.Time.After(wikiAfter) && c.Time.Before(catalogBefore))
	})
	return out, f.Len() - out.Len()
}
