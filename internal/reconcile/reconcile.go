package reconcile

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/movie-etl/internal/frame"
	"github.com/sells-group/movie-etl/internal/normalize"
)

// Reconcile reads both movie sources and produces the canonical movies table.
func Reconcile(ctx context.Context, wikiPath, catalogPath string, rules Rules, opts Options) (*frame.Frame, *Report, error) {
	rep := &Report{}

	records, err := LoadWiki(ctx, wikiPath)
	if err != nil {
		return nil, rep, err
	}
	catalog, err := LoadCatalog(ctx, catalogPath, opts, rep)
	if err != nil {
		return nil, rep, err
	}

	movies, err := ReconcileFrames(ctx, records, catalog, rules, opts, rep)
	if err != nil {
		return nil, rep, err
	}
	return movies, rep, nil
}

// ReconcileFrames runs the in-memory half of Reconcile on already loaded
// sources.
func ReconcileFrames(ctx context.Context, records []normalize.RawRecord, catalog *frame.Frame, rules Rules, opts Options, rep *Report) (*frame.Frame, error) {
	log := zap.L().With(zap.String("component", "reconcile"))
	start := time.Now()

	wiki, err := BuildWikiFrame(ctx, records, rules.Normalize, opts, rep)
	if err != nil {
		return nil, err
	}

	merged, err := Merge(wiki, catalog, rep)
	if err != nil {
		return nil, err
	}

	merged, rep.MismergedRows = DropMismerged(merged, opts.WikiAfter, opts.CatalogBefore)
	merged.Drop(rules.RedundantColumns...)

	for _, p := range rules.Coalesce {
		if err := Coalesce(merged, p.Catalog, p.Wiki); err != nil {
			return nil, err
		}
	}

	movies, err := Canonicalize(merged, rules.Schema)
	if err != nil {
		return nil, err
	}
	rep.OutputRows = movies.Len()

	log.Info("reconciliation complete",
		zap.Int("rows", movies.Len()),
		zap.Int("mismerged", rep.MismergedRows),
		zap.Int("warnings", len(rep.Warnings)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return movies, nil
}
