// Package reconcile merges the encyclopedic movie dump with the catalog
// export into one canonical movies table.
package reconcile

import (
	"time"

	"github.com/sells-group/movie-etl/internal/config"
)

// Options carries the tunables of a reconciliation.
type Options struct {
	// SparsityThreshold prunes wiki columns whose missing count exceeds
	// this fraction of rows.
	SparsityThreshold float64
	// Rows whose wiki date is after WikiAfter and whose catalog date is
	// before CatalogBefore are treated as mismerged.
	WikiAfter     time.Time
	CatalogBefore time.Time
	// StrictCoercion makes the first catalog cast failure fatal.
	StrictCoercion bool
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{
		SparsityThreshold: 0.9,
		WikiAfter:         time.Date(1996, time.January, 1, 0, 0, 0, 0, time.UTC),
		CatalogBefore:     time.Date(1965, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
}

// OptionsFromConfig builds Options from the pipeline configuration.
func OptionsFromConfig(p config.PipelineConfig) (Options, error) {
	after, before, err := p.MismergeCutoffs()
	if err != nil {
		return Options{}, err
	}
	return Options{
		SparsityThreshold: p.SparsityThreshold,
		WikiAfter:         after,
		CatalogBefore:     before,
		StrictCoercion:    p.StrictCoercion,
	}, nil
}
