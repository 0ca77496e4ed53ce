package reconcile

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/sells-group/movie-etl/internal/etlerr"
)

const maxSamples = 5

// Warning is a non-fatal condition met during reconciliation.
type Warning struct {
	Kind    etlerr.Kind `json:"kind"`
	Stage   string      `json:"stage"`
	Message string      `json:"message"`
}

// ColumnFailures counts values of one column that failed coercion.
type ColumnFailures struct {
	Count   int      `json:"count"`
	Samples []string `json:"samples"`
}

// CoercionReport aggregates catalog cast failures per column.
type CoercionReport struct {
	Columns     map[string]*ColumnFailures `json:"columns,omitempty"`
	DroppedRows int                        `json:"dropped_rows"`
}

func (c *CoercionReport) add(column, value string) {
	if c.Columns == nil {
		c.Columns = make(map[string]*ColumnFailures)
	}
	cf, ok := c.Columns[column]
	if !ok {
		cf = &ColumnFailures{}
		c.Columns[column] = cf
	}
	cf.Count++
	if len(cf.Samples) < maxSamples {
		cf.Samples = append(cf.Samples, value)
	}
}

// Total returns the number of failed values across columns.
func (c *CoercionReport) Total() int {
	n := 0
	for _, cf := range c.Columns {
		n += cf.Count
	}
	return n
}

// Report describes one reconciliation.
type Report struct {
	WikiRecords   int      `json:"wiki_records"`
	WikiKept      int      `json:"wiki_kept"`
	WikiRows      int      `json:"wiki_rows"`
	PrunedColumns []string `json:"pruned_columns,omitempty"`
	// Unparsed counts non-null free-text values the parsers could not read,
	// keyed by source column.
	Unparsed      map[string]int `json:"unparsed,omitempty"`
	CatalogRows   int            `json:"catalog_rows"`
	Coercion      CoercionReport `json:"coercion"`
	MergedRows    int            `json:"merged_rows"`
	MismergedRows int            `json:"mismerged_rows"`
	OutputRows    int            `json:"output_rows"`
	Warnings      []Warning      `json:"warnings,omitempty"`
}

func (r *Report) warn(kind etlerr.Kind, stage, format string, args ...any) {
	w := Warning{Kind: kind, Stage: stage, Message: fmt.Sprintf(format, args...)}
	r.Warnings = append(r.Warnings, w)
	zap.L().Warn(w.Message,
		zap.String("component", "reconcile"),
		zap.String("stage", stage),
		zap.Stringer("kind", kind),
	)
}

// WarningsOf returns the warnings of one kind.
func (r *Report) WarningsOf(kind etlerr.Kind) []Warning {
	var out []Warning
	for _, w := range r.Warnings {
		if w.Kind == kind {
			out = append(out, w)
		}
	}
	return out
}

func (r *Report) unparsed(column string, n int) {
	if n == 0 {
		return
	}
	if r.Unparsed == nil {
		r.Unparsed = make(map[string]int)
	}
	r.Unparsed[column] += n
}

// summarizeUnparsed emits one warning per column with unparseable values.
func (r *Report) summarizeUnparsed(stage string) {
	cols := make([]string, 0, len(r.Unparsed))
	for c := range r.Unparsed {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	for _, c := range cols {
		r.warn(etlerr.UnparseableValue, stage, "%d %q values could not be parsed and are missing", r.Unparsed[c], c)
	}
}
