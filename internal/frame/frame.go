// Package frame is a small column-ordered table used to reconcile the movie
// sources. Frames are not safe for concurrent mutation; operations that
// filter or reshape return a new Frame and leave the receiver untouched.
package frame

import (
	"sort"

	"github.com/rotisserie/eris"
)

// Frame is a table with ordered, uniquely named columns.
type Frame struct {
	cols  []string
	index map[string]int
	rows  [][]Cell
}

// New creates an empty frame with the given columns.
func New(columns ...string) *Frame {
	f := &Frame{index: make(map[string]int, len(columns))}
	for _, c := range columns {
		f.addColumn(c)
	}
	return f
}

// FromRecords builds a frame from keyed rows. Columns appear in the order
// first seen, sorted within each record; labels a row lacks are null.
func FromRecords(records []map[string]Cell) *Frame {
	f := New()
	for _, rec := range records {
		keys := make([]string, 0, len(rec))
		for k := range rec {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if !f.Has(k) {
				f.addColumn(k)
			}
		}
	}
	for _, rec := range records {
		row := make([]Cell, len(f.cols))
		for k, v := range rec {
			row[f.index[k]] = v
		}
		f.rows = append(f.rows, row)
	}
	return f
}

func (f *Frame) addColumn(name string) {
	if _, ok := f.index[name]; ok {
		return
	}
	f.index[name] = len(f.cols)
	f.cols = append(f.cols, name)
	for i := range f.rows {
		f.rows[i] = append(f.rows[i], Null())
	}
}

// Columns returns the column names in order.
func (f *Frame) Columns() []string {
	return append([]string(nil), f.cols...)
}

// Len returns the number of rows.
func (f *Frame) Len() int { return len(f.rows) }

// Has reports whether the column exists.
func (f *Frame) Has(col string) bool {
	_, ok := f.index[col]
	return ok
}

// Append adds a row. The cell count must match the column count.
func (f *Frame) Append(cells ...Cell) error {
	if len(cells) != len(f.cols) {
		return eris.Errorf("frame: append %d cells to %d columns", len(cells), len(f.cols))
	}
	f.rows = append(f.rows, append([]Cell(nil), cells...))
	return nil
}

// Row returns row i. The slice is shared with the frame.
func (f *Frame) Row(i int) []Cell { return f.rows[i] }

// Get returns the cell at row i, column col; absent columns read as null.
func (f *Frame) Get(i int, col string) Cell {
	j, ok := f.index[col]
	if !ok {
		return Null()
	}
	return f.rows[i][j]
}

// Column returns a copy of the column's cells.
func (f *Frame) Column(col string) ([]Cell, bool) {
	j, ok := f.index[col]
	if !ok {
		return nil, false
	}
	out := make([]Cell, len(f.rows))
	for i, row := range f.rows {
		out[i] = row[j]
	}
	return out, true
}

// Set replaces a column's cells, appending the column when it is new.
func (f *Frame) Set(col string, cells []Cell) error {
	if len(cells) != len(f.rows) {
		return eris.Errorf("frame: set column %q with %d cells on %d rows", col, len(cells), len(f.rows))
	}
	f.addColumn(col)
	j := f.index[col]
	for i := range f.rows {
		f.rows[i][j] = cells[i]
	}
	return nil
}

// Drop removes columns. Columns that do not exist are ignored.
func (f *Frame) Drop(cols ...string) {
	drop := make(map[string]bool, len(cols))
	for _, c := range cols {
		if f.Has(c) {
			drop[c] = true
		}
	}
	if len(drop) == 0 {
		return
	}
	keep := make([]string, 0, len(f.cols)-len(drop))
	for _, c := range f.cols {
		if !drop[c] {
			keep = append(keep, c)
		}
	}
	*f = *f.Project(keep...)
}

// Project returns a frame with exactly the given columns in the given order.
// Columns absent from f are materialized as all-null.
func (f *Frame) Project(cols ...string) *Frame {
	out := New(cols...)
	src := make([]int, len(out.cols))
	for j, c := range out.cols {
		if k, ok := f.index[c]; ok {
			src[j] = k
		} else {
			src[j] = -1
		}
	}
	out.rows = make([][]Cell, len(f.rows))
	for i, row := range f.rows {
		nr := make([]Cell, len(out.cols))
		for j, k := range src {
			if k >= 0 {
				nr[j] = row[k]
			}
		}
		out.rows[i] = nr
	}
	return out
}

// Rename renames columns in place. Missing source columns are ignored; a
// rename onto an existing name is an error.
func (f *Frame) Rename(mapping map[string]string) error {
	for _, from := range append([]string(nil), f.cols...) {
		to, ok := mapping[from]
		if !ok || to == from {
			continue
		}
		if f.Has(to) {
			return eris.Errorf("frame: rename %q to existing column %q", from, to)
		}
		j := f.index[from]
		delete(f.index, from)
		f.index[to] = j
		f.cols[j] = to
	}
	return nil
}

// Filter returns the rows for which keep reports true.
func (f *Frame) Filter(keep func(r Row) bool) *Frame {
	out := New(f.cols...)
	for i, row := range f.rows {
		if keep(Row{f: f, i: i}) {
			out.rows = append(out.rows, append([]Cell(nil), row...))
		}
	}
	return out
}

// DedupBy keeps the first row for each non-null value of col. Rows with a
// null key are all kept.
func (f *Frame) DedupBy(col string) *Frame {
	j, ok := f.index[col]
	if !ok {
		return f.Project(f.cols...)
	}
	seen := make(map[string]bool, len(f.rows))
	return f.Filter(func(r Row) bool {
		k, ok := r.f.rows[r.i][j].Key()
		if !ok {
			return true
		}
		if seen[k] {
			return false
		}
		seen[k] = true
		return true
	})
}

// NullFraction returns the share of rows whose col is null. An absent column
// is entirely null; an empty frame reports 0.
func (f *Frame) NullFraction(col string) float64 {
	if len(f.rows) == 0 {
		return 0
	}
	return float64(f.NullCount(col)) / float64(len(f.rows))
}

// NullCount returns the number of rows whose col is null.
func (f *Frame) NullCount(col string) int {
	j, ok := f.index[col]
	if !ok {
		return len(f.rows)
	}
	n := 0
	for _, row := range f.rows {
		if row[j].IsNull() {
			n++
		}
	}
	return n
}

// ColumnKind returns the kind shared by the column's non-null cells. Int and
// float mix to float; any other mix is text. An all-null column is null.
func (f *Frame) ColumnKind(col string) Kind {
	j, ok := f.index[col]
	if !ok {
		return KindNull
	}
	kind := KindNull
	for _, row := range f.rows {
		k := row[j].Kind
		switch {
		case k == KindNull || k == kind:
		case kind == KindNull:
			kind = k
		case (kind == KindInt && k == KindFloat) || (kind == KindFloat && k == KindInt):
			kind = KindFloat
		default:
			return KindText
		}
	}
	return kind
}

// Row is a read-only view of one frame row.
type Row struct {
	f *Frame
	i int
}

// Index returns the row's position in its frame.
func (r Row) Index() int { return r.i }

// Get returns the named cell; absent columns read as null.
func (r Row) Get(col string) Cell { return r.f.Get(r.i, col) }
