package frame

import (
	"github.com/rotisserie/eris"
)

// Suffixes disambiguates column names present on both sides of a merge.
type Suffixes struct {
	Left  string
	Right string
}

// InnerMerge joins left and right on key, keeping rows whose key appears on
// both sides. Output rows follow left order, then right order for repeated
// keys. The key column appears once; other colliding names get the suffixes.
// Null keys never match.
func InnerMerge(left, right *Frame, key string, sfx Suffixes) (*Frame, error) {
	lk, ok := left.index[key]
	if !ok {
		return nil, eris.Errorf("frame: merge key %q missing on left", key)
	}
	rk, ok := right.index[key]
	if !ok {
		return nil, eris.Errorf("frame: merge key %q missing on right", key)
	}

	cols := make([]string, 0, len(left.cols)+len(right.cols)-1)
	for _, c := range left.cols {
		if c != key && right.Has(c) {
			c += sfx.Left
		}
		cols = append(cols, c)
	}
	var rightCols []int
	for j, c := range right.cols {
		if c == key {
			continue
		}
		if left.Has(c) {
			c += sfx.Right
		}
		cols = append(cols, c)
		rightCols = append(rightCols, j)
	}
	out := New(cols...)
	if len(out.cols) != len(cols) {
		return nil, eris.New("frame: merge produced duplicate column names")
	}

	byKey := right.groupBy(rk)
	for _, lrow := range left.rows {
		k, ok := lrow[lk].Key()
		if !ok {
			continue
		}
		for _, ri := range byKey[k] {
			row := make([]Cell, 0, len(cols))
			row = append(row, lrow...)
			for _, j := range rightCols {
				row = append(row, right.rows[ri][j])
			}
			out.rows = append(out.rows, row)
		}
	}
	return out, nil
}

// LeftJoin appends right's non-key columns to left, matching on key. Left
// rows without a match get nulls. When right repeats a key, its first row
// is used. Right columns that already exist on left are an error.
func LeftJoin(left, right *Frame, key string) (*Frame, error) {
	lk, ok := left.index[key]
	if !ok {
		return nil, eris.Errorf("frame: join key %q missing on left", key)
	}
	rk, ok := right.index[key]
	if !ok {
		return nil, eris.Errorf("frame: join key %q missing on right", key)
	}

	cols := append([]string(nil), left.cols...)
	var rightCols []int
	for j, c := range right.cols {
		if c == key {
			continue
		}
		if left.Has(c) {
			return nil, eris.Errorf("frame: join column %q exists on both sides", c)
		}
		cols = append(cols, c)
		rightCols = append(rightCols, j)
	}
	out := New(cols...)

	byKey := right.groupBy(rk)
	out.rows = make([][]Cell, len(left.rows))
	for i, lrow := range left.rows {
		row := make([]Cell, len(left.cols), len(cols))
		copy(row, lrow)
		var match []Cell
		if k, ok := lrow[lk].Key(); ok {
			if ris := byKey[k]; len(ris) > 0 {
				match = right.rows[ris[0]]
			}
		}
		for _, j := range rightCols {
			if match != nil {
				row = append(row, match[j])
			} else {
				row = append(row, Null())
			}
		}
		out.rows[i] = row
	}
	return out, nil
}

// DuplicateKeys counts rows whose non-null key repeats an earlier row.
func (f *Frame) DuplicateKeys(key string) int {
	j, ok := f.index[key]
	if !ok {
		return 0
	}
	n := 0
	for _, ris := range f.groupBy(j) {
		n += len(ris) - 1
	}
	return n
}

func (f *Frame) groupBy(j int) map[string][]int {
	out := make(map[string][]int, len(f.rows))
	for i, row := range f.rows {
		if k, ok := row[j].Key(); ok {
			out[k] = append(out[k], i)
		}
	}
	return out
}
