package store

import (
	"encoding/json"
	"time"

	"github.com/sells-group/movie-etl/internal/frame"
	"github.com/sells-group/movie-etl/internal/ratings"
)

// dialect maps frame kinds to column types and cells to driver values.
type dialect struct {
	name  string
	types map[frame.Kind]string
	// dates as ISO text instead of time.Time
	dateText bool
}

var postgresDialect = dialect{
	name: "postgres",
	types: map[frame.Kind]string{
		frame.KindNull:  "TEXT",
		frame.KindText:  "TEXT",
		frame.KindList:  "JSONB",
		frame.KindMap:   "JSONB",
		frame.KindInt:   "BIGINT",
		frame.KindFloat: "DOUBLE PRECISION",
		frame.KindBool:  "BOOLEAN",
		frame.KindDate:  "DATE",
	},
}

var sqliteDialect = dialect{
	name: "sqlite",
	types: map[frame.Kind]string{
		frame.KindNull:  "TEXT",
		frame.KindText:  "TEXT",
		frame.KindList:  "TEXT",
		frame.KindMap:   "TEXT",
		frame.KindInt:   "INTEGER",
		frame.KindFloat: "REAL",
		frame.KindBool:  "INTEGER",
		frame.KindDate:  "TEXT",
	},
	dateText: true,
}

// column is a frame column with its resolved storage kind.
type column struct {
	name string
	kind frame.Kind
}

func frameColumns(f *frame.Frame) []column {
	names := f.Columns()
	cols := make([]column, len(names))
	for i, n := range names {
		cols[i] = column{name: n, kind: f.ColumnKind(n)}
	}
	return cols
}

func columnNames(cols []column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.name
	}
	return out
}

// value converts a cell to the driver value for a column of kind.
func (d dialect) value(c frame.Cell, kind frame.Kind) (any, error) {
	if c.IsNull() {
		return nil, nil
	}
	if kind == frame.KindText && c.Kind != frame.KindText {
		return c.String(), nil
	}
	switch c.Kind {
	case frame.KindText:
		return c.Str, nil
	case frame.KindList:
		data, err := json.Marshal(c.List)
		return string(data), err
	case frame.KindMap:
		data, err := c.ToValue().MarshalJSON()
		return string(data), err
	case frame.KindInt:
		if kind == frame.KindFloat {
			return float64(c.Int), nil
		}
		return c.Int, nil
	case frame.KindFloat:
		return c.Float, nil
	case frame.KindBool:
		return c.Bool, nil
	case frame.KindDate:
		if d.dateText {
			return c.Time.Format(time.DateOnly), nil
		}
		return c.Time, nil
	default:
		return nil, nil
	}
}

// rows converts a frame into driver rows.
func (d dialect) rows(f *frame.Frame, cols []column) ([][]any, error) {
	out := make([][]any, f.Len())
	for i := range out {
		cells := f.Row(i)
		row := make([]any, len(cols))
		for j, col := range cols {
			v, err := d.value(cells[j], col.kind)
			if err != nil {
				return nil, err
			}
			row[j] = v
		}
		out[i] = row
	}
	return out, nil
}

func ratingRows(events []ratings.Event) [][]any {
	out := make([][]any, len(events))
	for i, e := range events {
		out[i] = e.Values()
	}
	return out
}

// ratingColumns are the storage columns of the rating log.
var ratingColumns = []column{
	{name: "userId", kind: frame.KindInt},
	{name: "movieId", kind: frame.KindInt},
	{name: "rating", kind: frame.KindFloat},
	{name: "timestamp", kind: frame.KindInt},
}
