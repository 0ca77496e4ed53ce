// Package ratings streams the user rating log and aggregates it into a
// per-movie count of each rating score.
package ratings

import (
	"context"
	"io"
	"sort"
	"strconv"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/sells-group/movie-etl/internal/fetcher"
	"github.com/sells-group/movie-etl/internal/frame"
)

// Event is one row of the rating log.
type Event struct {
	UserID    int64   `csv:"userId"`
	MovieID   int64   `csv:"movieId"`
	Rating    float64 `csv:"rating"`
	Timestamp int64   `csv:"timestamp"`
}

// Columns lists the store columns of an Event, in field order.
var Columns = []string{"userId", "movieId", "rating", "timestamp"}

// Values returns the event as a store row.
func (e Event) Values() []any {
	return []any{e.UserID, e.MovieID, e.Rating, e.Timestamp}
}

// Reader decodes rating events from a CSV stream with a header row.
type Reader struct {
	dec    *csvutil.Decoder
	cancel context.CancelFunc
	line   int
}

// NewReader starts decoding r. Close releases the background parser.
func NewReader(ctx context.Context, r io.Reader) (*Reader, error) {
	ctx, cancel := context.WithCancel(ctx)
	rows, errs := fetcher.StreamCSV(ctx, r, fetcher.CSVOptions{})
	dec, err := csvutil.NewDecoder(fetcher.NewRowReader(rows, errs))
	if err != nil {
		cancel()
		if err == io.EOF {
			return nil, eris.New("ratings: empty input")
		}
		return nil, eris.Wrap(err, "ratings: read header")
	}
	return &Reader{dec: dec, cancel: cancel, line: 1}, nil
}

// Next returns the next event or io.EOF.
func (r *Reader) Next() (Event, error) {
	var e Event
	err := r.dec.Decode(&e)
	if err == io.EOF {
		return Event{}, io.EOF
	}
	r.line++
	if err != nil {
		return Event{}, eris.Wrapf(err, "ratings: decode line %d", r.line)
	}
	return e, nil
}

// ReadChunk reads up to n events. It returns a short chunk together with
// io.EOF at the end of the stream.
func (r *Reader) ReadChunk(n int) ([]Event, error) {
	chunk := make([]Event, 0, n)
	for len(chunk) < n {
		e, err := r.Next()
		if err != nil {
			return chunk, err
		}
		chunk = append(chunk, e)
	}
	return chunk, nil
}

// Close stops the background parser.
func (r *Reader) Close() {
	r.cancel()
}

type pair struct {
	movieID int64
	rating  float64
}

// Counts holds how many times each movie received each rating score.
type Counts struct {
	byPair map[pair]int64
	scores map[float64]struct{}
	movies map[int64]struct{}
	Events int64
}

// NewCounts returns an empty aggregate.
func NewCounts() *Counts {
	return &Counts{
		byPair: make(map[pair]int64),
		scores: make(map[float64]struct{}),
		movies: make(map[int64]struct{}),
	}
}

// Add records one event.
func (c *Counts) Add(e Event) {
	c.byPair[pair{e.MovieID, e.Rating}]++
	c.scores[e.Rating] = struct{}{}
	c.movies[e.MovieID] = struct{}{}
	c.Events++
}

// Get returns the count for one movie and score.
func (c *Counts) Get(movieID int64, rating float64) int64 {
	return c.byPair[pair{movieID, rating}]
}

// Scores returns the distinct scores seen, ascending.
func (c *Counts) Scores() []float64 {
	out := make([]float64, 0, len(c.scores))
	for s := range c.scores {
		out = append(out, s)
	}
	sort.Float64s(out)
	return out
}

// Columns returns the count column names in ascending score order.
func (c *Counts) Columns() []string {
	scores := c.Scores()
	out := make([]string, len(scores))
	for i, s := range scores {
		out[i] = ColumnName(s)
	}
	return out
}

// ColumnName names the count column of a score: integral scores keep one
// decimal place, so 1 becomes "rating_1.0" and 0.5 "rating_0.5".
func ColumnName(score float64) string {
	s := strconv.FormatFloat(score, 'f', -1, 64)
	if score == float64(int64(score)) {
		s += ".0"
	}
	return "rating_" + s
}

// Movies returns the number of distinct rated movies.
func (c *Counts) Movies() int { return len(c.movies) }

// Frame returns the aggregate as a table keyed by movieId, one row per
// movie in ascending id order and one column per score.
func (c *Counts) Frame(key string) (*frame.Frame, error) {
	scores := c.Scores()
	f := frame.New(append([]string{key}, c.Columns()...)...)

	ids := make([]int64, 0, len(c.movies))
	for id := range c.movies {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		row := make([]frame.Cell, 0, len(scores)+1)
		row = append(row, frame.Int(id))
		for _, s := range scores {
			row = append(row, frame.Int(c.Get(id, s)))
		}
		if err := f.Append(row...); err != nil {
			return nil, eris.Wrapf(err, "ratings: build counts row for movie %d", id)
		}
	}
	return f, nil
}

// Count streams the rating log and aggregates it.
func Count(ctx context.Context, r io.Reader) (*Counts, error) {
	rd, err := NewReader(ctx, r)
	if err != nil {
		return nil, err
	}
	defer rd.Close()

	counts := NewCounts()
	for {
		e, err := rd.Next()
		if err == io.EOF {
			return counts, nil
		}
		if err != nil {
			return nil, err
		}
		counts.Add(e)
	}
}

// Attach left-joins the count columns onto movies by key. Movies without
// ratings get zero counts.
func Attach(movies *frame.Frame, counts *Counts, key string) (*frame.Frame, error) {
	right, err := counts.Frame(key)
	if err != nil {
		return nil, err
	}
	out, err := frame.LeftJoin(movies, right, key)
	if err != nil {
		return nil, eris.Wrap(err, "ratings: attach counts")
	}
	for _, col := range counts.Columns() {
		cells, _ := out.Column(col)
		for i, c := range cells {
			if c.IsNull() {
				cells[i] = frame.Int(0)
			}
		}
		if err := out.Set(col, cells); err != nil {
			return nil, eris.Wrap(err, "ratings: fill counts")
		}
	}
	return out, nil
}
