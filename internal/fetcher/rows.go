package fetcher

import (
	"io"
)

// RowReader adapts a row/error channel pair from StreamCSV or StreamXLSX to
// the pull-style Read method expected by record decoders such as csvutil.
type RowReader struct {
	rows <-chan []string
	errs <-chan error
	err  error
}

// NewRowReader wraps the channels returned by a Stream* function.
func NewRowReader(rows <-chan []string, errs <-chan error) *RowReader {
	return &RowReader{rows: rows, errs: errs}
}

// Read returns the next row, the stream's error, or io.EOF once both
// channels are drained.
func (r *RowReader) Read() ([]string, error) {
	if r.err != nil {
		return nil, r.err
	}
	if row, ok := <-r.rows; ok {
		return row, nil
	}
	if err, ok := <-r.errs; ok && err != nil {
		r.err = err
		return nil, err
	}
	r.err = io.EOF
	return nil, io.EOF
}
