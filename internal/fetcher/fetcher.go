// Package fetcher downloads source files over HTTP and FTP, and streams rows
// out of CSV, XLSX, JSON and ZIP inputs.
package fetcher

import (
	"context"
	"io"
	"os"

	"github.com/rotisserie/eris"
)

// Fetcher downloads a remote source.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL and writes it to path. Returns bytes written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}

func downloadToFile(ctx context.Context, f Fetcher, url, path string) (int64, error) {
	body, err := f.Download(ctx, url)
	if err != nil {
		return 0, err
	}
	defer body.Close() //nolint:errcheck

	file, err := os.Create(path)
	if err != nil {
		return 0, eris.Wrap(err, "fetcher: create file")
	}

	n, err := io.Copy(file, body)
	if err != nil {
		_ = file.Close()
		return n, eris.Wrap(err, "fetcher: write file")
	}
	return n, eris.Wrap(file.Close(), "fetcher: close file")
}
