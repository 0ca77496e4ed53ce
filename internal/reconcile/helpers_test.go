package reconcile

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

var catalogHeader = append([]string{"adult"}, catalogColumns...)

// catalogRecord returns a valid catalog row with overrides applied.
func catalogRecord(overrides map[string]string) []string {
	base := map[string]string{
		"adult":        "False",
		"budget":       "0",
		"id":           "1",
		"imdb_id":      "tt0000001",
		"popularity":   "1.5",
		"release_date": "1999-01-01",
		"revenue":      "0",
		"runtime":      "0",
		"title":        "Untitled",
		"video":        "False",
		"vote_average": "5.0",
		"vote_count":   "10",
	}
	for k, v := range overrides {
		base[k] = v
	}
	row := make([]string, len(catalogHeader))
	for i, h := range catalogHeader {
		row[i] = base[h]
	}
	return row
}

func writeCatalogCSV(t *testing.T, rows ...[]string) string {
	t.Helper()
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	require.NoError(t, w.Write(catalogHeader))
	require.NoError(t, w.WriteAll(rows))
	return writeFile(t, "movies_metadata.csv", buf.String())
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
