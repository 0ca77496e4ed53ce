package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/movie-etl/internal/reconcile"
)

func TestWriteRules_RoundTrips(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeRules(&buf, ""))
	assert.Contains(t, buf.String(), "kaggle_id")

	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	rules, err := reconcile.LoadRules(path)
	require.NoError(t, err)
	assert.Equal(t, reconcile.DefaultRules(), rules)
}

func TestWriteRules_BadPath(t *testing.T) {
	assert.Error(t, writeRules(&bytes.Buffer{}, "/nonexistent/rules.yaml"))
}
