package reconcile

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/movie-etl/internal/etlerr"
	"github.com/sells-group/movie-etl/internal/frame"
)

func TestLoadCatalog_FiltersAndCasts(t *testing.T) {
	path := writeCatalogCSV(t,
		catalogRecord(map[string]string{"id": "862", "imdb_id": "tt0114709", "budget": "30000000", "video": "True", "revenue": "373554033"}),
		catalogRecord(map[string]string{"adult": "True", "id": "2"}),
		catalogRecord(map[string]string{"adult": " - Written by Ørnås", "id": "3"}),
		catalogRecord(map[string]string{"id": "4", "imdb_id": "", "popularity": "", "release_date": "", "runtime": "n/a"}),
	)
	rep := &Report{}

	catalog, err := LoadCatalog(context.Background(), path, DefaultOptions(), rep)
	require.NoError(t, err)
	require.Equal(t, 2, catalog.Len())
	assert.False(t, catalog.Has("adult"))
	assert.Equal(t, catalogColumns, catalog.Columns())

	assert.Equal(t, frame.Int(862), catalog.Get(0, "id"))
	assert.Equal(t, frame.Int(30_000_000), catalog.Get(0, "budget"))
	assert.Equal(t, frame.Text("tt0114709"), catalog.Get(0, "imdb_id"))
	assert.Equal(t, frame.Bool(true), catalog.Get(0, "video"))
	assert.Equal(t, frame.Float(373554033), catalog.Get(0, "revenue"))
	assert.Equal(t, frame.Float(1.5), catalog.Get(0, "popularity"))
	assert.Equal(t, frame.Date(time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC)), catalog.Get(0, "release_date"))

	assert.True(t, catalog.Get(1, "imdb_id").IsNull())
	assert.True(t, catalog.Get(1, "popularity").IsNull())
	assert.True(t, catalog.Get(1, "release_date").IsNull())
	assert.True(t, catalog.Get(1, "runtime").IsNull())
	assert.Equal(t, frame.Bool(false), catalog.Get(1, "video"))

	assert.Equal(t, 2, rep.CatalogRows)
	assert.Equal(t, 0, rep.Coercion.Total())
	assert.Empty(t, rep.Warnings)
}

func TestLoadCatalog_CoercionReport(t *testing.T) {
	path := writeCatalogCSV(t,
		catalogRecord(map[string]string{"id": "1"}),
		catalogRecord(map[string]string{"id": "1997-08-20"}),
		catalogRecord(map[string]string{"id": "2012-09-29"}),
		catalogRecord(map[string]string{"id": "5", "budget": "/ff9qCepilowshEtG2GYWwzt2bs4.jpg"}),
		catalogRecord(map[string]string{"id": "6", "popularity": "Beware Of Frost Bites"}),
		catalogRecord(map[string]string{"id": "7", "release_date": "someday"}),
	)
	rep := &Report{}

	catalog, err := LoadCatalog(context.Background(), path, DefaultOptions(), rep)
	require.NoError(t, err)
	assert.Equal(t, 1, catalog.Len())

	assert.Equal(t, 5, rep.Coercion.DroppedRows)
	assert.Equal(t, 5, rep.Coercion.Total())
	require.Contains(t, rep.Coercion.Columns, "id")
	assert.Equal(t, 2, rep.Coercion.Columns["id"].Count)
	assert.Equal(t, []string{"1997-08-20", "2012-09-29"}, rep.Coercion.Columns["id"].Samples)
	assert.Equal(t, 1, rep.Coercion.Columns["budget"].Count)
	assert.Equal(t, 1, rep.Coercion.Columns["popularity"].Count)
	assert.Equal(t, 1, rep.Coercion.Columns["release_date"].Count)
	assert.Len(t, rep.WarningsOf(etlerr.TypeCoercionFailure), 4)
}

func TestLoadCatalog_StrictCoercion(t *testing.T) {
	path := writeCatalogCSV(t,
		catalogRecord(map[string]string{"id": "1"}),
		catalogRecord(map[string]string{"id": "not-a-number"}),
	)
	opts := DefaultOptions()
	opts.StrictCoercion = true

	_, err := LoadCatalog(context.Background(), path, opts, &Report{})
	require.Error(t, err)
	assert.Equal(t, etlerr.TypeCoercionFailure, etlerr.KindOf(err))
	assert.Contains(t, err.Error(), "not-a-number")
}

func TestLoadCatalog_FieldCountMismatch(t *testing.T) {
	short := catalogRecord(nil)[:5]
	path := writeCatalogCSV(t, catalogRecord(nil), short)
	rep := &Report{}

	catalog, err := LoadCatalog(context.Background(), path, DefaultOptions(), rep)
	require.NoError(t, err)
	assert.Equal(t, 1, catalog.Len())
	assert.Equal(t, 1, rep.Coercion.Columns["row"].Count)
}

func TestLoadCatalog_Unavailable(t *testing.T) {
	_, err := LoadCatalog(context.Background(), "/nonexistent/movies_metadata.csv", DefaultOptions(), &Report{})
	require.Error(t, err)
	assert.Equal(t, etlerr.SourceUnavailable, etlerr.KindOf(err))

	_, err = LoadCatalog(context.Background(), "/nonexistent/movies_metadata.xlsx", DefaultOptions(), &Report{})
	require.Error(t, err)
	assert.Equal(t, etlerr.SourceUnavailable, etlerr.KindOf(err))
}

func TestLoadCatalog_XLSX(t *testing.T) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("movies_metadata")
	require.NoError(t, err)
	rows := [][]string{
		catalogHeader,
		catalogRecord(map[string]string{"id": "11", "imdb_id": "tt0076759", "homepage": "x", "overview": "y"}),
	}
	for _, data := range rows {
		row := sheet.AddRow()
		for _, v := range data {
			if v == "" {
				v = "-"
			}
			row.AddCell().SetString(v)
		}
	}
	path := filepath.Join(t.TempDir(), "movies_metadata.xlsx")
	require.NoError(t, f.Save(path))

	catalog, err := LoadCatalog(context.Background(), path, DefaultOptions(), &Report{})
	require.NoError(t, err)
	require.Equal(t, 1, catalog.Len())
	assert.Equal(t, frame.Int(11), catalog.Get(0, "id"))
	assert.Equal(t, frame.Text("tt0076759"), catalog.Get(0, "imdb_id"))
}
