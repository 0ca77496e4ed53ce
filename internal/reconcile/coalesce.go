package reconcile

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/movie-etl/internal/frame"
)

// Coalesce fills zero values of the catalog column from the wiki column and
// then drops the wiki column. Missing catalog values stay missing. Applying
// it twice is a no-op: the second call finds no wiki column.
func Coalesce(f *frame.Frame, catalogCol, wikiCol string) error {
	if !f.Has(wikiCol) {
		return nil
	}
	cat, ok := f.Column(catalogCol)
	if !ok {
		f.Drop(wikiCol)
		return nil
	}
	wiki, _ := f.Column(wikiCol)
	for i := range cat {
		if cat[i].IsZero() {
			cat[i] = wiki[i]
		}
	}
	if err := f.Set(catalogCol, cat); err != nil {
		return eris.Wrapf(err, "reconcile: coalesce %s", catalogCol)
	}
	f.Drop(wikiCol)
	return nil
}

// Canonicalize projects f onto the schema and renames to public names.
// Schema columns missing from f become all-missing columns.
func Canonicalize(f *frame.Frame, schema []SchemaColumn) (*frame.Frame, error) {
	sources := make([]string, len(schema))
	names := make(map[string]string, len(schema))
	for i, c := range schema {
		sources[i] = c.Source
		if c.Name != "" {
			names[c.Source] = c.Name
		}
	}
	out := f.Project(sources...)
	if err := out.Rename(names); err != nil {
		return nil, eris.Wrap(err, "reconcile: rename to canonical schema")
	}
	return out, nil
}
