package reconcile

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/movie-etl/internal/normalize"
)

// CoalescePair names a catalog column and the wiki column that fills its
// zero sentinels.
type CoalescePair struct {
	Catalog string `yaml:"catalog"`
	Wiki    string `yaml:"wiki"`
}

// SchemaColumn is one column of the canonical output table. Name is the
// public column name; when empty the source name is kept.
type SchemaColumn struct {
	Source string `yaml:"source"`
	Name   string `yaml:"name,omitempty"`
}

// OutputName returns the column's public name.
func (c SchemaColumn) OutputName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.Source
}

// Rules is the data-driven half of reconciliation.
type Rules struct {
	Normalize        normalize.Rules `yaml:"normalize"`
	RedundantColumns []string        `yaml:"redundant_columns"`
	Coalesce         []CoalescePair  `yaml:"coalesce"`
	Schema           []SchemaColumn  `yaml:"schema"`
}

// DefaultRules returns the built-in reconciliation rules.
func DefaultRules() Rules {
	return Rules{
		Normalize:        normalize.DefaultRules(),
		RedundantColumns: []string{"title_wiki", "release_date_wiki", "Language", "Production company(s)"},
		Coalesce: []CoalescePair{
			{Catalog: "runtime", Wiki: "running_time"},
			{Catalog: "budget_kaggle", Wiki: "budget_wiki"},
			{Catalog: "revenue", Wiki: "box_office"},
		},
		Schema: []SchemaColumn{
			{Source: "imdb_id"},
			{Source: "id", Name: "kaggle_id"},
			{Source: "title_kaggle", Name: "title"},
			{Source: "original_title"},
			{Source: "tagline"},
			{Source: "belongs_to_collection"},
			{Source: "url", Name: "wikipedia_url"},
			{Source: "imdb_link"},
			{Source: "runtime"},
			{Source: "budget_kaggle", Name: "budget"},
			{Source: "revenue"},
			{Source: "release_date_kaggle", Name: "release_date"},
			{Source: "popularity"},
			{Source: "vote_average"},
			{Source: "vote_count"},
			{Source: "genres"},
			{Source: "original_language"},
			{Source: "overview"},
			{Source: "spoken_languages"},
			{Source: "Country", Name: "country"},
			{Source: "production_companies"},
			{Source: "production_countries"},
			{Source: "Distributor", Name: "distributor"},
			{Source: "Producer(s)", Name: "producers"},
			{Source: "Director", Name: "director"},
			{Source: "Starring", Name: "starring"},
			{Source: "Cinematography", Name: "cinematography"},
			{Source: "Editor(s)", Name: "editors"},
			{Source: "Writer(s)", Name: "writers"},
			{Source: "Composer(s)", Name: "composers"},
			{Source: "Based on", Name: "based_on"},
		},
	}
}

// LoadRules reads a YAML rules file over the defaults. Top-level sections
// present in the file replace the defaults; absent sections are kept. An
// empty path returns the defaults.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, eris.Wrapf(err, "reconcile: read rules %s", path)
	}
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return Rules{}, eris.Wrapf(err, "reconcile: parse rules %s", path)
	}
	if err := rules.Validate(); err != nil {
		return Rules{}, err
	}
	return rules, nil
}

// Validate checks that the schema is usable.
func (r Rules) Validate() error {
	if len(r.Schema) == 0 {
		return eris.New("reconcile: rules schema is empty")
	}
	seen := make(map[string]bool, len(r.Schema))
	for _, c := range r.Schema {
		if c.Source == "" {
			return eris.New("reconcile: schema column without source")
		}
		if seen[c.OutputName()] {
			return eris.Errorf("reconcile: duplicate schema column %q", c.OutputName())
		}
		seen[c.OutputName()] = true
	}
	for _, p := range r.Coalesce {
		if p.Catalog == "" || p.Wiki == "" {
			return eris.Errorf("reconcile: incomplete coalesce pair %+v", p)
		}
	}
	return nil
}

// YAML renders the rules as a document LoadRules accepts.
func (r Rules) YAML() ([]byte, error) {
	data, err := yaml.Marshal(r)
	if err != nil {
		return nil, eris.Wrap(err, "reconcile: marshal rules")
	}
	return data, nil
}
