package normalize

// AltTitlesKey is the canonical label under which alternate titles are nested.
const AltTitlesKey = "alt_titles"

// Rename maps one source label onto a canonical label.
type Rename struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// Rules drives Clean. Renames apply in order.
type Rules struct {
	AltTitleKeys []string `yaml:"alt_title_keys"`
	Renames      []Rename `yaml:"renames"`
}

// DefaultAltTitleKeys lists the labels that hold a title in another language
// or script.
var DefaultAltTitleKeys = []string{
	"Also known as", "Arabic", "Cantonese", "Chinese", "French",
	"Hangul", "Hebrew", "Hepburn", "Japanese", "Literally",
	"Mandarin", "McCune–Reischauer", "Original title", "Polish",
	"Revised Romanization", "Romanized", "Russian",
	"Simplified", "Traditional", "Yiddish",
}

// DefaultRenames collapses the historical label spellings onto the canonical
// vocabulary. Several labels share a target; a later rename overwrites an
// earlier one within the same record. The trailing space in the
// "Productioncompan..." labels is part of the source label.
var DefaultRenames = []Rename{
	{"Adaptation by", "Writer(s)"},
	{"Country of origin", "Country"},
	{"Directed by", "Director"},
	{"Distributed by", "Distributor"},
	{"Edited by", "Editor(s)"},
	{"Length", "Running time"},
	{"Original release", "Release date"},
	{"Music by", "Composer(s)"},
	{"Produced by", "Producer(s)"},
	{"Producer", "Producer(s)"},
	{"Productioncompanies ", "Production company(s)"},
	{"Productioncompany ", "Production company(s)"},
	{"Released", "Release Date"},
	{"Release Date", "Release date"},
	{"Screen story by", "Writer(s)"},
	{"Screenplay by", "Writer(s)"},
	{"Story by", "Writer(s)"},
	{"Theme music composer", "Composer(s)"},
	{"Written by", "Writer(s)"},
}

// DefaultRules returns a fresh copy of the built-in rule tables.
func DefaultRules() Rules {
	return Rules{
		AltTitleKeys: append([]string(nil), DefaultAltTitleKeys...),
		Renames:      append([]Rename(nil), DefaultRenames...),
	}
}

// Clean returns a normalized copy of rec; rec itself is never modified.
// Alternate-title labels are moved under AltTitlesKey (only when at least one
// was present) and labels are renamed per rules.Renames. Absent labels are
// skipped, so Clean cannot fail.
func Clean(rec RawRecord, rules Rules) RawRecord {
	movie := rec.Clone()

	alt := make(map[string]Value)
	for _, key := range rules.AltTitleKeys {
		if v, ok := movie[key]; ok {
			alt[key] = v
			delete(movie, key)
		}
	}
	if len(alt) > 0 {
		movie[AltTitlesKey] = Value{Kind: KindMap, Map: alt}
	}

	for _, r := range rules.Renames {
		if v, ok := movie[r.From]; ok {
			delete(movie, r.From)
			movie[r.To] = v
		}
	}

	return movie
}
