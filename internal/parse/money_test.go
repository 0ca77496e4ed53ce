package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/movie-etl/internal/normalize"
)

func TestParseDollarString(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want float64
		ok   bool
	}{
		{"million", "$1.2 million", 1_200_000, true},
		{"million no space", "$5million", 5_000_000, true},
		{"millon misspelling", "$3 millon", 3_000_000, true},
		{"million case", "$2 MILLION", 2_000_000, true},
		{"billion", "$3 billion", 3_000_000_000, true},
		{"billon misspelling", "$1.5 billon", 1_500_000_000, true},
		{"grouped commas", "$12,345,678", 12_345_678, true},
		{"grouped periods", "$1.234.567", 1_234_567, true},
		{"grouped with space", "$ 250,000", 250_000, true},
		{"ungrouped", "$500", 0, false},
		{"no dollar", "12 million", 0, false},
		{"no dollar decimal million", "1.2 million", 0, false},
		{"no dollar billion", "3 billion", 0, false},
		{"text", "N/A", 0, false},
		{"empty", "", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDollarString(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 0.5)
		})
	}
}

func TestMatchGrouped_GivesBackGroupBeforeScaleWord(t *testing.T) {
	m, ok := matchGrouped("$1,234,567 million")
	assert.True(t, ok)
	assert.Equal(t, "$1,234", m)

	_, ok = matchGrouped("$1,234 million")
	assert.False(t, ok)
}

func TestCollapseRange(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"$400 - $500 million", "$400 million"},
		{"$400–500 million", "$400 million"},
		{"$1,000,000—$2,000,000", "$1,000,000"},
		{"$5 million", "$5 million"},
		{"budget unknown", "budget unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, CollapseRange(tt.in))
		})
	}
}

func TestFindDollars(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"estimated $5.5 million (US)", "$5.5 million", true},
		{"US$ 12,000,000 gross", "$ 12,000,000", true},
		{"£3 million / $4 million", "$4 million", true},
		{"$ and then $1 billion", "$1 billion", true},
		{"no money here", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := FindDollars(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractDollars(t *testing.T) {
	tests := []struct {
		name string
		in   normalize.Value
		want float64
		ok   bool
	}{
		{"million", normalize.String("$1.2 million"), 1_200_000, true},
		{"range keeps lower bound and scale", normalize.String("$400 - $500 million"), 400_000_000, true},
		{"grouped", normalize.String("$12,345,678"), 12_345_678, true},
		{"list joined", normalize.List("$7 million", "[1]"), 7_000_000, true},
		{"list with prefix text", normalize.List("US", "$2.5 billion"), 2_500_000_000, true},
		{"not money", normalize.String("N/A"), 0, false},
		{"null", normalize.Null(), 0, false},
		{"map", normalize.Value{Kind: normalize.KindMap, Map: map[string]normalize.Value{}}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractDollars(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 0.5)
		})
	}
}
