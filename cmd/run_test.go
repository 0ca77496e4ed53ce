package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/movie-etl/internal/config"
)

func TestRunCommand_Flags(t *testing.T) {
	for _, name := range []string{"wiki", "catalog", "ratings", "bundle", "rules", "chunk-size", "strict", "skip-ratings-load", "dry-run"} {
		assert.NotNil(t, runCmd.Flags().Lookup(name), "run command should have --%s", name)
	}
	assert.Equal(t, "false", runCmd.Flags().Lookup("dry-run").DefValue)
}

// newFlagCommand declares the run flags on a fresh command so parsed
// state does not leak between tests.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "run"}
	cmd.Flags().String("wiki", "", "")
	cmd.Flags().String("catalog", "", "")
	cmd.Flags().String("ratings", "", "")
	cmd.Flags().String("bundle", "", "")
	cmd.Flags().String("rules", "", "")
	cmd.Flags().Int("chunk-size", 0, "")
	cmd.Flags().Bool("strict", false, "")
	return cmd
}

func TestApplyRunFlags_OnlyChangedFlags(t *testing.T) {
	c := &config.Config{
		Sources:  config.SourcesConfig{Wiki: "wiki.json", Catalog: "catalog.csv", Ratings: "ratings.csv"},
		Pipeline: config.PipelineConfig{RatingsChunkSize: 1_000_000},
	}
	cmd := newFlagCommand()
	require.NoError(t, cmd.Flags().Parse([]string{"--catalog", "bundle:movies_metadata.csv", "--bundle", "movies.zip", "--chunk-size", "500", "--strict"}))

	require.NoError(t, applyRunFlags(cmd, c))

	assert.Equal(t, "wiki.json", c.Sources.Wiki)
	assert.Equal(t, "bundle:movies_metadata.csv", c.Sources.Catalog)
	assert.Equal(t, "ratings.csv", c.Sources.Ratings)
	assert.Equal(t, "movies.zip", c.Sources.Bundle)
	assert.Equal(t, 500, c.Pipeline.RatingsChunkSize)
	assert.True(t, c.Pipeline.StrictCoercion)
}

func TestApplyRunFlags_NothingSet(t *testing.T) {
	c := &config.Config{Pipeline: config.PipelineConfig{RatingsChunkSize: 7}}
	cmd := newFlagCommand()

	require.NoError(t, applyRunFlags(cmd, c))
	assert.Equal(t, 7, c.Pipeline.RatingsChunkSize)
}
