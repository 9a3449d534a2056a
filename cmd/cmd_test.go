package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarioCommand(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("..", "qa", "scenarios", "testdata", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(append([]string{"scenario"}, files...))
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	require.NoError(t, Execute())
	assert.Contains(t, out.String(), "PASS eco-speed-cap")
	assert.NotContains(t, out.String(), "FAIL")
}

func TestScenarioCommandMissingFile(t *testing.T) {
	rootCmd.SetArgs([]string{"scenario", "missing.yaml"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	assert.Error(t, Execute())
}
