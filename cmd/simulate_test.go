package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/taxidispatch/app"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "audit:\n  backend: none\nsimulation:\n  grid_width: 4\n  grid_height: 4\n  taxis: 2\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	return path
}

func TestSimulateJSON(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"simulate", "--config", writeConfig(t), "--ticks", "20", "--json"})
	t.Cleanup(func() { simJSON, simTicks = false, 0 })
	require.NoError(t, Execute())

	var res app.Result
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.Equal(t, 20, res.Stats.Ticks)
	assert.Len(t, res.Agents, 2)
}

func TestPrintResult(t *testing.T) {
	var out bytes.Buffer
	res := app.Result{}
	res.Stats.Ticks = 3
	require.NoError(t, printResult(&out, res))
	assert.True(t, strings.HasPrefix(out.String(), "ticks 3:"))
	assert.Contains(t, out.String(), "dispatcher")
}
