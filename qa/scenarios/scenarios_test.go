package scenarios

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/evdash/core/sim"
)

func TestScenarios(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, files)
	for _, f := range files {
		sc, err := Load(f)
		require.NoError(t, err, f)
		t.Run(sc.Name, func(t *testing.T) {
			res := Run(sc, sim.DefaultParams())
			assert.True(t, res.Passed(), "%v", res.Failures)
		})
	}
}

func TestRunReportsFailures(t *testing.T) {
	over := 200.0
	sc := &Scenario{
		Name:   "impossible",
		StepMS: 100,
		Steps: []Step{
			{Pedal: "accelerate", ForSeconds: 1, Expect: &Expect{Speed: &Bounds{Min: &over}}},
			{Command: &sim.Command{Name: "nope"}},
			{Command: &sim.Command{Name: sim.CmdToggleAC}, ExpectError: "boom"},
		},
	}
	require.NoError(t, sc.Validate())
	res := Run(sc, sim.DefaultParams())
	assert.False(t, res.Passed())
	require.Len(t, res.Failures, 3)
	assert.Contains(t, res.Failures[0], "speed")
	assert.Contains(t, res.Failures[1], "unexpected error")
	assert.Contains(t, res.Failures[2], "expected error")
	assert.Equal(t, 10, res.Ticks)
	assert.True(t, res.Final.ACOn)
}

func TestInitialOverrides(t *testing.T) {
	soc, temp := 35.0, -5.0
	sc := &Scenario{Name: "cold", StepMS: 100, Initial: Initial{SOC: &soc, OutsideTemp: &temp}}
	require.NoError(t, sc.Validate())
	res := Run(sc, sim.DefaultParams())
	assert.InDelta(t, 35, res.Final.BatterySOC, 1e-9)
	assert.InDelta(t, -5, res.Final.OutsideTemp, 1e-9)
}

func TestLoadInvalid(t *testing.T) {
	_, err := Load("no-file.yaml")
	require.Error(t, err)

	cases := map[string]string{
		"syntax":       ":",
		"no name":      "steps: []",
		"bad pedal":    "name: x\nsteps:\n  - pedal: sideways",
		"negative":     "name: x\nsteps:\n  - for_s: -1",
		"orphan error": "name: x\nsteps:\n  - expect_error: boom",
		"bad step":     "name: x\nstep_ms: -5",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestValidateDefaultsStep(t *testing.T) {
	sc := &Scenario{Name: "x"}
	require.NoError(t, sc.Validate())
	assert.Equal(t, int(sim.DefaultFrameInterval.Milliseconds()), sc.StepMS)
}
