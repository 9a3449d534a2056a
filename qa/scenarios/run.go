package scenarios

import (
	"fmt"
	"strings"
	"time"

	"github.com/kilianp07/evdash/core/model"
	"github.com/kilianp07/evdash/core/sim"
)

// Start is the simulated wall time of every scenario.
var Start = time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

// Result is the outcome of a scenario run.
type Result struct {
	Name     string
	Final    model.Snapshot
	Ticks    int
	Failures []string
}

// Passed reports whether every expectation held.
func (r Result) Passed() bool { return len(r.Failures) == 0 }

// Run executes sc on a fresh engine driven by a manual clock.
func Run(sc *Scenario, p sim.Params) Result {
	in := sim.DefaultInitialState()
	if sc.Initial.SOC != nil {
		in.SOC = *sc.Initial.SOC
	}
	if sc.Initial.OutsideTemp != nil {
		in.OutsideTemp = *sc.Initial.OutsideTemp
	}

	clock := sim.NewManualClock(Start)
	eng := sim.NewEngine(sim.NewSnapshot(p, in), p, sim.WithClock(clock), sim.WithNow(clock.Now))
	defer eng.Close()

	res := Result{Name: sc.Name}
	step := time.Duration(sc.StepMS) * time.Millisecond
	fail := func(i int, format string, args ...any) {
		res.Failures = append(res.Failures, fmt.Sprintf("step %d: ", i)+fmt.Sprintf(format, args...))
	}

	for i, st := range sc.Steps {
		if st.Pedal != "" {
			pedal, _ := model.ParsePedal(st.Pedal)
			eng.SetPedal(pedal)
		}
		if st.Command != nil {
			err := eng.Execute(*st.Command)
			switch {
			case st.ExpectError == "" && err != nil:
				fail(i, "%s: unexpected error: %v", st.Command.Name, err)
			case st.ExpectError != "" && err == nil:
				fail(i, "%s: expected error %q", st.Command.Name, st.ExpectError)
			case st.ExpectError != "" && !strings.Contains(err.Error(), st.ExpectError):
				fail(i, "%s: error %q does not contain %q", st.Command.Name, err, st.ExpectError)
			}
		}
		n := int(st.ForSeconds * float64(time.Second) / float64(step))
		for k := 0; k < n; k++ {
			clock.Advance(step)
			if eng.Tick(clock.Now()) {
				res.Ticks++
			}
		}
		if st.Expect != nil {
			for _, err := range st.Expect.check(eng.Snapshot()) {
				fail(i, "%v", err)
			}
		}
	}
	res.Final = eng.Snapshot()
	return res
}

func (e *Expect) check(s model.Snapshot) []error {
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}
	add(e.Speed.check("speed", s.Speed))
	add(e.SOC.check("soc", s.BatterySOC))
	add(e.SOH.check("soh", s.PackSOH))
	add(e.Range.check("range", s.Range))
	add(e.Odometer.check("odometer", s.Odometer))
	add(e.TripA.check("trip_a", s.TripA))
	add(e.TripB.check("trip_b", s.TripB))
	if e.IsCharging != nil && *e.IsCharging != s.IsCharging {
		add(fmt.Errorf("is_charging = %v, want %v", s.IsCharging, *e.IsCharging))
	}
	if e.DriveMode != "" {
		want, err := model.ParseDriveMode(e.DriveMode)
		if err != nil {
			add(err)
		} else if want != s.DriveMode {
			add(fmt.Errorf("drive_mode = %s, want %s", s.DriveMode, want))
		}
	}
	if e.ActiveProfile != "" && e.ActiveProfile != s.ActiveProfile {
		add(fmt.Errorf("active_profile = %q, want %q", s.ActiveProfile, e.ActiveProfile))
	}
	if e.ChargingLogs != nil && *e.ChargingLogs != len(s.ChargingLogs) {
		add(fmt.Errorf("charging_logs = %d, want %d", len(s.ChargingLogs), *e.ChargingLogs))
	}
	if e.SOHSamples != nil && *e.SOHSamples != len(s.SOHHistory) {
		add(fmt.Errorf("soh_samples = %d, want %d", len(s.SOHHistory), *e.SOHSamples))
	}
	return errs
}
