package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/evdash/qa/scenarios"
)

var scenarioCmd = &cobra.Command{
	Use:   "scenario <file>...",
	Short: "Replay scripted drives and check their expectations",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runScenarios,
}

func init() {
	rootCmd.AddCommand(scenarioCmd)
}

func runScenarios(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	params, err := cfg.Simulation.Params()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	failed := 0
	for _, path := range args {
		sc, err := scenarios.Load(path)
		if err != nil {
			return err
		}
		res := scenarios.Run(sc, params)
		if res.Passed() {
			fmt.Fprintf(out, "PASS %s (%d ticks, soc %.1f%%, odometer %.2f km)\n",
				res.Name, res.Ticks, res.Final.BatterySOC, res.Final.Odometer)
			continue
		}
		failed++
		fmt.Fprintf(out, "FAIL %s\n", res.Name)
		for _, f := range res.Failures {
			fmt.Fprintf(out, "  %s\n", f)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d scenarios failed", failed, len(args))
	}
	return nil
}
