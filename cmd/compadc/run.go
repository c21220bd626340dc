package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/itohio/compadc/pkg/monitor"
	"github.com/itohio/compadc/pkg/sample"
	"github.com/spf13/cobra"
)

func init() {
	runCmd.Flags().IntVarP(&runOpts.Window, "window", "w", monitor.DefaultWindow, "readings kept per channel for statistics")
	runCmd.Flags().BoolVarP(&runOpts.Quiet, "quiet", "q", false, "only print the final statistics")
	rootCmd.AddCommand(runCmd)
}

var (
	runCmd = &cobra.Command{
		Use:     "run",
		Short:   "Run the converter and print every reading",
		Example: "  compadc run -c config.yaml -t 20000000",
		Args:    cobra.NoArgs,
		RunE:    runConverter,
	}
	runOpts = struct {
		Window int
		Quiet  bool
	}{}
)

func runConverter(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	runner, err := sample.NewRunner(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	mon := monitor.New(runOpts.Window)
	if !runOpts.Quiet {
		mon.OnUpdate(printReading)
	}
	mon.ProcessReadings(runner.Run(ctx, cfg.Simulation.Ticks))

	printStats(mon, len(cfg.Channels))
	return nil
}

func printReading(r sample.Reading) {
	fmt.Printf("%12d %-8s raw=%5d filtered=%5d mv=%4d dec=%4d corrected=%4d\n",
		r.Tick, r.Name, r.Raw, r.Filtered, r.Millivolts, r.Decimal, r.Corrected)
}

func printStats(mon *monitor.Monitor, channels int) {
	for ch := 0; ch < channels; ch++ {
		latest, ok := mon.Latest(ch)
		if !ok {
			fmt.Printf("ch%d: no readings\n", ch)
			continue
		}
		st := mon.Stats(ch)
		fmt.Printf("%s: n=%d min=%d max=%d mean=%.1f jitter=%d\n",
			latest.Name, st.Count, st.Min, st.Max, st.Mean, st.Jitter)
	}
}
