package main

import (
	"fmt"
	"os"

	"github.com/itohio/compadc/pkg/config"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "compadc",
	Short: "compadc simulates a comparator based analog to digital converter",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
	Version: version,
}

var rootOpts = struct {
	Config string
	Ticks  int64
	Settle int
}{}

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootOpts.Config, "config", "c", "config.yaml", "configuration file path")
	rootCmd.PersistentFlags().Int64VarP(&rootOpts.Ticks, "ticks", "t", -1, "ticks to simulate (0 = until interrupted, overrides config)")
	rootCmd.PersistentFlags().IntVarP(&rootOpts.Settle, "settle", "s", 0, "SAR settle ticks per bit (overrides config)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func logErr(cmd *cobra.Command, err error) {
	fmt.Fprintf(os.Stderr, "compadc %s: %s\n", cmd.Name(), err)
}

// loadConfig loads the configuration file and applies flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(rootOpts.Config)
	if err != nil {
		return nil, err
	}
	if rootOpts.Ticks >= 0 {
		cfg.Simulation.Ticks = rootOpts.Ticks
	}
	if rootOpts.Settle > 0 {
		cfg.Converter.SettleTicks = rootOpts.Settle
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
