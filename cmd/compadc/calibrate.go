package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/itohio/compadc/pkg/config"
	"github.com/itohio/compadc/pkg/reference"
	"github.com/itohio/compadc/pkg/sample"
	"github.com/spf13/cobra"
)

func init() {
	calibrateCmd.Flags().StringVarP(&calibrateOpts.Port, "port", "p", "", "reference meter serial port (overrides config)")
	calibrateCmd.Flags().BoolVarP(&calibrateOpts.Mock, "mock-reference", "m", false, "use a mocked reference meter")
	calibrateCmd.Flags().DurationVar(&calibrateOpts.Timeout, "timeout", 5*time.Second, "time to wait for the first reference reading")
	rootCmd.AddCommand(calibrateCmd)
}

var (
	calibrateCmd = &cobra.Command{
		Use:   "calibrate",
		Short: "Capture per-channel offsets against the reference meter",
		Example: "  compadc calibrate -m\n" +
			"  compadc calibrate -p /dev/ttyUSB0",
		Args: cobra.NoArgs,
		RunE: calibrate,
	}
	calibrateOpts = struct {
		Port    string
		Mock    bool
		Timeout time.Duration
	}{}
)

var (
	errNoReference   = errors.New("no reading from the reference meter")
	errNotCalibrated = errors.New("run ended before every channel reported a calibrated reading")
)

func calibrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if calibrateOpts.Port != "" {
		cfg.Reference.Port = calibrateOpts.Port
		cfg.Reference.Mock = false
	}
	if calibrateOpts.Mock {
		cfg.Reference.Mock = true
	}

	dev := newReference(cfg)
	if err := dev.Connect(); err != nil {
		return err
	}
	defer dev.Close()

	runner, err := sample.NewRunner(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	select {
	case rd, ok := <-dev.Readings():
		if !ok {
			return errNoReference
		}
		runner.SetReference(rd.Value)
		log.Printf("Reference reading: %d", rd.Value)
	case <-time.After(calibrateOpts.Timeout):
		return errNoReference
	case <-ctx.Done():
		return ctx.Err()
	}
	go runner.Follow(ctx, dev.Readings())

	warmup := 1<<cfg.Converter.WindowExponent + 1
	counts := make([]int, len(cfg.Channels))
	corrected := make([]sample.Reading, len(cfg.Channels))
	triggered := false

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	for rd := range runner.Run(runCtx, cfg.Simulation.Ticks) {
		counts[rd.Channel]++
		if !triggered && warmedUp(cfg, counts, warmup) {
			runner.Calibrate()
			triggered = true
			continue
		}
		if rd.Captures > 0 {
			corrected[rd.Channel] = rd
			if allCorrected(cfg, corrected) {
				stop()
			}
		}
	}

	if !allCorrected(cfg, corrected) {
		return errNotCalibrated
	}

	offsets := runner.Offsets()
	for i, ch := range cfg.Channels {
		fmt.Printf("%s: offset=%+d corrected=%d\n", ch.Name, offsets[i], corrected[i].Corrected)
	}
	return nil
}

func newReference(cfg *config.Config) reference.Device {
	if cfg.Reference.Mock {
		value := reference.FromMillivolts(cfg.Reference.MockMillivolts, cfg.Mock.FullScaleMillivolts,
			cfg.Calibration.Units == config.UnitsDecimal)
		return reference.NewMock(value, cfg.Reference.MockPeriod, cfg.Reference.ReadingsBufSize)
	}
	return reference.New(cfg.Reference.Port, cfg.Reference.BaudRate, cfg.Reference.ReadingsBufSize)
}

func warmedUp(cfg *config.Config, counts []int, warmup int) bool {
	for i, ch := range cfg.Channels {
		if !ch.Disabled && counts[i] < warmup {
			return false
		}
	}
	return true
}

func allCorrected(cfg *config.Config, corrected []sample.Reading) bool {
	for i, ch := range cfg.Channels {
		if !ch.Disabled && corrected[i].Captures == 0 {
			return false
		}
	}
	return true
}
