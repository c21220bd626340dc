package main

import (
	"fmt"
	"os"

	"github.com/itohio/compadc/pkg/config"
	"github.com/spf13/cobra"
)

func init() {
	initCmd.Flags().BoolVarP(&initOpts.Force, "force", "f", false, "overwrite an existing file")
	rootCmd.AddCommand(initCmd)
}

var (
	initCmd = &cobra.Command{
		Use:     "init",
		Short:   "Write the default configuration file",
		Example: "  compadc init -c adc.yaml",
		Args:    cobra.NoArgs,
		RunE:    writeDefaultConfig,
	}
	initOpts = struct {
		Force bool
	}{}
)

func writeDefaultConfig(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(rootOpts.Config); err == nil && !initOpts.Force {
		return fmt.Errorf("%s already exists", rootOpts.Config)
	}
	if err := config.Default().Save(rootOpts.Config); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", rootOpts.Config)
	return nil
}
