// Command batchnormalizer maps raw YouTube trending statistics to the
// cleansed, region-partitioned Parquet layout.
//
//	batchnormalizer run --JOB_NAME daily --config batch.yaml
//	batchnormalizer validate --config batch.yaml
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

type rootFlags struct {
	configPath string
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	rf := &rootFlags{}
	root := &cobra.Command{
		Use:           "batchnormalizer",
		Short:         "Normalize raw YouTube statistics into partitioned Parquet",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&rf.configPath, "config", "", "batch config YAML path (defaults apply when empty)")
	root.PersistentFlags().StringVar(&rf.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&rf.logFormat, "log-format", "json", "log format (json, console)")

	root.AddCommand(newRunCmd(rf), newValidateCmd(rf))
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
