package main

import (
	"fmt"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"ytetl/internal/config"
)

func newValidateCmd(rf *rootFlags) *cobra.Command {
	var jobName string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the batch configuration and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(rf.configPath, jobName)
			if err != nil {
				return err
			}
			if jobName == "" && cfg.JobName == "" {
				// The job name is only supplied at run time.
				cfg.JobName = "validate"
			}
			if err := report(cmd.OutOrStdout(), config.ValidateBatch(cfg)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "configuration is valid: %s\n", describePath(rf.configPath))
			return nil
		},
	}
	cmd.Flags().StringVar(&jobName, "JOB_NAME", "", "job name")
	return cmd
}

// loadConfig reads the YAML file and applies the --JOB_NAME override.
func loadConfig(path, jobName string) (config.Batch, error) {
	cfg, err := config.LoadBatch(path)
	if err != nil {
		return cfg, err
	}
	if jobName != "" {
		cfg.JobName = jobName
	}
	return cfg, nil
}

// report prints every issue and fails if any is an error.
func report(w io.Writer, issues []config.Issue) error {
	for _, iss := range issues {
		fmt.Fprintf(w, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if err := config.FirstError(issues); err != nil {
		return errors.Wrap(err, "configuration is invalid")
	}
	return nil
}

func describePath(p string) string {
	if p == "" {
		return "(defaults)"
	}
	return p
}
