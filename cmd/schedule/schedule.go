// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

// Package schedule implements the "schedule" subcommand: drive the STEER
// Scheduler (S) over a JSON or YAML plan file, launching one sub-process
// per resolved test program, profile. Grounded in the teacher's
// cmd/report.Cmd layout and internal/common/targets.go's plan-file idiom.
package schedule

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"steer/internal/metrics"
	"steer/internal/scheduler"
)

var examples = []string{
	"  Run every test/profile named in a plan file:",
	"    $ steer schedule --plan schedule.yaml",
	"  Bound concurrency to 2 sub-processes at a time:",
	"    $ steer schedule --plan schedule.json --max-concurrent 2",
}

var (
	flagPlanPath       string
	flagMaxConcurrent  int
	flagPollInterval   time.Duration
	flagWorkingDir     string
	flagMetricsListen  string
)

// Cmd is the "schedule" subcommand.
var Cmd = &cobra.Command{
	Use:     "schedule",
	Short:   "Run a schedule plan's tests across one or more test-program sub-processes",
	Example: strings.Join(examples, "\n"),
	PreRunE: validateFlags,
	RunE:    runE,
}

func init() {
	Cmd.Flags().StringVar(&flagPlanPath, "plan", "", "path to a JSON or YAML schedule plan file (required)")
	Cmd.Flags().IntVar(&flagMaxConcurrent, "max-concurrent", 4, "maximum number of sub-processes running at once")
	Cmd.Flags().DurationVar(&flagPollInterval, "poll-interval", 100*time.Millisecond, "tick interval of the wait loop for each launched sub-process; completion itself is detected when the process exits")
	Cmd.Flags().StringVar(&flagWorkingDir, "working-dir", "", "working directory for launched sub-processes; empty means the current directory")
	Cmd.Flags().StringVar(&flagMetricsListen, "metrics-listen", "", "if set, serve Prometheus metrics on this address while running, e.g. :9090")
}

func validateFlags(cmd *cobra.Command, args []string) error {
	if flagPlanPath == "" {
		return fmt.Errorf("--plan is required")
	}
	return nil
}

func runE(cmd *cobra.Command, args []string) error {
	if flagMetricsListen != "" {
		metrics.Serve(flagMetricsListen)
	}

	plan, err := scheduler.LoadPlanFile(flagPlanPath)
	if err != nil {
		return fmt.Errorf("failed to load schedule plan %s: %w", flagPlanPath, err)
	}

	result, err := scheduler.Run(cmd.Context(), plan, scheduler.RunOptions{
		PollInterval:           flagPollInterval,
		MaxConcurrentProcesses: flagMaxConcurrent,
		WorkingDirectory:       flagWorkingDir,
	})
	if err != nil {
		return fmt.Errorf("scheduler run failed: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "schedule %s: %d succeeded, %d failed, %d total\n",
		plan.Schedule.ScheduleID, result.ProcessSuccessCount, result.ProcessFailureCount, len(result.Results))
	for _, r := range result.Results {
		status := "ok"
		if r.ExitCode != 0 || r.Err != nil {
			status = fmt.Sprintf("FAILED (exit %d)", r.ExitCode)
			if r.Err != nil {
				status = fmt.Sprintf("%s: %v", status, r.Err)
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "  %s/%s: %s\n", r.ProgramName, r.ProfileID, status)
	}

	if result.ProcessFailureCount > 0 {
		os.Exit(1)
	}
	return nil
}
