// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

// Package scheduler implements the STEER Scheduler (S): it composes
// multiple Test Shell runs, each as a separate test-program sub-process,
// from a schedule plan (spec §4.6). It is grounded in the teacher's
// internal/target local-command execution (os/exec, exit-code handling)
// generalised from "run one diagnostic command on a target" to "run one
// test program against one profile", plus internal/common/targets.go's
// dual JSON/YAML plan-loading idiom.
package scheduler

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"sort"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/sync/errgroup"

	"steer/internal/metrics"
)

// RunOptions configures one Plan execution.
type RunOptions struct {
	// PollInterval is the tick interval of launchAndPoll's wait loop.
	// Completion is detected from cmd.Wait as soon as the sub-process exits,
	// not on a tick, and progress lines are redrawn on the spinner's own
	// fixed ticker; a tick itself does no work.
	PollInterval time.Duration
	// MaxConcurrentProcesses bounds how many sub-processes run at once
	// (distinct from any one test program's own --thread-count).
	MaxConcurrentProcesses int
	// WorkingDirectory is the directory sub-processes are launched from;
	// empty means the caller's current directory.
	WorkingDirectory string
}

// ProcessResult is one launched sub-process's outcome.
type ProcessResult struct {
	ProgramName string
	ProfileID   string
	ReportPath  string
	ExitCode    int
	Err         error
}

// RunResult is the Scheduler's tallied outcome across every launched
// sub-process, per spec §4.6/§8 scenario S6.
type RunResult struct {
	ProcessSuccessCount uint64
	ProcessFailureCount uint64
	Results             []ProcessResult
}

// runSpec is one fully-resolved (program, input, parameters, report) unit
// of work, after a Profile's file-list or directory form is expanded.
type runSpec struct {
	label       string
	programName string
	profileID   string
	args        []string
	reportPath  string
}

// Run executes every test × profile in plan, launching one sub-process per
// resolved run, bounding concurrency with an errgroup, and tallying
// success/failure by exit code (0 = success), per spec §4.6.
func Run(ctx context.Context, plan *Plan, opts RunOptions) (RunResult, error) {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 10 * time.Millisecond
	}
	if opts.MaxConcurrentProcesses <= 0 {
		opts.MaxConcurrentProcesses = 4
	}

	specs, err := resolveRunSpecs(plan)
	if err != nil {
		return RunResult{}, fmt.Errorf("failed to resolve schedule plan: %w", err)
	}

	spinner := newMultiSpinner()
	if plan.Schedule.ReportProgress {
		for _, s := range specs {
			spinner.addSpinner(s.label)
		}
		spinner.start()
		defer spinner.finish()
	}

	results := make([]ProcessResult, len(specs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.MaxConcurrentProcesses)

	for i, s := range specs {
		i, s := i, s
		g.Go(func() error {
			if plan.Schedule.ReportProgress {
				spinner.status(s.label, "running")
			}
			exitCode, runErr := launchAndPoll(gctx, s, opts)
			results[i] = ProcessResult{
				ProgramName: s.programName,
				ProfileID:   s.profileID,
				ReportPath:  s.reportPath,
				ExitCode:    exitCode,
				Err:         runErr,
			}
			outcome := "failure"
			if exitCode == 0 && runErr == nil {
				outcome = "success"
			}
			metrics.ObserveSchedulerProcess(s.programName, outcome)
			if plan.Schedule.ReportProgress {
				spinner.status(s.label, outcome)
			}
			return nil // a sub-process failure is tallied, not fatal to the group
		})
	}
	_ = g.Wait()

	var result RunResult
	result.Results = results
	for _, r := range results {
		if r.ExitCode == 0 && r.Err == nil {
			result.ProcessSuccessCount++
		} else {
			result.ProcessFailureCount++
		}
	}
	return result, nil
}

// resolveRunSpecs expands every Test's Profiles (file-list or directory
// form) into concrete launch specs. seenLabels catches a plan that names
// the same program/profile pair twice, which would otherwise silently
// double-count that profile's outcome in the tallied RunResult.
func resolveRunSpecs(plan *Plan) ([]runSpec, error) {
	seenLabels := mapset.NewThreadUnsafeSet[string]()
	var specs []runSpec
	for _, test := range plan.Schedule.Tests {
		for _, profile := range test.Profiles {
			if profile.isDirectoryForm() {
				expanded, err := expandDirectoryProfile(test.ProgramName, profile, plan)
				if err != nil {
					return nil, err
				}
				for _, s := range expanded {
					if !seenLabels.Add(s.label) {
						return nil, fmt.Errorf("duplicate profile %q for program %q in schedule plan", s.profileID, test.ProgramName)
					}
				}
				specs = append(specs, expanded...)
				continue
			}
			s := buildRunSpec(test.ProgramName, profile, plan)
			if !seenLabels.Add(s.label) {
				return nil, fmt.Errorf("duplicate profile %q for program %q in schedule plan", profile.ProfileID, test.ProgramName)
			}
			specs = append(specs, s)
		}
	}
	return specs, nil
}

func buildRunSpec(programName string, profile Profile, plan *Plan) runSpec {
	args := []string{profile.Input}
	if profile.Parameters != "" {
		args = append(args, "--parameters", profile.Parameters)
	}
	if profile.Report != "" {
		args = append(args, "--report", profile.Report)
	}
	args = append(args,
		"--report-level", plan.ReportLevel().String(),
		"--schedule-id", plan.Schedule.ScheduleID,
	)
	if plan.Schedule.TestConductor != "" {
		args = append(args, "--test-conductor", plan.Schedule.TestConductor)
	}
	if plan.Schedule.TestNotes != "" {
		args = append(args, "--test-notes", plan.Schedule.TestNotes)
	}
	return runSpec{
		label:       fmt.Sprintf("%s/%s", programName, profile.ProfileID),
		programName: programName,
		profileID:   profile.ProfileID,
		args:        args,
		reportPath:  profile.Report,
	}
}

// expandDirectoryProfile pairs every file <name> in InputsDirectory with
// <name>.params.json in ParametersDirectory (if set) and a report path
// <name>.report.json under ReportsDirectory, launching one sub-process per
// input file.
func expandDirectoryProfile(programName string, profile Profile, plan *Plan) ([]runSpec, error) {
	entries, err := filepath.Glob(filepath.Join(profile.InputsDirectory, "*"))
	if err != nil {
		return nil, fmt.Errorf("failed to list inputs directory %s: %w", profile.InputsDirectory, err)
	}
	sort.Strings(entries)

	specs := make([]runSpec, 0, len(entries))
	for _, inputPath := range entries {
		base := filepath.Base(inputPath)
		p := Profile{
			ProfileID:  fmt.Sprintf("%s/%s", profile.ProfileID, base),
			Input:      inputPath,
			Report:     filepath.Join(profile.ReportsDirectory, base+".report.json"),
		}
		if profile.ParametersDirectory != "" {
			p.Parameters = filepath.Join(profile.ParametersDirectory, base+".params.json")
		}
		specs = append(specs, buildRunSpec(programName, p, plan))
	}
	return specs, nil
}

// launchAndPoll starts s's sub-process and waits for it with a bounded poll
// loop at opts.PollInterval, per spec §4.6. The underlying completion
// signal is still a background cmd.Wait(), which is the only
// non-busy-spin way to learn a *os.Process has exited in Go; the loop
// returns as soon as that wait completes, and a tick in between does no
// work.
func launchAndPoll(ctx context.Context, s runSpec, opts RunOptions) (exitCode int, err error) {
	cmd := exec.CommandContext(ctx, s.programName, s.args...)
	if opts.WorkingDirectory != "" {
		cmd.Dir = opts.WorkingDirectory
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if startErr := cmd.Start(); startErr != nil {
		return -1, fmt.Errorf("failed to start %s: %w", s.programName, startErr)
	}
	slog.Info("launched test program", slog.String("program", s.programName), slog.String("profile", s.profileID))

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case waitErr := <-done:
			if waitErr == nil {
				slog.Info("test program completed", slog.String("program", s.programName), slog.String("profile", s.profileID))
				return 0, nil
			}
			if exitErr, ok := waitErr.(*exec.ExitError); ok {
				slog.Warn("test program exited non-zero", slog.String("program", s.programName), slog.String("profile", s.profileID), slog.Int("exitCode", exitErr.ExitCode()), slog.String("stderr", stderr.String()))
				return exitErr.ExitCode(), nil
			}
			return -1, fmt.Errorf("failed to run %s: %w", s.programName, waitErr)
		case <-ticker.C:
			// bounded poll tick: nothing to do beyond giving the caller a
			// cadence for progress reporting, already handled by the
			// spinner in Run.
		}
	}
}
