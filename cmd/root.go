// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

// Package cmd provides the command line interface for steer.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"steer/cmd/run"
	"steer/cmd/schedule"
)

var gVersion = "9.9.9" // overwritten by ldflags at build time

var examples = []string{
	"  Run a single test plug-in over a bitstream file:           $ steer run --plugin block-frequency --input entropy.bin",
	"  Run a schedule plan across several test programs:          $ steer schedule --plan schedule.yaml",
}

var rootCmd = &cobra.Command{
	Use:               "steer",
	Short:             "steer",
	Long:              "steer is a statistical test framework for evaluating the output of random and pseudorandom number generators, modelled on NIST SP 800-22.",
	Example:           strings.Join(examples, "\n"),
	PersistentPreRunE: initializeLogging,
	Version:           gVersion,
}

var (
	flagDebug     bool
	flagLogStdOut bool
)

func init() {
	rootCmd.AddGroup(&cobra.Group{ID: "primary", Title: "Commands:"})
	run.Cmd.GroupID = "primary"
	schedule.Cmd.GroupID = "primary"
	rootCmd.AddCommand(run.Cmd)
	rootCmd.AddCommand(schedule.Cmd)

	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&flagLogStdOut, "log-stdout", false, "write logs to stdout instead of stderr")
}

// Execute adds all child commands to the root command and runs it. It is
// called once by main.main().
func Execute() {
	cobra.EnableCommandSorting = false
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func initializeLogging(cmd *cobra.Command, args []string) error {
	var opts slog.HandlerOptions
	if flagDebug {
		opts.Level = slog.LevelDebug
		opts.AddSource = true
	} else {
		opts.Level = slog.LevelInfo
	}
	out := os.Stderr
	if flagLogStdOut {
		out = os.Stdout
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(out, &opts)))
	return nil
}
