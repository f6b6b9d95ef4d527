// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

// Package run implements the "run" subcommand: drive one Test Shell over
// one bitstream input through a single registered plug-in, a thin
// illustrative harness around the shell. Grounded in the teacher's
// cmd/report package layout (package-level Cmd, flag vars, PreRunE
// validation).
package run

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"steer/internal/metrics"
	"steer/internal/plugin"
	"steer/internal/report"
	"steer/internal/shell"
	"steer/internal/value"

	_ "steer/internal/builtintests"
)

var examples = []string{
	"  Run the block-frequency test over a binary input file:",
	"    $ steer run --plugin block-frequency --input entropy.bin --bitstream-count 10 --bitstream-length 8000 --param block_length=128",
	"  Run approximate-entropy with 8 worker threads and write a full report:",
	"    $ steer run --plugin approximate-entropy --input entropy.bin --bitstream-count 4 --bitstream-length 1024 --param block_length=2 --thread-count 8 --report-level full --report out.json",
}

var (
	flagPluginName  string
	flagInput       string
	flagParams      []string
	flagReportPath  string
	flagReportLevel string

	flagBitstreamCount  uint64
	flagBitstreamLength uint64
	flagSignificance    float64
	flagSigPrecision    uint32
	flagThreadCount     int

	flagScheduleID     string
	flagTestConductor  string
	flagTestNotes      string
	flagSuiteName      string
	flagProgramName    string
	flagProgramVersion string
	flagEntropySrcID   string

	flagMetricsListen string
)

// Cmd is the "run" subcommand.
var Cmd = &cobra.Command{
	Use:     "run",
	Short:   "Run a single statistical test plug-in over one bitstream input",
	Example: strings.Join(examples, "\n"),
	PreRunE: validateFlags,
	RunE:    runE,
}

func init() {
	Cmd.Flags().StringVar(&flagPluginName, "plugin", "", "registered plug-in name, e.g. block-frequency (required)")
	Cmd.Flags().StringVar(&flagInput, "input", "-", "path to the binary entropy source, or - for stdin")
	Cmd.Flags().StringArrayVar(&flagParams, "param", nil, "plug-in parameter as name=value; may be repeated")
	Cmd.Flags().StringVar(&flagReportPath, "report", "", "path to write the report to; empty means stdout")
	Cmd.Flags().StringVar(&flagReportLevel, "report-level", "standard", "report projection level: summary, standard, or full")

	Cmd.Flags().Uint64Var(&flagBitstreamCount, "bitstream-count", 1, "number of bitstreams to read")
	Cmd.Flags().Uint64Var(&flagBitstreamLength, "bitstream-length", 1000000, "length of each bitstream, in bits")
	Cmd.Flags().Float64Var(&flagSignificance, "significance-level", 0.01, "significance level alpha")
	Cmd.Flags().Uint32Var(&flagSigPrecision, "significance-level-precision", 2, "number of decimal digits in alpha, used to derive the minimum test count")
	Cmd.Flags().IntVar(&flagThreadCount, "thread-count", 1, "number of worker-pool slots")

	Cmd.Flags().StringVar(&flagScheduleID, "schedule-id", "", "schedule identifier to stamp on the report header")
	Cmd.Flags().StringVar(&flagTestConductor, "test-conductor", "", "free-text conductor name for the report header")
	Cmd.Flags().StringVar(&flagTestNotes, "test-notes", "", "free-text notes for the report header")
	Cmd.Flags().StringVar(&flagSuiteName, "suite-name", "", "suite name override for the report header")
	Cmd.Flags().StringVar(&flagProgramName, "program-name", "steer", "program name stamped on the report header")
	Cmd.Flags().StringVar(&flagProgramVersion, "program-version", "9.9.9", "program version stamped on the report header")
	Cmd.Flags().StringVar(&flagEntropySrcID, "entropy-source-id", "", "identifier for the entropy source, stamped on the report header")

	Cmd.Flags().StringVar(&flagMetricsListen, "metrics-listen", "", "if set, serve Prometheus metrics on this address while running, e.g. :9090")
}

func validateFlags(cmd *cobra.Command, args []string) error {
	if flagPluginName == "" {
		return fmt.Errorf("--plugin is required; registered plug-ins: %s", strings.Join(plugin.Names(), ", "))
	}
	if _, err := plugin.Get(flagPluginName); err != nil {
		return fmt.Errorf("unknown --plugin %q: %w (registered: %s)", flagPluginName, err, strings.Join(plugin.Names(), ", "))
	}
	return nil
}

func runE(cmd *cobra.Command, args []string) error {
	if flagMetricsListen != "" {
		metrics.Serve(flagMetricsListen)
	}

	factory, err := plugin.Get(flagPluginName)
	if err != nil {
		return err
	}
	p := factory()

	params, err := parseParams(p, flagParams)
	if err != nil {
		return fmt.Errorf("failed to parse --param values: %w", err)
	}

	source, closeSource, err := openEntropySource(flagInput)
	if err != nil {
		return fmt.Errorf("failed to open entropy source %q: %w", flagInput, err)
	}
	defer closeSource()

	cfg := shell.Config{
		Plugin:          p,
		EntropySource:   source,
		EntropySourceID: flagEntropySrcID,
		ProgramName:     flagProgramName,
		ProgramVersion:  flagProgramVersion,
		ScheduleID:      flagScheduleID,
		SuiteName:       flagSuiteName,
		TestConductor:   flagTestConductor,
		TestNotes:       flagTestNotes,
		ReportLevel:     report.ParseReportLevel(flagReportLevel),

		BitstreamCount:             flagBitstreamCount,
		BitstreamLength:            flagBitstreamLength,
		SignificanceLevel:          flagSignificance,
		SignificanceLevelPrecision: flagSigPrecision,
		ThreadCount:                flagThreadCount,
		PluginParameters:           params,
	}

	s, err := shell.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to configure test shell: %w", err)
	}
	rpt, err := s.Run()
	if err != nil {
		return fmt.Errorf("test shell run failed: %w", err)
	}

	data, err := report.Serialize(rpt, cfg.ReportLevel)
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}

	if flagReportPath == "" {
		_, err = cmd.OutOrStdout().Write(append(data, '\n'))
		return err
	}
	if err := os.WriteFile(flagReportPath, data, 0644); err != nil { // #nosec G306
		return fmt.Errorf("failed to write report to %s: %w", flagReportPath, err)
	}
	slog.Info("wrote report", slog.String("path", flagReportPath), slog.String("evaluation", rpt.Evaluation.String()))
	return nil
}

// parseParams resolves each "name=value" flag against p's declared
// parameter schema so the right value.DataType is used for every value.
func parseParams(p plugin.Plugin, raw []string) ([]value.Value, error) {
	infoByName := make(map[string]plugin.ParameterInfo)
	for _, info := range p.GetParametersInfo() {
		infoByName[info.Name] = info
	}

	values := make([]value.Value, 0, len(raw))
	for _, entry := range raw {
		name, text, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("malformed --param %q, expected name=value", entry)
		}
		info, known := infoByName[name]
		if !known {
			return nil, fmt.Errorf("%q is not a recognised parameter for this plug-in", name)
		}
		v, err := value.NewValue(name, info.DataType, info.Precision, info.Units, text)
		if err != nil {
			return nil, fmt.Errorf("invalid value for parameter %q: %w", name, err)
		}
		values = append(values, v)
	}
	return values, nil
}

func openEntropySource(path string) (io.Reader, func(), error) {
	if path == "-" || path == "" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path) // #nosec G304
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}
