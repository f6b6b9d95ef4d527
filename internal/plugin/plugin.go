// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

// Package plugin defines the STEER plug-in lifecycle contract (spec §4.4):
// the small set of functions a statistical test (block-frequency,
// approximate-entropy, matrix-rank, ...) must implement for the Test Shell
// to drive it. This mirrors the teacher repo's table.TableDefinition
// function-table pattern (a struct of named callbacks plus a small
// registry) generalised from "how to render a hardware table" to "how to
// run one statistical test over one bitstream".
package plugin

import (
	"steer/internal/report"
	"steer/internal/value"
)

// InputFormat enumerates the bitstream encodings a plug-in accepts.
type InputFormat string

const (
	InputFormatBinary InputFormat = "binary"
	InputFormatASCII  InputFormat = "ascii"
)

// TestInfo is the static descriptor returned by GetTestInfo.
type TestInfo struct {
	TestName      string
	Suite         string
	Description   string
	Complexity    string
	References    []string
	ProgramName   string
	ProgramVersion string
	InputFormat   InputFormat
	URI           string
	Authors       []string
	Contributors  []string
	Maintainers   []string
	Contact       string
}

// ParameterInfo describes one recognised parameter in a plug-in's schema.
type ParameterInfo struct {
	Name      string
	DataType  value.DataType
	Precision *int
	Units     string
	Default   string
	Min       string
	Max       string
}

// CommonData is the cross-test configuration the shell derives from the
// ParameterSet at Init and passes explicitly into every subsequent call
// (spec §9 "Global mutable state": "pass a Common configuration struct
// explicitly ... no process-wide state is required").
type CommonData struct {
	BitstreamCount             uint64
	BitstreamLength            uint64 // bits
	SignificanceLevel          float64
	SignificanceLevelPrecision uint32
	ThreadCount                int
	MinimumTestCount           uint64
	PredictedPassCount         uint64
	PredictedFailCount         uint64
}

// BufferSize is the number of bytes the shell must read per bitstream.
func (c CommonData) BufferSize() uint64 {
	return c.BitstreamLength / 8
}

// State is the plug-in's opaque private state. Concrete plug-ins define
// their own struct satisfying this marker interface; the shell never
// inspects it, only threads it through the lifecycle calls (spec §9
// "Opaque handles": "modelled as an opaque associated-type per plug-in...
// never a raw untyped pointer").
type State interface {
	isPluginState()
}

// Plugin is the lifecycle contract every statistical test implements.
type Plugin interface {
	GetTestInfo() TestInfo
	GetParametersInfo() []ParameterInfo

	// InitTest validates plug-in-specific parameters against common,
	// builds the plug-in's private state, and returns it. Parameter
	// validation failures are returned as *steererr.Error values with
	// code InvalidArgument (or OutOfRange), per spec §7.
	InitTest(common CommonData, params []value.Value) (State, error)

	// GetConfigurationCount returns how many Configurations this plug-in
	// wants the Report pre-allocated with (spec §4.2 new_report); nearly
	// always 1.
	GetConfigurationCount(state State) uint32

	// SetReport gives the plug-in a chance to add its own Attributes to
	// the Configuration(s) the shell has just created for it.
	SetReport(state State, r *report.Report) error

	// ExecuteTest runs the per-bitstream computation. ones and zeros are
	// the bit counts the shell already accumulated while reading buffer.
	// The plug-in returns the Values/ValueSets/Criteria to fold into the
	// Test at bitstreamID; a non-nil error aborts Streaming (spec §4.4).
	ExecuteTest(state State, bitstreamID uint64, buffer []byte, ones, zeros uint64) (ExecuteResult, error)

	// FinalizeTest computes configuration-level metrics/criteria once
	// every bitstream has been streamed (or Streaming aborted early).
	// suppliedBitstreamCount is the number of bitstreams actually read,
	// which may be less than CommonData.BitstreamCount on early abort.
	FinalizeTest(state State, suppliedBitstreamCount uint64) (FinalizeResult, error)
}

// ExecuteResult is what one ExecuteTest call contributes to its Test.
type ExecuteResult struct {
	Calculations    []value.Value
	CalculationSets []value.ValueSet
	Criteria        []report.Criterion
}

// FinalizeResult is what FinalizeTest contributes to its Configuration.
type FinalizeResult struct {
	Metrics    []value.Value
	MetricSets []value.ValueSet
	Criteria   []report.Criterion
}
