// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

// Package report implements the STEER Report Tree (R): a hierarchical
// accumulator of parameters, configurations, tests, calculations, criteria,
// and evaluations, built on top of the Value Model. It mirrors the teacher
// repo's table.TableValues accumulation style (append into typed slices,
// validate before handing back) but adds the append-only, id-indexed
// discipline the STEER report tree requires.
package report

import (
	"time"

	"steer/internal/value"
)

// ReportLevel controls projection strength when a Report is serialised.
type ReportLevel int

const (
	LevelSummary ReportLevel = iota
	LevelStandard
	LevelFull
)

func (l ReportLevel) String() string {
	switch l {
	case LevelSummary:
		return "summary"
	case LevelStandard:
		return "standard"
	case LevelFull:
		return "full"
	default:
		return "summary"
	}
}

// ParseReportLevel maps a CLI/schedule-plan string to a ReportLevel.
// Unknown strings default to Summary, per spec §4.6.
func ParseReportLevel(s string) ReportLevel {
	switch s {
	case "standard":
		return LevelStandard
	case "full":
		return LevelFull
	default:
		return LevelSummary
	}
}

// Evaluation is the three-valued Pass/Fail/Inconclusive rollup tag.
type Evaluation int

const (
	Pass Evaluation = iota
	Fail
	Inconclusive
)

func (e Evaluation) String() string {
	switch e {
	case Pass:
		return "pass"
	case Fail:
		return "fail"
	case Inconclusive:
		return "inconclusive"
	default:
		return "inconclusive"
	}
}

// Criterion is an atomic truth fact: a human-readable basis and its result.
type Criterion struct {
	Basis  string
	Result bool
}

// evaluationFromCriteria computes the deterministic AND-over-results
// rollup described in spec §3 ("evaluation = Pass at any level iff every
// direct child criterion's result = true").
func evaluationFromCriteria(criteria []Criterion) Evaluation {
	for _, c := range criteria {
		if !c.Result {
			return Fail
		}
	}
	return Pass
}

// Test is the result record for one bitstream within one Configuration.
type Test struct {
	TestID          uint64
	Calculations    []value.Value
	CalculationSets []value.ValueSet
	Criteria        []Criterion
	Evaluation      Evaluation
}

// Configuration groups all Tests over a single input set and carries the
// aggregate roll-up.
type Configuration struct {
	ConfigurationID uint64
	Attributes      []value.Value
	Tests           []Test
	Metrics         []value.Value
	MetricSets      []value.ValueSet
	Criteria        []Criterion
	Evaluation      Evaluation
}

// ParameterSet names the parameters a test/configuration was run with.
type ParameterSet struct {
	TestName          string
	ParameterSetName  string
	Parameters        []value.Value
}

// Header carries report identity, provenance, and timing.
type Header struct {
	TestName        string
	SuiteName       string // optional
	ScheduleID      string // optional
	ProgramName     string
	ProgramVersion  string
	OS              string
	Architecture    string
	EntropySourceID string
	StartTime       time.Time
	CompletionTime  time.Time
	Duration        time.Duration
	Level           ReportLevel
}

// Report is the top-level document: header, parameters, configurations,
// and the top-level criteria/evaluation rollup.
type Report struct {
	Header         Header
	Parameters     ParameterSet
	Configurations []Configuration
	Criteria       []Criterion
	Evaluation     Evaluation

	// testCapacity is the per-Configuration Test slice capacity reserved
	// by NewReport so that AddTestToConfiguration never triggers a slice
	// reallocation while the shell is folding worker results in on a
	// batch barrier. See spec §9 "Growable collections".
	testCapacity int
}
