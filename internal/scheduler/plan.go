// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

package scheduler

// Plan loading implements spec §4.6/§6: the primary JSON schedule-plan
// shape, plus an alternate YAML form (teacher's internal/common/targets.go
// dual YAML-file/CLI-flag idiom, here applied to schedule plans instead of
// remote targets).

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v2"

	"steer/internal/report"
)

// Profile is one unit of work within a Test entry: either the file-list
// form (Input/Parameters/Report set) or the directory form
// (InputsDirectory/ParametersDirectory/ReportsDirectory set).
type Profile struct {
	ProfileID string `json:"profileId" yaml:"profileId"`

	Input      string `json:"input,omitempty" yaml:"input,omitempty"`
	Parameters string `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Report     string `json:"report,omitempty" yaml:"report,omitempty"`

	InputsDirectory     string `json:"inputsDirectory,omitempty" yaml:"inputsDirectory,omitempty"`
	ParametersDirectory string `json:"parametersDirectory,omitempty" yaml:"parametersDirectory,omitempty"`
	ReportsDirectory    string `json:"reportsDirectory,omitempty" yaml:"reportsDirectory,omitempty"`
}

// isDirectoryForm reports whether p names directories rather than files.
func (p Profile) isDirectoryForm() bool {
	return p.InputsDirectory != ""
}

// Test is one test program and the profiles to run it against.
type Test struct {
	ProgramName string    `json:"programName" yaml:"programName"`
	Profiles    []Profile `json:"profiles" yaml:"profiles"`
}

// Schedule is the top-level plan body, matching spec §6's logical shape
// `{schedule: {scheduleId?, testConductor?, testNotes?, reportLevel?,
// reportProgress?, tests: [...]}}`.
type Schedule struct {
	ScheduleID     string `json:"scheduleId,omitempty" yaml:"scheduleId,omitempty"`
	TestConductor  string `json:"testConductor,omitempty" yaml:"testConductor,omitempty"`
	TestNotes      string `json:"testNotes,omitempty" yaml:"testNotes,omitempty"`
	ReportLevel    string `json:"reportLevel,omitempty" yaml:"reportLevel,omitempty"`
	ReportProgress bool   `json:"reportProgress,omitempty" yaml:"reportProgress,omitempty"`
	Tests          []Test `json:"tests" yaml:"tests"`
}

// Plan wraps Schedule in the document's top-level "schedule" key.
type Plan struct {
	Schedule Schedule `json:"schedule" yaml:"schedule"`
}

// normalize fills in a default ScheduleID when the plan omits one (spec
// §4.6 "Missing optional fields default to empty/unset"). The reportLevel
// string is left as written; ReportLevel resolves it when read.
func (p *Plan) normalize() {
	if p.Schedule.ScheduleID == "" {
		p.Schedule.ScheduleID = uuid.NewString()
	}
}

// ReportLevel parses the plan's reportLevel string, defaulting to Summary
// for an empty or unrecognised value (spec §4.6).
func (p *Plan) ReportLevel() report.ReportLevel {
	return report.ParseReportLevel(p.Schedule.ReportLevel)
}

// LoadPlanJSON parses the primary schedule-plan JSON document.
func LoadPlanJSON(data []byte) (*Plan, error) {
	var plan Plan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("failed to parse schedule plan JSON: %w", err)
	}
	plan.normalize()
	return &plan, nil
}

// LoadPlanYAML parses the alternate YAML schedule-plan form.
func LoadPlanYAML(data []byte) (*Plan, error) {
	var plan Plan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("failed to parse schedule plan YAML: %w", err)
	}
	plan.normalize()
	return &plan, nil
}

// LoadPlanFile reads path and parses it as JSON or YAML based on its
// extension (.yaml/.yml vs everything else), mirroring the teacher's
// targetsFile-by-path loading convenience.
func LoadPlanFile(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schedule plan file %s: %w", path, err)
	}
	if len(path) >= 5 && (path[len(path)-5:] == ".yaml" || path[len(path)-4:] == ".yml") {
		return LoadPlanYAML(data)
	}
	return LoadPlanJSON(data)
}
