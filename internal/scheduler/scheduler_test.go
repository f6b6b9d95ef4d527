// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPlanJSON_DefaultsScheduleIDAndReportLevel(t *testing.T) {
	plan, err := LoadPlanJSON([]byte(`{"schedule":{"tests":[{"programName":"true","profiles":[{"profileId":"p1"}]}]}}`))
	require.NoError(t, err)
	assert.NotEmpty(t, plan.Schedule.ScheduleID)
	assert.Equal(t, "summary", plan.ReportLevel().String())
}

func TestLoadPlanJSON_UnknownReportLevelDefaultsToSummary(t *testing.T) {
	plan, err := LoadPlanJSON([]byte(`{"schedule":{"reportLevel":"nonsense","tests":[]}}`))
	require.NoError(t, err)
	assert.Equal(t, "summary", plan.ReportLevel().String())
}

func TestLoadPlanYAML_Parses(t *testing.T) {
	yamlDoc := []byte("schedule:\n  scheduleId: fixed-id\n  tests:\n    - programName: true\n      profiles:\n        - profileId: p1\n")
	plan, err := LoadPlanYAML(yamlDoc)
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", plan.Schedule.ScheduleID)
	require.Len(t, plan.Schedule.Tests, 1)
}

// TestRun_TalliesSixProcesses exercises spec scenario S6: 3 tests x 2
// profiles each, all using /bin/true or /bin/false so the tally is
// deterministic without a real STEER test binary.
func TestRun_TalliesSixProcesses(t *testing.T) {
	plan := &Plan{
		Schedule: Schedule{
			ScheduleID: "s6",
			Tests: []Test{
				{ProgramName: "true", Profiles: []Profile{{ProfileID: "a"}, {ProfileID: "b"}}},
				{ProgramName: "true", Profiles: []Profile{{ProfileID: "c"}, {ProfileID: "d"}}},
				{ProgramName: "false", Profiles: []Profile{{ProfileID: "e"}, {ProfileID: "f"}}},
			},
		},
	}

	result, err := Run(context.Background(), plan, RunOptions{PollInterval: time.Millisecond})
	require.NoError(t, err)
	assert.Len(t, result.Results, 6)
	assert.Equal(t, uint64(6), result.ProcessSuccessCount+result.ProcessFailureCount)
	assert.Equal(t, uint64(4), result.ProcessSuccessCount)
	assert.Equal(t, uint64(2), result.ProcessFailureCount)
}

func TestRun_RejectsDuplicateProfileForSameProgram(t *testing.T) {
	plan := &Plan{
		Schedule: Schedule{
			ScheduleID: "dup",
			Tests: []Test{
				{ProgramName: "true", Profiles: []Profile{{ProfileID: "a"}}},
				{ProgramName: "true", Profiles: []Profile{{ProfileID: "a"}}},
			},
		},
	}

	_, err := Run(context.Background(), plan, RunOptions{PollInterval: time.Millisecond})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate profile")
}
