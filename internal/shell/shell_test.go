// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

package shell

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"steer/internal/plugin"
	"steer/internal/report"
	"steer/internal/value"
)

// stubState satisfies plugin.State for the test double below.
type stubState struct{}

func (stubState) isPluginState() {}

// stubPlugin is a minimal plug-in exercising the shell's lifecycle without
// pulling in a real statistical test: an all-zero buffer yields
// probabilityValue 1 and a passing criterion, any other buffer yields
// probabilityValue 0 and a failing one.
type stubPlugin struct {
	recordedReport *report.Report
}

func (p *stubPlugin) GetTestInfo() plugin.TestInfo {
	return plugin.TestInfo{TestName: "stub-test", ProgramName: "steer-test", ProgramVersion: "0.0.0"}
}

func (p *stubPlugin) GetParametersInfo() []plugin.ParameterInfo { return nil }

func (p *stubPlugin) InitTest(common plugin.CommonData, params []value.Value) (plugin.State, error) {
	return stubState{}, nil
}

func (p *stubPlugin) GetConfigurationCount(state plugin.State) uint32 { return 1 }

func (p *stubPlugin) SetReport(state plugin.State, r *report.Report) error {
	p.recordedReport = r
	return nil
}

func (p *stubPlugin) ExecuteTest(state plugin.State, bitstreamID uint64, buffer []byte, ones, zeros uint64) (plugin.ExecuteResult, error) {
	allZero := ones == 0
	probability := "1"
	if !allZero {
		probability = "0"
	}
	return plugin.ExecuteResult{
		Calculations: []value.Value{
			value.MustNewValue(probabilityValueName, value.F64, probability),
		},
		Criteria: []report.Criterion{
			{Basis: "buffer is all zero", Result: allZero},
		},
	}, nil
}

func (p *stubPlugin) FinalizeTest(state plugin.State, suppliedBitstreamCount uint64) (plugin.FinalizeResult, error) {
	return plugin.FinalizeResult{
		Metrics: []value.Value{
			value.MustNewValue("suppliedBitstreamCount", value.U64, formatU64(suppliedBitstreamCount)),
		},
	}, nil
}

func allZeroEntropySource(bitstreamCount, bitstreamLength uint64) *bytes.Reader {
	return bytes.NewReader(make([]byte, bitstreamCount*bitstreamLength/8))
}

func baseConfig(p plugin.Plugin, source *bytes.Reader) Config {
	return Config{
		Plugin:                     p,
		EntropySource:              source,
		BitstreamCount:             8,
		BitstreamLength:            64,
		SignificanceLevel:          0.01,
		SignificanceLevelPrecision: 2,
		ThreadCount:                2,
		ReportLevel:                report.LevelFull,
	}
}

func TestShell_AllZeroInputPassesEveryTest(t *testing.T) {
	p := &stubPlugin{}
	source := allZeroEntropySource(8, 64)
	cfg := baseConfig(p, source)

	s, err := New(cfg)
	require.NoError(t, err)

	rpt, err := s.Run()
	require.NoError(t, err)
	require.NotNil(t, rpt)

	require.Len(t, rpt.Configurations, 1)
	configuration := rpt.Configurations[0]
	require.Len(t, configuration.Tests, 8)
	for _, test := range configuration.Tests {
		assert.Equal(t, report.Pass, test.Evaluation)
	}
	assert.Equal(t, StateReported, s.State())
	assert.NotZero(t, rpt.Header.CompletionTime)
}

func TestShell_ShortReadAbortsStreamingButStillFinalizes(t *testing.T) {
	p := &stubPlugin{}
	// only enough bytes for 3 of 8 bitstreams
	source := bytes.NewReader(make([]byte, 3*64/8))
	cfg := baseConfig(p, source)

	s, err := New(cfg)
	require.NoError(t, err)

	rpt, err := s.Run()
	require.Error(t, err)
	require.NotNil(t, rpt)

	assert.Equal(t, StateError, s.State())
	assert.Len(t, rpt.Configurations[0].Tests, 3)
	assert.Equal(t, report.Fail, rpt.Evaluation)
}

func TestShell_RejectsInvalidBounds(t *testing.T) {
	p := &stubPlugin{}
	source := allZeroEntropySource(1, 64)

	cfg := baseConfig(p, source)
	cfg.BitstreamLength = 65 // not a multiple of 8
	_, err := New(cfg)
	assert.Error(t, err)

	cfg = baseConfig(p, source)
	cfg.SignificanceLevel = 1.5
	_, err = New(cfg)
	assert.Error(t, err)

	cfg = baseConfig(p, source)
	cfg.ThreadCount = 0
	_, err = New(cfg)
	assert.Error(t, err)
}

func TestShell_SerializesAtRequestedLevel(t *testing.T) {
	p := &stubPlugin{}
	source := allZeroEntropySource(4, 64)
	cfg := baseConfig(p, source)
	cfg.BitstreamCount = 4
	cfg.ReportLevel = report.LevelSummary

	s, err := New(cfg)
	require.NoError(t, err)
	rpt, err := s.Run()
	require.NoError(t, err)

	data, err := report.Serialize(rpt, report.LevelSummary)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "\"configurations\"")
}
