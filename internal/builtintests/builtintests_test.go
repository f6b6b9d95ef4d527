// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

package builtintests_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "steer/internal/builtintests"
	"steer/internal/plugin"
	"steer/internal/report"
	"steer/internal/shell"
	"steer/internal/value"
)

func mustParamValue(t *testing.T, name string, dt value.DataType, text string) value.Value {
	t.Helper()
	v, err := value.NewValue(name, dt, nil, "", text)
	require.NoError(t, err)
	return v
}

func findCalculation(t *testing.T, test report.Test, name string) value.Value {
	t.Helper()
	for _, c := range test.Calculations {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("calculation %q not found", name)
	return value.Value{}
}

// TestBlockFrequency_AllZeros exercises scenario S1.
func TestBlockFrequency_AllZeros(t *testing.T) {
	factory, err := plugin.Get("block-frequency")
	require.NoError(t, err)

	source := bytes.NewReader(make([]byte, 1000)) // 1000 zero bytes = 8000 zero bits
	cfg := shell.Config{
		Plugin:                     factory(),
		EntropySource:              source,
		BitstreamCount:             1,
		BitstreamLength:            8000,
		SignificanceLevel:          0.01,
		SignificanceLevelPrecision: 2,
		ThreadCount:                1,
		ReportLevel:                report.LevelFull,
		PluginParameters: []value.Value{
			mustParamValue(t, "block_length", value.U64, "100"),
		},
	}

	s, err := shell.New(cfg)
	require.NoError(t, err)
	rpt, err := s.Run()
	require.NoError(t, err)

	cfgResult := rpt.Configurations[0]
	require.Len(t, cfgResult.Tests, 1)
	test := cfgResult.Tests[0]

	numBlocks := findCalculation(t, test, "numSubstringBlocks")
	assert.Equal(t, "80", numBlocks.Text)

	prob := findCalculation(t, test, "probabilityValue")
	native, err := value.GetNativeValue(value.F64, prob.Text)
	require.NoError(t, err)
	assert.Less(t, native.(float64), 0.01)

	assert.Equal(t, report.Fail, test.Evaluation)
	assert.Equal(t, uint64(0), findMetricU64(t, cfgResult, "testsPassed"))
	assert.Equal(t, uint64(1), findMetricU64(t, cfgResult, "testsFailed"))
	assert.Equal(t, uint64(8000), findMetricU64(t, cfgResult, "accumulatedZeros"))
	assert.Equal(t, uint64(0), findMetricU64(t, cfgResult, "accumulatedOnes"))
	assert.Equal(t, report.Fail, cfgResult.Evaluation)
}

// TestBlockFrequency_Alternating exercises scenario S2.
func TestBlockFrequency_Alternating(t *testing.T) {
	factory, err := plugin.Get("block-frequency")
	require.NoError(t, err)

	buf := make([]byte, 1000)
	for i := range buf {
		buf[i] = 0xAA
	}
	source := bytes.NewReader(buf)
	cfg := shell.Config{
		Plugin:                     factory(),
		EntropySource:              source,
		BitstreamCount:             1,
		BitstreamLength:            8000,
		SignificanceLevel:          0.01,
		SignificanceLevelPrecision: 2,
		ThreadCount:                1,
		ReportLevel:                report.LevelFull,
		PluginParameters: []value.Value{
			mustParamValue(t, "block_length", value.U64, "100"),
		},
	}

	s, err := shell.New(cfg)
	require.NoError(t, err)
	rpt, err := s.Run()
	require.NoError(t, err)

	cfgResult := rpt.Configurations[0]
	test := cfgResult.Tests[0]

	chiSquared := findCalculation(t, test, "blockFrequencyChiSquared")
	native, err := value.GetNativeValue(value.F64, chiSquared.Text)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, native.(float64), 1e-9)

	prob := findCalculation(t, test, "probabilityValue")
	probNative, err := value.GetNativeValue(value.F64, prob.Text)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, probNative.(float64), 1e-9)

	assert.Equal(t, report.Pass, test.Evaluation)
	assert.Equal(t, uint64(4000), findMetricU64(t, cfgResult, "accumulatedOnes"))
	assert.Equal(t, uint64(4000), findMetricU64(t, cfgResult, "accumulatedZeros"))
	assert.Equal(t, report.Pass, cfgResult.Evaluation)
}

// TestApproximateEntropy_MultiThreadConsistency exercises scenario S3: the
// same input run with thread_count in {1, 8, 32} must produce pairwise
// equal per-bitstream calculations.
func TestApproximateEntropy_MultiThreadConsistency(t *testing.T) {
	const bitstreamCount = 32
	const bitstreamLength = 1024 // bits

	input := make([]byte, bitstreamCount*bitstreamLength/8)
	for i := range input {
		input[i] = byte(i*2654435761 + 17) // arbitrary deterministic fill
	}

	run := func(threadCount int) *report.Report {
		factory, err := plugin.Get("approximate-entropy")
		require.NoError(t, err)
		cfg := shell.Config{
			Plugin:                     factory(),
			EntropySource:              bytes.NewReader(input),
			BitstreamCount:             bitstreamCount,
			BitstreamLength:            bitstreamLength,
			SignificanceLevel:          0.01,
			SignificanceLevelPrecision: 2,
			ThreadCount:                threadCount,
			ReportLevel:                report.LevelFull,
			PluginParameters: []value.Value{
				mustParamValue(t, "block_length", value.U64, "3"),
			},
		}
		s, err := shell.New(cfg)
		require.NoError(t, err)
		rpt, err := s.Run()
		require.NoError(t, err)
		return rpt
	}

	report1 := run(1)
	report8 := run(8)
	report32 := run(32)

	require.Len(t, report1.Configurations[0].Tests, bitstreamCount)
	require.Len(t, report8.Configurations[0].Tests, bitstreamCount)
	require.Len(t, report32.Configurations[0].Tests, bitstreamCount)

	for i := 0; i < bitstreamCount; i++ {
		t1 := report1.Configurations[0].Tests[i]
		t8 := report8.Configurations[0].Tests[i]
		t32 := report32.Configurations[0].Tests[i]

		for _, name := range []string{"approximateEntropy", "chiSquared", "probabilityValue"} {
			v1 := findCalculation(t, t1, name).Text
			v8 := findCalculation(t, t8, name).Text
			v32 := findCalculation(t, t32, name).Text
			assert.Equal(t, v1, v8, "bitstream %d calculation %s differs between thread counts 1 and 8", i, name)
			assert.Equal(t, v1, v32, "bitstream %d calculation %s differs between thread counts 1 and 32", i, name)
		}
	}
}

func findMetricU64(t *testing.T, cfg report.Configuration, name string) uint64 {
	t.Helper()
	for _, m := range cfg.Metrics {
		if m.Name == name {
			native, err := value.GetNativeValue(value.U64, m.Text)
			require.NoError(t, err)
			return native.(uint64)
		}
	}
	t.Fatalf("metric %q not found", name)
	return 0
}
