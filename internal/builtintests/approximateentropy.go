// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

package builtintests

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mathext"

	"steer/internal/plugin"
	"steer/internal/report"
	"steer/internal/steererr"
	"steer/internal/value"
)

func init() {
	plugin.Register("approximate-entropy", func() plugin.Plugin { return &ApproximateEntropy{} })
}

// approximateEntropyState is ApproximateEntropy's opaque per-run state. It
// is read-only once InitTest returns, so ExecuteTest can be called
// concurrently across worker-pool slots without synchronisation (spec §5:
// "workers run in isolation... per-thread scratch").
type approximateEntropyState struct {
	common      plugin.CommonData
	blockLength int
}

func (*approximateEntropyState) isPluginState() {}

// ApproximateEntropy implements NIST SP 800-22 §2.11: compares the
// frequency of overlapping m-bit and (m+1)-bit patterns to the frequency
// expected of a random sequence.
type ApproximateEntropy struct{}

func (ApproximateEntropy) GetTestInfo() plugin.TestInfo {
	return plugin.TestInfo{
		TestName:    "approximate-entropy",
		Suite:       "NIST SP 800-22",
		Description: "Approximate Entropy Test (§2.11): compares the frequency of overlapping m-bit and (m+1)-bit patterns against the frequency expected of a random sequence.",
		Complexity:  "O(n)",
		References:  []string{"NIST SP 800-22 Rev 1a, §2.11"},
		ProgramName: "steer-approximate-entropy",
		InputFormat: plugin.InputFormatBinary,
	}
}

func (ApproximateEntropy) GetParametersInfo() []plugin.ParameterInfo {
	return []plugin.ParameterInfo{
		{Name: "block_length", DataType: value.U64, Units: "bits", Default: "2", Min: "2", Max: "3"},
	}
}

func (ApproximateEntropy) InitTest(common plugin.CommonData, params []value.Value) (plugin.State, error) {
	blockLength, err := requireU64Parameter(params, "block_length")
	if err != nil {
		return nil, err
	}
	if blockLength == 0 {
		return nil, steererr.New(steererr.InvalidArgument, "block_length must be >= 1")
	}
	if blockLength+1 > common.BitstreamLength {
		return nil, steererr.New(steererr.InvalidArgument, "block_length+1 must not exceed bitstream_length")
	}
	return &approximateEntropyState{common: common, blockLength: int(blockLength)}, nil
}

func (ApproximateEntropy) GetConfigurationCount(state plugin.State) uint32 { return 1 }

func (ApproximateEntropy) SetReport(state plugin.State, r *report.Report) error {
	s := state.(*approximateEntropyState)
	return r.AddAttributeToConfiguration(0, value.MustNewValue("blockLength", value.U64, fmt.Sprintf("%d", s.blockLength)))
}

func (ApproximateEntropy) ExecuteTest(state plugin.State, bitstreamID uint64, buffer []byte, ones, zeros uint64) (plugin.ExecuteResult, error) {
	s := state.(*approximateEntropyState)
	m := s.blockLength
	n := len(buffer) * 8
	bitValues := extractBits(buffer, n)

	phiM := blockEntropy(bitValues, m)
	phiM1 := blockEntropy(bitValues, m+1)
	approximateEntropy := phiM - phiM1
	chiSquared := 2 * float64(n) * (math.Ln2 - approximateEntropy)
	probabilityValue := mathext.GammaIncRegComp(math.Pow(2, float64(m-1)), chiSquared/2)

	return plugin.ExecuteResult{
		Calculations: []value.Value{
			value.MustNewValue("approximateEntropy", value.F64, fmt.Sprintf("%v", approximateEntropy)),
			value.MustNewValue("chiSquared", value.F64, fmt.Sprintf("%v", chiSquared)),
			value.MustNewValue("probabilityValue", value.F64, fmt.Sprintf("%v", probabilityValue)),
		},
		Criteria: []report.Criterion{
			{Basis: "probabilityValue >= significance level", Result: probabilityValue >= s.common.SignificanceLevel},
		},
	}, nil
}

func (ApproximateEntropy) FinalizeTest(state plugin.State, suppliedBitstreamCount uint64) (plugin.FinalizeResult, error) {
	s := state.(*approximateEntropyState)
	return plugin.FinalizeResult{
		Metrics: []value.Value{
			value.MustNewValue("blockLength", value.U64, fmt.Sprintf("%d", s.blockLength)),
		},
	}, nil
}

// extractBits unpacks the first n bits of buffer (MSB-first within each
// byte) into a 0/1 slice for the pattern-counting in blockEntropy.
func extractBits(buffer []byte, n int) []int {
	bitValues := make([]int, n)
	for i := 0; i < n; i++ {
		byteIndex := i / 8
		bitInByte := 7 - (i % 8)
		if buffer[byteIndex]&(1<<uint(bitInByte)) != 0 {
			bitValues[i] = 1
		}
	}
	return bitValues
}

// blockEntropy computes phi(m) = sum_i C_i * ln(C_i) over all 2^m possible
// m-bit patterns, where C_i is pattern i's frequency among the n
// overlapping, circularly-extended m-bit windows of bitValues (NIST SP
// 800-22 §2.11 step 2-3).
func blockEntropy(bitValues []int, m int) float64 {
	n := len(bitValues)
	extended := make([]int, n+m-1)
	copy(extended, bitValues)
	for i := 0; i < m-1; i++ {
		extended[n+i] = bitValues[i]
	}

	patternCount := 1 << uint(m)
	counts := make([]int, patternCount)
	for i := 0; i < n; i++ {
		pattern := 0
		for j := 0; j < m; j++ {
			pattern = (pattern << 1) | extended[i+j]
		}
		counts[pattern]++
	}

	var sum float64
	for _, c := range counts {
		if c == 0 {
			continue
		}
		ci := float64(c) / float64(n)
		sum += ci * math.Log(ci)
	}
	return sum
}
