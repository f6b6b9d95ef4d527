// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

// Package builtintests provides a small set of concrete statistical tests
// implementing the plug-in contract of internal/plugin, grounded in NIST SP
// 800-22's own §2.2 (Frequency Test within a Block) and §2.11 (Approximate
// Entropy Test). They exist both as worked reference implementations and as
// the subjects driven by the end-to-end scenarios.
package builtintests

import (
	"fmt"

	"github.com/casbin/govaluate"
	"gonum.org/v1/gonum/mathext"

	"steer/internal/plugin"
	"steer/internal/report"
	"steer/internal/steererr"
	"steer/internal/value"
)

func init() {
	plugin.Register("block-frequency", func() plugin.Plugin { return &BlockFrequency{} })
}

// blockFrequencyState is BlockFrequency's opaque per-run state.
type blockFrequencyState struct {
	common                 plugin.CommonData
	blockLength             uint64
	recommendedBlockLength  uint64
	blockLengthCriterionMet bool
}

func (*blockFrequencyState) isPluginState() {}

// BlockFrequency implements NIST SP 800-22 §2.2: within each bitstream,
// partition the n bits into N = floor(n/M) blocks of M bits and test
// whether the fraction of ones per block is consistent with 0.5.
type BlockFrequency struct{}

func (BlockFrequency) GetTestInfo() plugin.TestInfo {
	return plugin.TestInfo{
		TestName:     "block-frequency",
		Suite:        "NIST SP 800-22",
		Description:  "Frequency Test within a Block (§2.2): tests whether the proportion of ones in an M-bit block is approximately M/2.",
		Complexity:   "O(n)",
		References:   []string{"NIST SP 800-22 Rev 1a, §2.2"},
		ProgramName:  "steer-block-frequency",
		InputFormat:  plugin.InputFormatBinary,
	}
}

func (BlockFrequency) GetParametersInfo() []plugin.ParameterInfo {
	return []plugin.ParameterInfo{
		{Name: "block_length", DataType: value.U64, Units: "bits", Default: "128", Min: "20"},
	}
}

func (BlockFrequency) InitTest(common plugin.CommonData, params []value.Value) (plugin.State, error) {
	blockLength, err := requireU64Parameter(params, "block_length")
	if err != nil {
		return nil, err
	}
	if blockLength == 0 || blockLength > common.BitstreamLength {
		return nil, steererr.New(steererr.InvalidArgument, "block_length must be in (0, bitstream_length]")
	}
	recommended := common.BitstreamLength / 100
	return &blockFrequencyState{
		common:                  common,
		blockLength:             blockLength,
		recommendedBlockLength:  recommended,
		blockLengthCriterionMet: evaluateBlockLengthRecommendation(blockLength, recommended),
	}, nil
}

// evaluateBlockLengthRecommendation checks NIST's rule of thumb for M as
// M >= 20 and M >= recommendedBlockLength, via a govaluate expression rather
// than inline Go comparisons. recommendedBlockLength (bitstream_length/100,
// integer division) is the rule's floor, not a ceiling: a larger M only
// improves the block count's resolution.
func evaluateBlockLengthRecommendation(blockLength, recommendedBlockLength uint64) bool {
	expr, err := govaluate.NewEvaluableExpression("blockLength >= 20 && blockLength >= recommendedBlockLength")
	if err != nil {
		return false
	}
	result, err := expr.Evaluate(map[string]any{
		"blockLength":            float64(blockLength),
		"recommendedBlockLength": float64(recommendedBlockLength),
	})
	if err != nil {
		return false
	}
	met, _ := result.(bool)
	return met
}

func (BlockFrequency) GetConfigurationCount(state plugin.State) uint32 { return 1 }

func (BlockFrequency) SetReport(state plugin.State, r *report.Report) error {
	s := state.(*blockFrequencyState)
	return r.AddAttributeToConfiguration(0, value.MustNewValue("blockLength", value.U64, fmt.Sprintf("%d", s.blockLength)))
}

func (BlockFrequency) ExecuteTest(state plugin.State, bitstreamID uint64, buffer []byte, ones, zeros uint64) (plugin.ExecuteResult, error) {
	s := state.(*blockFrequencyState)
	M := s.blockLength
	nBits := uint64(len(buffer)) * 8
	N := nBits / M
	if N == 0 {
		return plugin.ExecuteResult{}, steererr.New(steererr.InvalidArgument, "block_length exceeds bitstream length")
	}

	var sumSquaredDeviation float64
	for i := uint64(0); i < N; i++ {
		blockOnes := countOnesInRange(buffer, i*M, M)
		proportion := float64(blockOnes) / float64(M)
		deviation := proportion - 0.5
		sumSquaredDeviation += deviation * deviation
	}
	chiSquared := 4 * float64(M) * sumSquaredDeviation
	probabilityValue := mathext.GammaIncRegComp(float64(N)/2, chiSquared/2)

	return plugin.ExecuteResult{
		Calculations: []value.Value{
			value.MustNewValue("numSubstringBlocks", value.U64, fmt.Sprintf("%d", N)),
			value.MustNewValue("blockFrequencyChiSquared", value.F64, fmt.Sprintf("%v", chiSquared)),
			value.MustNewValue("probabilityValue", value.F64, fmt.Sprintf("%v", probabilityValue)),
		},
		Criteria: []report.Criterion{
			{Basis: "probabilityValue >= significance level", Result: probabilityValue >= s.common.SignificanceLevel},
		},
	}, nil
}

func (BlockFrequency) FinalizeTest(state plugin.State, suppliedBitstreamCount uint64) (plugin.FinalizeResult, error) {
	s := state.(*blockFrequencyState)
	return plugin.FinalizeResult{
		Metrics: []value.Value{
			value.MustNewValue("recommendedBlockLength", value.U64, fmt.Sprintf("%d", s.recommendedBlockLength)),
		},
		Criteria: []report.Criterion{
			{Basis: "block_length meets NIST's recommended minimum", Result: s.blockLengthCriterionMet},
		},
	}, nil
}

// countOnesInRange counts set bits in buffer over [startBit, startBit+length),
// using MSB-first bit numbering within each byte. It is a plain O(length)
// scan: block lengths in practice are small (tens to low thousands of
// bits), so a bit-by-bit loop stays well within the per-bitstream budget
// without the bookkeeping a word-at-a-time version would need for
// non-byte-aligned start offsets.
func countOnesInRange(buffer []byte, startBit, length uint64) uint64 {
	var ones uint64
	for i := uint64(0); i < length; i++ {
		bitIndex := startBit + i
		byteIndex := bitIndex / 8
		bitInByte := 7 - (bitIndex % 8)
		if buffer[byteIndex]&(1<<bitInByte) != 0 {
			ones++
		}
	}
	return ones
}

func requireU64Parameter(params []value.Value, name string) (uint64, error) {
	for _, p := range params {
		if p.Name == name {
			native, err := value.GetNativeValue(value.U64, p.Text)
			if err != nil {
				return 0, err
			}
			return native.(uint64), nil
		}
	}
	return 0, steererr.New(steererr.InvalidArgument, fmt.Sprintf("missing required parameter %q", name))
}
