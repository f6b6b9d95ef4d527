// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

package aggregate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"steer/internal/value"
)

// S4 in spec §8: alpha=0.01, bitstreamCount=100.
func TestComputeMinimumTestCount_S4(t *testing.T) {
	got := ComputeMinimumTestCount(0.01, 2, 100)
	assert.EqualValues(t, 100, got.MinimumTestCount)
	assert.EqualValues(t, 1, got.PredictedFailCount)
	assert.EqualValues(t, 99, got.PredictedPassCount)
}

func TestComputeProportionInterval_S4(t *testing.T) {
	iv := ComputeProportionInterval(0.01, 100)
	assert.EqualValues(t, 96, iv.Min)
	assert.EqualValues(t, 102, iv.Max)
	assert.True(t, iv.ProportionCriterionMet(99))
	assert.False(t, iv.ProportionCriterionMet(103))
}

func TestComputeUniformity_PerfectlyUniform(t *testing.T) {
	pValues := make([]float64, 0, 100)
	for i := 0; i < 10; i++ {
		for j := 0; j < 10; j++ {
			pValues = append(pValues, float64(i)/10+0.01)
		}
	}
	result := ComputeUniformity(pValues)
	assert.InDelta(t, 0, result.ChiSquared, 1e-9)
	assert.InDelta(t, 1.0, result.Probability, 1e-9)
	assert.True(t, result.UniformityCriterionMet())
}

func TestComputeUniformity_PValueOfOneGoesToLastBin(t *testing.T) {
	pValues := []float64{1.0, 1.0, 1.0}
	result := ComputeUniformity(pValues)
	assert.EqualValues(t, 3, result.BinCounts[9])
}

// S5 in spec §8: actualTestCount=0 with predictedPass=predictedFail=0.
func TestConfusionMatrix_DegenerateAllZero(t *testing.T) {
	m := ComputeConfusionMatrix(0, 0, 0, 0, 0)
	assert.Zero(t, m.TruePositive)
	assert.Zero(t, m.TrueNegative)
	assert.Zero(t, m.FalsePositive)
	assert.Zero(t, m.FalseNegative)

	stats := ComputeDerivedStatistics(m)
	assert.True(t, math.IsNaN(stats.TPR), "0/0 must surface as NaN, not be coerced to zero")
}

func TestConfusionMatrix_BelowPredictedTotalIsAllZero(t *testing.T) {
	m := ComputeConfusionMatrix(5, 3, 2, 10, 10)
	assert.Zero(t, m.TruePositive)
	assert.Zero(t, m.TrueNegative)
}

func TestConfusionMatrix_InvariantTPplusFPEqualsPredictedPass(t *testing.T) {
	m := ComputeConfusionMatrix(100, 95, 5, 99, 1)
	assert.Equal(t, uint64(99), m.TruePositive+m.FalsePositive)
	assert.Equal(t, uint64(1), m.TrueNegative+m.FalseNegative)
}

func TestDerivedStatistics_PerfectClassifier(t *testing.T) {
	m := ConfusionMatrix{TruePositive: 99, TrueNegative: 1, FalsePositive: 0, FalseNegative: 0}
	stats := ComputeDerivedStatistics(m)
	assert.InDelta(t, 1.0, stats.TPR, 1e-9)
	assert.InDelta(t, 1.0, stats.TNR, 1e-9)
	assert.InDelta(t, 1.0, stats.Accuracy, 1e-9)
	assert.InDelta(t, 1.0, stats.F1, 1e-9)
	assert.InDelta(t, 1.0, stats.MCC, 1e-9)
}

func TestToValueSet_PreservesNaN(t *testing.T) {
	stats := ComputeDerivedStatistics(ConfusionMatrix{})
	vs, err := ToValueSet(stats)
	require.NoError(t, err)
	text, err := value.GetValueFromSet(vs, "TPR")
	require.NoError(t, err)
	assert.Equal(t, "NaN", text)
}
