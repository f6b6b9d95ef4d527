// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

// Package aggregate implements the STEER Aggregation Math (spec §4.5):
// minimum-test-count derivation, the proportion-of-sequences-passing
// interval, the p-value uniformity χ² test, and the confusion-matrix
// statistics used to roll per-bitstream pass/fail counts up into a
// configuration-level evaluation.
//
// The χ² goodness-of-fit probability uses the regularized upper incomplete
// gamma function from gonum.org/v1/gonum/mathext, standing in for the
// cephes igamc the original C implementation calls (spec §1 treats that
// numerics library as an external collaborator).
package aggregate

import (
	"math"

	"gonum.org/v1/gonum/mathext"
)

// MinimumTestCount holds the derived pass/fail targets for a Configuration
// running bitstreamCount bitstreams at significance level alpha, per spec
// §4.5 "Minimum test count".
type MinimumTestCount struct {
	MinimumTestCount  uint64
	PredictedPassCount uint64
	PredictedFailCount uint64
}

// ComputeMinimumTestCount implements:
//
//	F = floor(alpha * 10^precision)          (min failures)
//	P = floor((1-alpha) * 10^precision)      (min passes)
//	minimumTestCount = P + F
//	predictedFailCount = floor(bitstreamCount * alpha)
//	predictedPassCount = bitstreamCount - predictedFailCount
func ComputeMinimumTestCount(alpha float64, precision uint32, bitstreamCount uint64) MinimumTestCount {
	scale := math.Pow(10, float64(precision))
	minFailures := uint64(math.Floor(alpha * scale))
	minPasses := uint64(math.Floor((1 - alpha) * scale))
	predictedFail := uint64(math.Floor(float64(bitstreamCount) * alpha))
	predictedPass := bitstreamCount - predictedFail
	return MinimumTestCount{
		MinimumTestCount:   minPasses + minFailures,
		PredictedPassCount: predictedPass,
		PredictedFailCount: predictedFail,
	}
}

// ProportionInterval is the acceptable [min,max] count of passing tests
// per spec §4.5 "Proportion-of-sequences-passing interval" (NIST SP
// 800-22 §4.2.1): (1-alpha) ± 3*sqrt(alpha*(1-alpha)/B), scaled by B and
// rounded to the nearest integer.
type ProportionInterval struct {
	Min uint64
	Max uint64
}

func ComputeProportionInterval(alpha float64, bitstreamCount uint64) ProportionInterval {
	b := float64(bitstreamCount)
	center := (1 - alpha) * b
	halfWidth := 3 * math.Sqrt(alpha*(1-alpha)*b)
	minF := center - halfWidth
	maxF := center + halfWidth
	min := int64(math.Round(minF))
	if min < 0 {
		min = 0
	}
	max := int64(math.Round(maxF))
	return ProportionInterval{Min: uint64(min), Max: uint64(max)}
}

// ProportionCriterionMet reports whether testsPassed falls within iv.
func (iv ProportionInterval) ProportionCriterionMet(testsPassed uint64) bool {
	return testsPassed >= iv.Min && testsPassed <= iv.Max
}

// UniformityResult is the outcome of the p-value uniformity χ² test (spec
// §4.5, NIST SP 800-22 §4.2.2).
type UniformityResult struct {
	ChiSquared  float64
	Probability float64
	BinCounts   [10]uint64
}

// uniformityThreshold is the minimum acceptable probability for the
// uniformity criterion: probabilityValueUniformity >= 0.0001.
const uniformityThreshold = 0.0001

// ComputeUniformity partitions pValues into 10 equal-width bins over
// [0,1] (a value of exactly 1.0 is assigned to the last bin), computes
// χ² = Σ (F_i - B/10)^2 / (B/10), and converts it to a probability via the
// regularized upper incomplete gamma function igamc(9/2, χ²/2).
func ComputeUniformity(pValues []float64) UniformityResult {
	var bins [10]uint64
	for _, p := range pValues {
		idx := int(p * 10)
		if idx >= 10 {
			idx = 9
		}
		if idx < 0 {
			idx = 0
		}
		bins[idx]++
	}
	b := float64(len(pValues))
	expected := b / 10
	var chiSquared float64
	if expected > 0 {
		for _, count := range bins {
			diff := float64(count) - expected
			chiSquared += diff * diff / expected
		}
	}
	probability := mathext.GammaIncRegComp(9.0/2.0, chiSquared/2.0)
	return UniformityResult{ChiSquared: chiSquared, Probability: probability, BinCounts: bins}
}

// UniformityCriterionMet reports whether the computed uniformity
// probability clears the NIST threshold.
func (u UniformityResult) UniformityCriterionMet() bool {
	return u.Probability >= uniformityThreshold
}
