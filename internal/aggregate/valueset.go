// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

package aggregate

import (
	"fmt"

	"steer/internal/value"
)

// ToValueSet projects DerivedStatistics into the single ValueSet the
// Configuration-level report carries them as (spec §4.5 "Derived
// statistics exposed as a single ValueSet"). NaN/Inf values are formatted
// via Go's default float formatting ("NaN", "+Inf", "-Inf"), preserved as
// text rather than coerced to zero.
func ToValueSet(stats DerivedStatistics) (value.ValueSet, error) {
	precision := 6
	vs, err := value.NewValueSet("confusionMatrixDerivedStatistics", value.F64, &precision, "")
	if err != nil {
		return vs, err
	}
	items := []struct {
		label string
		val   float64
	}{
		{"TPR", stats.TPR},
		{"TNR", stats.TNR},
		{"PPV", stats.PPV},
		{"NPV", stats.NPV},
		{"FNR", stats.FNR},
		{"FPR", stats.FPR},
		{"FDR", stats.FDR},
		{"FOR", stats.FOR},
		{"prevalenceThreshold", stats.PrevalenceThreshold},
		{"threatScore", stats.ThreatScore},
		{"accuracy", stats.Accuracy},
		{"balancedAccuracy", stats.BalancedAccuracy},
		{"F1", stats.F1},
		{"MCC", stats.MCC},
		{"fowlkesMallows", stats.FowlkesMallows},
		{"informedness", stats.Informedness},
		{"markedness", stats.Markedness},
		{"errorRate", stats.ErrorRate},
		{"prevalence", stats.Prevalence},
		{"LRPlus", stats.PositiveLikelihood},
		{"LRMinus", stats.NegativeLikelihood},
		{"DOR", stats.DiagnosticOddsRatio},
	}
	for _, item := range items {
		vs, err = value.AddValueToSet(vs, item.label, fmt.Sprintf("%v", item.val))
		if err != nil {
			return vs, err
		}
	}
	return vs, nil
}

// ConfusionMatrixValueSet projects the four raw confusion-matrix cells
// into a ValueSet, grouped separately from the derived statistics.
func ConfusionMatrixValueSet(m ConfusionMatrix) (value.ValueSet, error) {
	vs, err := value.NewValueSet("confusionMatrix", value.U64, nil, "")
	if err != nil {
		return vs, err
	}
	for _, item := range []struct {
		label string
		val   uint64
	}{
		{"TP", m.TruePositive},
		{"TN", m.TrueNegative},
		{"FP", m.FalsePositive},
		{"FN", m.FalseNegative},
	} {
		vs, err = value.AddValueToSet(vs, item.label, fmt.Sprintf("%d", item.val))
		if err != nil {
			return vs, err
		}
	}
	return vs, nil
}
