// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

package aggregate

import "math"

// ConfusionMatrix holds the four confusion-matrix cells derived from a
// Configuration's actual vs. predicted pass/fail counts (spec §4.5).
type ConfusionMatrix struct {
	TruePositive  uint64
	TrueNegative  uint64
	FalsePositive uint64
	FalseNegative uint64
}

// ComputeConfusionMatrix implements spec §4.5:
//
//	if actualTestCount >= predictedPass + predictedFail:
//	  TP = min(actualPass, predictedPass)
//	  TN = min(actualFail, predictedFail)
//	  FP = predictedPass - TP
//	  FN = predictedFail - TN
//	else all four are zero.
func ComputeConfusionMatrix(actualTestCount, actualPassCount, actualFailCount, predictedPassCount, predictedFailCount uint64) ConfusionMatrix {
	if actualTestCount < predictedPassCount+predictedFailCount {
		return ConfusionMatrix{}
	}
	tp := min64(actualPassCount, predictedPassCount)
	tn := min64(actualFailCount, predictedFailCount)
	return ConfusionMatrix{
		TruePositive:  tp,
		TrueNegative:  tn,
		FalsePositive: predictedPassCount - tp,
		FalseNegative: predictedFailCount - tn,
	}
}

func min64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

// DerivedStatistics is the set of 22 confusion-matrix-derived statistics
// exposed as a single ValueSet (spec §4.5). NaN/Inf are preserved as-is on
// degenerate inputs; callers must not coerce them to zero.
type DerivedStatistics struct {
	TPR                   float64 // true positive rate (sensitivity, recall)
	TNR                   float64 // true negative rate (specificity)
	PPV                   float64 // positive predictive value (precision)
	NPV                   float64 // negative predictive value
	FNR                   float64 // false negative rate (miss rate)
	FPR                   float64 // false positive rate (fall-out)
	FDR                   float64 // false discovery rate
	FOR                   float64 // false omission rate
	PrevalenceThreshold   float64
	ThreatScore           float64 // critical success index
	Accuracy              float64
	BalancedAccuracy      float64
	F1                    float64
	MCC                   float64 // Matthews correlation coefficient
	FowlkesMallows        float64
	Informedness          float64 // Youden's J statistic
	Markedness            float64
	ErrorRate             float64
	Prevalence            float64
	PositiveLikelihood    float64 // LR+
	NegativeLikelihood    float64 // LR-
	DiagnosticOddsRatio   float64 // DOR
}

// ComputeDerivedStatistics computes the standard confusion-matrix
// derivations from m. Division by zero legitimately yields NaN or +/-Inf,
// per Go's float64 semantics, and is returned unmodified.
func ComputeDerivedStatistics(m ConfusionMatrix) DerivedStatistics {
	tp := float64(m.TruePositive)
	tn := float64(m.TrueNegative)
	fp := float64(m.FalsePositive)
	fn := float64(m.FalseNegative)

	total := tp + tn + fp + fn

	tpr := tp / (tp + fn)
	tnr := tn / (tn + fp)
	ppv := tp / (tp + fp)
	npv := tn / (tn + fn)
	fnr := fn / (fn + tp)
	fpr := fp / (fp + tn)
	fdr := fp / (fp + tp)
	for_ := fn / (fn + tn)
	prevalence := (tp + fn) / total
	accuracy := (tp + tn) / total
	balancedAccuracy := (tpr + tnr) / 2
	f1 := 2 * (ppv * tpr) / (ppv + tpr)
	errorRate := (fp + fn) / total
	informedness := tpr + tnr - 1
	markedness := ppv + npv - 1
	plr := tpr / fpr
	nlr := fnr / tnr
	dor := plr / nlr
	threatScore := tp / (tp + fn + fp)
	fm := math.Sqrt(ppv * tpr)
	prevalenceThreshold := (math.Sqrt(tpr*fpr) - fpr) / (tpr - fpr)

	mccNumerator := tp*tn - fp*fn
	mccDenominator := math.Sqrt((tp + fp) * (tp + fn) * (tn + fp) * (tn + fn))
	mcc := mccNumerator / mccDenominator

	return DerivedStatistics{
		TPR:                 tpr,
		TNR:                 tnr,
		PPV:                 ppv,
		NPV:                 npv,
		FNR:                 fnr,
		FPR:                 fpr,
		FDR:                 fdr,
		FOR:                 for_,
		PrevalenceThreshold: prevalenceThreshold,
		ThreatScore:         threatScore,
		Accuracy:            accuracy,
		BalancedAccuracy:    balancedAccuracy,
		F1:                  f1,
		MCC:                 mcc,
		FowlkesMallows:      fm,
		Informedness:        informedness,
		Markedness:          markedness,
		ErrorRate:           errorRate,
		Prevalence:          prevalence,
		PositiveLikelihood:  plr,
		NegativeLikelihood:  nlr,
		DiagnosticOddsRatio: dor,
	}
}
