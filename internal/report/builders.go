// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

package report

import (
	"fmt"

	"steer/internal/steererr"
	"steer/internal/value"
)

// NewReport reserves capacity for configurationCount Configurations, which
// start empty and are appended by AddConfigurationToReport, and records
// bitstreamCount as the Test capacity each of them is created with.
func NewReport(header Header, params ParameterSet, configurationCount int, bitstreamCount int) *Report {
	return &Report{
		Header:         header,
		Parameters:     params,
		Configurations: make([]Configuration, 0, configurationCount),
		testCapacity:   bitstreamCount,
	}
}

// AddConfigurationToReport appends a new Configuration with a strictly
// monotonic ConfigurationID equal to the current count.
func (r *Report) AddConfigurationToReport() (cfgID uint64, err error) {
	cfgID = uint64(len(r.Configurations))
	r.Configurations = append(r.Configurations, Configuration{
		ConfigurationID: cfgID,
		Tests:           make([]Test, 0, r.testCapacity),
	})
	return cfgID, nil
}

func (r *Report) configuration(cfgID uint64) (*Configuration, error) {
	if cfgID >= uint64(len(r.Configurations)) {
		return nil, steererr.New(steererr.InvalidArgument, fmt.Sprintf("configuration id %d out of range (have %d)", cfgID, len(r.Configurations)))
	}
	return &r.Configurations[cfgID], nil
}

func (c *Configuration) test(testID uint64) (*Test, error) {
	if testID >= uint64(len(c.Tests)) {
		return nil, steererr.New(steererr.InvalidArgument, fmt.Sprintf("test id %d out of range (have %d)", testID, len(c.Tests)))
	}
	return &c.Tests[testID], nil
}

// AddTestToConfiguration appends a new Test with a strictly monotonic
// TestID equal to the current test count within cfgID.
func (r *Report) AddTestToConfiguration(cfgID uint64) (testID uint64, err error) {
	cfg, err := r.configuration(cfgID)
	if err != nil {
		return 0, err
	}
	testID = uint64(len(cfg.Tests))
	cfg.Tests = append(cfg.Tests, Test{TestID: testID})
	return testID, nil
}

// AddAttributeToConfiguration appends a Value to cfgID's Attributes.
func (r *Report) AddAttributeToConfiguration(cfgID uint64, v value.Value) error {
	cfg, err := r.configuration(cfgID)
	if err != nil {
		return err
	}
	cfg.Attributes = append(cfg.Attributes, v)
	return nil
}

// AddMetricToConfiguration appends a Value to cfgID's Metrics.
func (r *Report) AddMetricToConfiguration(cfgID uint64, v value.Value) error {
	cfg, err := r.configuration(cfgID)
	if err != nil {
		return err
	}
	cfg.Metrics = append(cfg.Metrics, v)
	return nil
}

// AddMetricSetToConfiguration appends a ValueSet to cfgID's MetricSets.
func (r *Report) AddMetricSetToConfiguration(cfgID uint64, vs value.ValueSet) error {
	cfg, err := r.configuration(cfgID)
	if err != nil {
		return err
	}
	cfg.MetricSets = append(cfg.MetricSets, vs)
	return nil
}

// AddCalculationToTest appends a Value to the Calculations of testID within
// cfgID.
func (r *Report) AddCalculationToTest(cfgID, testID uint64, v value.Value) error {
	cfg, err := r.configuration(cfgID)
	if err != nil {
		return err
	}
	t, err := cfg.test(testID)
	if err != nil {
		return err
	}
	t.Calculations = append(t.Calculations, v)
	return nil
}

// AddCalculationSetToTest appends a ValueSet to the CalculationSets of
// testID within cfgID.
func (r *Report) AddCalculationSetToTest(cfgID, testID uint64, vs value.ValueSet) error {
	cfg, err := r.configuration(cfgID)
	if err != nil {
		return err
	}
	t, err := cfg.test(testID)
	if err != nil {
		return err
	}
	t.CalculationSets = append(t.CalculationSets, vs)
	return nil
}

// AddCriterionToTest appends a Criterion to testID within cfgID. basis must
// be non-empty.
func (r *Report) AddCriterionToTest(cfgID, testID uint64, basis string, result bool) error {
	if basis == "" {
		return steererr.New(steererr.EmptyString, "criterion basis must not be empty")
	}
	cfg, err := r.configuration(cfgID)
	if err != nil {
		return err
	}
	t, err := cfg.test(testID)
	if err != nil {
		return err
	}
	t.Criteria = append(t.Criteria, Criterion{Basis: basis, Result: result})
	return nil
}

// AddCriterionToConfiguration appends a Criterion to cfgID.
func (r *Report) AddCriterionToConfiguration(cfgID uint64, basis string, result bool) error {
	if basis == "" {
		return steererr.New(steererr.EmptyString, "criterion basis must not be empty")
	}
	cfg, err := r.configuration(cfgID)
	if err != nil {
		return err
	}
	cfg.Criteria = append(cfg.Criteria, Criterion{Basis: basis, Result: result})
	return nil
}

// AddCriterionToReport appends a top-level Criterion.
func (r *Report) AddCriterionToReport(basis string, result bool) error {
	if basis == "" {
		return steererr.New(steererr.EmptyString, "criterion basis must not be empty")
	}
	r.Criteria = append(r.Criteria, Criterion{Basis: basis, Result: result})
	return nil
}

// AddEvaluationToTest computes and stores testID's evaluation deterministically
// from its current criteria (AND over Result).
func (r *Report) AddEvaluationToTest(cfgID, testID uint64) (Evaluation, error) {
	cfg, err := r.configuration(cfgID)
	if err != nil {
		return Inconclusive, err
	}
	t, err := cfg.test(testID)
	if err != nil {
		return Inconclusive, err
	}
	t.Evaluation = evaluationFromCriteria(t.Criteria)
	return t.Evaluation, nil
}

// AddEvaluationToConfiguration computes and stores cfgID's evaluation
// deterministically from its own criteria (AND over Result); it does not
// inspect child Test evaluations directly (those are folded into
// configuration-level criteria by the aggregation step, spec §4.5).
func (r *Report) AddEvaluationToConfiguration(cfgID uint64) (Evaluation, error) {
	cfg, err := r.configuration(cfgID)
	if err != nil {
		return Inconclusive, err
	}
	cfg.Evaluation = evaluationFromCriteria(cfg.Criteria)
	return cfg.Evaluation, nil
}

// AddEvaluationToReport computes and stores the top-level evaluation: the
// AND of every top-level Criterion plus every Configuration's evaluation
// (spec §4.5 "Top-level Report evaluation = AND of all Configuration
// evaluations").
func (r *Report) AddEvaluationToReport() Evaluation {
	eval := evaluationFromCriteria(r.Criteria)
	if eval == Pass {
		for _, cfg := range r.Configurations {
			if cfg.Evaluation != Pass {
				eval = Fail
				break
			}
		}
	}
	r.Evaluation = eval
	return eval
}
