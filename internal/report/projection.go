// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

package report

// Projection implements the logical JSON shape of spec §6: Serialize
// projects a Report to the subset its ReportLevel allows (Summary omits
// parameters/configurations; Standard adds them without calculation/metric
// bodies; Full includes everything). Deserialize reads a Full-level
// document back into the tree Serialize projected; see Deserialize for the
// parts the document does not carry.

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"steer/internal/steererr"
	"steer/internal/value"
)

type jsonValue struct {
	Name      string `json:"name"`
	DataType  string `json:"dataType"`
	Precision *int   `json:"precision,omitempty"`
	Units     string `json:"units,omitempty"`
	Value     string `json:"value"`
}

type jsonItem struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type jsonValueSet struct {
	Name      string     `json:"name"`
	DataType  string     `json:"dataType"`
	Precision *int       `json:"precision,omitempty"`
	Units     string     `json:"units,omitempty"`
	Values    []jsonItem `json:"values"`
}

type jsonCriterion struct {
	Basis  string `json:"basis"`
	Result bool   `json:"result"`
}

type jsonTest struct {
	TestID          string         `json:"testId"`
	Calculations    []jsonValue    `json:"calculations,omitempty"`
	CalculationSets []jsonValueSet `json:"calculationSets,omitempty"`
	Criteria        []jsonCriterion `json:"criteria"`
	Evaluation      string         `json:"evaluation"`
}

type jsonConfiguration struct {
	ConfigurationID string          `json:"configurationId"`
	Attributes      []jsonValue     `json:"attributes,omitempty"`
	Tests           []jsonTest      `json:"tests"`
	Metrics         []jsonValue     `json:"metrics,omitempty"`
	MetricSets      []jsonValueSet  `json:"metricSets,omitempty"`
	Criteria        []jsonCriterion `json:"criteria"`
	Evaluation      string          `json:"evaluation"`
}

type jsonReport struct {
	TestName        string              `json:"testName"`
	SuiteName       string              `json:"suiteName,omitempty"`
	ScheduleID      string              `json:"scheduleId,omitempty"`
	ProgramName     string              `json:"programName"`
	ProgramVersion  string              `json:"programVersion"`
	OS              string              `json:"os"`
	Architecture    string              `json:"architecture"`
	EntropySourceID string              `json:"entropySourceId"`
	StartTime       string              `json:"startTime"`
	CompletionTime  string              `json:"completionTime,omitempty"`
	Duration        string              `json:"duration,omitempty"`
	ReportLevel     string              `json:"reportLevel"`
	Parameters      []jsonValue         `json:"parameters,omitempty"`
	Configurations  []jsonConfiguration `json:"configurations,omitempty"`
	Criteria        []jsonCriterion     `json:"criteria"`
	Evaluation      string              `json:"evaluation"`
}

type jsonDocument struct {
	Report jsonReport `json:"report"`
}

const rfc3339Local = "2006-01-02T15:04:05-07:00"

func toJSONValue(v value.Value) jsonValue {
	return jsonValue{Name: v.Name, DataType: string(v.DataType), Precision: v.Precision, Units: v.Units, Value: v.Text}
}

func fromJSONValue(jv jsonValue) (value.Value, error) {
	return value.NewValue(jv.Name, value.DataType(jv.DataType), jv.Precision, jv.Units, jv.Value)
}

func toJSONValueSet(vs value.ValueSet) jsonValueSet {
	items := make([]jsonItem, 0, len(vs.Items))
	for _, it := range vs.Items {
		items = append(items, jsonItem{Label: it.Label, Value: it.Text})
	}
	return jsonValueSet{Name: vs.Name, DataType: string(vs.DataType), Precision: vs.Precision, Units: vs.Units, Values: items}
}

func fromJSONValueSet(jvs jsonValueSet) (value.ValueSet, error) {
	vs, err := value.NewValueSet(jvs.Name, value.DataType(jvs.DataType), jvs.Precision, jvs.Units)
	if err != nil {
		return vs, err
	}
	for _, it := range jvs.Values {
		vs, err = value.AddValueToSet(vs, it.Label, it.Value)
		if err != nil {
			return vs, err
		}
	}
	return vs, nil
}

func toJSONCriteria(cs []Criterion) []jsonCriterion {
	out := make([]jsonCriterion, 0, len(cs))
	for _, c := range cs {
		out = append(out, jsonCriterion{Basis: c.Basis, Result: c.Result})
	}
	return out
}

func fromJSONCriteria(cs []jsonCriterion) []Criterion {
	out := make([]Criterion, 0, len(cs))
	for _, c := range cs {
		out = append(out, Criterion{Basis: c.Basis, Result: c.Result})
	}
	return out
}

func parseEvaluation(s string) Evaluation {
	switch s {
	case "pass":
		return Pass
	case "fail":
		return Fail
	default:
		return Inconclusive
	}
}

// Serialize projects r to level and returns the logical JSON document.
func Serialize(r *Report, level ReportLevel) ([]byte, error) {
	jr := jsonReport{
		TestName:        r.Header.TestName,
		SuiteName:       r.Header.SuiteName,
		ScheduleID:      r.Header.ScheduleID,
		ProgramName:     r.Header.ProgramName,
		ProgramVersion:  r.Header.ProgramVersion,
		OS:              r.Header.OS,
		Architecture:    r.Header.Architecture,
		EntropySourceID: r.Header.EntropySourceID,
		StartTime:       r.Header.StartTime.Format(rfc3339Local),
		ReportLevel:     level.String(),
		Criteria:        toJSONCriteria(r.Criteria),
		Evaluation:      r.Evaluation.String(),
	}
	if !r.Header.CompletionTime.IsZero() {
		jr.CompletionTime = r.Header.CompletionTime.Format(rfc3339Local)
		jr.Duration = r.Header.Duration.String()
	}

	if level == LevelSummary {
		doc := jsonDocument{Report: jr}
		return json.MarshalIndent(doc, "", "  ")
	}

	for _, p := range r.Parameters.Parameters {
		jr.Parameters = append(jr.Parameters, toJSONValue(p))
	}
	for _, cfg := range r.Configurations {
		jcfg := jsonConfiguration{
			ConfigurationID: strconv.FormatUint(cfg.ConfigurationID+1, 10),
			Criteria:        toJSONCriteria(cfg.Criteria),
			Evaluation:      cfg.Evaluation.String(),
		}
		for _, a := range cfg.Attributes {
			jcfg.Attributes = append(jcfg.Attributes, toJSONValue(a))
		}
		if level == LevelFull {
			for _, m := range cfg.Metrics {
				jcfg.Metrics = append(jcfg.Metrics, toJSONValue(m))
			}
			for _, ms := range cfg.MetricSets {
				jcfg.MetricSets = append(jcfg.MetricSets, toJSONValueSet(ms))
			}
		}
		for _, t := range cfg.Tests {
			jt := jsonTest{
				TestID:     strconv.FormatUint(t.TestID+1, 10),
				Criteria:   toJSONCriteria(t.Criteria),
				Evaluation: t.Evaluation.String(),
			}
			if level == LevelFull {
				for _, c := range t.Calculations {
					jt.Calculations = append(jt.Calculations, toJSONValue(c))
				}
				for _, cs := range t.CalculationSets {
					jt.CalculationSets = append(jt.CalculationSets, toJSONValueSet(cs))
				}
			}
			jcfg.Tests = append(jcfg.Tests, jt)
		}
		jr.Configurations = append(jr.Configurations, jcfg)
	}

	doc := jsonDocument{Report: jr}
	return json.MarshalIndent(doc, "", "  ")
}

// Deserialize parses a logical JSON document into a Report. For a document
// from Serialize(r, LevelFull) it restores the header fields, parameters,
// configurations, tests, values, criteria and evaluations, with the same
// ConfigurationID/TestID values. The document does not carry the
// ParameterSet's TestName and ParameterSetName, which come back empty, and
// timestamps are written at whole-second precision, so sub-second parts of
// StartTime/CompletionTime are not restored. For Summary/Standard documents
// it reconstructs whatever subset is present (parameters/configurations may
// come back empty).
func Deserialize(data []byte) (*Report, error) {
	var doc jsonDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, steererr.Wrap(steererr.JSONParseFailure, "failed to parse report document", err)
	}
	jr := doc.Report

	start, err := time.Parse(rfc3339Local, jr.StartTime)
	if err != nil && jr.StartTime != "" {
		return nil, steererr.Wrap(steererr.InvalidTime, fmt.Sprintf("invalid startTime %q", jr.StartTime), err)
	}
	var completion time.Time
	var duration time.Duration
	if jr.CompletionTime != "" {
		completion, err = time.Parse(rfc3339Local, jr.CompletionTime)
		if err != nil {
			return nil, steererr.Wrap(steererr.InvalidTime, fmt.Sprintf("invalid completionTime %q", jr.CompletionTime), err)
		}
		duration, err = time.ParseDuration(jr.Duration)
		if err != nil {
			return nil, steererr.Wrap(steererr.InvalidTime, fmt.Sprintf("invalid duration %q", jr.Duration), err)
		}
	}

	r := &Report{
		Header: Header{
			TestName:        jr.TestName,
			SuiteName:       jr.SuiteName,
			ScheduleID:      jr.ScheduleID,
			ProgramName:     jr.ProgramName,
			ProgramVersion:  jr.ProgramVersion,
			OS:              jr.OS,
			Architecture:    jr.Architecture,
			EntropySourceID: jr.EntropySourceID,
			StartTime:       start,
			CompletionTime:  completion,
			Duration:        duration,
			Level:           ParseReportLevel(jr.ReportLevel),
		},
		Criteria:   fromJSONCriteria(jr.Criteria),
		Evaluation: parseEvaluation(jr.Evaluation),
	}

	for _, jp := range jr.Parameters {
		v, err := fromJSONValue(jp)
		if err != nil {
			return nil, err
		}
		r.Parameters.Parameters = append(r.Parameters.Parameters, v)
	}

	for _, jcfg := range jr.Configurations {
		cfg := Configuration{
			Criteria:   fromJSONCriteria(jcfg.Criteria),
			Evaluation: parseEvaluation(jcfg.Evaluation),
		}
		cfgID, err := strconv.ParseUint(jcfg.ConfigurationID, 10, 64)
		if err != nil {
			return nil, steererr.Wrap(steererr.JSONParseFailure, fmt.Sprintf("invalid configurationId %q", jcfg.ConfigurationID), err)
		}
		cfg.ConfigurationID = cfgID - 1
		for _, ja := range jcfg.Attributes {
			v, err := fromJSONValue(ja)
			if err != nil {
				return nil, err
			}
			cfg.Attributes = append(cfg.Attributes, v)
		}
		for _, jm := range jcfg.Metrics {
			v, err := fromJSONValue(jm)
			if err != nil {
				return nil, err
			}
			cfg.Metrics = append(cfg.Metrics, v)
		}
		for _, jms := range jcfg.MetricSets {
			vs, err := fromJSONValueSet(jms)
			if err != nil {
				return nil, err
			}
			cfg.MetricSets = append(cfg.MetricSets, vs)
		}
		for _, jt := range jcfg.Tests {
			test := Test{
				Criteria:   fromJSONCriteria(jt.Criteria),
				Evaluation: parseEvaluation(jt.Evaluation),
			}
			testID, err := strconv.ParseUint(jt.TestID, 10, 64)
			if err != nil {
				return nil, steererr.Wrap(steererr.JSONParseFailure, fmt.Sprintf("invalid testId %q", jt.TestID), err)
			}
			test.TestID = testID - 1
			for _, jc := range jt.Calculations {
				v, err := fromJSONValue(jc)
				if err != nil {
					return nil, err
				}
				test.Calculations = append(test.Calculations, v)
			}
			for _, jcs := range jt.CalculationSets {
				vs, err := fromJSONValueSet(jcs)
				if err != nil {
					return nil, err
				}
				test.CalculationSets = append(test.CalculationSets, vs)
			}
			cfg.Tests = append(cfg.Tests, test)
		}
		r.Configurations = append(r.Configurations, cfg)
	}

	return r, nil
}
