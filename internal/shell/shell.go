// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

// Package shell implements the STEER Test Shell (T): the top-level
// lifecycle driver that owns the Report and Worker Pool, reads bitstreams,
// dispatches them to the pool, and at end-of-stream calls the plug-in's
// finaliser. It mirrors the teacher repo's common.ReportingCommand.Run()
// pattern: a single orchestration method driving a fixed sequence of
// stages over caller-supplied collaborators.
package shell

import (
	"io"
	"log/slog"
	"math/bits"
	"time"

	pkgerrors "github.com/pkg/errors"

	"steer/internal/aggregate"
	"steer/internal/metrics"
	"steer/internal/plugin"
	"steer/internal/pool"
	"steer/internal/report"
	"steer/internal/steererr"
	"steer/internal/value"
)

// State is the Test Shell's lifecycle stage, per spec §4.4.
type State int

const (
	StateInit State = iota
	StateConfigured
	StateStreaming
	StateDraining
	StateFinalized
	StateReported
	StateError
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateConfigured:
		return "configured"
	case StateStreaming:
		return "streaming"
	case StateDraining:
		return "draining"
	case StateFinalized:
		return "finalized"
	case StateReported:
		return "reported"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// probabilityValueName is the calculation name plug-ins are expected to
// contribute per bitstream so the shell can feed it into the p-value
// uniformity test (spec §4.5); it is a framework convention, not a Go
// interface method, to keep the Plugin contract minimal.
const probabilityValueName = "probabilityValue"

// Config is everything the Test Shell needs to drive one plug-in over one
// bitstream input.
type Config struct {
	Plugin          plugin.Plugin
	EntropySource   io.Reader
	EntropySourceID string

	ProgramName    string
	ProgramVersion string
	OS             string
	Architecture   string
	ScheduleID     string
	SuiteName      string
	TestConductor  string
	TestNotes      string
	ReportLevel    report.ReportLevel

	BitstreamCount             uint64
	BitstreamLength            uint64 // bits; must be a positive multiple of 8
	SignificanceLevel          float64
	SignificanceLevelPrecision uint32
	ThreadCount                int
	ParameterSetName           string
	PluginParameters           []value.Value
}

// Shell drives one Config through the Init -> ... -> Reported lifecycle.
type Shell struct {
	cfg   Config
	state State

	common      plugin.CommonData
	pluginState plugin.State
	rpt         *report.Report
	cfgID       uint64

	testsRun, testsPassed, testsFailed uint64
	accumulatedOnes, accumulatedZeros  uint64
	pValues                            []float64

	abortErr error
}

// New validates cfg's bounds (spec §5 resource limits) and builds
// CommonData, running the Init stage. The run has not started (no
// bitstreams read, no Report built) if New returns an error.
func New(cfg Config) (*Shell, error) {
	if cfg.BitstreamLength == 0 || cfg.BitstreamLength%8 != 0 {
		return nil, steererr.New(steererr.InvalidArgument, "bitstream_length must be a positive multiple of 8")
	}
	if cfg.BitstreamCount < 1 {
		return nil, steererr.New(steererr.InvalidArgument, "bitstream_count must be >= 1")
	}
	if cfg.SignificanceLevel <= 0 || cfg.SignificanceLevel >= 1 {
		return nil, steererr.New(steererr.InvalidArgument, "significance_level must satisfy 0 < alpha < 1")
	}
	if cfg.ThreadCount < 1 || cfg.ThreadCount > 128 {
		return nil, steererr.New(steererr.InvalidArgument, "thread_count must be in [1,128]")
	}
	if cfg.Plugin == nil {
		return nil, steererr.New(steererr.NullPointer, "plugin must not be nil")
	}

	mtc := aggregate.ComputeMinimumTestCount(cfg.SignificanceLevel, cfg.SignificanceLevelPrecision, cfg.BitstreamCount)
	common := plugin.CommonData{
		BitstreamCount:             cfg.BitstreamCount,
		BitstreamLength:            cfg.BitstreamLength,
		SignificanceLevel:          cfg.SignificanceLevel,
		SignificanceLevelPrecision: cfg.SignificanceLevelPrecision,
		ThreadCount:                cfg.ThreadCount,
		MinimumTestCount:           mtc.MinimumTestCount,
		PredictedPassCount:         mtc.PredictedPassCount,
		PredictedFailCount:         mtc.PredictedFailCount,
	}

	pluginState, err := cfg.Plugin.InitTest(common, cfg.PluginParameters)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "plug-in InitTest failed")
	}

	slog.Debug("shell initialised", slog.String("testName", cfg.Plugin.GetTestInfo().TestName), slog.Uint64("bufferSize", common.BufferSize()))

	return &Shell{cfg: cfg, state: StateInit, common: common, pluginState: pluginState}, nil
}

// State returns the shell's current lifecycle stage.
func (s *Shell) State() State { return s.state }

// Run drives the shell through Configured, Streaming, Draining (as needed),
// Finalized, and Reported, returning the completed Report. A non-nil error
// indicates a framework failure (spec §7): if the failure happened after
// the Configured stage, the Report is still returned, fully finalised with
// whatever was accumulated before the failure; if configuring the Report
// itself failed, the returned Report is nil.
func (s *Shell) Run() (*report.Report, error) {
	startTime := time.Now()
	if err := s.configure(startTime); err != nil {
		s.state = StateError
		return nil, err
	}

	suppliedCount := s.stream()

	s.state = StateFinalized
	s.finalize(suppliedCount, startTime)

	s.state = StateReported
	metrics.ObserveShellRun(s.rpt.Evaluation.String(), s.testsRun, s.testsPassed, s.testsFailed)
	if s.abortErr != nil {
		s.state = StateError
		return s.rpt, s.abortErr
	}
	return s.rpt, nil
}

func (s *Shell) configure(startTime time.Time) error {
	info := s.cfg.Plugin.GetTestInfo()
	header := report.Header{
		TestName:        info.TestName,
		SuiteName:       s.cfg.SuiteName,
		ScheduleID:      s.cfg.ScheduleID,
		ProgramName:     orDefault(s.cfg.ProgramName, info.ProgramName),
		ProgramVersion:  orDefault(s.cfg.ProgramVersion, info.ProgramVersion),
		OS:              s.cfg.OS,
		Architecture:    s.cfg.Architecture,
		EntropySourceID: s.cfg.EntropySourceID,
		StartTime:       startTime,
		Level:           s.cfg.ReportLevel,
	}
	params := report.ParameterSet{
		TestName:         info.TestName,
		ParameterSetName: s.cfg.ParameterSetName,
		Parameters:       s.buildParameterValues(),
	}

	cfgCount := s.cfg.Plugin.GetConfigurationCount(s.pluginState)
	if cfgCount != 1 {
		return steererr.New(steererr.InvalidArgument, "the shell drives exactly one Configuration per run; plug-in requested a different count")
	}

	s.rpt = report.NewReport(header, params, int(cfgCount), int(s.cfg.BitstreamCount))
	cfgID, err := s.rpt.AddConfigurationToReport()
	if err != nil {
		return err
	}
	s.cfgID = cfgID

	if err := s.cfg.Plugin.SetReport(s.pluginState, s.rpt); err != nil {
		return pkgerrors.Wrap(err, "plug-in SetReport failed")
	}

	s.state = StateConfigured
	return nil
}

func (s *Shell) buildParameterValues() []value.Value {
	values := []value.Value{
		value.MustNewValue("bitstream_count", value.U64, formatU64(s.cfg.BitstreamCount)),
		value.MustNewValue("bitstream_length", value.U64, formatU64(s.cfg.BitstreamLength)),
		value.MustNewValue("significance_level", value.F64, formatF64(s.cfg.SignificanceLevel)),
		value.MustNewValue("significance_level_precision", value.U32, formatU64(uint64(s.cfg.SignificanceLevelPrecision))),
		value.MustNewValue("thread_count", value.U32, formatU64(uint64(s.cfg.ThreadCount))),
	}
	return append(values, s.cfg.PluginParameters...)
}

// stream drives Streaming and the Draining barriers it triggers, returning
// the number of bitstreams actually supplied (read and dispatched) before
// any abort.
func (s *Shell) stream() uint64 {
	s.state = StateStreaming

	bufSize := s.common.BufferSize()
	p := pool.New(s.cfg.ThreadCount, func(testID uint64, buffer []byte) (plugin.ExecuteResult, error) {
		ones, zeros := countBits(buffer)
		return s.cfg.Plugin.ExecuteTest(s.pluginState, testID, buffer, ones, zeros)
	})

	var supplied uint64
	for i := uint64(0); i < s.cfg.BitstreamCount; i++ {
		if s.abortErr != nil {
			break
		}
		buffer := make([]byte, bufSize)
		n, err := io.ReadFull(s.cfg.EntropySource, buffer)
		if err != nil {
			s.abortErr = steererr.Wrap(steererr.NotEnoughBytesRead, "short read from entropy source", err)
			slog.Error("short read from entropy source", slog.Uint64("bitstreamId", i), slog.Int("bytesRead", n), slog.Uint64("bufferSize", bufSize))
			break
		}
		ones, zeros := countBits(buffer)
		s.accumulatedOnes += ones
		s.accumulatedZeros += zeros

		if p.Full() {
			s.drain(p)
		}
		p.Dispatch(i, buffer)
		supplied++
	}

	if p.HasOccupiedSlots() {
		s.drain(p)
	}

	return supplied
}

// drain runs the batch barrier (Draining state) and folds every occupied
// slot's result into the Report in slot order.
func (s *Shell) drain(p *pool.Pool[plugin.ExecuteResult]) {
	s.state = StateDraining
	p.Barrier(func(testID uint64, result plugin.ExecuteResult, err error) {
		if err != nil && s.abortErr == nil {
			s.abortErr = pkgerrors.Wrap(err, "worker returned an error")
		}

		newTestID, addErr := s.rpt.AddTestToConfiguration(s.cfgID)
		if addErr != nil {
			if s.abortErr == nil {
				s.abortErr = addErr
			}
			return
		}
		if newTestID != testID {
			slog.Warn("test id mismatch between pool slot and report", slog.Uint64("slotTestId", testID), slog.Uint64("reportTestId", newTestID))
		}

		for _, calc := range result.Calculations {
			_ = s.rpt.AddCalculationToTest(s.cfgID, newTestID, calc)
			if calc.Name == probabilityValueName {
				if native, err := value.GetNativeValue(value.F64, calc.Text); err == nil {
					s.pValues = append(s.pValues, native.(float64))
				}
			}
		}
		for _, calcSet := range result.CalculationSets {
			_ = s.rpt.AddCalculationSetToTest(s.cfgID, newTestID, calcSet)
		}
		for _, crit := range result.Criteria {
			_ = s.rpt.AddCriterionToTest(s.cfgID, newTestID, crit.Basis, crit.Result)
		}
		eval, _ := s.rpt.AddEvaluationToTest(s.cfgID, newTestID)

		s.testsRun++
		if eval == report.Pass {
			s.testsPassed++
		} else {
			s.testsFailed++
		}
	})
	s.state = StateStreaming
}

func (s *Shell) finalize(suppliedCount uint64, startTime time.Time) {
	finalizeResult, err := s.cfg.Plugin.FinalizeTest(s.pluginState, suppliedCount)
	if err != nil && s.abortErr == nil {
		s.abortErr = pkgerrors.Wrap(err, "plug-in FinalizeTest failed")
	}
	for _, m := range finalizeResult.Metrics {
		_ = s.rpt.AddMetricToConfiguration(s.cfgID, m)
	}
	for _, ms := range finalizeResult.MetricSets {
		_ = s.rpt.AddMetricSetToConfiguration(s.cfgID, ms)
	}
	for _, crit := range finalizeResult.Criteria {
		_ = s.rpt.AddCriterionToConfiguration(s.cfgID, crit.Basis, crit.Result)
	}

	s.addAggregateMetricsAndCriteria()

	if _, err := s.rpt.AddEvaluationToConfiguration(s.cfgID); err != nil && s.abortErr == nil {
		s.abortErr = err
	}

	basis := "framework completed without a worker or I/O error"
	_ = s.rpt.AddCriterionToReport(basis, s.abortErr == nil)
	s.rpt.AddEvaluationToReport()

	completion := time.Now()
	s.rpt.Header.CompletionTime = completion
	s.rpt.Header.Duration = completion.Sub(startTime)
}

func (s *Shell) addAggregateMetricsAndCriteria() {
	mtc := aggregate.ComputeMinimumTestCount(s.cfg.SignificanceLevel, s.cfg.SignificanceLevelPrecision, s.cfg.BitstreamCount)
	proportion := aggregate.ComputeProportionInterval(s.cfg.SignificanceLevel, s.cfg.BitstreamCount)
	uniformity := aggregate.ComputeUniformity(s.pValues)
	confusion := aggregate.ComputeConfusionMatrix(s.testsRun, s.testsPassed, s.testsFailed, mtc.PredictedPassCount, mtc.PredictedFailCount)
	derived := aggregate.ComputeDerivedStatistics(confusion)

	_ = s.rpt.AddMetricToConfiguration(s.cfgID, value.MustNewValue("testsRun", value.U64, formatU64(s.testsRun)))
	_ = s.rpt.AddMetricToConfiguration(s.cfgID, value.MustNewValue("testsPassed", value.U64, formatU64(s.testsPassed)))
	_ = s.rpt.AddMetricToConfiguration(s.cfgID, value.MustNewValue("testsFailed", value.U64, formatU64(s.testsFailed)))
	_ = s.rpt.AddMetricToConfiguration(s.cfgID, value.MustNewValue("accumulatedOnes", value.U64, formatU64(s.accumulatedOnes)))
	_ = s.rpt.AddMetricToConfiguration(s.cfgID, value.MustNewValue("accumulatedZeros", value.U64, formatU64(s.accumulatedZeros)))
	_ = s.rpt.AddMetricToConfiguration(s.cfgID, value.MustNewValue("minimumTestCount", value.U64, formatU64(mtc.MinimumTestCount)))
	_ = s.rpt.AddMetricToConfiguration(s.cfgID, value.MustNewValue("predictedPassCount", value.U64, formatU64(mtc.PredictedPassCount)))
	_ = s.rpt.AddMetricToConfiguration(s.cfgID, value.MustNewValue("predictedFailCount", value.U64, formatU64(mtc.PredictedFailCount)))
	_ = s.rpt.AddMetricToConfiguration(s.cfgID, value.MustNewValue("proportionThresholdMin", value.U64, formatU64(proportion.Min)))
	_ = s.rpt.AddMetricToConfiguration(s.cfgID, value.MustNewValue("proportionThresholdMax", value.U64, formatU64(proportion.Max)))
	_ = s.rpt.AddMetricToConfiguration(s.cfgID, value.MustNewValue("probabilityValueUniformity", value.F64, formatF64(uniformity.Probability)))
	_ = s.rpt.AddMetricToConfiguration(s.cfgID, value.MustNewValue("chiSquaredUniformity", value.F64, formatF64(uniformity.ChiSquared)))

	if confusionVS, err := aggregate.ConfusionMatrixValueSet(confusion); err == nil {
		_ = s.rpt.AddMetricSetToConfiguration(s.cfgID, confusionVS)
	}
	if derivedVS, err := aggregate.ToValueSet(derived); err == nil {
		_ = s.rpt.AddMetricSetToConfiguration(s.cfgID, derivedVS)
	}

	// minimumTestCount is the sample size at which the aggregate criteria
	// carry statistical weight for this significance level; a configuration
	// deliberately run below that size (e.g. a single-bitstream smoke run)
	// can only be held to having completed every bitstream it configured.
	requiredTestCount := mtc.MinimumTestCount
	if s.cfg.BitstreamCount < requiredTestCount {
		requiredTestCount = s.cfg.BitstreamCount
	}
	_ = s.rpt.AddCriterionToConfiguration(s.cfgID, "minimum test count met", s.testsRun >= requiredTestCount)
	_ = s.rpt.AddCriterionToConfiguration(s.cfgID, "proportion of passing sequences in range", proportion.ProportionCriterionMet(s.testsPassed))
	_ = s.rpt.AddCriterionToConfiguration(s.cfgID, "uniformity of p-values above threshold", uniformity.UniformityCriterionMet())
}

func countBits(buffer []byte) (ones, zeros uint64) {
	for _, b := range buffer {
		n := uint64(bits.OnesCount8(b))
		ones += n
		zeros += 8 - n
	}
	return ones, zeros
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func formatU64(v uint64) string {
	text, _ := value.FormatValue(value.U64, v)
	return text
}

func formatF64(v float64) string {
	text, _ := value.FormatValue(value.F64, v)
	return text
}
