// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

// Package metrics exposes STEER's Prometheus instrumentation, in the style
// of the teacher repo's cmd/metrics/metrics_server.go: package-level
// collectors registered once, updated from call sites via small exported
// functions, served over an HTTP handler the caller mounts wherever it
// likes (a CLI flag, not a forced side effect of importing the package).
package metrics

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const promMetricPrefix = "steer_"

var (
	shellTestsRun = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: promMetricPrefix + "shell_tests_run_total",
			Help: "Bitstreams executed by a Test Shell, by terminal report evaluation of the run they belonged to.",
		},
		[]string{"evaluation"},
	)
	shellTestsPassed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: promMetricPrefix + "shell_tests_passed_total",
			Help: "Tests whose own evaluation was Pass, by terminal report evaluation of the run they belonged to.",
		},
		[]string{"evaluation"},
	)
	shellTestsFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: promMetricPrefix + "shell_tests_failed_total",
			Help: "Tests whose own evaluation was not Pass, by terminal report evaluation of the run they belonged to.",
		},
		[]string{"evaluation"},
	)
	schedulerProcessResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: promMetricPrefix + "scheduler_process_results_total",
			Help: "Scheduler sub-process completions, by program name and outcome.",
		},
		[]string{"program", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(shellTestsRun, shellTestsPassed, shellTestsFailed, schedulerProcessResults)
}

// ObserveShellRun records one Test Shell run's tallies against its terminal
// report evaluation.
func ObserveShellRun(evaluation string, testsRun, testsPassed, testsFailed uint64) {
	shellTestsRun.WithLabelValues(evaluation).Add(float64(testsRun))
	shellTestsPassed.WithLabelValues(evaluation).Add(float64(testsPassed))
	shellTestsFailed.WithLabelValues(evaluation).Add(float64(testsFailed))
}

// ObserveSchedulerProcess records one scheduler sub-process completion.
func ObserveSchedulerProcess(program, outcome string) {
	schedulerProcessResults.WithLabelValues(program, outcome).Inc()
}

// Handler returns the promhttp handler callers can mount on their own mux.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve starts a dedicated metrics HTTP server in the background, mirroring
// the teacher's startPrometheusServer helper.
func Serve(listenAddr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	slog.Info("starting Prometheus metrics server", slog.String("address", listenAddr))
	go func() {
		server := &http.Server{
			Addr:              listenAddr,
			Handler:           mux,
			ReadHeaderTimeout: 3 * time.Second,
		}
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server ListenAndServe error", slog.String("error", err.Error()))
		}
	}()
}
