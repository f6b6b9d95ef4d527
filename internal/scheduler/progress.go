// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

package scheduler

// multiSpinner renders one progress line per in-flight profile run, in the
// style of the teacher's internal/progress.multiSpinner: a ticker-driven
// redraw of per-label status lines, skipped entirely when stderr isn't a
// terminal (only changed lines are then printed, log-style).
import (
	"fmt"
	"os"
	"time"

	"golang.org/x/term"
)

var spinChars = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

type spinnerState struct {
	label       string
	status      string
	statusIsNew bool
	spinIndex   int
}

type multiSpinner struct {
	spinners []spinnerState
	ticker   *time.Ticker
	done     chan bool
	spinning bool
}

func newMultiSpinner() *multiSpinner {
	return &multiSpinner{done: make(chan bool)}
}

func (ms *multiSpinner) addSpinner(label string) {
	ms.spinners = append(ms.spinners, spinnerState{label: label, status: "queued"})
}

func (ms *multiSpinner) start() {
	ms.draw(true)
	ms.ticker = time.NewTicker(250 * time.Millisecond)
	ms.spinning = true
	go ms.onTick()
}

func (ms *multiSpinner) finish() {
	if !ms.spinning {
		return
	}
	ms.ticker.Stop()
	ms.done <- true
	ms.draw(false)
	ms.spinning = false
}

func (ms *multiSpinner) status(label, status string) {
	for i, spinner := range ms.spinners {
		if spinner.label == label && status != spinner.status {
			ms.spinners[i].status = status
			ms.spinners[i].statusIsNew = true
			return
		}
	}
}

func (ms *multiSpinner) onTick() {
	for {
		select {
		case <-ms.done:
			return
		case <-ms.ticker.C:
			ms.draw(true)
		}
	}
}

func (ms *multiSpinner) draw(goUp bool) {
	isTerm := term.IsTerminal(int(os.Stderr.Fd()))
	for i, spinner := range ms.spinners {
		if !isTerm && !spinner.statusIsNew {
			continue
		}
		fmt.Fprintf(os.Stderr, "%-28s  %s  %-20s\n", spinner.label, spinChars[spinner.spinIndex], spinner.status)
		ms.spinners[i].statusIsNew = false
		ms.spinners[i].spinIndex = (ms.spinners[i].spinIndex + 1) % len(spinChars)
	}
	if goUp && isTerm {
		for range ms.spinners {
			fmt.Fprint(os.Stderr, "\x1b[1A")
		}
	}
}
