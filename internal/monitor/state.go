// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

//go:build linux && amd64

package monitor

import (
	"fmt"

	"github.com/aibor/virtmon/internal/kvm"
)

// State is the state of the monitor's control loop.
type State int

// States of the control loop. The loop ends once a terminal state is
// reached.
const (
	StateRunning State = iota
	StateIOPending
	StateHalted
	StateInternalError
	StateShutdown
	StateUnsupported
)

var stateNames = [...]string{
	StateRunning:       "running",
	StateIOPending:     "io pending",
	StateHalted:        "halted",
	StateInternalError: "internal error",
	StateShutdown:      "shutdown",
	StateUnsupported:   "unsupported",
}

// String implements [fmt.Stringer].
func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}

	return fmt.Sprintf("State(%d)", int(s))
}

// Terminal returns true if the guest must not be run again in this state.
func (s State) Terminal() bool {
	switch s {
	case StateRunning, StateIOPending:
		return false
	default:
		return true
	}
}

// Outcome summarizes a finished run.
type Outcome struct {
	// State the control loop ended in.
	State State
	// Reason of the last exit.
	Reason kvm.ExitReason
	// Exits is the number of exits handled.
	Exits int
}
