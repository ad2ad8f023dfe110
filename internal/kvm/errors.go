// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

//go:build linux && amd64

package kvm

import (
	"errors"
	"fmt"
)

var (
	// ErrSlotInUse is returned if a memory region is registered for a slot
	// that already has one.
	ErrSlotInUse = errors.New("memory slot already in use")

	// ErrRunAreaTooSmall is returned if the vCPU mmap size reported by the
	// kernel can not hold the run area header and exit data.
	ErrRunAreaTooSmall = errors.New("run area too small")

	// ErrIODataOutOfBounds is returned if an IO exit points to data outside
	// of the run area.
	ErrIODataOutOfBounds = errors.New("io data out of run area bounds")

	// ErrClosed is returned for operations on closed handles.
	ErrClosed = errors.New("handle closed")
)

// Error wraps any error returned by the host for a KVM operation.
type Error struct {
	Op  string
	Err error
}

// Error implements the [error] interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Is implements the [errors.Is] interface.
func (*Error) Is(other error) bool {
	_, ok := other.(*Error)
	return ok
}

// Unwrap implements the [errors.Unwrap] interface.
func (e *Error) Unwrap() error {
	return e.Err
}
