// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

//go:build linux && amd64

package kvm

import (
	"encoding/binary"
	"fmt"
)

// Offsets into the C struct kvm_run.
const (
	offImmediateExit = 1
	offExitReason    = 8
	offExitData      = 32

	exitDataSize   = 256
	runAreaMinSize = offExitData + exitDataSize

	// Offsets of the io member of the exit data union.
	offIODirection  = offExitData + 0
	offIOSize       = offExitData + 1
	offIOPort       = offExitData + 2
	offIOCount      = offExitData + 4
	offIODataOffset = offExitData + 8

	// Offsets of the internal member of the exit data union.
	offInternalSuberror = offExitData + 0
	offInternalNdata    = offExitData + 4
	offInternalData     = offExitData + 8
	maxInternalData     = 16

	// Offsets of the fail_entry member of the exit data union.
	offFailEntryReason = offExitData + 0
	offFailEntryCPU    = offExitData + 8
)

// RunArea is an accessor for the run area a vCPU shares with the kernel
// (struct kvm_run).
//
// Fields are read from the underlying memory on each call, so values always
// reflect what the kernel wrote on the last exit. Which exit specific
// accessor is meaningful depends on [RunArea.ExitReason].
type RunArea struct {
	buf []byte
}

// NewRunArea returns a [RunArea] for the given buffer. The buffer is used
// directly, not copied.
func NewRunArea(buf []byte) (*RunArea, error) {
	if len(buf) < runAreaMinSize {
		return nil, fmt.Errorf("%w: %d < %d",
			ErrRunAreaTooSmall, len(buf), runAreaMinSize)
	}

	return &RunArea{buf: buf}, nil
}

// Size returns the size of the run area in bytes.
func (r *RunArea) Size() int {
	return len(r.buf)
}

// ExitReason returns why the vCPU exited.
func (r *RunArea) ExitReason() ExitReason {
	return ExitReason(binary.NativeEndian.Uint32(r.buf[offExitReason:]))
}

// SetImmediateExit sets the immediate_exit field. If set, the next run
// returns right away with EINTR.
func (r *RunArea) SetImmediateExit(exit bool) {
	var v byte
	if exit {
		v = 1
	}

	r.buf[offImmediateExit] = v
}

// IO returns the description of an [ExitIO] exit.
func (r *RunArea) IO() IOExit {
	return IOExit{
		Direction:  IODirection(r.buf[offIODirection]),
		Size:       r.buf[offIOSize],
		Port:       binary.NativeEndian.Uint16(r.buf[offIOPort:]),
		Count:      binary.NativeEndian.Uint32(r.buf[offIOCount:]),
		DataOffset: binary.NativeEndian.Uint64(r.buf[offIODataOffset:]),
	}
}

// Data returns the part of the run area at the given offset and length.
//
// The returned slice aliases the shared memory. Writes to it are seen by the
// kernel on the next run. Used for the data of [ExitIO] exits, which lives
// outside of the exit data union.
func (r *RunArea) Data(offset uint64, length int) ([]byte, error) {
	if length < 0 ||
		offset > uint64(len(r.buf)) ||
		uint64(length) > uint64(len(r.buf))-offset {
		return nil, fmt.Errorf("%w: offset %d, length %d, size %d",
			ErrIODataOutOfBounds, offset, length, len(r.buf))
	}

	return r.buf[offset : offset+uint64(length)], nil
}

// InternalError returns the description of an [ExitInternalError] exit.
func (r *RunArea) InternalError() InternalError {
	ndata := min(binary.NativeEndian.Uint32(r.buf[offInternalNdata:]),
		maxInternalData)

	data := make([]uint64, ndata)
	for idx := range data {
		off := offInternalData + idx*8
		data[idx] = binary.NativeEndian.Uint64(r.buf[off:])
	}

	return InternalError{
		Suberror: InternalErrorSubReason(
			binary.NativeEndian.Uint32(r.buf[offInternalSuberror:])),
		Data: data,
	}
}

// FailEntry returns the description of an [ExitFailEntry] exit.
func (r *RunArea) FailEntry() FailEntry {
	return FailEntry{
		HardwareReason: binary.NativeEndian.Uint64(r.buf[offFailEntryReason:]),
		CPU:            binary.NativeEndian.Uint32(r.buf[offFailEntryCPU:]),
	}
}
