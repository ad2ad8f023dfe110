// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

//go:build linux && amd64

package kvm_test

import (
	"encoding/binary"
	"testing"

	"github.com/aibor/virtmon/internal/kvm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRunAreaSize = 4096

func newTestRunArea(t *testing.T) ([]byte, *kvm.RunArea) {
	t.Helper()

	buf := make([]byte, testRunAreaSize)

	run, err := kvm.NewRunArea(buf)
	require.NoError(t, err)

	return buf, run
}

func TestNewRunArea_TooSmall(t *testing.T) {
	_, err := kvm.NewRunArea(make([]byte, 64))
	require.ErrorIs(t, err, kvm.ErrRunAreaTooSmall)
}

func TestRunArea_ExitReason(t *testing.T) {
	buf, run := newTestRunArea(t)

	binary.NativeEndian.PutUint32(buf[8:], uint32(kvm.ExitHLT))
	assert.Equal(t, kvm.ExitHLT, run.ExitReason())

	// Reads are live, not cached.
	binary.NativeEndian.PutUint32(buf[8:], uint32(kvm.ExitShutdown))
	assert.Equal(t, kvm.ExitShutdown, run.ExitReason())
}

func TestRunArea_SetImmediateExit(t *testing.T) {
	buf, run := newTestRunArea(t)

	run.SetImmediateExit(true)
	assert.Equal(t, byte(1), buf[1])

	run.SetImmediateExit(false)
	assert.Equal(t, byte(0), buf[1])
}

func TestRunArea_IO(t *testing.T) {
	buf, run := newTestRunArea(t)

	buf[32] = 1
	buf[33] = 4
	binary.NativeEndian.PutUint16(buf[34:], 0x3f8)
	binary.NativeEndian.PutUint32(buf[36:], 1)
	binary.NativeEndian.PutUint64(buf[40:], 0x1000-8)

	expected := kvm.IOExit{
		Direction:  kvm.IODirectionOut,
		Size:       4,
		Port:       0x3f8,
		Count:      1,
		DataOffset: 0x1000 - 8,
	}
	assert.Equal(t, expected, run.IO())
}

func TestRunArea_Data(t *testing.T) {
	tests := []struct {
		name        string
		offset      uint64
		length      int
		expectedErr error
	}{
		{
			name:   "start",
			offset: 0,
			length: 4,
		},
		{
			name:   "end",
			offset: testRunAreaSize - 4,
			length: 4,
		},
		{
			name:        "crosses end",
			offset:      testRunAreaSize - 2,
			length:      4,
			expectedErr: kvm.ErrIODataOutOfBounds,
		},
		{
			name:        "beyond end",
			offset:      testRunAreaSize + 4,
			length:      1,
			expectedErr: kvm.ErrIODataOutOfBounds,
		},
		{
			name:        "overflowing offset",
			offset:      ^uint64(0),
			length:      4,
			expectedErr: kvm.ErrIODataOutOfBounds,
		},
		{
			name:        "negative length",
			length:      -1,
			expectedErr: kvm.ErrIODataOutOfBounds,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, run := newTestRunArea(t)

			data, err := run.Data(tt.offset, tt.length)
			require.ErrorIs(t, err, tt.expectedErr)

			if tt.expectedErr == nil {
				assert.Len(t, data, tt.length)
			}
		})
	}
}

func TestRunArea_Data_Aliases(t *testing.T) {
	buf, run := newTestRunArea(t)

	data, err := run.Data(100, 4)
	require.NoError(t, err)

	binary.NativeEndian.PutUint32(data, 0xdeadbeef)
	assert.Equal(t, uint32(0xdeadbeef), binary.NativeEndian.Uint32(buf[100:]))
}

func TestRunArea_InternalError(t *testing.T) {
	buf, run := newTestRunArea(t)

	binary.NativeEndian.PutUint32(buf[32:], 1)
	binary.NativeEndian.PutUint32(buf[36:], 2)
	binary.NativeEndian.PutUint64(buf[40:], 11)
	binary.NativeEndian.PutUint64(buf[48:], 22)

	expected := kvm.InternalError{
		Suberror: kvm.InternalErrorEmulation,
		Data:     []uint64{11, 22},
	}
	assert.Equal(t, expected, run.InternalError())
}

func TestRunArea_InternalError_NdataLimited(t *testing.T) {
	buf, run := newTestRunArea(t)

	binary.NativeEndian.PutUint32(buf[36:], 1000)
	assert.Len(t, run.InternalError().Data, 16)
}

func TestRunArea_FailEntry(t *testing.T) {
	buf, run := newTestRunArea(t)

	binary.NativeEndian.PutUint64(buf[32:], 0x80000021)
	binary.NativeEndian.PutUint32(buf[40:], 3)

	expected := kvm.FailEntry{
		HardwareReason: 0x80000021,
		CPU:            3,
	}
	assert.Equal(t, expected, run.FailEntry())
}
