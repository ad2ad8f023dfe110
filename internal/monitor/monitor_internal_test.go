// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

//go:build linux && amd64

package monitor

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/aibor/virtmon/internal/console"
	"github.com/aibor/virtmon/internal/kvm"
	"github.com/stretchr/testify/require"
)

// Offsets of the C struct kvm_run fields the tests fill in.
const (
	testRunAreaSize   = 4096
	testDataOffset    = 4096 - 64
	testOffReason     = 8
	testOffExitData   = 32
	testOffIOSize     = testOffExitData + 1
	testOffIOPort     = testOffExitData + 2
	testOffIOCount    = testOffExitData + 4
	testOffIOData     = testOffExitData + 8
	testOffInternalND = testOffExitData + 4
	testOffInternalD  = testOffExitData + 8
)

var errNoMoreExits = errors.New("no more exits")

type exitWriter func(buf []byte)

func reasonExit(reason kvm.ExitReason) exitWriter {
	return func(buf []byte) {
		binary.NativeEndian.PutUint32(buf[testOffReason:], uint32(reason))
	}
}

func ioExit(
	direction kvm.IODirection,
	size uint8,
	port uint16,
	count uint32,
	data []byte,
) exitWriter {
	return func(buf []byte) {
		reasonExit(kvm.ExitIO)(buf)
		buf[testOffExitData] = byte(direction)
		buf[testOffIOSize] = size
		binary.NativeEndian.PutUint16(buf[testOffIOPort:], port)
		binary.NativeEndian.PutUint32(buf[testOffIOCount:], count)
		binary.NativeEndian.PutUint64(buf[testOffIOData:], testDataOffset)
		clear(buf[testDataOffset:])
		copy(buf[testDataOffset:], data)
	}
}

func outExit(size uint8, port uint16, data ...byte) exitWriter {
	return ioExit(kvm.IODirectionOut, size, port, 1, data)
}

func inExit(size uint8, port uint16) exitWriter {
	return ioExit(kvm.IODirectionIn, size, port, 1, nil)
}

func newTestRunArea(t *testing.T, exit exitWriter) *kvm.RunArea {
	t.Helper()

	buf := make([]byte, testRunAreaSize)
	exit(buf)

	run, err := kvm.NewRunArea(buf)
	require.NoError(t, err)

	return run
}

// fakeRunner replays exits. Every Run writes the next exit into the run
// area. Runs after the last exit fail.
type fakeRunner struct {
	buf   []byte
	run   *kvm.RunArea
	exits []exitWriter
	runs  int
	err   error
}

func newFakeRunner(t *testing.T, exits ...exitWriter) *fakeRunner {
	t.Helper()

	buf := make([]byte, testRunAreaSize)

	run, err := kvm.NewRunArea(buf)
	require.NoError(t, err)

	return &fakeRunner{buf: buf, run: run, exits: exits}
}

func (f *fakeRunner) Run() error {
	if f.err != nil {
		return f.err
	}

	if f.runs >= len(f.exits) {
		return errNoMoreExits
	}

	f.exits[f.runs](f.buf)
	f.runs++

	return nil
}

func (f *fakeRunner) RunArea() *kvm.RunArea {
	return f.run
}

type testDispatcher struct {
	*dispatcher
	out       bytes.Buffer
	promptOut bytes.Buffer
	errOut    bytes.Buffer
	slept     []time.Duration
}

func newTestDispatcher(ioWidth IOWidth, input ...string) *testDispatcher {
	td := &testDispatcher{}
	td.dispatcher = &dispatcher{
		output:  &td.out,
		input:   console.Script(&td.promptOut, &td.errOut, input...),
		ioWidth: ioWidth,
		ioDelay: DefaultIODelay,
		sleep: func(d time.Duration) {
			td.slept = append(td.slept, d)
		},
	}

	return td
}

type errWriter struct{}

func (errWriter) Write(_ []byte) (int, error) {
	return 0, errors.New("write failed")
}
