// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

//go:build linux && amd64

package cmd

import (
	"bytes"
	"fmt"
	"os"
	"testing"

	"github.com/aibor/virtmon/internal/console"
	"github.com/aibor/virtmon/internal/kvm"
	"github.com/aibor/virtmon/internal/monitor"
	"github.com/aibor/virtmon/internal/sys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleParseArgsError(t *testing.T) {
	tests := []struct {
		name             string
		err              error
		expectedExitCode int
		expectedOutput   string
	}{
		{
			name: "help",
			err:  ErrHelp,
		},
		{
			name:             "parse args error",
			err:              &ParseArgsError{msg: "no binary given"},
			expectedExitCode: -1,
		},
		{
			name:             "other error",
			err:              assert.AnError,
			expectedExitCode: -1,
			expectedOutput:   "level=ERROR msg=\"" + assert.AnError.Error() + "\"\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var output bytes.Buffer

			setupLogging(&output, false)

			exitCode := handleParseArgsError(tt.err)

			assert.Equal(t, tt.expectedExitCode, exitCode)
			assertLogOutput(t, tt.expectedOutput, output.String())
		})
	}
}

func TestHandleRunError(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedOutput []string
	}{
		{
			name: "any error",
			err:  assert.AnError,
			expectedOutput: []string{
				"level=ERROR",
			},
		},
		{
			name: "kvm not available",
			err:  fmt.Errorf("host: %w", sys.ErrKVMNotAvailable),
			expectedOutput: []string{
				"level=WARN msg=\"make sure the kvm module is loaded",
				"level=ERROR msg=\"host: KVM not available\"",
			},
		},
		{
			name: "image too large",
			err:  fmt.Errorf("new machine: %w", monitor.ErrImageTooLarge),
			expectedOutput: []string{
				"level=WARN msg=\"increase guest memory with -memory\"",
				"level=ERROR",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var output bytes.Buffer

			setupLogging(&output, false)

			exitCode := handleRunError(tt.err)

			assert.Equal(t, -1, exitCode)

			for _, expected := range tt.expectedOutput {
				assert.Contains(t, output.String(), expected)
			}
		})
	}
}

func TestReadBinary(t *testing.T) {
	image := []byte{0xba, 0xf8, 0x03, 0xb0, 0x2a, 0xee, 0xf4}

	t.Run("valid", func(t *testing.T) {
		path := sys.WriteTestFile(t, "guest.bin", image)

		actual, err := readBinary(path)
		require.NoError(t, err)
		assert.Equal(t, image, actual)
	})

	t.Run("empty", func(t *testing.T) {
		path := sys.WriteTestFile(t, "empty.bin", nil)

		actual, err := readBinary(path)
		require.NoError(t, err)
		assert.Empty(t, actual)
	})

	t.Run("not existing", func(t *testing.T) {
		_, err := readBinary("/nonexistent/guest.bin")
		require.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("directory", func(t *testing.T) {
		_, err := readBinary(t.TempDir())
		require.ErrorIs(t, err, sys.ErrNotRegularFile)
	})
}

func TestRunMachine(t *testing.T) {
	if !sys.KVMAvailable(kvm.DevicePath) {
		t.Skipf("%s not available", kvm.DevicePath)
	}

	var output, prompts, errOut bytes.Buffer

	cfg := monitor.Config{
		Output: &output,
		Input:  console.Script(&prompts, &errOut, "-5"),
	}

	image := []byte{
		0xba, 0x10, 0x00, // mov dx, 0x10
		0xec,             // in al, dx
		0xee,             // out dx, al
		0xf4,             // hlt
	}

	outcome, err := runMachine(t.Context(), cfg, image)
	require.NoError(t, err)

	assert.Equal(t, monitor.StateHalted, outcome.State)
	assert.Equal(t, kvm.ExitHLT, outcome.Reason)
	assert.Equal(t, 3, outcome.Exits)
	assert.Equal(t, "port[16]: -5\nKVM_EXIT_HLT\n", output.String())
	assert.Equal(t, console.Prompt, prompts.String())
}

func TestRunMachine_NewFails(t *testing.T) {
	cfg := monitor.Config{
		MemSize: 4096,
		Output:  &bytes.Buffer{},
	}

	_, err := runMachine(t.Context(), cfg, make([]byte, 4097))
	require.ErrorIs(t, err, monitor.ErrImageTooLarge)
}

func assertLogOutput(t *testing.T, expected, actual string) {
	t.Helper()

	if expected == "" {
		assert.Empty(t, actual)
		return
	}

	assert.Equal(t, expected, actual)
}
