// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetupLogging(t *testing.T) {
	t.Cleanup(func() { setupLogging(&bytes.Buffer{}, false) })

	t.Run("default", func(t *testing.T) {
		var output bytes.Buffer

		setupLogging(&output, false)

		slog.Debug("exit", slog.Int("port", 16))
		slog.Warn("KVM API version", slog.Int("version", 11))

		assert.Equal(t, "level=WARN msg=\"KVM API version\" version=11\n",
			output.String())
	})

	t.Run("debug", func(t *testing.T) {
		var output bytes.Buffer

		setupLogging(&output, true)

		slog.Debug("exit", slog.Int("port", 16))

		assert.Contains(t, output.String(), "time=")
		assert.Contains(t, output.String(), "level=DEBUG source=")
		assert.Contains(t, output.String(), "log_internal_test.go")
		assert.Contains(t, output.String(), "msg=exit port=16\n")
	})
}
