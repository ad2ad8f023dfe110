// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"io"
	"log/slog"
)

// setupLogging installs the default logger. Warnings and errors are logged
// without time stamps. In debug mode every record carries its time and
// source location, so exits can be correlated with the guest's IO delay.
func setupLogging(writer io.Writer, debug bool) {
	opts := &slog.HandlerOptions{
		Level: slog.LevelWarn,
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			if len(groups) == 0 && attr.Key == slog.TimeKey {
				return slog.Attr{}
			}

			return attr
		},
	}

	if debug {
		opts.Level = slog.LevelDebug
		opts.AddSource = true
		opts.ReplaceAttr = nil
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(writer, opts)))
}
