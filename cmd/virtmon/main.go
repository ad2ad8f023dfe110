// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

//go:build linux && amd64

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/aibor/virtmon/internal/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGABRT,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
		syscall.SIGHUP,
	)

	// The guest is stopped at its next exit only. Restore default signal
	// handling, so another signal terminates a guest that does not exit.
	context.AfterFunc(ctx, stop)

	cfg := cmd.IO{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}

	exitCode := cmd.Run(ctx, os.Args[1:], cfg)

	stop()
	os.Exit(exitCode)
}
