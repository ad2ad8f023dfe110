// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

//go:build linux && amd64

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"runtime/debug"

	"github.com/aibor/virtmon/internal/console"
	"github.com/aibor/virtmon/internal/monitor"
	"github.com/aibor/virtmon/internal/sys"
	"golang.org/x/sync/errgroup"
)

// IO provides input and output details for the command.
type IO struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

func newFlags(args []string, cfg IO) (*flags, error) {
	args, err := MergedArgs(args, os.DirFS("."), localArgsFile)
	if err != nil {
		return nil, err
	}

	flags, err := parseArgs(args, cfg.Stderr)
	if err != nil {
		return nil, fmt.Errorf("parse args: %w", err)
	}

	return flags, nil
}

func run(ctx context.Context, flags *flags, cfg IO) error {
	err := sys.CheckHost(flags.DevicePath)
	if err != nil {
		return fmt.Errorf("host: %w", err)
	}

	image, err := readBinary(flags.BinaryPath)
	if err != nil {
		return fmt.Errorf("binary: %w", err)
	}

	slog.Debug("Read binary",
		slog.String("path", flags.BinaryPath),
		slog.Int("size", len(image)))

	machineCfg := flags.monitorConfig()
	machineCfg.Output = cfg.Stdout
	machineCfg.Input = console.NewPrompter(cfg.Stdin, cfg.Stdout, cfg.Stderr)

	outcome, err := runMachine(ctx, machineCfg, image)
	if err != nil {
		return err
	}

	slog.Debug("Guest finished",
		slog.String("state", outcome.State.String()),
		slog.String("reason", outcome.Reason.String()),
		slog.Int("exits", outcome.Exits))

	return nil
}

// runMachine runs the whole machine lifecycle in a separate goroutine that
// is locked to its OS thread. The kernel binds the vCPU to the thread that
// first runs it.
func runMachine(
	ctx context.Context,
	cfg monitor.Config,
	image []byte,
) (monitor.Outcome, error) {
	var (
		eg      errgroup.Group
		outcome monitor.Outcome
	)

	eg.Go(func() (err error) {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		machine, err := monitor.New(cfg, image)
		if err != nil {
			return fmt.Errorf("new machine: %w", err)
		}

		defer func() {
			closeErr := machine.Close()
			if closeErr != nil {
				err = errors.Join(err, fmt.Errorf("close machine: %w", closeErr))
			}
		}()

		outcome, err = machine.Run(ctx)
		if err != nil {
			return fmt.Errorf("run machine: %w", err)
		}

		return nil
	})

	err := eg.Wait()

	return outcome, err //nolint:wrapcheck
}

func handleParseArgsError(err error) int {
	// [ErrHelp] is returned when help is requested. So exit without error
	// in this case.
	if errors.Is(err, ErrHelp) {
		return 0
	}

	// ParseArgs already prints errors, so we just exit without an error.
	if !errors.Is(err, &ParseArgsError{}) {
		slog.Error(err.Error())
	}

	return -1
}

func handleRunError(err error) int {
	switch {
	case errors.Is(err, sys.ErrKVMNotAvailable):
		slog.Warn("make sure the kvm module is loaded and " +
			"the device is read- and writable")
	case errors.Is(err, monitor.ErrImageTooLarge):
		slog.Warn("increase guest memory with -memory")
	}

	slog.Error(err.Error())

	return -1
}

// Run is the main entry point for the CLI command.
//
// Guests that halt, shut down or stop for any other reason do not cause a
// non-zero exit code. Only host side failures do.
func Run(ctx context.Context, args []string, cfg IO) int {
	setupLogging(cfg.Stderr, false)

	flags, err := newFlags(args, cfg)
	if err != nil {
		return handleParseArgsError(err)
	}

	setupLogging(cfg.Stderr, flags.Debug)

	if flags.Version {
		buildInfo, err := getBuildInfo()
		if err != nil {
			slog.Error(err.Error())
			return -1
		}

		fmt.Fprintf(cfg.Stdout, "Version: %s\n", buildInfo.Main.Version)

		return 0
	}

	err = run(ctx, flags, cfg)
	if err != nil {
		return handleRunError(err)
	}

	return 0
}

func getBuildInfo() (*debug.BuildInfo, error) {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return nil, ErrReadBuildInfo
	}

	return buildInfo, nil
}
