// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

//go:build linux && amd64

package cmd

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/aibor/virtmon/internal/kvm"
	"github.com/aibor/virtmon/internal/monitor"
	"github.com/aibor/virtmon/internal/sys"
)

const (
	name = "virtmon"

	memMin = 4096
	memMax = 1 << 30

	usageMessage = `Usage of 'virtmon':
    virtmon [flags...] binary

Runs a flat binary in a single vCPU KVM virtual machine. The binary is loaded
at guest physical address 0 and executed from there in real mode.

Values the guest writes to IO ports are printed as "port[<port>]: <value>".
For values the guest reads from IO ports, an integer is requested on stdin.

All virtmon flags can also be provided via environment variable VIRTMON_ARGS:
	VIRTMON_ARGS="-debug -ioDelay=0" virtmon ./guest.bin

All virtmon flags can also be provided via file ./.virtmon-args, with one
argument per line.
`
)

type flags struct {
	BinaryPath string
	DevicePath string
	Memory     uint64
	IODelay    time.Duration
	IOWidth    monitor.IOWidth
	Debug      bool
	Version    bool
}

func newFlagSet(cfg *flags, output io.Writer) *flag.FlagSet {
	flagSet := flag.NewFlagSet(name, flag.ContinueOnError)
	flagSet.SetOutput(output)
	flagSet.Usage = func() {
		fmt.Fprint(flagSet.Output(), usageMessage)
		fmt.Fprintln(flagSet.Output(), "\nFlags:")
		flagSet.PrintDefaults()
	}

	flagSet.Var(
		(*FilePath)(&cfg.DevicePath),
		"device",
		"path of the KVM device",
	)

	flagSet.Var(
		&LimitedUintValue{
			Value: &cfg.Memory,
			Lower: memMin,
			Upper: memMax,
		},
		"memory",
		"guest memory in bytes, multiple of the host page size",
	)

	flagSet.DurationVar(
		&cfg.IODelay,
		"ioDelay",
		cfg.IODelay,
		"pause after each port IO exit",
	)

	flagSet.TextVar(
		&cfg.IOWidth,
		"ioWidth",
		cfg.IOWidth,
		"port IO transfer width: reported (access size of the guest "+
			"instruction) or fixed (always 4 bytes)",
	)

	flagSet.BoolVar(
		&cfg.Debug,
		"debug",
		cfg.Debug,
		"enable debug output",
	)

	flagSet.BoolVar(
		&cfg.Version,
		"version",
		cfg.Version,
		"show version and exit",
	)

	return flagSet
}

func parseArgs(args []string, output io.Writer) (*flags, error) {
	cfg := &flags{
		DevicePath: kvm.DevicePath,
		Memory:     monitor.DefaultMemSize,
		IODelay:    monitor.DefaultIODelay,
		IOWidth:    monitor.IOWidthReported,
	}

	flagSet := newFlagSet(cfg, output)

	// Parses arguments up to the first one that is not prefixed with a "-" or
	// is "--".
	err := flagSet.Parse(args)
	if err != nil {
		return nil, &ParseArgsError{msg: "flag parse", err: err}
	}

	if cfg.Version {
		return cfg, nil
	}

	positionalArgs := flagSet.Args()

	switch len(positionalArgs) {
	case 0:
		return nil, fail(flagSet, "no binary given", nil)
	case 1:
	default:
		return nil, fail(flagSet, "too many arguments", nil)
	}

	binary, err := sys.AbsolutePath(positionalArgs[0])
	if err != nil {
		return nil, fail(flagSet, "binary path", err)
	}

	cfg.BinaryPath = binary

	return cfg, nil
}

// fail fails like flag does. It prints the error first and then usage.
func fail(flagSet *flag.FlagSet, msg string, err error) error {
	err = &ParseArgsError{msg: msg, err: err}
	fmt.Fprintln(flagSet.Output(), err.Error())

	flagSet.Usage()

	return err
}

func (f *flags) monitorConfig() monitor.Config {
	return monitor.Config{
		DevicePath: f.DevicePath,
		MemSize:    int(f.Memory),
		IODelay:    f.IODelay,
		IOWidth:    f.IOWidth,
	}
}
