// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

//go:build linux && amd64

package monitor

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aibor/virtmon/internal/console"
	"github.com/aibor/virtmon/internal/kvm"
)

const (
	// DefaultMemSize is the default guest memory size in bytes. It is 250
	// pages of 4 KiB.
	DefaultMemSize = 1024000

	// DefaultIODelay is the default pause after each port IO exit.
	DefaultIODelay = 100 * time.Millisecond

	// GuestBase is the guest physical address the memory region and thus the
	// image starts at. It is also the first instruction executed.
	GuestBase = 0

	// MemorySlot is the slot the guest memory is registered with.
	MemorySlot = 0

	// VCPUIndex is the index of the single vCPU.
	VCPUIndex = 0
)

// Config defines the parameters of a [Machine].
type Config struct {
	// Path of the KVM device. Defaults to [kvm.DevicePath].
	DevicePath string

	// Guest memory size in bytes. Must be a multiple of the host page size.
	// Defaults to [DefaultMemSize].
	MemSize int

	// Pause after each port IO exit. Zero disables the pause.
	IODelay time.Duration

	// Transfer width policy for port IO. Defaults to [IOWidthReported].
	IOWidth IOWidth

	// Source of values the guest reads from ports. Defaults to a
	// [console.Prompter] on [os.Stdin].
	Input console.InputProvider

	// Destination of port output lines and exit labels. Defaults to
	// [os.Stdout].
	Output io.Writer
}

// DefaultConfig returns a [Config] with all defaults set.
func DefaultConfig() Config {
	return Config{
		DevicePath: kvm.DevicePath,
		MemSize:    DefaultMemSize,
		IODelay:    DefaultIODelay,
		IOWidth:    IOWidthReported,
	}
}

func (c Config) withDefaults() Config {
	if c.DevicePath == "" {
		c.DevicePath = kvm.DevicePath
	}

	if c.MemSize == 0 {
		c.MemSize = DefaultMemSize
	}

	if c.IOWidth == "" {
		c.IOWidth = IOWidthReported
	}

	if c.Output == nil {
		c.Output = os.Stdout
	}

	if c.Input == nil {
		c.Input = console.NewPrompter(os.Stdin, c.Output, os.Stderr)
	}

	return c
}

func (c Config) validate() error {
	if c.MemSize < 0 {
		return fmt.Errorf("%w: negative memory size %d", ErrConfig, c.MemSize)
	}

	if c.IODelay < 0 {
		return fmt.Errorf("%w: negative io delay %s", ErrConfig, c.IODelay)
	}

	if !c.IOWidth.isKnown() {
		return fmt.Errorf("%w: %w: %q", ErrConfig, ErrIOWidthInvalid,
			string(c.IOWidth))
	}

	return nil
}
