// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

//go:build linux && amd64

package kvm

import (
	"errors"
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// VCPU is a virtual CPU of a [VM] with its mapped run area.
type VCPU struct {
	file  *os.File
	sys   ioctler
	index int
	mem   []byte
	run   *RunArea
}

func (c *VCPU) fd() uintptr {
	return c.file.Fd()
}

// Index returns the index the vCPU was created with.
func (c *VCPU) Index() int {
	return c.index
}

// RunArea returns the run area shared with the kernel. Its content is valid
// from the return of [VCPU.Run] until the next call of it. It is nil once the
// vCPU is closed.
func (c *VCPU) RunArea() *RunArea {
	return c.run
}

// Run runs the vCPU until it exits. The reason is available from
// [VCPU.RunArea].
//
// Runs interrupted by signals delivered to the calling thread are resumed.
func (c *VCPU) Run() error {
	if c.mem == nil {
		return &Error{Op: RequestRun.String(), Err: ErrClosed}
	}

	for {
		_, err := do(c.sys, c.fd(), RequestRun, 0)
		if errors.Is(err, unix.EINTR) {
			continue
		}

		return err
	}
}

// GetRegs reads the general purpose registers.
func (c *VCPU) GetRegs(regs *Regs) error {
	_, err := do(c.sys, c.fd(), RequestGetRegs, uintptr(unsafe.Pointer(regs)))
	return err
}

// SetRegs writes the general purpose registers.
func (c *VCPU) SetRegs(regs *Regs) error {
	_, err := do(c.sys, c.fd(), RequestSetRegs, uintptr(unsafe.Pointer(regs)))
	return err
}

// GetSregs reads the special registers.
func (c *VCPU) GetSregs(sregs *Sregs) error {
	_, err := do(c.sys, c.fd(), RequestGetSregs, uintptr(unsafe.Pointer(sregs)))
	return err
}

// SetSregs writes the special registers.
func (c *VCPU) SetSregs(sregs *Sregs) error {
	_, err := do(c.sys, c.fd(), RequestSetSregs, uintptr(unsafe.Pointer(sregs)))
	return err
}

// Close unmaps the run area and closes the vCPU. It is safe to call more
// than once.
func (c *VCPU) Close() error {
	if c.mem == nil {
		return nil
	}

	var errs []error

	if err := unix.Munmap(c.mem); err != nil {
		errs = append(errs, fmt.Errorf("unmap run area: %w", err))
	}

	c.mem = nil
	c.run = nil

	if err := c.file.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close vcpu: %w", err))
	}

	return errors.Join(errs...)
}
