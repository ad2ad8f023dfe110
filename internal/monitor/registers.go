// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

//go:build linux && amd64

package monitor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aibor/virtmon/internal/kvm"
	"github.com/davecgh/go-spew/spew"
)

const stackAlignment = 16

// Real mode addressing limits. SP is 16 bit wide and SS base is the
// selector shifted by 4.
const (
	segmentSize    = 0x10000
	maxSegmentBase = 0xffff << 4
)

type registerAccessor interface {
	GetRegs(regs *kvm.Regs) error
	SetRegs(regs *kvm.Regs) error
	GetSregs(sregs *kvm.Sregs) error
	SetSregs(sregs *kvm.Sregs) error
}

// stackTop returns the guest physical address right above the stack: the
// top of memSize bytes of guest memory, aligned down and capped to what
// real mode can address through SS:SP.
func stackTop(memSize int) uint64 {
	top := uint64(memSize) &^ (stackAlignment - 1)

	return min(top, maxSegmentBase+segmentSize)
}

// stackSegment returns the SS base and SP that address the given stack top.
// An SP of 0 wraps to 0xfffe on the first push, so the push lands at
// top-2.
func stackSegment(top uint64) (uint64, uint64) {
	var base uint64
	if top > segmentSize {
		base = top - segmentSize
	}

	return base, (top - base) & (segmentSize - 1)
}

// initialRegisters returns the general purpose registers for starting the
// guest at [GuestBase] with the stack at the top of memSize bytes of guest
// memory.
func initialRegisters(memSize int) kvm.Regs {
	_, sp := stackSegment(stackTop(memSize))

	return kvm.Regs{
		Rflags: kvm.FlagReserved,
		Rip:    GuestBase,
		Rsp:    sp,
		Rbp:    0,
	}
}

// initialSregs modifies the reset state of the special registers so code
// segment fetches start at guest physical address 0 and the stack segment
// ends at the top of guest memory. Everything else stays at the real mode
// reset state.
func initialSregs(sregs *kvm.Sregs, memSize int) {
	sregs.Cs.Selector = 0
	sregs.Cs.Base = GuestBase

	base, _ := stackSegment(stackTop(memSize))
	sregs.Ss.Selector = uint16(base >> 4)
	sregs.Ss.Base = base
}

func setupRegisters(cpu registerAccessor, memSize int) error {
	var sregs kvm.Sregs

	err := cpu.GetSregs(&sregs)
	if err != nil {
		return fmt.Errorf("get sregs: %w", err)
	}

	initialSregs(&sregs, memSize)

	err = cpu.SetSregs(&sregs)
	if err != nil {
		return fmt.Errorf("set sregs: %w", err)
	}

	var regs kvm.Regs

	err = cpu.GetRegs(&regs)
	if err != nil {
		return fmt.Errorf("get regs: %w", err)
	}

	initial := initialRegisters(memSize)
	regs.Rflags = initial.Rflags
	regs.Rip = initial.Rip
	regs.Rsp = initial.Rsp
	regs.Rbp = initial.Rbp

	err = cpu.SetRegs(&regs)
	if err != nil {
		return fmt.Errorf("set regs: %w", err)
	}

	debugDump("Initial registers", &regs, &sregs)

	return nil
}

func debugDump(msg string, values ...any) {
	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}

	slog.Debug(msg, slog.String("dump", spew.Sdump(values...)))
}
