// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

//go:build linux && amd64

package kvm

const nrInterrupts = 256

// Regs holds a vCPU's general purpose registers. It has the same layout as
// the C struct kvm_regs.
type Regs struct {
	Rax, Rbx, Rcx, Rdx uint64
	Rsi, Rdi, Rsp, Rbp uint64
	R8, R9, R10, R11   uint64
	R12, R13, R14, R15 uint64
	Rip, Rflags        uint64
}

// Segment has the same layout as the C struct kvm_segment.
type Segment struct {
	Base                           uint64
	Limit                          uint32
	Selector                       uint16
	Type                           uint8
	Present, DPL, DB, S, L, G, AVL uint8
	Unusable                       uint8
	_                              uint8
}

// Dtable has the same layout as the C struct kvm_dtable.
type Dtable struct {
	Base  uint64
	Limit uint16
	_     [3]uint16
}

// Sregs holds a vCPU's special registers. It has the same layout as the C
// struct kvm_sregs.
type Sregs struct {
	Cs, Ds, Es, Fs, Gs, Ss  Segment
	Tr, Ldt                 Segment
	Gdt, Idt                Dtable
	Cr0, Cr2, Cr3, Cr4, Cr8 uint64
	Efer                    uint64
	ApicBase                uint64
	InterruptBitmap         [(nrInterrupts + 63) / 64]uint64
}

// RFLAGS bits.
const (
	// FlagReserved is bit 1 which is always set.
	FlagReserved uint64 = 1 << 1
	// FlagTrap enables single step traps.
	FlagTrap uint64 = 1 << 8
	// FlagInterrupt enables maskable interrupts.
	FlagInterrupt uint64 = 1 << 9
)
