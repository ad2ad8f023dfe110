// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

//go:build linux && amd64

package kvm

import "fmt"

// ExitReason is the reason a vCPU stopped running, as reported in the run
// area.
type ExitReason uint32

// Exit reasons as defined by the KVM API.
const (
	ExitUnknown ExitReason = iota
	ExitException
	ExitIO
	ExitHypercall
	ExitDebug
	ExitHLT
	ExitMMIO
	ExitIRQWindowOpen
	ExitShutdown
	ExitFailEntry
	ExitIntr
	ExitSetTPR
	ExitTPRAccess
	ExitS390SIEIC
	ExitS390Reset
	ExitDCR
	ExitNMI
	ExitInternalError
	ExitOSI
	ExitPAPRHcall
	ExitS390UControl
	ExitWatchdog
	ExitS390TSCH
	ExitEPR
	ExitSystemEvent
	ExitS390STSI
	ExitIOAPICEOI
	ExitHyperV
	ExitARMNISV
	ExitX86RDMSR
	ExitX86WRMSR
	ExitDirtyRingFull
	ExitAPResetHold
	ExitX86BusLock
	ExitXen
	ExitRISCVSBI
	ExitRISCVCSR
	ExitNotify
	ExitLoongArchIOCSR
	ExitMemoryFault
)

var exitReasonNames = [...]string{
	ExitUnknown:        "KVM_EXIT_UNKNOWN",
	ExitException:      "KVM_EXIT_EXCEPTION",
	ExitIO:             "KVM_EXIT_IO",
	ExitHypercall:      "KVM_EXIT_HYPERCALL",
	ExitDebug:          "KVM_EXIT_DEBUG",
	ExitHLT:            "KVM_EXIT_HLT",
	ExitMMIO:           "KVM_EXIT_MMIO",
	ExitIRQWindowOpen:  "KVM_EXIT_IRQ_WINDOW_OPEN",
	ExitShutdown:       "KVM_EXIT_SHUTDOWN",
	ExitFailEntry:      "KVM_EXIT_FAIL_ENTRY",
	ExitIntr:           "KVM_EXIT_INTR",
	ExitSetTPR:         "KVM_EXIT_SET_TPR",
	ExitTPRAccess:      "KVM_EXIT_TPR_ACCESS",
	ExitS390SIEIC:      "KVM_EXIT_S390_SIEIC",
	ExitS390Reset:      "KVM_EXIT_S390_RESET",
	ExitDCR:            "KVM_EXIT_DCR",
	ExitNMI:            "KVM_EXIT_NMI",
	ExitInternalError:  "KVM_EXIT_INTERNAL_ERROR",
	ExitOSI:            "KVM_EXIT_OSI",
	ExitPAPRHcall:      "KVM_EXIT_PAPR_HCALL",
	ExitS390UControl:   "KVM_EXIT_S390_UCONTROL",
	ExitWatchdog:       "KVM_EXIT_WATCHDOG",
	ExitS390TSCH:       "KVM_EXIT_S390_TSCH",
	ExitEPR:            "KVM_EXIT_EPR",
	ExitSystemEvent:    "KVM_EXIT_SYSTEM_EVENT",
	ExitS390STSI:       "KVM_EXIT_S390_STSI",
	ExitIOAPICEOI:      "KVM_EXIT_IOAPIC_EOI",
	ExitHyperV:         "KVM_EXIT_HYPERV",
	ExitARMNISV:        "KVM_EXIT_ARM_NISV",
	ExitX86RDMSR:       "KVM_EXIT_X86_RDMSR",
	ExitX86WRMSR:       "KVM_EXIT_X86_WRMSR",
	ExitDirtyRingFull:  "KVM_EXIT_DIRTY_RING_FULL",
	ExitAPResetHold:    "KVM_EXIT_AP_RESET_HOLD",
	ExitX86BusLock:     "KVM_EXIT_X86_BUS_LOCK",
	ExitXen:            "KVM_EXIT_XEN",
	ExitRISCVSBI:       "KVM_EXIT_RISCV_SBI",
	ExitRISCVCSR:       "KVM_EXIT_RISCV_CSR",
	ExitNotify:         "KVM_EXIT_NOTIFY",
	ExitLoongArchIOCSR: "KVM_EXIT_LOONGARCH_IOCSR",
	ExitMemoryFault:    "KVM_EXIT_MEMORY_FAULT",
}

// String implements [fmt.Stringer].
func (r ExitReason) String() string {
	if int(r) < len(exitReasonNames) {
		return exitReasonNames[r]
	}

	return fmt.Sprintf("ExitReason(%d)", uint32(r))
}

// IODirection is the direction of a port IO exit as seen from the guest.
type IODirection uint8

const (
	// IODirectionIn is a guest read from the host.
	IODirectionIn IODirection = 0
	// IODirectionOut is a guest write to the host.
	IODirectionOut IODirection = 1
)

// String implements [fmt.Stringer].
func (d IODirection) String() string {
	switch d {
	case IODirectionIn:
		return "in"
	case IODirectionOut:
		return "out"
	default:
		return fmt.Sprintf("IODirection(%d)", uint8(d))
	}
}

// IOExit describes a [ExitIO] exit.
type IOExit struct {
	Direction IODirection
	// Size of a single transfer in bytes: 1, 2 or 4.
	Size uint8
	Port uint16
	// Count is the number of transfers. Only string instructions have more
	// than one.
	Count uint32
	// DataOffset is the offset of the transferred data in the run area.
	DataOffset uint64
}

// InternalErrorSubReason further specifies [ExitInternalError].
type InternalErrorSubReason uint32

// Internal error sub reasons.
const (
	InternalErrorEmulation            InternalErrorSubReason = 1
	InternalErrorSimulEx              InternalErrorSubReason = 2
	InternalErrorDeliveryEv           InternalErrorSubReason = 3
	InternalErrorUnexpectedExitReason InternalErrorSubReason = 4
)

// String implements [fmt.Stringer].
func (s InternalErrorSubReason) String() string {
	switch s {
	case InternalErrorEmulation:
		return "KVM_INTERNAL_ERROR_EMULATION"
	case InternalErrorSimulEx:
		return "KVM_INTERNAL_ERROR_SIMUL_EX"
	case InternalErrorDeliveryEv:
		return "KVM_INTERNAL_ERROR_DELIVERY_EV"
	case InternalErrorUnexpectedExitReason:
		return "KVM_INTERNAL_ERROR_UNEXPECTED_EXIT_REASON"
	default:
		return fmt.Sprintf("InternalErrorSubReason(%d)", uint32(s))
	}
}

// InternalError describes a [ExitInternalError] exit.
type InternalError struct {
	Suberror InternalErrorSubReason
	Data     []uint64
}

// FailEntry describes a [ExitFailEntry] exit.
type FailEntry struct {
	HardwareReason uint64
	CPU            uint32
}
