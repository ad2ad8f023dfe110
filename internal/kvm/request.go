// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

//go:build linux && amd64

package kvm

import (
	"fmt"
	"unsafe"
)

// Request is a KVM ioctl request code.
//
// Codes are composed like the kernel's _IO, _IOR and _IOW macros do: the
// direction, the size of the structure passed with the request, the KVM
// ioctl type 0xAE and the request number.
type Request uint

const (
	iocNone  = 0
	iocWrite = 1
	iocRead  = 2

	iocNRShift   = 0
	iocTypeShift = 8
	iocSizeShift = 16
	iocDirShift  = 30

	kvmIOType = 0xAE
)

func ioc(dir, nr, size uintptr) Request {
	return Request(dir<<iocDirShift |
		kvmIOType<<iocTypeShift |
		nr<<iocNRShift |
		size<<iocSizeShift)
}

// Supported requests. The comment names the argument passed with the
// request.
var (
	// No argument. Returns the API version.
	RequestGetAPIVersion = ioc(iocNone, 0x00, 0)
	// Machine type 0. Returns the VM fd.
	RequestCreateVM = ioc(iocNone, 0x01, 0)
	// [Capability] as value. Returns the capability's value.
	RequestCheckExtension = ioc(iocNone, 0x03, 0)
	// No argument. Returns the size of the vCPU run area.
	RequestGetVCPUMmapSize = ioc(iocNone, 0x04, 0)
	// vCPU index as value. Returns the vCPU fd.
	RequestCreateVCPU = ioc(iocNone, 0x41, 0)
	// Pointer to [UserspaceMemoryRegion].
	RequestSetUserMemoryRegion = ioc(iocWrite, 0x46,
		unsafe.Sizeof(UserspaceMemoryRegion{}))
	// No argument. Blocks until the vCPU exits.
	RequestRun = ioc(iocNone, 0x80, 0)
	// Pointer to [Regs].
	RequestGetRegs = ioc(iocRead, 0x81, unsafe.Sizeof(Regs{}))
	// Pointer to [Regs].
	RequestSetRegs = ioc(iocWrite, 0x82, unsafe.Sizeof(Regs{}))
	// Pointer to [Sregs].
	RequestGetSregs = ioc(iocRead, 0x83, unsafe.Sizeof(Sregs{}))
	// Pointer to [Sregs].
	RequestSetSregs = ioc(iocWrite, 0x84, unsafe.Sizeof(Sregs{}))
)

var requestNames = map[Request]string{
	RequestGetAPIVersion:       "KVM_GET_API_VERSION",
	RequestCreateVM:            "KVM_CREATE_VM",
	RequestCheckExtension:      "KVM_CHECK_EXTENSION",
	RequestGetVCPUMmapSize:     "KVM_GET_VCPU_MMAP_SIZE",
	RequestCreateVCPU:          "KVM_CREATE_VCPU",
	RequestSetUserMemoryRegion: "KVM_SET_USER_MEMORY_REGION",
	RequestRun:                 "KVM_RUN",
	RequestGetRegs:             "KVM_GET_REGS",
	RequestSetRegs:             "KVM_SET_REGS",
	RequestGetSregs:            "KVM_GET_SREGS",
	RequestSetSregs:            "KVM_SET_SREGS",
}

// String implements [fmt.Stringer].
func (r Request) String() string {
	name, exists := requestNames[r]
	if !exists {
		return fmt.Sprintf("Request(%#x)", uint(r))
	}

	return name
}
