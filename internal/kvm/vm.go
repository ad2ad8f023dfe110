// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

//go:build linux && amd64

package kvm

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// UserspaceMemoryRegion has the same layout as the C struct
// kvm_userspace_memory_region.
type UserspaceMemoryRegion struct {
	Slot          uint32
	Flags         uint32
	GuestPhysAddr uint64
	MemorySize    uint64
	UserspaceAddr uint64
}

// VM is a KVM virtual machine.
type VM struct {
	file  *os.File
	sys   ioctler
	slots map[uint32]UserspaceMemoryRegion
}

func (vm *VM) fd() uintptr {
	return vm.file.Fd()
}

// SetUserMemoryRegion registers host memory as guest physical memory.
//
// Each slot can be registered once. Alignment and overlap constraints are
// enforced by the kernel.
func (vm *VM) SetUserMemoryRegion(region *UserspaceMemoryRegion) error {
	if _, exists := vm.slots[region.Slot]; exists {
		return &Error{
			Op:  RequestSetUserMemoryRegion.String(),
			Err: fmt.Errorf("slot %d: %w", region.Slot, ErrSlotInUse),
		}
	}

	_, err := do(vm.sys, vm.fd(), RequestSetUserMemoryRegion,
		uintptr(unsafe.Pointer(region)))
	if err != nil {
		return err
	}

	vm.slots[region.Slot] = *region

	return nil
}

// MemoryRegions returns the number of registered memory regions.
func (vm *VM) MemoryRegions() int {
	return len(vm.slots)
}

// CreateVCPU creates the vCPU with the given index and maps its run area of
// the given size, as returned by [Device.VCPUMmapSize].
func (vm *VM) CreateVCPU(index int, mmapSize int) (*VCPU, error) {
	if mmapSize < runAreaMinSize {
		return nil, fmt.Errorf("%w: %d < %d",
			ErrRunAreaTooSmall, mmapSize, runAreaMinSize)
	}

	ret, err := do(vm.sys, vm.fd(), RequestCreateVCPU, uintptr(index))
	if err != nil {
		return nil, err
	}

	file := os.NewFile(ret, fmt.Sprintf("kvm-vcpu:%d", index))

	mem, err := unix.Mmap(int(ret), 0, mmapSize,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = file.Close()
		return nil, &Error{Op: "mmap run area", Err: err}
	}

	vcpu := &VCPU{
		file:  file,
		sys:   vm.sys,
		index: index,
		mem:   mem,
		run:   &RunArea{buf: mem},
	}

	return vcpu, nil
}

// Close closes the VM. The kernel keeps the VM alive until all vCPUs are
// closed as well.
func (vm *VM) Close() error {
	err := vm.file.Close()
	if err != nil {
		return fmt.Errorf("close vm: %w", err)
	}

	return nil
}
