// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

//go:build linux && amd64

package memory

import (
	"errors"
	"fmt"
	"os"
	"unsafe"

	"github.com/aibor/virtmon/internal/kvm"
	"golang.org/x/sys/unix"
)

var (
	// ErrInvalidSize is returned for non-positive region sizes.
	ErrInvalidSize = errors.New("invalid size")

	// ErrNotPageAligned is returned if a size or address is not a multiple
	// of the host page size.
	ErrNotPageAligned = errors.New("not page aligned")

	// ErrOverflow is returned if data does not fit into a region.
	ErrOverflow = errors.New("guest memory overflow")

	// ErrAlreadyRegistered is returned if a region is registered twice.
	ErrAlreadyRegistered = errors.New("region already registered")

	// ErrClosed is returned for operations on a closed region.
	ErrClosed = errors.New("region closed")
)

// Registrar registers memory regions with a VM. It is implemented by
// [kvm.VM].
type Registrar interface {
	SetUserMemoryRegion(region *kvm.UserspaceMemoryRegion) error
}

// Region is a zero initialized, page aligned anonymous host memory mapping
// that can be registered as guest physical memory.
type Region struct {
	mem        []byte
	registered *kvm.UserspaceMemoryRegion
}

// Allocate maps a new region of the given size. The size must be a multiple
// of the host page size.
//
// The mapping is shared, so the kernel's view and the host's view are the
// same memory, and not reserved in swap.
func Allocate(size int) (*Region, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}

	if pageSize := os.Getpagesize(); size%pageSize != 0 {
		return nil, fmt.Errorf("size %d, page size %d: %w",
			size, pageSize, ErrNotPageAligned)
	}

	mem, err := unix.Mmap(-1, 0, size,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_SHARED|unix.MAP_ANONYMOUS|unix.MAP_NORESERVE)
	if err != nil {
		return nil, fmt.Errorf("mmap: %w", err)
	}

	return &Region{mem: mem}, nil
}

// Size returns the size of the region in bytes.
func (r *Region) Size() int {
	return len(r.mem)
}

// Bytes returns the region's memory. Writes are seen by the guest.
func (r *Region) Bytes() []byte {
	return r.mem
}

// Register attaches the region to the VM as guest physical memory at
// guestBase using the given slot. A region can only be registered once.
func (r *Region) Register(vm Registrar, guestBase uint64, slot uint32) error {
	if r.mem == nil {
		return ErrClosed
	}

	if r.registered != nil {
		return fmt.Errorf("%w: slot %d", ErrAlreadyRegistered,
			r.registered.Slot)
	}

	if guestBase%uint64(os.Getpagesize()) != 0 {
		return fmt.Errorf("guest base %#x: %w", guestBase, ErrNotPageAligned)
	}

	region := &kvm.UserspaceMemoryRegion{
		Slot:          slot,
		GuestPhysAddr: guestBase,
		MemorySize:    uint64(len(r.mem)),
		UserspaceAddr: uint64(uintptr(unsafe.Pointer(&r.mem[0]))),
	}

	err := vm.SetUserMemoryRegion(region)
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}

	r.registered = region

	return nil
}

// Registered returns the guest base address and slot the region is
// registered with. ok is false if it is not registered.
func (r *Region) Registered() (guestBase uint64, slot uint32, ok bool) {
	if r.registered == nil {
		return 0, 0, false
	}

	return r.registered.GuestPhysAddr, r.registered.Slot, true
}

// Load copies data into the region starting at offset 0.
//
// If data is larger than the region, [ErrOverflow] is returned and nothing
// is copied.
func (r *Region) Load(data []byte) error {
	if r.mem == nil {
		return ErrClosed
	}

	if len(data) > len(r.mem) {
		return fmt.Errorf("%w: %d > %d bytes", ErrOverflow, len(data), len(r.mem))
	}

	copy(r.mem, data)

	return nil
}

// Close unmaps the region. It must not be used by a running guest anymore.
// It is safe to call more than once.
func (r *Region) Close() error {
	if r.mem == nil {
		return nil
	}

	err := unix.Munmap(r.mem)
	r.mem = nil

	if err != nil {
		return fmt.Errorf("munmap: %w", err)
	}

	return nil
}
