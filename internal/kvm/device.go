// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

//go:build linux && amd64

package kvm

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// DevicePath is the well-known path of the KVM system device.
const DevicePath = "/dev/kvm"

// StableAPIVersion is the only KVM API version ever released. Linux returns
// it since 2.6.22.
const StableAPIVersion = 12

// Capability is an extension that can be queried with
// [Device.CheckExtension].
type Capability uintptr

// Capabilities of interest for a single vCPU monitor.
const (
	CapUserMemory Capability = 3
	CapNrMemslots Capability = 10
)

// Device is an open handle to the KVM system device. All other handles are
// derived from it.
type Device struct {
	file *os.File
	sys  ioctler
}

// Open opens the KVM system device at the given path for reading and
// writing.
func Open(path string) (*Device, error) {
	file, err := os.OpenFile(path, os.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, &Error{Op: "open", Err: err}
	}

	return &Device{file: file, sys: osIoctler{}}, nil
}

func (d *Device) fd() uintptr {
	return d.file.Fd()
}

// APIVersion returns the API version of the kernel's KVM implementation.
func (d *Device) APIVersion() (int, error) {
	ret, err := do(d.sys, d.fd(), RequestGetAPIVersion, 0)
	if err != nil {
		return 0, err
	}

	return int(ret), nil
}

// CheckExtension returns the value the kernel reports for the given
// capability. 0 means unsupported.
func (d *Device) CheckExtension(c Capability) (int, error) {
	ret, err := do(d.sys, d.fd(), RequestCheckExtension, uintptr(c))
	if err != nil {
		return 0, err
	}

	return int(ret), nil
}

// VCPUMmapSize returns the size of the run area of each vCPU.
func (d *Device) VCPUMmapSize() (int, error) {
	ret, err := do(d.sys, d.fd(), RequestGetVCPUMmapSize, 0)
	if err != nil {
		return 0, err
	}

	return int(ret), nil
}

// CreateVM creates a new VM without any memory or vCPUs.
func (d *Device) CreateVM() (*VM, error) {
	ret, err := do(d.sys, d.fd(), RequestCreateVM, 0)
	if err != nil {
		return nil, err
	}

	vm := &VM{
		file:  os.NewFile(ret, "kvm-vm"),
		sys:   d.sys,
		slots: make(map[uint32]UserspaceMemoryRegion),
	}

	return vm, nil
}

// Close closes the device. VMs created from it stay usable.
func (d *Device) Close() error {
	err := d.file.Close()
	if err != nil {
		return fmt.Errorf("close device: %w", err)
	}

	return nil
}
