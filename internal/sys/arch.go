// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sys

import (
	"fmt"
	"os"
	"runtime"
)

// Arch is a CPU architecture as named by GOARCH.
type Arch string

// AMD64 is the x86-64 architecture.
const AMD64 Arch = "amd64"

// Native is the architecture of the host.
const Native Arch = Arch(runtime.GOARCH)

// GuestArch is the only architecture guests can be run for. Guests start in
// real mode, so host and guest must be x86.
const GuestArch = AMD64

// String implements [fmt.Stringer].
func (a Arch) String() string {
	return string(a)
}

// IsNative returns true if the architecture is the host's.
func (a Arch) IsNative() bool {
	return Native == a
}

// CheckHost returns [ErrArchNotSupported] if guests of [GuestArch] can not
// be run on the host and [ErrKVMNotAvailable] if the KVM device at the given
// path can not be opened.
func CheckHost(devicePath string) error {
	if !GuestArch.IsNative() {
		return fmt.Errorf("%w: %s", ErrArchNotSupported, Native)
	}

	if !KVMAvailable(devicePath) {
		return fmt.Errorf("%w: %s", ErrKVMNotAvailable, devicePath)
	}

	return nil
}

// KVMAvailable checks if the KVM device at the given path can be opened for
// reading and writing.
func KVMAvailable(devicePath string) bool {
	f, err := os.OpenFile(devicePath, os.O_RDWR, 0)
	if err != nil {
		return false
	}

	_ = f.Close()

	return true
}
