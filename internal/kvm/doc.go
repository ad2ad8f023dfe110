// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package kvm provides thin wrappers around the Linux KVM API as needed by a
// single vCPU monitor: the system device, VMs, vCPUs, their register state
// and the shared run area the kernel reports exits in.
//
// All numeric ioctl request codes are confined to this package. See
// [Request] for the table of supported requests.
package kvm
