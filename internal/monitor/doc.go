// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package monitor runs a flat binary in a single vCPU KVM virtual machine.
//
// A [Machine] loads the binary at guest physical address 0 and starts it in
// real mode at that address. [Machine.Run] runs the vCPU until the guest
// halts, shuts down, hits an internal error or exits for a reason the
// monitor does not handle. Port IO exits are served by the console protocol
// implemented in package console.
package monitor
