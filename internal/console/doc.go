// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package console implements the line based text protocol a guest talks to
// the host with via port I/O.
//
// Every value the guest writes to a port is printed as one line in the format
// "port[<port>]: <value>". Every value the guest reads from a port is
// requested from an [InputProvider], usually a [Prompter] that asks the user
// for an integer in the signed or unsigned range of the port width.
package console
