// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package memory manages host memory that is exposed to a guest as guest
// physical memory.
package memory
