// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

//go:build linux && amd64

package monitor

import "errors"

var (
	// ErrConfig is returned for invalid [Config] values.
	ErrConfig = errors.New("invalid config")

	// ErrImageTooLarge is returned if the guest image does not fit into
	// guest memory.
	ErrImageTooLarge = errors.New("image larger than guest memory")

	// ErrIOWidthInvalid is returned for unknown [IOWidth] values.
	ErrIOWidthInvalid = errors.New("unknown io width")

	// ErrIOSizeInvalid is returned if an IO exit reports a transfer size
	// other than 1, 2 or 4 bytes.
	ErrIOSizeInvalid = errors.New("invalid io size")

	// ErrIODirectionInvalid is returned if an IO exit reports an unknown
	// direction.
	ErrIODirectionInvalid = errors.New("invalid io direction")
)
