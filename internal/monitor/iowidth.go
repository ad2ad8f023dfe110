// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

//go:build linux && amd64

package monitor

import (
	"fmt"
	"slices"

	"github.com/aibor/virtmon/internal/kvm"
)

const (
	// IOWidthReported transfers as many bytes per value as the IO exit
	// reports (1, 2 or 4) and as many values as the exit's count.
	IOWidthReported IOWidth = "reported"
	// IOWidthFixed always transfers a single 4 byte value, regardless of the
	// access size of the guest instruction.
	IOWidthFixed IOWidth = "fixed"
)

const fixedIOSize = 4

// IOWidth is the policy for how many bytes are transferred on port IO
// exits.
type IOWidth string

func (w *IOWidth) isKnown() bool {
	knownIOWidths := []IOWidth{
		IOWidthReported,
		IOWidthFixed,
	}

	return slices.Contains(knownIOWidths, *w)
}

// String implements [fmt.Stringer].
func (w *IOWidth) String() string {
	if !w.isKnown() {
		return ""
	}

	return string(*w)
}

// MarshalText implements [encoding.TextMarshaler].
func (w IOWidth) MarshalText() ([]byte, error) {
	s := w.String()
	if s == "" {
		return nil, ErrIOWidthInvalid
	}

	return []byte(s), nil
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (w *IOWidth) UnmarshalText(text []byte) error {
	iw := IOWidth(text)

	if !iw.isKnown() {
		return fmt.Errorf("%w: %s", ErrIOWidthInvalid, text)
	}

	*w = iw

	return nil
}

// transfer returns the size of a single value in bytes and the number of
// values to transfer for the given IO exit.
func (w IOWidth) transfer(exit kvm.IOExit) (int, int, error) {
	switch w {
	case IOWidthFixed:
		return fixedIOSize, 1, nil
	case IOWidthReported:
		switch exit.Size {
		case 1, 2, 4:
			return int(exit.Size), int(exit.Count), nil
		default:
			return 0, 0, fmt.Errorf("%w: %d", ErrIOSizeInvalid, exit.Size)
		}
	default:
		return 0, 0, fmt.Errorf("%w: %q", ErrIOWidthInvalid, string(w))
	}
}
