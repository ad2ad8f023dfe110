// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

//go:build linux && amd64

package kvm

import (
	"golang.org/x/sys/unix"
)

// ioctler issues ioctl requests. It is replaced in tests.
type ioctler interface {
	ioctl(fd uintptr, req Request, arg uintptr) (uintptr, error)
}

type osIoctler struct{}

func (osIoctler) ioctl(fd uintptr, req Request, arg uintptr) (uintptr, error) {
	ret, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, uintptr(req), arg)
	if errno != 0 {
		return ret, errno
	}

	return ret, nil
}

// do issues the request and wraps a failure into an [Error].
func do(sys ioctler, fd uintptr, req Request, arg uintptr) (uintptr, error) {
	ret, err := sys.ioctl(fd, req, arg)
	if err != nil {
		return ret, &Error{Op: req.String(), Err: err}
	}

	return ret, nil
}
