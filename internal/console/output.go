// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package console

import (
	"bytes"
	"fmt"
	"io"
)

const format = "port[%d]: %d"

// Sprint creates the output line for a value written to port, without
// trailing newline.
func Sprint(port uint16, value int64) string {
	return fmt.Sprintf(format, port, value)
}

// Fprint writes the full output line for a value written to port into the
// given writer.
func Fprint(w io.Writer, port uint16, value int64) (int, error) {
	return fmt.Fprintf(w, format+"\n", port, value) //nolint:wrapcheck
}

// Parse parses an output line as written by [Fprint]. It returns the port,
// the value and whether the line matched.
func Parse(line []byte) (uint16, int64, bool) {
	var buf bytes.Reader

	buf.Reset(line)

	var (
		port  uint16
		value int64
	)

	if _, err := fmt.Fscanf(&buf, format, &port, &value); err != nil {
		return 0, 0, false
	}

	return port, value, true
}
