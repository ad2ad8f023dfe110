// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	// Prompt is written before every attempt to read a value.
	Prompt = "input an integer> "

	// InvalidInput is written to the error output if a line can not be
	// parsed.
	InvalidInput = "Invalid input"
)

// ErrInputClosed is returned if the input ends before a valid value was read.
var ErrInputClosed = errors.New("input closed")

// InputProvider provides values for port reads.
type InputProvider interface {
	// ReadInt returns an integer that fits into bitSize bits, either signed
	// or unsigned. It blocks until a value is available.
	ReadInt(bitSize int) (int64, error)
}

// Prompter is an [InputProvider] that reads values line by line.
//
// Every attempt is preceded by [Prompt] on the output. Lines that can not be
// parsed are answered with [InvalidInput] on the error output and the
// prompt is repeated.
type Prompter struct {
	scanner *bufio.Scanner
	out     io.Writer
	errOut  io.Writer
}

var _ InputProvider = (*Prompter)(nil)

// NewPrompter creates a new [Prompter] reading from in.
func NewPrompter(in io.Reader, out, errOut io.Writer) *Prompter {
	return &Prompter{
		scanner: bufio.NewScanner(in),
		out:     out,
		errOut:  errOut,
	}
}

// Script creates a [Prompter] that reads from the given lines instead of an
// interactive input.
func Script(out, errOut io.Writer, lines ...string) *Prompter {
	var input strings.Builder

	for _, line := range lines {
		input.WriteString(line)
		input.WriteByte('\n')
	}

	return NewPrompter(strings.NewReader(input.String()), out, errOut)
}

// ReadInt implements [InputProvider].
func (p *Prompter) ReadInt(bitSize int) (int64, error) {
	for {
		if _, err := io.WriteString(p.out, Prompt); err != nil {
			return 0, fmt.Errorf("write prompt: %w", err)
		}

		if !p.scanner.Scan() {
			if err := p.scanner.Err(); err != nil {
				return 0, fmt.Errorf("read input: %w", err)
			}

			return 0, ErrInputClosed
		}

		value, err := ParseInt(p.scanner.Text(), bitSize)
		if err == nil {
			return value, nil
		}

		if _, err := fmt.Fprintln(p.errOut, InvalidInput); err != nil {
			return 0, fmt.Errorf("write: %w", err)
		}
	}
}

// ParseInt parses a decimal integer that fits into bitSize bits. Both the
// signed and the unsigned range are accepted, so "-1" and "255" are valid
// for 8 bits and share the same bit pattern. Unsigned values above the
// signed range are returned with that bit pattern in the low bitSize bits.
// Leading and trailing whitespace is ignored.
func ParseInt(s string, bitSize int) (int64, error) {
	s = strings.TrimSpace(s)

	value, err := strconv.ParseInt(s, 10, bitSize)
	if err == nil {
		return value, nil
	}

	if !errors.Is(err, strconv.ErrRange) {
		return 0, fmt.Errorf("parse input: %w", err)
	}

	unsigned, uerr := strconv.ParseUint(s, 10, bitSize)
	if uerr != nil {
		return 0, fmt.Errorf("parse input: %w", err)
	}

	return int64(unsigned), nil //nolint:gosec
}
