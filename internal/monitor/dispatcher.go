// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

//go:build linux && amd64

package monitor

import (
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aibor/virtmon/internal/console"
	"github.com/aibor/virtmon/internal/kvm"
)

// Labels printed for terminal exits.
const (
	LabelHalt          = "KVM_EXIT_HLT"
	LabelInternalError = "KVM_EXIT_INTERNAL_ERROR"
	LabelShutdown      = "KVM_EXIT_SHUTDOWN"
	LabelAbort         = "Abort!"

	unsupportedFormat = "Unsupported exit_reason: %d\n"
)

// dispatcher handles a single vCPU exit at a time. It is not safe for
// concurrent use.
type dispatcher struct {
	output  io.Writer
	input   console.InputProvider
	ioWidth IOWidth
	ioDelay time.Duration
	sleep   func(time.Duration)
}

func newDispatcher(cfg Config) *dispatcher {
	return &dispatcher{
		output:  cfg.Output,
		input:   cfg.Input,
		ioWidth: cfg.IOWidth,
		ioDelay: cfg.IODelay,
		sleep:   time.Sleep,
	}
}

// dispatch handles the exit described by run. It returns the state the
// control loop is in after the exit has been handled.
//
// Guest conditions like halts or unsupported exits result in terminal
// states, not in errors. An error is returned only if the exit could not be
// served by the host.
func (d *dispatcher) dispatch(run *kvm.RunArea) (State, error) {
	reason := run.ExitReason()

	switch reason {
	case kvm.ExitHLT:
		return StateHalted, d.println(LabelHalt)
	case kvm.ExitIO:
		err := d.handleIO(run)
		if err != nil {
			return StateIOPending, err
		}

		return StateRunning, nil
	case kvm.ExitInternalError:
		internalErr := run.InternalError()
		slog.Warn("Guest internal error",
			slog.String("suberror", internalErr.Suberror.String()),
			slog.Any("data", internalErr.Data),
		)

		return StateInternalError, d.println(LabelInternalError)
	case kvm.ExitShutdown:
		return StateShutdown, d.println(LabelShutdown)
	default:
		if reason == kvm.ExitFailEntry {
			failEntry := run.FailEntry()
			slog.Warn("Guest entry failed",
				slog.String("hardware_reason",
					fmt.Sprintf("%#x", failEntry.HardwareReason)),
				slog.Uint64("cpu", uint64(failEntry.CPU)),
			)
		}

		slog.Debug("Unsupported exit", slog.String("reason", reason.String()))

		_, err := fmt.Fprintf(d.output, unsupportedFormat, uint32(reason))
		if err != nil {
			return StateUnsupported, fmt.Errorf("write: %w", err)
		}

		return StateUnsupported, d.println(LabelAbort)
	}
}

func (d *dispatcher) println(label string) error {
	_, err := fmt.Fprintln(d.output, label)
	if err != nil {
		return fmt.Errorf("write: %w", err)
	}

	return nil
}

func (d *dispatcher) handleIO(run *kvm.RunArea) error {
	exit := run.IO()

	size, count, err := d.ioWidth.transfer(exit)
	if err != nil {
		return fmt.Errorf("port %#x: %w", exit.Port, err)
	}

	data, err := run.Data(exit.DataOffset, size*count)
	if err != nil {
		return fmt.Errorf("port %#x: %w", exit.Port, err)
	}

	slog.Debug("Port IO",
		slog.String("exit", "KVM_EXIT_IO_"+labelDirection(exit.Direction)),
		slog.Uint64("port", uint64(exit.Port)),
		slog.Int("size", size),
		slog.Int("count", count),
	)

	switch exit.Direction {
	case kvm.IODirectionOut:
		err = d.out(exit.Port, data, size)
	case kvm.IODirectionIn:
		err = d.in(data, size)
	default:
		err = fmt.Errorf("%w: %d", ErrIODirectionInvalid, exit.Direction)
	}

	if err != nil {
		return fmt.Errorf("port %#x: %w", exit.Port, err)
	}

	if d.ioDelay > 0 {
		d.sleep(d.ioDelay)
	}

	return nil
}

func (d *dispatcher) out(port uint16, data []byte, size int) error {
	for off := 0; off < len(data); off += size {
		_, err := console.Fprint(d.output, port, decode(data[off:off+size]))
		if err != nil {
			return fmt.Errorf("write: %w", err)
		}
	}

	return nil
}

func (d *dispatcher) in(data []byte, size int) error {
	for off := 0; off < len(data); off += size {
		value, err := d.input.ReadInt(size * 8)
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}

		encode(data[off:off+size], value)
	}

	return nil
}

func labelDirection(direction kvm.IODirection) string {
	switch direction {
	case kvm.IODirectionOut:
		return "OUT"
	case kvm.IODirectionIn:
		return "IN"
	default:
		return direction.String()
	}
}

// decode interprets b as signed integer in host byte order. b must be 1, 2
// or 4 bytes long.
func decode(b []byte) int64 {
	switch len(b) {
	case 1:
		return int64(int8(b[0]))
	case 2:
		return int64(int16(binary.NativeEndian.Uint16(b)))
	default:
		return int64(int32(binary.NativeEndian.Uint32(b)))
	}
}

// encode writes the lower len(b) bytes of v into b in host byte order. b
// must be 1, 2 or 4 bytes long.
func encode(b []byte, v int64) {
	switch len(b) {
	case 1:
		b[0] = byte(v)
	case 2:
		binary.NativeEndian.PutUint16(b, uint16(v))
	default:
		binary.NativeEndian.PutUint32(b, uint32(v))
	}
}
