// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

//go:build linux && amd64

package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aibor/virtmon/internal/kvm"
	"github.com/aibor/virtmon/internal/memory"
)

// runner runs a vCPU until its next exit.
type runner interface {
	Run() error
	RunArea() *kvm.RunArea
}

// Machine is a single vCPU virtual machine with a guest image loaded.
//
// All methods must be called from the same goroutine, which should be
// locked to its OS thread. The kernel binds a vCPU to the thread that runs
// it first.
type Machine struct {
	cfg        Config
	mem        *memory.Region
	device     *kvm.Device
	vm         *kvm.VM
	vcpu       *kvm.VCPU
	dispatcher *dispatcher
	closers    []func() error
}

// New creates a new [Machine] with image loaded at the start of its memory
// and the vCPU ready to execute it.
//
// If any step fails, all resources acquired so far are released.
func New(cfg Config, image []byte) (*Machine, error) {
	cfg = cfg.withDefaults()

	err := cfg.validate()
	if err != nil {
		return nil, err
	}

	m := &Machine{
		cfg:        cfg,
		dispatcher: newDispatcher(cfg),
	}

	err = m.setup(image)
	if err != nil {
		return nil, errors.Join(err, m.Close())
	}

	return m, nil
}

func (m *Machine) setup(image []byte) error {
	mem, err := memory.Allocate(m.cfg.MemSize)
	if err != nil {
		return fmt.Errorf("allocate guest memory: %w", err)
	}

	m.mem = mem
	m.closers = append(m.closers, mem.Close)

	err = mem.Load(image)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrImageTooLarge, err)
	}

	device, err := kvm.Open(m.cfg.DevicePath)
	if err != nil {
		return fmt.Errorf("open device: %w", err)
	}

	m.device = device
	m.closers = append(m.closers, device.Close)

	err = m.checkDevice()
	if err != nil {
		return err
	}

	vm, err := device.CreateVM()
	if err != nil {
		return fmt.Errorf("create vm: %w", err)
	}

	m.vm = vm
	m.closers = append(m.closers, vm.Close)

	err = mem.Register(vm, GuestBase, MemorySlot)
	if err != nil {
		return fmt.Errorf("guest memory: %w", err)
	}

	mmapSize, err := device.VCPUMmapSize()
	if err != nil {
		return fmt.Errorf("vcpu mmap size: %w", err)
	}

	vcpu, err := vm.CreateVCPU(VCPUIndex, mmapSize)
	if err != nil {
		return fmt.Errorf("create vcpu: %w", err)
	}

	m.vcpu = vcpu
	m.closers = append(m.closers, vcpu.Close)

	err = setupRegisters(vcpu, m.cfg.MemSize)
	if err != nil {
		return fmt.Errorf("setup registers: %w", err)
	}

	slog.Debug("Machine ready",
		slog.String("device", m.cfg.DevicePath),
		slog.Int("memory", m.cfg.MemSize),
		slog.Int("image", len(image)),
		slog.Int("run_area", mmapSize),
	)

	return nil
}

func (m *Machine) checkDevice() error {
	version, err := m.device.APIVersion()
	if err != nil {
		return fmt.Errorf("api version: %w", err)
	}

	if version != kvm.StableAPIVersion {
		slog.Warn("Unexpected KVM API version",
			slog.Int("version", version),
			slog.Int("expected", kvm.StableAPIVersion),
		)
	} else {
		slog.Debug("KVM API version", slog.Int("version", version))
	}

	for _, capability := range []struct {
		name string
		id   kvm.Capability
	}{
		{"user_memory", kvm.CapUserMemory},
		{"nr_memslots", kvm.CapNrMemslots},
	} {
		value, err := m.device.CheckExtension(capability.id)
		if err != nil {
			return fmt.Errorf("check extension %s: %w", capability.name, err)
		}

		slog.Debug("KVM capability",
			slog.String("name", capability.name),
			slog.Int("value", value),
		)
	}

	return nil
}

// Run runs the guest until it reaches a terminal [State].
//
// Terminal guest conditions are reported in the returned [Outcome], not as
// error. An error is returned if the host fails to run the vCPU or to serve
// an exit. The context is checked before each run only. A run that is in
// progress or a pending input prompt is not interrupted.
func (m *Machine) Run(ctx context.Context) (Outcome, error) {
	if m.vcpu == nil {
		return Outcome{}, kvm.ErrClosed
	}

	return runLoop(ctx, m.vcpu, m.dispatcher)
}

func runLoop(ctx context.Context, cpu runner, d *dispatcher) (Outcome, error) {
	var outcome Outcome

	for {
		err := ctx.Err()
		if err != nil {
			return outcome, fmt.Errorf("run: %w", err)
		}

		err = cpu.Run()
		if err != nil {
			return outcome, fmt.Errorf("run vcpu: %w", err)
		}

		run := cpu.RunArea()

		outcome.Exits++
		outcome.Reason = run.ExitReason()

		outcome.State, err = d.dispatch(run)
		if err != nil {
			return outcome, fmt.Errorf("exit %s: %w", outcome.Reason, err)
		}

		if outcome.State.Terminal() {
			slog.Debug("Guest stopped",
				slog.String("state", outcome.State.String()),
				slog.String("reason", outcome.Reason.String()),
				slog.Int("exits", outcome.Exits),
			)

			return outcome, nil
		}
	}
}

// Memory returns the guest memory. It is nil once the machine is closed.
func (m *Machine) Memory() []byte {
	if m.mem == nil {
		return nil
	}

	return m.mem.Bytes()
}

// Registers returns the current general purpose registers of the vCPU.
func (m *Machine) Registers() (kvm.Regs, error) {
	var regs kvm.Regs

	if m.vcpu == nil {
		return regs, kvm.ErrClosed
	}

	err := m.vcpu.GetRegs(&regs)
	if err != nil {
		return regs, fmt.Errorf("get regs: %w", err)
	}

	debugDump("Registers", &regs)

	return regs, nil
}

// Close releases all resources in reverse order of their acquisition. It is
// safe to call more than once.
func (m *Machine) Close() error {
	var errs []error

	for i := len(m.closers) - 1; i >= 0; i-- {
		err := m.closers[i]()
		if err != nil {
			errs = append(errs, err)
		}
	}

	m.closers = nil
	m.vcpu = nil

	return errors.Join(errs...)
}
