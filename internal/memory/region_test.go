// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

//go:build linux && amd64

package memory_test

import (
	"bytes"
	"os"
	"testing"

	"github.com/aibor/virtmon/internal/kvm"
	"github.com/aibor/virtmon/internal/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// 250 pages of 4 KiB.
const testSize = 1024000

type fakeVM struct {
	regions []kvm.UserspaceMemoryRegion
	err     error
}

func (f *fakeVM) SetUserMemoryRegion(region *kvm.UserspaceMemoryRegion) error {
	if f.err != nil {
		return f.err
	}

	f.regions = append(f.regions, *region)

	return nil
}

func allocate(t *testing.T, size int) *memory.Region {
	t.Helper()

	region, err := memory.Allocate(size)
	require.NoError(t, err)

	t.Cleanup(func() { assert.NoError(t, region.Close()) })

	return region
}

func TestAllocate(t *testing.T) {
	region := allocate(t, testSize)

	assert.Equal(t, testSize, region.Size())
	assert.Len(t, region.Bytes(), testSize)
	assert.Equal(t, make([]byte, testSize), region.Bytes(), "zero initialized")
}

func TestAllocate_Invalid(t *testing.T) {
	tests := []struct {
		name        string
		size        int
		expectedErr error
	}{
		{
			name:        "zero",
			size:        0,
			expectedErr: memory.ErrInvalidSize,
		},
		{
			name:        "negative",
			size:        -4096,
			expectedErr: memory.ErrInvalidSize,
		},
		{
			name:        "not page aligned",
			size:        os.Getpagesize() + 1,
			expectedErr: memory.ErrNotPageAligned,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := memory.Allocate(tt.size)
			require.ErrorIs(t, err, tt.expectedErr)
		})
	}
}

func TestRegion_Load(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{
			name: "empty",
			data: []byte{},
		},
		{
			name: "hlt",
			data: []byte{0xf4},
		},
		{
			name: "pattern",
			data: bytes.Repeat([]byte{0xde, 0xad, 0xbe, 0xef}, 1000),
		},
		{
			name: "exactly full",
			data: bytes.Repeat([]byte{0x90}, testSize),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			region := allocate(t, testSize)

			require.NoError(t, region.Load(tt.data))

			mem := region.Bytes()
			assert.Equal(t, tt.data, mem[:len(tt.data)], "loaded at offset 0")
			assert.Equal(t, make([]byte, testSize-len(tt.data)),
				mem[len(tt.data):], "rest untouched")
		})
	}
}

func TestRegion_Load_Overflow(t *testing.T) {
	region := allocate(t, testSize)

	err := region.Load(bytes.Repeat([]byte{0xff}, testSize+1))
	require.ErrorIs(t, err, memory.ErrOverflow)

	assert.Equal(t, make([]byte, testSize), region.Bytes(), "nothing copied")
}

func TestRegion_Register(t *testing.T) {
	region := allocate(t, testSize)
	vm := &fakeVM{}

	_, _, registered := region.Registered()
	assert.False(t, registered)

	require.NoError(t, region.Register(vm, 0, 0))
	require.Len(t, vm.regions, 1)

	actual := vm.regions[0]
	assert.Equal(t, uint32(0), actual.Slot)
	assert.Equal(t, uint32(0), actual.Flags)
	assert.Equal(t, uint64(0), actual.GuestPhysAddr)
	assert.Equal(t, uint64(testSize), actual.MemorySize)
	assert.NotZero(t, actual.UserspaceAddr)
	assert.Zero(t, actual.UserspaceAddr%uint64(os.Getpagesize()),
		"host address page aligned")

	base, slot, registered := region.Registered()
	assert.True(t, registered)
	assert.Equal(t, uint64(0), base)
	assert.Equal(t, uint32(0), slot)

	err := region.Register(vm, 0, 1)
	require.ErrorIs(t, err, memory.ErrAlreadyRegistered)
	assert.Len(t, vm.regions, 1)
}

func TestRegion_Register_Errors(t *testing.T) {
	t.Run("unaligned base", func(t *testing.T) {
		region := allocate(t, testSize)
		vm := &fakeVM{}

		err := region.Register(vm, 0x10, 0)
		require.ErrorIs(t, err, memory.ErrNotPageAligned)
		assert.Empty(t, vm.regions)
	})

	t.Run("rejected", func(t *testing.T) {
		region := allocate(t, testSize)
		vm := &fakeVM{err: unix.EINVAL}

		err := region.Register(vm, 0, 0)
		require.ErrorIs(t, err, unix.EINVAL)

		_, _, registered := region.Registered()
		assert.False(t, registered)
	})
}

func TestRegion_Close(t *testing.T) {
	region, err := memory.Allocate(testSize)
	require.NoError(t, err)

	require.NoError(t, region.Close())
	require.NoError(t, region.Close(), "second close")

	require.ErrorIs(t, region.Load([]byte{1}), memory.ErrClosed)
	require.ErrorIs(t, region.Register(&fakeVM{}, 0, 0), memory.ErrClosed)
	assert.Zero(t, region.Size())
}
