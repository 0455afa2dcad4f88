// https://github.com/usbarmory/virtio-forwarder
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package virtio

import (
	"runtime"
	"testing"
	"unsafe"

	"github.com/usbarmory/virtio-forwarder/mem"
)

// newMockRegisters backs a legacy virtio-mmio register window onto
// ordinary heap memory, pre-populated as a well-behaved network
// device would answer during initialization.
func newMockRegisters(t *testing.T, queueNumMax uint32) uintptr {
	t.Helper()

	backing := make([]byte, 0x80)
	base := uintptr(unsafe.Pointer(&backing[0]))

	writeUint32(base+MagicValue, MAGIC)
	writeUint32(base+Version, 1)
	writeUint32(base+DeviceID, NetworkCard)
	writeUint32(base+QueueNumMax, queueNumMax)

	// base is a bare uintptr: keep the backing array reachable for the
	// whole test so the collector cannot reclaim it.
	t.Cleanup(func() { runtime.KeepAlive(backing) })

	return base
}

func newMockRegion(t *testing.T) *mem.Region {
	t.Helper()

	const size = 2 * (32768 + QueueSize*BufferSize)
	backing := make([]byte, size)
	base := uintptr(unsafe.Pointer(&backing[0]))
	t.Cleanup(func() { runtime.KeepAlive(backing) })

	return mem.NewRegion(base, uintptr(size))
}

func TestNewNetworkDeviceHandshake(t *testing.T) {
	base := newMockRegisters(t, QueueSize)
	region := newMockRegion(t)

	dev, err := NewNetworkDevice(base, region)
	if err != nil {
		t.Fatal(err)
	}

	r := Registers{Base: base}

	status := r.Status()
	for _, bit := range []int{Acknowledge, Driver, DriverOK} {
		if status&(1<<uint(bit)) == 0 {
			t.Fatalf("DeviceStatus bit %d not set, status = %#x", bit, status)
		}
	}

	if dev.Receive == nil || dev.Send == nil {
		t.Fatal("NewNetworkDevice did not configure both queues")
	}

	if dev.Receive.BaseAddress() == dev.Send.BaseAddress() {
		t.Fatal("receive and send queues share the same base address")
	}
}

func TestNewNetworkDeviceRejectsBadMagic(t *testing.T) {
	base := newMockRegisters(t, QueueSize)
	writeUint32(base+MagicValue, 0)

	region := newMockRegion(t)

	_, err := NewNetworkDevice(base, region)
	if _, ok := err.(ErrInvalidMagic); !ok {
		t.Fatalf("error = %v (%T), want ErrInvalidMagic", err, err)
	}
}

func TestNewNetworkDeviceRejectsBadVersion(t *testing.T) {
	base := newMockRegisters(t, QueueSize)
	writeUint32(base+Version, 2)

	region := newMockRegion(t)

	_, err := NewNetworkDevice(base, region)
	if _, ok := err.(ErrUnsupportedVersion); !ok {
		t.Fatalf("error = %v (%T), want ErrUnsupportedVersion", err, err)
	}
}

// TestNewNetworkDeviceRejectsSmallQueue covers the E5 scenario: a
// device that only offers 512-deep queues must abort initialization
// rather than silently negotiating a smaller queue size.
func TestNewNetworkDeviceRejectsSmallQueue(t *testing.T) {
	base := newMockRegisters(t, 512)
	region := newMockRegion(t)

	_, err := NewNetworkDevice(base, region)
	if _, ok := err.(ErrQueueTooSmall); !ok {
		t.Fatalf("error = %v (%T), want ErrQueueTooSmall", err, err)
	}
}
