// VirtIO legacy network device initialization
// https://github.com/usbarmory/virtio-forwarder
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package virtio

import (
	"fmt"

	"github.com/usbarmory/virtio-forwarder/mem"
)

// NetworkCard is the virtio subsystem device ID for a network card.
const NetworkCard = 0x01

// pageSize is the guest page size this driver advertises to the
// device; the legacy transport expresses the queue address as a page
// frame number relative to this size.
const pageSize = 2048

// NetworkDevice is a legacy virtio-mmio network device, initialized
// and ready for polling: one register window, one receive queue
// (index 0), and one send queue (index 1).
type NetworkDevice struct {
	Registers Registers

	// Receive is the receive virtqueue (index 0): the device writes
	// into its buffers.
	Receive *Queue

	// Send is the send (transmit) virtqueue (index 1): the driver
	// writes into its buffers before offering them.
	Send *Queue
}

// NewNetworkDevice initializes a legacy virtio-mmio network device at
// the given physical base address, allocating its virtqueues and
// buffers out of region. It follows the legacy device initialization
// sequence (reset, ACKNOWLEDGE, DRIVER, feature negotiation
// advertising only VIRTIO_NET_F_MAC, guest page size, receive queue,
// send queue, DRIVER_OK, kick) and returns once the device is in
// steady state.
//
// Both queues are fully pre-offered at construction — including the
// send queue, which is atypical for a legacy transmit queue where
// descriptors are normally published on demand. It is kept here
// because this driver's Queue.TryTake has no notion of an unpublished
// free descriptor list: a slot becomes takeable only once the device
// has placed it on the used ring, so without pre-offering, the send
// queue would never yield a free slot to transmit into.
func NewNetworkDevice(base uintptr, region *mem.Region) (*NetworkDevice, error) {
	r := Registers{Base: base}

	if magic := r.magicValue(); magic != MAGIC {
		return nil, ErrInvalidMagic{Observed: magic}
	}

	if version := r.version(); version != 1 {
		return nil, ErrUnsupportedVersion{Observed: version}
	}

	// 1. Reset the device.
	r.SetStatus(0)

	// 2. Set the ACKNOWLEDGE status bit.
	r.SetStatusBit(Acknowledge)

	// 3. Set the DRIVER status bit.
	r.SetStatusBit(Driver)

	// 4. Feature negotiation: read the device's feature bits, then
	// advertise only the subset this driver understands.
	r.setHostFeaturesSel(0)
	_ = r.hostFeatures()

	r.setGuestFeaturesSel(0)
	r.setGuestFeatures(1 << NetFMAC)

	// 5. Guest page size.
	r.setGuestPageSize(pageSize)

	// 6-7. Configure the receive and send virtqueues.
	recv, err := configureQueue(r, 0, region, true)
	if err != nil {
		return nil, err
	}

	send, err := configureQueue(r, 1, region, false)
	if err != nil {
		return nil, err
	}

	// 8. Set DRIVER_OK.
	r.SetStatusBit(DriverOK)

	// 9. Kick the device: receive buffers are available.
	r.Notify(0)

	return &NetworkDevice{Registers: r, Receive: recv, Send: send}, nil
}

// configureQueue implements the per-queue configuration steps of the
// legacy device initialization sequence for the queue at index.
func configureQueue(r Registers, index uint32, region *mem.Region, receive bool) (*Queue, error) {
	// 1. Select the queue.
	r.SelectQueue(index)

	// 2. The queue must not already be in use.
	if pfn := r.QueuePFN(); pfn != 0 {
		return nil, ErrQueueInUse{Index: index}
	}

	// 3. The device must offer at least QueueSize slots.
	max := r.QueueNumMax()
	if max < QueueSize {
		return nil, ErrQueueTooSmall{Index: index, Max: max}
	}

	// 4. Allocate and zero the queue and its buffers.
	q, err := newQueue(region, receive)
	if err != nil {
		return nil, err
	}

	// 5. Notify the device of the chosen queue size.
	r.SetQueueNum(QueueSize)

	// 6. Notify the device of the used ring alignment.
	r.SetQueueAlign(QueueAlign + 1)

	// 7. Write the queue's physical page frame number.
	r.SetQueuePFN(uint32(q.BaseAddress() / pageSize))

	return q, nil
}

// ErrInvalidMagic indicates the device's MagicValue register did not
// read "virt".
type ErrInvalidMagic struct{ Observed uint32 }

func (e ErrInvalidMagic) Error() string {
	return fmt.Sprintf("virtio: invalid magic value %#08x", e.Observed)
}

// ErrUnsupportedVersion indicates the device's Version register did
// not read the legacy transport's expected value of 1.
type ErrUnsupportedVersion struct{ Observed uint32 }

func (e ErrUnsupportedVersion) Error() string {
	return fmt.Sprintf("virtio: unsupported interface version %d", e.Observed)
}

// ErrQueueInUse indicates a queue's QueuePFN register was non-zero at
// selection time.
type ErrQueueInUse struct{ Index uint32 }

func (e ErrQueueInUse) Error() string {
	return fmt.Sprintf("virtio: queue %d already in use", e.Index)
}

// ErrQueueTooSmall indicates a queue's QueueNumMax register read below
// QueueSize.
type ErrQueueTooSmall struct {
	Index uint32
	Max   uint32
}

func (e ErrQueueTooSmall) Error() string {
	return fmt.Sprintf("virtio: queue %d max size %d below required %d", e.Index, e.Max, QueueSize)
}
