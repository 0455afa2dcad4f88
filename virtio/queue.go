// VirtIO split virtqueue support
// https://github.com/usbarmory/virtio-forwarder
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package virtio

import (
	"github.com/usbarmory/virtio-forwarder/internal/reg"
	"github.com/usbarmory/virtio-forwarder/mem"
)

// QueueSize is the fixed split virtqueue size this driver negotiates.
// The legacy MMIO transport requires the driver to pick a size no
// larger than QueueNumMax; this driver only ever asks for 1024 and
// aborts queue configuration if the device cannot offer that many.
const QueueSize = 1024

// QueueAlign is the byte alignment the used ring is padded up to,
// expressed (per the legacy virtio specification) as one less than
// the actual power-of-two alignment.
const QueueAlign = 4095

// BufferSize is the fixed size, in bytes, of every descriptor's backing
// buffer.
const BufferSize = 4096

// Descriptor flags.
const (
	descFlagNext  = 1
	descFlagWrite = 2
)

const descriptorSize = 16 // addr:8 + len:4 + flags:2 + next:2

// queueByteSize returns the number of bytes a split virtqueue of the given
// size occupies, including descriptor table, available ring, and used
// ring, following the legacy virtio-mmio layout formula.
func queueByteSize(q int) int {
	descTable := descriptorSize * q
	avail := 2 * (3 + q)
	used := 2*3 + 8*q

	return alignUp(descTable+avail, QueueAlign) + alignUp(used, QueueAlign)
}

func alignUp(x int, align int) int {
	return (x + align) &^ align
}

func availableRingOffset(q int) int {
	return descriptorSize * q
}

func usedRingOffset(q int) int {
	return alignUp(descriptorSize*q+2*(3+q), QueueAlign)
}

// Queue is one split virtqueue: a descriptor table, an available ring
// (driver produces, device consumes), a used ring (device produces,
// driver consumes), and QueueSize pre-allocated BufferSize-byte
// buffers, one per descriptor slot.
//
// A Queue is either a receive queue (descriptors carry the WRITE flag,
// so the device fills them) or a send queue (descriptors carry no
// flags, so the driver fills them before offering them); which one is
// fixed at construction.
type Queue struct {
	base    uintptr
	avail   uintptr
	used    uintptr
	receive bool

	lastSeenUsedIdx uint16
}

// newQueue allocates and zero-initializes a QueueSize split virtqueue
// plus its backing buffers out of region, wiring every descriptor i to
// buffer i, and pre-offers all QueueSize descriptors into the
// available ring.
//
// Pre-offering applies uniformly to both receive and send queues: for
// a receive queue this arms the device to fill buffers; for a send
// queue it is what makes TryTake ever return a free slot at all, since
// this driver never tracks an unpublished free list (see the doc
// comment on NewNetworkDevice).
func newQueue(region *mem.Region, receive bool) (*Queue, error) {
	size := queueByteSize(QueueSize)

	base, err := region.Allocate(size, 16)
	if err != nil {
		return nil, err
	}

	zero(base, size)

	q := &Queue{
		base:    base,
		avail:   base + uintptr(availableRingOffset(QueueSize)),
		used:    base + uintptr(usedRingOffset(QueueSize)),
		receive: receive,
	}

	flags := uint16(0)
	if receive {
		flags = descFlagWrite
	}

	for i := 0; i < QueueSize; i++ {
		addr, err := region.Allocate(BufferSize, 16)
		if err != nil {
			return nil, err
		}

		q.writeDescriptor(uint16(i), uint64(addr), BufferSize, flags, 0)
	}

	for i := 0; i < QueueSize; i++ {
		q.Offer(uint16(i))
	}

	reg.Fence()

	return q, nil
}

func zero(base uintptr, size int) {
	for i := 0; i < size; i += 4 {
		reg.Write(base+uintptr(i), 0)
	}
}

// BaseAddress returns the physical address of the queue's descriptor
// table, i.e. the start of the queue's combined memory region. It is
// divided by the negotiated guest page size to produce the value
// written to the QueuePFN register.
func (q *Queue) BaseAddress() uintptr {
	return q.base
}

func (q *Queue) descriptorAddr(idx uint16) uintptr {
	return q.base + uintptr(uint32(idx)%QueueSize)*descriptorSize
}

func (q *Queue) writeDescriptor(idx uint16, addr uint64, length uint32, flags uint16, next uint16) {
	d := q.descriptorAddr(idx)

	reg.Write64(d+0, addr)
	reg.Write(d+8, length)
	reg.Write16(d+12, flags)
	reg.Write16(d+14, next)
}

func (q *Queue) descriptorAddress(idx uint16) uint64 { return reg.Read64(q.descriptorAddr(idx) + 0) }
func (q *Queue) descriptorLength(idx uint16) uint32  { return reg.Read(q.descriptorAddr(idx) + 8) }

func (q *Queue) availIdx() uint16 {
	return reg.Read16(q.avail + 2)
}

func (q *Queue) usedIdx() uint16 {
	return reg.Read16(q.used + 2)
}

// Element represents a descriptor slot handed back to the driver by
// TryTake: the driver owns it until it is recycled with Offer.
type Element struct {
	q       *Queue
	DescIdx uint16

	// usedLen is the byte count the device reported via the used
	// ring element's len field (the number of bytes it actually
	// wrote into the buffer for a receive descriptor). It is 0 for
	// elements that were never taken from a used ring (e.g. transmit
	// descriptors addressed directly by index).
	usedLen uint32
}

// TryTake is non-blocking: it checks whether the device has returned
// any descriptor via the used ring since the last call and, if so,
// returns the oldest one. It returns (nil, false) if the queue has
// been fully drained.
func (q *Queue) TryTake() (*Element, bool) {
	reg.Fence()

	usedIdx := q.usedIdx()

	if q.lastSeenUsedIdx == usedIdx {
		return nil, false
	}

	slot := q.lastSeenUsedIdx % QueueSize
	usedElemAddr := q.used + 4 + uintptr(slot)*8
	descIdx := uint16(reg.Read(usedElemAddr)) % QueueSize
	usedLen := reg.Read(usedElemAddr + 4)

	q.lastSeenUsedIdx++

	return &Element{q: q, DescIdx: descIdx, usedLen: usedLen}, true
}

// Offer publishes a descriptor index into the available ring, handing
// ownership of its buffer to the device. It must be called exactly
// once per descriptor index returned by TryTake (or, at queue
// construction, once per pre-offered descriptor).
//
// The two writes — the ring slot, then the incremented index — are
// deliberately ordered with a fence between them: a device observing
// memory through a barrier must never see the index bump before the
// slot write it refers to.
func (q *Queue) Offer(descIdx uint16) {
	reg.Fence()

	idx := q.availIdx()
	slot := idx % QueueSize

	reg.Write16(q.avail+4+uintptr(slot)*2, descIdx)
	reg.Fence()

	reg.Write16(q.avail+2, idx+1)
	reg.Fence()
}
