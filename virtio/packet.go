// VirtIO-net legacy packet framing
// https://github.com/usbarmory/virtio-forwarder
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package virtio

import (
	"unsafe"
)

// NetHeaderSize is the size, in bytes, of the virtio-net legacy short
// header that precedes every Ethernet frame in a descriptor's buffer.
const NetHeaderSize = 10

// NetHeader is the virtio-net legacy header (short variant, no
// mergeable receive buffers, no merged receive heads), packed and
// little-endian, as laid out at the start of every descriptor buffer.
type NetHeader struct {
	Flags          uint8
	GSOType        uint8
	HdrLen         uint16
	GSOSize        uint16
	ChecksumStart  uint16
	ChecksumOffset uint16
}

// AsNetworkPacket interprets e's descriptor buffer as a virtio-net
// legacy frame: a 10-byte header followed by the Ethernet frame. The
// payload slice is bounded by the number of bytes the device actually
// wrote (the used ring element's len field, capped to the descriptor's
// buffer capacity), not the full BufferSize capacity — so a caller
// never processes trailing uninitialized buffer bytes. A len of 0 (an
// element not taken from a used ring) falls back to the descriptor's
// full buffer capacity. This resolves
// the "dead len field" weakness noted against the reference driver,
// which instead always returned BufferSize-NetHeaderSize bytes
// regardless of how much the device actually wrote.
func (e *Element) AsNetworkPacket() (NetHeader, []byte) {
	addr := uintptr(e.q.descriptorAddress(e.DescIdx))
	capacity := int(e.q.descriptorLength(e.DescIdx))

	length := int(e.usedLen)
	if length == 0 || length > capacity {
		length = capacity
	}

	hdr := *(*NetHeader)(unsafe.Pointer(addr))

	if length < NetHeaderSize {
		return hdr, nil
	}

	payload := unsafe.Slice((*byte)(unsafe.Pointer(addr+NetHeaderSize)), length-NetHeaderSize)

	return hdr, payload
}

// CopyFrom copies the contents of src's descriptor buffer into e's
// descriptor buffer, bounded by e's own descriptor length (both
// queues in this driver always use BufferSize-sized buffers, so the
// two are always compatible).
func (e *Element) CopyFrom(src *Element) {
	dstLen := int(e.q.descriptorLength(e.DescIdx))
	dstAddr := uintptr(e.q.descriptorAddress(e.DescIdx))
	srcAddr := uintptr(src.q.descriptorAddress(src.DescIdx))

	dst := unsafe.Slice((*byte)(unsafe.Pointer(dstAddr)), dstLen)
	source := unsafe.Slice((*byte)(unsafe.Pointer(srcAddr)), dstLen)

	copy(dst, source)
}
