// https://github.com/usbarmory/virtio-forwarder
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package virtio

import (
	"testing"
	"unsafe"
)

func TestAsNetworkPacketSplitsHeader(t *testing.T) {
	region := newTestRegion(t)

	q, err := newQueue(region, true)
	if err != nil {
		t.Fatal(err)
	}

	buf := q.descriptorAddress(0)
	frame := []byte{0xde, 0xad, 0xbe, 0xef, 0x42}

	for i, b := range frame {
		*(*byte)(unsafe.Pointer(uintptr(buf) + NetHeaderSize + uintptr(i))) = b
	}

	elem := &Element{q: q, DescIdx: 0, usedLen: uint32(NetHeaderSize + len(frame))}

	_, payload := elem.AsNetworkPacket()

	if len(payload) != len(frame) {
		t.Fatalf("len(payload) = %d, want %d", len(payload), len(frame))
	}

	for i, b := range frame {
		if payload[i] != b {
			t.Fatalf("payload[%d] = %#x, want %#x", i, payload[i], b)
		}
	}
}

func TestAsNetworkPacketTooShortYieldsNilPayload(t *testing.T) {
	region := newTestRegion(t)

	q, err := newQueue(region, true)
	if err != nil {
		t.Fatal(err)
	}

	elem := &Element{q: q, DescIdx: 0, usedLen: NetHeaderSize - 1}

	_, payload := elem.AsNetworkPacket()

	if payload != nil {
		t.Fatalf("payload = %v, want nil", payload)
	}
}

func TestAsNetworkPacketCapsToCapacity(t *testing.T) {
	region := newTestRegion(t)

	q, err := newQueue(region, true)
	if err != nil {
		t.Fatal(err)
	}

	elem := &Element{q: q, DescIdx: 0, usedLen: BufferSize * 2}

	_, payload := elem.AsNetworkPacket()

	if len(payload) != BufferSize-NetHeaderSize {
		t.Fatalf("len(payload) = %d, want %d", len(payload), BufferSize-NetHeaderSize)
	}
}

func TestCopyFrom(t *testing.T) {
	region := newTestRegion(t)

	send, err := newQueue(region, false)
	if err != nil {
		t.Fatal(err)
	}

	recv, err := newQueue(region, true)
	if err != nil {
		t.Fatal(err)
	}

	srcAddr := recv.descriptorAddress(3)
	*(*byte)(unsafe.Pointer(uintptr(srcAddr))) = 0x7a

	dst := &Element{q: send, DescIdx: 1}
	src := &Element{q: recv, DescIdx: 3}

	dst.CopyFrom(src)

	dstAddr := send.descriptorAddress(1)
	if got := *(*byte)(unsafe.Pointer(uintptr(dstAddr))); got != 0x7a {
		t.Fatalf("first copied byte = %#x, want 0x7a", got)
	}
}
