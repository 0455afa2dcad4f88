// https://github.com/usbarmory/virtio-forwarder
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package reg provides primitives for retrieving and modifying
// memory-mapped hardware registers and other memory shared with a
// concurrently-executing device, with volatile-access discipline.
package reg

import (
	"sync/atomic"
	"unsafe"
)

func Get(addr uintptr, pos int, mask int) uint32 {
	reg := (*uint32)(unsafe.Pointer(addr))
	r := atomic.LoadUint32(reg)

	return uint32((int(r) >> pos) & mask)
}

func Set(addr uintptr, pos int) {
	reg := (*uint32)(unsafe.Pointer(addr))

	r := atomic.LoadUint32(reg)
	r |= (1 << pos)

	atomic.StoreUint32(reg, r)
}

func Clear(addr uintptr, pos int) {
	reg := (*uint32)(unsafe.Pointer(addr))

	r := atomic.LoadUint32(reg)
	r &= ^(1 << pos)

	atomic.StoreUint32(reg, r)
}

func Read(addr uintptr) uint32 {
	reg := (*uint32)(unsafe.Pointer(addr))
	return atomic.LoadUint32(reg)
}

func Write(addr uintptr, val uint32) {
	reg := (*uint32)(unsafe.Pointer(addr))
	atomic.StoreUint32(reg, val)
}

// Fence issues a full acquire/release memory barrier bracketing
// driver/device ring updates. Every 32- and 64-bit read and write in this
// package already goes through sync/atomic (the 8- and 16-bit accessors do
// not, see reg8.go and reg16.go), which the Go memory model gives
// sequentially consistent ordering on every architecture tamago-derived
// targets run on; Fence exists so call sites can mark the exact points the
// virtio specification requires a barrier, mirroring the reference driver's
// explicit atomic::fence(Ordering::AcqRel) calls, without every call site
// having to reason about whether a given load/store already implied one.
func Fence() {
	var barrier uint32
	atomic.StoreUint32(&barrier, atomic.LoadUint32(&barrier)+1)
}
