// Physical memory arena for DMA-visible driver structures
// https://github.com/usbarmory/virtio-forwarder
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package mem provides a bump allocator over a caller-supplied,
// physically contiguous memory window.
//
// Unlike tamago's dma.Region, which supports Alloc/Free with a
// first-fit free list for general purpose DMA buffers, Region never
// frees: every virtqueue and buffer a driver allocates lives for the
// lifetime of the program, so a monotonic cursor is the entire
// allocation discipline required.
package mem

import "errors"

// ErrExhausted is returned by Allocate once the region's capacity has
// been consumed.
var ErrExhausted = errors.New("mem: region exhausted")

// Region represents a contiguous, physically addressed memory window
// handed out one allocation at a time. It is never freed.
type Region struct {
	// Base is the physical start address of the window.
	Base uintptr
	// Capacity is the window size in bytes.
	Capacity uintptr

	cursor uintptr
}

// NewRegion returns a Region covering [base, base+capacity).
func NewRegion(base uintptr, capacity uintptr) *Region {
	return &Region{Base: base, Capacity: capacity}
}

// Allocate reserves len bytes aligned to align (which must be a power
// of two) and advances the region's cursor past them. It returns
// ErrExhausted if the allocation would run past the region's capacity.
func (r *Region) Allocate(length int, align int) (uintptr, error) {
	if length < 0 {
		return 0, errors.New("mem: negative length")
	}

	cursor := alignUp(r.Base+r.cursor, uintptr(align)) - r.Base
	end := cursor + uintptr(length)

	if end < cursor || end > r.Capacity {
		return 0, ErrExhausted
	}

	r.cursor = end

	return r.Base + cursor, nil
}

// Used reports how many bytes of the region have been handed out,
// including any padding consumed for alignment.
func (r *Region) Used() uintptr {
	return r.cursor
}

func alignUp(x uintptr, align uintptr) uintptr {
	if align <= 1 {
		return x
	}

	return (x + align - 1) &^ (align - 1)
}
