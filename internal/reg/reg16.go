// https://github.com/usbarmory/virtio-forwarder
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package reg

import "unsafe"

// As sync/atomic does not provide 16-bit support, note that these functions
// do not necessarily enforce memory ordering on their own; callers that need
// ordering guarantees (e.g. virtqueue ring index updates) bracket them with
// Fence.

func Read16(addr uintptr) uint16 {
	reg := (*uint16)(unsafe.Pointer(addr))
	return *reg
}

func Write16(addr uintptr, val uint16) {
	reg := (*uint16)(unsafe.Pointer(addr))
	*reg = val
}
