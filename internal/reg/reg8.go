// https://github.com/usbarmory/virtio-forwarder
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package reg

import "unsafe"

// As sync/atomic does not provide 8-bit support, note that these functions
// do not necessarily enforce memory ordering on their own.

func Read8(addr uintptr) uint8 {
	reg := (*uint8)(unsafe.Pointer(addr))
	return *reg
}

func Write8(addr uintptr, val uint8) {
	reg := (*uint8)(unsafe.Pointer(addr))
	*reg = val
}
