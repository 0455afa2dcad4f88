// https://github.com/usbarmory/virtio-forwarder
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package reg

import (
	"sync/atomic"
	"unsafe"
)

func Read64(addr uintptr) uint64 {
	reg := (*uint64)(unsafe.Pointer(addr))
	return atomic.LoadUint64(reg)
}

func Write64(addr uintptr, val uint64) {
	reg := (*uint64)(unsafe.Pointer(addr))
	atomic.StoreUint64(reg, val)
}
