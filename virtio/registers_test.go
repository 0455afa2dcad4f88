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

func TestRegistersStatusBit(t *testing.T) {
	backing := make([]byte, 0x80)
	r := Registers{Base: uintptr(unsafe.Pointer(&backing[0]))}

	if r.StatusBit(Driver) {
		t.Fatal("Driver status bit set before SetStatusBit")
	}

	r.SetStatusBit(Driver)

	if !r.StatusBit(Driver) {
		t.Fatal("Driver status bit not set after SetStatusBit")
	}

	r.SetStatusBit(DriverOK)

	if !r.StatusBit(Driver) || !r.StatusBit(DriverOK) {
		t.Fatal("setting DriverOK disturbed the Driver bit")
	}

	r.ClearStatusBit(Driver)

	if r.StatusBit(Driver) {
		t.Fatal("Driver status bit still set after ClearStatusBit")
	}

	if !r.StatusBit(DriverOK) {
		t.Fatal("ClearStatusBit(Driver) disturbed the DriverOK bit")
	}
}

func TestRegistersNetFeatureBit(t *testing.T) {
	backing := make([]byte, 0x80)
	base := uintptr(unsafe.Pointer(&backing[0]))
	r := Registers{Base: base}

	writeUint32(base+HostFeatures, 1<<NetFMAC)

	if !r.NetFeatureBit(NetFMAC) {
		t.Fatal("NetFeatureBit(NetFMAC) = false, want true")
	}

	if r.NetFeatureBit(NetFMAC + 1) {
		t.Fatal("NetFeatureBit reported an unset bit as set")
	}
}
