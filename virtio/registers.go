// VirtIO legacy MMIO register window
// https://github.com/usbarmory/virtio-forwarder
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package virtio implements a legacy (pre-1.0) virtio-mmio network
// device driver: the device initialization handshake, the split
// virtqueue it configures, and the virtio-net packet framing carried
// over each queue's buffers.
//
// This package assumes a physically addressed, cache-coherent,
// little-endian host and a fully functional virtio-mmio device at a
// caller-supplied base address, following the legacy transport of the
// Virtual I/O Device (VIRTIO) specification (pre-1.0, "legacy"
// interface: no FEATURES_OK step, queue address programmed as a page
// frame number).
package virtio

import (
	"github.com/usbarmory/virtio-forwarder/internal/reg"
)

// MAGIC is the fixed value of the MagicValue register ("virt" in
// little-endian ASCII).
const MAGIC = 0x74726976

// VirtIO MMIO legacy device registers, offsets relative to Base.
const (
	MagicValue       = 0x000
	Version          = 0x004
	DeviceID         = 0x008
	VendorID         = 0x00c
	HostFeatures     = 0x010
	HostFeaturesSel  = 0x014
	GuestFeatures    = 0x020
	GuestFeaturesSel = 0x024
	GuestPageSize    = 0x028
	QueueSel         = 0x030
	QueueNumMax      = 0x034
	QueueNum         = 0x038
	QueueAlignReg    = 0x03c
	QueuePFN         = 0x040
	QueueNotify      = 0x050
	InterruptStatus  = 0x060
	InterruptACK     = 0x064
	DeviceStatus     = 0x070
)

// DeviceStatus bits.
const (
	Acknowledge      = 0
	Driver           = 1
	DriverOK         = 2
	FeaturesOK       = 3
	DeviceNeedsReset = 6
	Failed           = 7
)

// NetFeatureBits0 bits (VIRTIO_NET_F_* feature bits 0..31).
const (
	NetFMAC = 5
)

// Registers is a handle over a legacy virtio-mmio device's register
// block. Every access is a single volatile 32-bit load or store at a
// fixed offset from Base; the window is logically aliased with the
// device itself, so ownership is "exclusive use by one driver
// instance" rather than "exclusive data ownership."
type Registers struct {
	Base uintptr
}

func (r Registers) addr(offset uintptr) uintptr {
	return r.Base + offset
}

// magicValue returns the MagicValue register.
func (r Registers) magicValue() uint32 { return reg.Read(r.addr(MagicValue)) }

// version returns the Version register.
func (r Registers) version() uint32 { return reg.Read(r.addr(Version)) }

// DeviceType returns the DeviceID register.
func (r Registers) DeviceType() uint32 { return reg.Read(r.addr(DeviceID)) }

// setHostFeaturesSel selects the 32-bit window of HostFeatures to read next.
func (r Registers) setHostFeaturesSel(sel uint32) { reg.Write(r.addr(HostFeaturesSel), sel) }

// hostFeatures returns the currently-selected window of device feature bits.
func (r Registers) hostFeatures() uint32 { return reg.Read(r.addr(HostFeatures)) }

// setGuestFeaturesSel selects the 32-bit window of GuestFeatures to write next.
func (r Registers) setGuestFeaturesSel(sel uint32) { reg.Write(r.addr(GuestFeaturesSel), sel) }

// setGuestFeatures writes the currently-selected window of driver feature bits.
func (r Registers) setGuestFeatures(features uint32) { reg.Write(r.addr(GuestFeatures), features) }

// setGuestPageSize writes the GuestPageSize register.
func (r Registers) setGuestPageSize(size uint32) { reg.Write(r.addr(GuestPageSize), size) }

// SelectQueue writes the QueueSel register.
func (r Registers) SelectQueue(index uint32) { reg.Write(r.addr(QueueSel), index) }

// QueueNumMax returns the maximum size of the currently-selected queue.
func (r Registers) QueueNumMax() uint32 { return reg.Read(r.addr(QueueNumMax)) }

// SetQueueNum writes the QueueNum register for the currently-selected queue.
func (r Registers) SetQueueNum(n uint32) { reg.Write(r.addr(QueueNum), n) }

// SetQueueAlign writes the QueueAlign register for the currently-selected queue.
func (r Registers) SetQueueAlign(align uint32) { reg.Write(r.addr(QueueAlignReg), align) }

// QueuePFN returns the physical page frame number of the currently-selected
// queue, or 0 if the queue is unconfigured.
func (r Registers) QueuePFN() uint32 { return reg.Read(r.addr(QueuePFN)) }

// SetQueuePFN writes the physical page frame number of the
// currently-selected queue.
func (r Registers) SetQueuePFN(pfn uint32) { reg.Write(r.addr(QueuePFN), pfn) }

// Notify writes the QueueNotify register, kicking the device to process the
// indexed queue.
func (r Registers) Notify(index uint32) { reg.Write(r.addr(QueueNotify), index) }

// Status returns the DeviceStatus register.
func (r Registers) Status() uint32 { return reg.Read(r.addr(DeviceStatus)) }

// SetStatus writes the DeviceStatus register outright (used only for reset).
func (r Registers) SetStatus(status uint32) { reg.Write(r.addr(DeviceStatus), status) }

// SetStatusBit sets a single DeviceStatus bit without disturbing the others.
func (r Registers) SetStatusBit(bit int) { reg.Set(r.addr(DeviceStatus), bit) }

// ClearStatusBit clears a single DeviceStatus bit without disturbing
// the others.
func (r Registers) ClearStatusBit(bit int) { reg.Clear(r.addr(DeviceStatus), bit) }

// StatusBit reports whether a single DeviceStatus bit is set.
func (r Registers) StatusBit(bit int) bool { return reg.Get(r.addr(DeviceStatus), bit, 1) != 0 }

// NetFeatureBit reports whether the device advertises a given
// VIRTIO_NET_F_* bit in feature window 0 of HostFeatures.
func (r Registers) NetFeatureBit(bit int) bool {
	r.setHostFeaturesSel(0)
	return reg.Get(r.addr(HostFeatures), bit, 1) != 0
}
