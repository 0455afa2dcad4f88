// L2 packet forwarding between two virtio-net devices
// https://github.com/usbarmory/virtio-forwarder
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package forwarder implements the steady-state forwarding loop: IPv4
// frames arriving on the ingress virtio-net device are copied onto
// the egress device and transmitted, every other frame is dropped,
// and the ingress buffer is always recycled back to the device.
package forwarder

import (
	"log"

	"gvisor.dev/gvisor/pkg/tcpip/header"

	"github.com/usbarmory/virtio-forwarder/virtio"
)

// Forwarder moves Ethernet frames from one virtio-net device to
// another, forwarding only IPv4 traffic.
type Forwarder struct {
	ingress *virtio.NetworkDevice
	egress  *virtio.NetworkDevice
}

// New returns a Forwarder that polls ingress for received frames and,
// for IPv4 traffic, transmits them on egress.
func New(ingress, egress *virtio.NetworkDevice) *Forwarder {
	return &Forwarder{ingress: ingress, egress: egress}
}

// Step performs one iteration of the forwarding loop: it takes at
// most one received descriptor from the ingress device, decides
// whether to forward it, and always returns the descriptor to the
// ingress device's available ring before returning. It reports
// whether a frame was present to process (forwarded or not); forwarded
// reports whether that frame was actually placed on the egress queue.
func (f *Forwarder) Step() (present bool, forwarded bool) {
	elem, ok := f.ingress.Receive.TryTake()
	if !ok {
		return false, false
	}

	defer f.ingress.Receive.Offer(elem.DescIdx)

	_, payload := elem.AsNetworkPacket()

	if shouldForward(payload) {
		if f.transmit(elem) {
			forwarded = true
		}
	}

	return true, forwarded
}

// shouldForward reports whether a received Ethernet frame should be
// forwarded: only IPv4 traffic is, anything too short to carry an
// EtherType, ARP, IPv6, or any other protocol is dropped.
func shouldForward(frame []byte) bool {
	if len(frame) < header.EthernetMinimumSize {
		return false
	}

	return header.Ethernet(frame).Type() == header.IPv4ProtocolNumber
}

// transmit hands the received frame off to the egress device: it
// takes a free send descriptor, copies the frame into it, offers it,
// and notifies the device. It reports false if the egress device has
// no free send descriptor available, in which case the frame is
// dropped.
func (f *Forwarder) transmit(src *virtio.Element) bool {
	out, ok := f.egress.Send.TryTake()
	if !ok {
		log.Printf("forwarder: egress send queue has no free descriptor, dropping frame")
		return false
	}

	out.CopyFrom(src)
	f.egress.Send.Offer(out.DescIdx)
	f.egress.Registers.Notify(1)

	return true
}

// Run calls Step in a tight loop until stop is closed or receives a
// value. It never returns otherwise: on a bare-metal target there is
// no other work to yield to.
func (f *Forwarder) Run(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}

		f.Step()
	}
}
