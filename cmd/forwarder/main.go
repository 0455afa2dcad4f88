// Two-NIC virtio-net packet forwarder
// https://github.com/usbarmory/virtio-forwarder
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package main

import (
	"log"

	"github.com/usbarmory/virtio-forwarder/forwarder"
	"github.com/usbarmory/virtio-forwarder/mem"
	"github.com/usbarmory/virtio-forwarder/platform"
	"github.com/usbarmory/virtio-forwarder/virtio"
)

// Fixed physical layout of the target platform: two legacy
// virtio-mmio network devices and a single DMA-capable memory window
// the driver carves virtqueues and packet buffers out of.
const (
	ingressBase = 0x000000000a003e00
	egressBase  = 0x000000000a003c00

	memoryBase = 0x46000000
	memorySize = 0x1000000

	// Optional debug UART, not part of the correctness contract.
	uartBase = 0x09000000
)

func main() {
	platform.UARTBase = uartBase
	platform.SetupLogging()

	region := mem.NewRegion(memoryBase, memorySize)

	ingress, err := virtio.NewNetworkDevice(ingressBase, region)
	if err != nil {
		platform.Fatal("ingress device initialization failed: %v", err)
	}

	egress, err := virtio.NewNetworkDevice(egressBase, region)
	if err != nil {
		platform.Fatal("egress device initialization failed: %v", err)
	}

	log.Printf("virtio-forwarder: ingress %#x, egress %#x, ready", ingressBase, egressBase)

	forwarder.New(ingress, egress).Run(nil)
}
