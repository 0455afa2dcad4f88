// https://github.com/usbarmory/virtio-forwarder
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tamago

package platform

import (
	_ "unsafe"

	"github.com/usbarmory/virtio-forwarder/internal/reg"
)

// 16550-compatible MMIO UART registers, one byte apart.
const (
	thr     = 0x00
	lsr     = 0x05
	lsrThre = 5
)

// printk is linked out under runtime.printk, giving the Go runtime an
// early console it can use for print/println and pre-panic
// diagnostics before any driver is initialized — the same role
// `board/qemu/microvm/console.go`'s printk plays for its own target.
// It is a no-op until UARTBase is set: this driver's correctness
// contract does not depend on a console being present.
//
//go:linkname printk runtime.printk
func printk(c byte) {
	if UARTBase == 0 {
		return
	}

	for reg.Read8(UARTBase+lsr)&(1<<lsrThre) == 0 {
	}

	reg.Write8(UARTBase+thr, c)
}

// consoleWriter emits diagnostic output one byte at a time through
// the same printk hook the runtime uses.
type consoleWriter struct{}

func (consoleWriter) Write(buf []byte) (int, error) {
	for _, c := range buf {
		printk(c)
	}

	return len(buf), nil
}

// Console is the destination for diagnostic output on a tamago
// target: every byte is routed through printk.
var Console = consoleWriter{}
