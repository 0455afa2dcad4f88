// https://github.com/usbarmory/virtio-forwarder
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package platform carries the small amount of ambient, target-facing
// plumbing the forwarder needs that has nothing to do with virtio
// itself: where diagnostic output goes, and what happens when
// initialization fails.
package platform

import "log"

// UARTBase is the physical base address of a 16550-compatible MMIO
// UART used by printk on a tamago build (see console_tamago.go). It
// is the caller's responsibility to set it before SetupLogging if a
// console is available; the zero value leaves printk a no-op. Unused
// on a hosted build, where Console is always os.Stdout.
var UARTBase uintptr

// SetupLogging configures the standard logger the way the rest of
// this tree expects: no timestamp prefix (there is no wall clock
// worth trusting before the network devices are up), writing to
// Console.
func SetupLogging() {
	log.SetFlags(0)
	log.SetOutput(Console)
}

// Fatal logs a fatal initialization error and halts. On a freestanding
// target there is nothing to return to, so unlike log.Fatal it never
// calls os.Exit — it just never returns.
func Fatal(format string, args ...any) {
	log.Printf("FATAL: "+format, args...)

	for {
		select {}
	}
}
