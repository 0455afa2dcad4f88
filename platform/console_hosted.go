// https://github.com/usbarmory/virtio-forwarder
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build !tamago

package platform

import "os"

// Console is the destination for diagnostic output. Outside of a
// tamago build it is the host's standard output, so the package
// remains usable under `go test` and on a development machine.
var Console = os.Stdout
