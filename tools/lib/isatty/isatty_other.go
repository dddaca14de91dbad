// Copyright 2018 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !linux
// +build !linux

package isatty

// Color is only enabled automatically on Linux.
func isTerminal(fd uintptr) bool {
	return false
}
