// Copyright 2018 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package isatty reports whether a file is attached to a terminal.
package isatty

import "os"

// IsTerminal reports whether f is a terminal. A nil file is not.
func IsTerminal(f *os.File) bool {
	return f != nil && isTerminal(f.Fd())
}
