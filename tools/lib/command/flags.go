// Copyright 2019 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package command

import (
	"strings"
)

// StringsFlag is a flag.Value that collects every occurrence of a repeated
// string flag.
type StringsFlag []string

func (s *StringsFlag) String() string {
	if s == nil {
		return ""
	}
	return strings.Join(*s, ", ")
}

func (s *StringsFlag) Set(value string) error {
	*s = append(*s, value)
	return nil
}
