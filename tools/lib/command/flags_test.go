// Copyright 2019 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package command

import (
	"flag"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestStringsFlag(t *testing.T) {
	var systems StringsFlag
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Var(&systems, "system", "")
	if err := fs.Parse([]string{"-system", "summary", "-system", "html"}); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(StringsFlag{"summary", "html"}, systems); diff != "" {
		t.Errorf("systems mismatch (-want +got):\n%s", diff)
	}
	if got := systems.String(); got != "summary, html" {
		t.Errorf("String() = %q", got)
	}
}
