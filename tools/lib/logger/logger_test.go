// Copyright 2019 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"go.dartlang.org/sdk/tools/lib/color"
)

func TestWithContext(t *testing.T) {
	l := NewLogger(DebugLevel, color.NewColor(color.ColorNever), nil, nil, "")
	ctx := context.Background()
	if v := LoggerFromContext(ctx); v != nil {
		t.Fatalf("Default context should not carry a logger, got %+v", v)
	}
	ctx = WithLogger(ctx, l)
	if v := LoggerFromContext(ctx); v != l {
		t.Fatalf("Updated context should carry the logger")
	}
}

func TestLevels(t *testing.T) {
	var out, errOut bytes.Buffer
	l := NewLogger(WarningLevel, color.NewColor(color.ColorNever), &out, &errOut, "idlgen ")
	l.SetFlags(0)
	ctx := WithLogger(context.Background(), l)

	Infof(ctx, "hidden")
	Warningf(ctx, "dropping %s", "member")
	Errorf(ctx, "broken")

	if got, want := out.String(), "idlgen WARN: dropping member\n"; got != want {
		t.Errorf("stdout = %q, want %q", got, want)
	}
	if !strings.Contains(errOut.String(), "ERROR: broken") {
		t.Errorf("stderr = %q, want it to contain the error", errOut.String())
	}
}

func TestWarningsCountedWhenSuppressed(t *testing.T) {
	var out bytes.Buffer
	l := NewLogger(ErrorLevel, color.NewColor(color.ColorNever), &out, &out, "")
	l.Warningf("one")
	l.Warningf("two")
	if l.Warnings() != 2 {
		t.Errorf("Warnings() = %d, want 2", l.Warnings())
	}
	if out.Len() != 0 {
		t.Errorf("suppressed warnings were printed: %q", out.String())
	}
}

func TestScope(t *testing.T) {
	var out bytes.Buffer
	root := NewLogger(InfoLevel, color.NewColor(color.ColorNever), &out, &out, "idlgen ")
	root.SetFlags(0)
	ctx := WithScope(WithLogger(context.Background(), root), "generate")
	ctx = WithScope(ctx, "summary")

	Warningf(ctx, "removing %s", "draw")
	Infof(ctx, "done")

	want := "idlgen [generate/summary] WARN: removing draw\nidlgen [generate/summary] done\n"
	if got := out.String(); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
	if root.Warnings() != 1 {
		t.Errorf("root Warnings() = %d, want the scoped warning counted", root.Warnings())
	}
	if LoggerFromContext(ctx) == root {
		t.Errorf("WithScope should attach a derived logger")
	}
}

func TestScopeWithoutLogger(t *testing.T) {
	ctx := context.Background()
	if WithScope(ctx, "build") != ctx {
		t.Errorf("WithScope without a logger should return ctx unchanged")
	}
}

func TestLogLevelFlag(t *testing.T) {
	var level LogLevel
	if err := level.Set("debug"); err != nil {
		t.Fatal(err)
	}
	if level != DebugLevel || level.String() != "debug" {
		t.Errorf("Set(debug) gave %v", level)
	}
	if err := level.Set("fatal"); err == nil {
		t.Errorf("Set(fatal) should fail")
	}
	if err := level.Set("loud"); err == nil {
		t.Errorf("Set(loud) should fail")
	}
}
