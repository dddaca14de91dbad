// Copyright 2018 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package color decorates log prefixes with ANSI colors when the output is a
// terminal.
package color

import (
	"fmt"
	"os"

	"go.dartlang.org/sdk/tools/lib/isatty"
)

type Colorfn func(format string, a ...interface{}) string

const (
	escape = "\033["
	clear  = escape + "0m"
)

type ColorCode int

// Foreground text colors
const (
	BlackFg ColorCode = iota + 30
	RedFg
	GreenFg
	YellowFg
	BlueFg
	MagentaFg
	CyanFg
	WhiteFg
	DefaultFg
)

type Color interface {
	Red(format string, a ...interface{}) string
	Green(format string, a ...interface{}) string
	Yellow(format string, a ...interface{}) string
	Blue(format string, a ...interface{}) string
	Cyan(format string, a ...interface{}) string
	DefaultColor(format string, a ...interface{}) string
	WithColor(code ColorCode, format string, a ...interface{}) string
	Enabled() bool
}

// ansi colors every string it formats; monochrome never does.
type ansi struct{}

type monochrome struct{}

func (ansi) Red(format string, a ...interface{}) string   { return colorString(RedFg, format, a...) }
func (ansi) Green(format string, a ...interface{}) string { return colorString(GreenFg, format, a...) }
func (ansi) Yellow(format string, a ...interface{}) string {
	return colorString(YellowFg, format, a...)
}
func (ansi) Blue(format string, a ...interface{}) string { return colorString(BlueFg, format, a...) }
func (ansi) Cyan(format string, a ...interface{}) string { return colorString(CyanFg, format, a...) }
func (ansi) DefaultColor(format string, a ...interface{}) string {
	return colorString(DefaultFg, format, a...)
}
func (ansi) WithColor(code ColorCode, format string, a ...interface{}) string {
	return colorString(code, format, a...)
}
func (ansi) Enabled() bool { return true }

func colorString(c ColorCode, format string, a ...interface{}) string {
	if c == DefaultFg {
		return fmt.Sprintf(format, a...)
	}
	return fmt.Sprintf("%v%vm%v%v", escape, c, fmt.Sprintf(format, a...), clear)
}

func (monochrome) Red(format string, a ...interface{}) string    { return fmt.Sprintf(format, a...) }
func (monochrome) Green(format string, a ...interface{}) string  { return fmt.Sprintf(format, a...) }
func (monochrome) Yellow(format string, a ...interface{}) string { return fmt.Sprintf(format, a...) }
func (monochrome) Blue(format string, a ...interface{}) string   { return fmt.Sprintf(format, a...) }
func (monochrome) Cyan(format string, a ...interface{}) string   { return fmt.Sprintf(format, a...) }
func (monochrome) DefaultColor(format string, a ...interface{}) string {
	return fmt.Sprintf(format, a...)
}
func (monochrome) WithColor(_ ColorCode, format string, a ...interface{}) string {
	return fmt.Sprintf(format, a...)
}
func (monochrome) Enabled() bool { return false }

// EnableColor is the value of the -color flag.
type EnableColor int

const (
	ColorNever EnableColor = iota
	ColorAuto
	ColorAlways
)

func isColorAvailable() bool {
	switch os.Getenv("TERM") {
	case "dumb", "":
		return false
	}
	return isatty.IsTerminal(os.Stdout)
}

func NewColor(enableColor EnableColor) Color {
	ec := enableColor != ColorNever
	if enableColor == ColorAuto {
		ec = isColorAvailable()
	}
	if ec {
		return ansi{}
	}
	return monochrome{}
}

func (ec *EnableColor) String() string {
	switch *ec {
	case ColorNever:
		return "never"
	case ColorAuto:
		return "auto"
	case ColorAlways:
		return "always"
	}
	return ""
}

func (ec *EnableColor) Set(s string) error {
	switch s {
	case "never":
		*ec = ColorNever
	case "auto":
		*ec = ColorAuto
	case "always":
		*ec = ColorAlways
	default:
		return fmt.Errorf("%s is not a valid color value", s)
	}
	return nil
}
