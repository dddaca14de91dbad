// Copyright 2021 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// idlgen builds the merged interface database from upstream IDL and
// generates code from it.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/google/subcommands"

	"go.dartlang.org/sdk/tools/lib/color"
	"go.dartlang.org/sdk/tools/lib/command"
	"go.dartlang.org/sdk/tools/lib/logger"
)

var (
	colors = color.ColorAuto
	level  = logger.InfoLevel
)

func init() {
	flag.Var(&colors, "color", "use color in output, can be never, auto, always")
	flag.Var(&level, "level", "output verbosity, can be no, error, warning, info, debug or trace")
}

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(&buildCommand{}, "")
	subcommands.Register(&generateCommand{}, "")
	subcommands.Register(&fmtCommand{}, "")
	subcommands.Register(&dumpCommand{}, "")

	flag.Parse()

	l := logger.NewLogger(level, color.NewColor(colors), os.Stdout, os.Stderr, "idlgen ")
	const logFlags = log.Ltime | log.Lshortfile
	l.SetFlags(logFlags)
	ctx := logger.WithLogger(context.Background(), l)

	ctx, cancel := command.CancelOnSignals(ctx)
	status := subcommands.Execute(ctx)
	if status == subcommands.ExitSuccess && l.Warnings() > 0 {
		logger.Infof(ctx, "finished with %d warnings", l.Warnings())
	}
	cancel()
	os.Exit(int(status))
}
