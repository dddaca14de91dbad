// Copyright 2021 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"io"
	"io/ioutil"
	"os"
	"strings"

	"github.com/google/subcommands"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.dartlang.org/sdk/tools/dom/lib/idl"
	"go.dartlang.org/sdk/tools/lib/logger"
	"go.dartlang.org/sdk/tools/lib/osmisc"
)

type fmtCommand struct {
	syntax idl.Syntax
	write  bool
	out    io.Writer
}

func (*fmtCommand) Name() string { return "fmt" }

func (*fmtCommand) Synopsis() string {
	return "prints IDL files in canonical form"
}

func (*fmtCommand) Usage() string {
	return `idlgen fmt [-syntax fremontcut] [-w] <file>...

flags:
`
}

func (c *fmtCommand) SetFlags(f *flag.FlagSet) {
	c.syntax = idl.FremontCutSyntax
	f.Var(&syntaxFlag{&c.syntax}, "syntax", "dialect of the input, can be webidl, webkit or fremontcut")
	f.BoolVar(&c.write, "w", false, "rewrite files in place instead of printing them")
}

func (c *fmtCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		return subcommands.ExitUsageError
	}
	if c.out == nil {
		c.out = os.Stdout
	}
	var errs error
	for _, path := range f.Args() {
		errs = multierr.Append(errs, c.format(ctx, path))
	}
	if errs != nil {
		logger.Errorf(ctx, "%v", errs)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *fmtCommand) format(ctx context.Context, path string) error {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return err
	}
	formatted, err := formatIDL(path, string(data), c.syntax)
	if err != nil {
		return err
	}
	if !c.write {
		_, err := io.WriteString(c.out, formatted)
		return err
	}
	changed, err := osmisc.WriteFileIfChanged(path, []byte(formatted))
	if changed {
		logger.Infof(ctx, "formatted %s", path)
	}
	return err
}

// formatIDL renders src canonically, keeping the comment lines that head
// the file.
func formatIDL(filename, src string, syntax idl.Syntax) (string, error) {
	file, err := idl.Parse(filename, src, syntax)
	if err != nil {
		return "", err
	}
	var header strings.Builder
	for _, line := range strings.SplitAfter(src, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "//") && trimmed != "" {
			break
		}
		header.WriteString(line)
	}
	return header.String() + idl.Render(file), nil
}

// syntaxFlag adapts idl.Syntax to flag.Value.
type syntaxFlag struct {
	s *idl.Syntax
}

func (f *syntaxFlag) String() string {
	if f.s == nil {
		return ""
	}
	return f.s.String()
}

func (f *syntaxFlag) Set(value string) error {
	s, err := idl.ParseSyntax(value)
	if err != nil {
		return errors.Wrapf(err, "invalid syntax %q", value)
	}
	*f.s = s
	return nil
}
