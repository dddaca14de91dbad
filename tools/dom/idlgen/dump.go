// Copyright 2021 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"
	"github.com/kr/pretty"

	"go.dartlang.org/sdk/tools/dom/lib/database"
	"go.dartlang.org/sdk/tools/dom/lib/idl"
	"go.dartlang.org/sdk/tools/lib/logger"
)

type dumpCommand struct {
	db       string
	format   string
	useCache bool
	out      io.Writer
}

func (*dumpCommand) Name() string { return "dump" }

func (*dumpCommand) Synopsis() string {
	return "prints interfaces of the database"
}

func (*dumpCommand) Usage() string {
	return `idlgen dump -db <dir> [-format idl|go] [-cache] [interface]...

Prints the named interfaces, or all of them.

flags:
`
}

func (c *dumpCommand) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.db, "db", "", "database directory")
	f.StringVar(&c.format, "format", "idl", "output format, can be idl or go")
	f.BoolVar(&c.useCache, "cache", false, "read the database cache when there is one")
}

func (c *dumpCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.db == "" || (c.format != "idl" && c.format != "go") {
		return subcommands.ExitUsageError
	}
	if c.out == nil {
		c.out = os.Stdout
	}
	if err := c.dump(ctx, f.Args()); err != nil {
		logger.Errorf(ctx, "%v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *dumpCommand) dump(ctx context.Context, ids []string) error {
	db, err := database.New(c.db)
	if err != nil {
		return err
	}
	if c.useCache {
		err = db.LoadFromCache(ctx)
	} else {
		err = db.Load(ctx)
	}
	if err != nil {
		return err
	}

	var interfaces []*idl.Interface
	if len(ids) == 0 {
		interfaces = db.Interfaces()
	}
	for _, id := range ids {
		i, err := db.GetInterface(id)
		if err != nil {
			return err
		}
		interfaces = append(interfaces, i)
	}
	for _, i := range interfaces {
		switch c.format {
		case "go":
			_, err = pretty.Fprintf(c.out, "%# v\n", i)
		default:
			_, err = fmt.Fprintln(c.out, idl.Render(i))
		}
		if err != nil {
			return err
		}
	}
	return nil
}
