// Copyright 2021 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"context"
	"flag"

	"github.com/google/subcommands"

	"go.dartlang.org/sdk/tools/dom/lib/database"
	"go.dartlang.org/sdk/tools/dom/lib/databasebuilder"
	"go.dartlang.org/sdk/tools/lib/logger"
)

type buildCommand struct {
	config      string
	incremental bool
}

func (*buildCommand) Name() string { return "build" }

func (*buildCommand) Synopsis() string {
	return "merges the configured IDL sources into the interface database"
}

func (*buildCommand) Usage() string {
	return `idlgen build -config <file> [-incremental]

Imports every source in order, merges them, fixes displaced members,
normalizes annotations and saves the database.

flags:
`
}

func (c *buildCommand) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.config, "config", "", "path to the idlgen YAML config")
	f.BoolVar(&c.incremental, "incremental", false, "merge into the existing database instead of rebuilding it")
}

func (c *buildCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.config == "" {
		logger.Errorf(ctx, "-config is required")
		return subcommands.ExitUsageError
	}
	config, err := LoadConfig(c.config)
	if err != nil {
		logger.Errorf(ctx, "%v", err)
		return subcommands.ExitFailure
	}
	if err := build(ctx, config, c.incremental); err != nil {
		logger.Errorf(ctx, "%v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func build(ctx context.Context, config *Config, incremental bool) error {
	db, err := database.New(config.Database)
	if err != nil {
		return err
	}
	if incremental {
		if err := db.Load(ctx); err != nil {
			return err
		}
	} else {
		if err := db.Delete(); err != nil {
			return err
		}
		if db, err = database.New(config.Database); err != nil {
			return err
		}
	}

	var opts []databasebuilder.Option
	if config.SameSignature != nil {
		opts = append(opts, databasebuilder.WithSameSignature(config.SameSignature))
	}
	b := databasebuilder.New(db, opts...)
	for _, s := range config.Sources {
		ctx := logger.WithScope(ctx, "import "+s.Name)
		logger.Infof(ctx, "importing %d directories and %d files", len(s.Directories), len(s.Files))
		for _, dir := range s.Directories {
			if err := b.ImportDirectory(ctx, dir, s.Options()); err != nil {
				return err
			}
		}
		if err := b.ImportFiles(ctx, s.Files, s.Options()); err != nil {
			return err
		}
	}
	ctx = logger.WithScope(ctx, "merge")
	if err := b.MergeImportedInterfaces(ctx); err != nil {
		return err
	}
	for _, source := range config.DisplacementSources {
		b.FixDisplacements(ctx, source)
	}
	if len(config.NormalizeSources) > 0 {
		b.NormalizeAnnotations(ctx, config.NormalizeSources)
	}
	if config.KnownConditionals != nil {
		b.ReportConditionals(ctx, config.KnownConditionals)
	}
	if err := db.Save(ctx); err != nil {
		return err
	}
	return db.Cache()
}
