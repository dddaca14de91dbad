// Copyright 2021 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"context"
	"flag"

	"github.com/google/subcommands"
	"github.com/pkg/errors"

	"go.dartlang.org/sdk/tools/dom/lib/database"
	"go.dartlang.org/sdk/tools/dom/lib/emitter"
	"go.dartlang.org/sdk/tools/dom/lib/generator"
	"go.dartlang.org/sdk/tools/dom/lib/summarize"
	"go.dartlang.org/sdk/tools/lib/command"
	"go.dartlang.org/sdk/tools/lib/logger"
)

type generateCommand struct {
	config  string
	systems command.StringsFlag
}

func (*generateCommand) Name() string { return "generate" }

func (*generateCommand) Synopsis() string {
	return "runs the configured generator systems over the database"
}

func (*generateCommand) Usage() string {
	return `idlgen generate -config <file> [-system name]...

flags:
`
}

func (c *generateCommand) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.config, "config", "", "path to the idlgen YAML config")
	f.Var(&c.systems, "system", "name of a system to run; may be repeated, defaults to all")
}

func (c *generateCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.config == "" {
		logger.Errorf(ctx, "-config is required")
		return subcommands.ExitUsageError
	}
	config, err := LoadConfig(c.config)
	if err != nil {
		logger.Errorf(ctx, "%v", err)
		return subcommands.ExitFailure
	}
	if err := generate(ctx, config, c.systems); err != nil {
		logger.Errorf(ctx, "%v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func generate(ctx context.Context, config *Config, names []string) error {
	selected := make(map[string]bool)
	for _, n := range names {
		selected[n] = true
	}
	known := make(map[string]bool)
	for _, s := range config.Systems {
		known[s.Name] = true
	}
	for _, n := range names {
		if !known[n] {
			return errors.Errorf("unknown system %q", n)
		}
	}

	db, err := database.New(config.Database)
	if err != nil {
		return err
	}
	if config.UseCache {
		err = db.LoadFromCache(ctx)
	} else {
		err = db.Load(ctx)
	}
	if err != nil {
		return err
	}

	cache := emitter.NewCache()
	for _, s := range config.Systems {
		if len(selected) > 0 && !selected[s.Name] {
			continue
		}
		ctx := logger.WithScope(ctx, s.Name)
		if err := runSystem(ctx, db.Clone(), s, cache); err != nil {
			return errors.Wrapf(err, "system %s", s.Name)
		}
	}
	return nil
}

// runSystem filters its own copy of the database so systems do not see each
// other's passes.
func runSystem(ctx context.Context, db *database.Database, s *System, cache *emitter.Cache) error {
	if err := generator.FilterInterfaces(ctx, db, s.Filter); err != nil {
		return err
	}
	generator.FixEventTargets(db)
	generator.AddMissingArguments(db)
	generator.CleanupOperationArguments(db)

	g := generator.New(db, generator.WithSourceFilter(s.SourceFilter...))
	if s.Auxiliary != "" {
		if err := g.LoadAuxiliary(s.Auxiliary); err != nil {
			return err
		}
	}
	loader := emitter.NewTemplateLoader(s.Templates.Root, s.Templates.Subpaths, s.Templates.Conditions, cache)
	system := summarize.New(s.Name, s.Output, loader, cache)
	if err := g.Generate(ctx, s.LibDir, system); err != nil {
		return err
	}
	return generator.RunPostProcess(ctx, s.PostProcess, s.Output)
}
