// Copyright 2021 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package generator prepares a merged interface database for emission and
// drives the systems that emit code from it.
package generator

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"go.dartlang.org/sdk/tools/dom/lib/database"
	"go.dartlang.org/sdk/tools/dom/lib/idl"
	"go.dartlang.org/sdk/tools/lib/logger"
	"go.dartlang.org/sdk/tools/lib/osmisc"
)

// System emits code for one target from the interfaces of a database.
type System interface {
	// ProcessInterface is called for every interface, parents first.
	ProcessInterface(ctx context.Context, i *idl.Interface) error
	// ProcessCallback is called instead of ProcessInterface for callback
	// interfaces, with their operations already grouped.
	ProcessCallback(ctx context.Context, i *idl.Interface, info *OperationInfo) error
	// GenerateLibraries writes the files that tie the interfaces together.
	GenerateLibraries(ctx context.Context, libDir string) error
	// Finish flushes the system's output.
	Finish(ctx context.Context) error
}

// Generator drives Systems over the interfaces of a database.
type Generator struct {
	db        *database.Database
	sources   []string
	auxiliary map[string]string
}

// Option configures a Generator.
type Option func(*Generator)

// WithSourceFilter only generates interfaces annotated with one of sources.
func WithSourceFilter(sources ...string) Option {
	return func(g *Generator) {
		g.sources = sources
	}
}

func New(db *database.Database, opts ...Option) *Generator {
	g := &Generator{db: db, auxiliary: make(map[string]string)}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// LoadAuxiliary registers the hand-written files under dir. An interface
// whose name matches a file name, less its extension, is not generated.
func (g *Generator) LoadAuxiliary(dir string) error {
	paths, err := osmisc.FindFiles(dir, "")
	if err != nil {
		return errors.Wrapf(err, "loading auxiliary files from %s", dir)
	}
	for _, path := range paths {
		name := filepath.Base(path)
		name = strings.TrimSuffix(name, filepath.Ext(name))
		g.auxiliary[name] = path
	}
	return nil
}

// Generate runs every system over the interfaces in pre-order, then asks
// each to generate its libraries into libDir and to finish.
func (g *Generator) Generate(ctx context.Context, libDir string, systems ...System) error {
	var interfaces []*idl.Interface
	for _, i := range g.db.Interfaces() {
		if !MatchSourceFilter(i.Annotations, g.sources) {
			logger.Infof(ctx, "omitting interface %s", i.ID)
			continue
		}
		interfaces = append(interfaces, i)
	}

	for _, i := range PreOrderInterfaces(g.db, interfaces) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if path, ok := g.auxiliary[i.ID]; ok {
			logger.Infof(ctx, "skipping %s because %s exists", i.ID, path)
			continue
		}
		if !MatchSourceFilter(i.Annotations, g.sources) {
			continue
		}
		logger.Debugf(ctx, "generating %s", i.ID)
		callback := i.IsCallback || i.ExtAttrs.Has("Callback")
		if callback && len(i.Operations) == 0 {
			logger.Warningf(ctx, "callback %s has no operations", i.ID)
			continue
		}
		for _, s := range systems {
			var err error
			if callback {
				err = s.ProcessCallback(ctx, i, AnalyzeOperation(i.Operations))
			} else {
				err = s.ProcessInterface(ctx, i)
			}
			if err != nil {
				return errors.Wrapf(err, "generating %s", i.ID)
			}
		}
	}

	for _, s := range systems {
		if err := s.GenerateLibraries(ctx, libDir); err != nil {
			return err
		}
	}
	for _, s := range systems {
		if err := s.Finish(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Generate runs systems over every interface of db.
func Generate(ctx context.Context, db *database.Database, systems ...System) error {
	return New(db).Generate(ctx, "", systems...)
}
