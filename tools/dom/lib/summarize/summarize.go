// Copyright 2021 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package summarize is a generator system that writes a language neutral
// summary of each interface's API.
package summarize

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"go.dartlang.org/sdk/tools/dom/lib/emitter"
	"go.dartlang.org/sdk/tools/dom/lib/generator"
	"go.dartlang.org/sdk/tools/dom/lib/idl"
	"go.dartlang.org/sdk/tools/lib/logger"
)

const (
	interfaceTemplate = "interface.api.template"
	callbackTemplate  = "callback.api.template"
	libraryTemplate   = "library.api.template"

	// IndexFile is the name of the library index written by
	// GenerateLibraries.
	IndexFile = "index.api"
)

// ErrTemplateHoles is returned for an interface or library template that
// does not have exactly the one hole the system fills.
var ErrTemplateHoles = errors.New("template must have exactly one hole")

func singleHole(name string, holes []*emitter.Emitter) (*emitter.Emitter, error) {
	if len(holes) != 1 {
		return nil, errors.Wrapf(ErrTemplateHoles, "%s has %d", name, len(holes))
	}
	return holes[0], nil
}

// System implements generator.System.
type System struct {
	library   string
	outputDir string
	loader    *emitter.TemplateLoader
	out       *emitter.MultiEmitter
	generated []string
}

var _ generator.System = (*System)(nil)

// New returns a System for library that writes to outputDir. Templates are
// loaded through loader and share its cache.
func New(library, outputDir string, loader *emitter.TemplateLoader, cache *emitter.Cache) *System {
	return &System{
		library:   library,
		outputDir: outputDir,
		loader:    loader,
		out:       emitter.NewMultiEmitter(cache),
	}
}

func (s *System) ProcessInterface(ctx context.Context, i *idl.Interface) error {
	tmpl, err := s.loader.LoadTemplate(interfaceTemplate, nil)
	if err != nil {
		return err
	}
	e, err := s.out.FileEmitter(s.filename(i.ID), i.ID)
	if err != nil {
		return err
	}

	var parents []string
	for _, p := range i.Parents {
		parents = append(parents, p.Type.String())
	}
	extends, params := "", emitter.Params(nil)
	if len(parents) > 0 {
		extends, params = " : $PARENTS", emitter.Params{"PARENTS": strings.Join(parents, ", ")}
	}
	if _, err := e.Bind("EXTENDS", extends, params); err != nil {
		return err
	}

	holes := e.EmitTemplate(tmpl, emitter.Params{
		"NAME":    i.ID,
		"SOURCES": strings.Join(i.Annotations.Names(), ", "),
	})
	members, err := singleHole(interfaceTemplate, holes)
	if err != nil {
		return err
	}
	if err := emitMembers(members, i); err != nil {
		return err
	}
	s.generated = append(s.generated, i.ID)
	return nil
}

func emitMembers(e *emitter.Emitter, i *idl.Interface) error {
	for _, c := range idl.SortedConstants(i.Constants) {
		if _, err := e.Emit("  const $TYPE $NAME = $VALUE;\n", emitter.Params{
			"TYPE":  c.Type.String(),
			"NAME":  c.ID,
			"VALUE": c.Value,
		}); err != nil {
			return err
		}
	}
	seen := make(map[string]bool)
	for _, a := range idl.SortedAttributes(i.Attributes) {
		if seen[a.ID] {
			continue
		}
		seen[a.ID] = true
		var modifiers string
		if a.IsStatic {
			modifiers += "static "
		}
		if i.IsReadOnly(a.ID) {
			modifiers += "readonly "
		}
		if _, err := e.Emit("  $(MODIFIERS)attribute $TYPE $NAME;\n", emitter.Params{
			"MODIFIERS": modifiers,
			"TYPE":      a.Type.String(),
			"NAME":      a.ID,
		}); err != nil {
			return err
		}
	}
	for _, info := range generator.GroupOverloads(i) {
		var modifiers string
		if info.IsStatic {
			modifiers = "static "
		}
		if _, err := e.Emit("  $(MODIFIERS)$TYPE $NAME($PARAMS);\n", emitter.Params{
			"MODIFIERS": modifiers,
			"TYPE":      info.ReturnType,
			"NAME":      info.Name,
			"PARAMS":    formatParams(info.Params),
		}); err != nil {
			return err
		}
	}
	return nil
}

func formatParams(params []*generator.ParamInfo) string {
	var parts []string
	for _, p := range params {
		var b strings.Builder
		if p.IsOptional {
			b.WriteString("optional ")
		}
		b.WriteString(p.Type())
		if p.IsNullable {
			b.WriteString("?")
		}
		b.WriteString(" ")
		b.WriteString(p.Name)
		if p.Default != "" {
			b.WriteString(" = ")
			b.WriteString(p.Default)
		}
		parts = append(parts, b.String())
	}
	return strings.Join(parts, ", ")
}

func (s *System) ProcessCallback(ctx context.Context, i *idl.Interface, info *generator.OperationInfo) error {
	tmpl, err := s.loader.LoadTemplate(callbackTemplate, nil)
	if err != nil {
		return err
	}
	e, err := s.out.FileEmitter(s.filename(i.ID), i.ID)
	if err != nil {
		return err
	}
	e.EmitTemplate(tmpl, emitter.Params{
		"NAME":   i.ID,
		"TYPE":   info.ReturnType,
		"PARAMS": formatParams(info.Params),
	})
	s.generated = append(s.generated, i.ID)
	return nil
}

// GenerateLibraries writes the index of every generated file to libDir, or
// to the output directory when libDir is empty.
func (s *System) GenerateLibraries(ctx context.Context, libDir string) error {
	if libDir == "" {
		libDir = s.outputDir
	}
	tmpl, err := s.loader.LoadTemplate(libraryTemplate, nil)
	if err != nil {
		return err
	}
	e, err := s.out.FileEmitter(filepath.Join(libDir, IndexFile), "")
	if err != nil {
		return err
	}
	holes := e.EmitTemplate(tmpl, emitter.Params{
		"LIBRARY": s.library,
		"COUNT":   len(s.generated),
	})
	entries, err := singleHole(libraryTemplate, holes)
	if err != nil {
		return err
	}
	for _, id := range s.generated {
		rel, err := filepath.Rel(libDir, s.filename(id))
		if err != nil {
			return err
		}
		if _, err := entries.Emit("$FILE\n", emitter.Params{"FILE": filepath.ToSlash(rel)}); err != nil {
			return err
		}
	}
	return nil
}

// Finish writes every changed file.
func (s *System) Finish(ctx context.Context) error {
	stats, err := s.out.Flush(ctx, nil)
	logger.Infof(ctx, "%s: wrote %d of %d files (%s), %d unchanged",
		s.library, stats.Written, stats.Files, humanize.Bytes(stats.Bytes), stats.Unchanged)
	return err
}

// Emitter returns the emitter of a processed interface.
func (s *System) Emitter(id string) (*emitter.Emitter, bool) {
	return s.out.Find(id)
}

func (s *System) filename(id string) string {
	return filepath.Join(s.outputDir, id+".api")
}
