// Copyright 2021 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package databasebuilder imports IDL from several sources and merges it
// into one interface database.
package databasebuilder

import (
	"context"
	"io/ioutil"
	"regexp"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.dartlang.org/sdk/tools/dom/lib/database"
	"go.dartlang.org/sdk/tools/dom/lib/idl"
	"go.dartlang.org/sdk/tools/lib/logger"
	"go.dartlang.org/sdk/tools/lib/osmisc"
)

// Options control how the files of one source are imported and merged.
type Options struct {
	Syntax idl.Syntax
	// Defines enable preprocessor blocks and [Conditional] members,
	// e.g. ENABLE_WEB_AUDIO.
	Defines []string
	// Source annotates every imported node, e.g. @WebKit.
	Source string
	// SourceAttributes are the arguments of the source annotation.
	SourceAttributes map[string]string
	// TypeRenameMap renames interfaces and type references before merging.
	TypeRenameMap map[string]string
	// RenameOperationArgumentsOnMerge takes argument names from this source
	// when an operation already exists.
	RenameOperationArgumentsOnMerge bool
	// AddNewInterfaces allows this source to introduce interfaces. Otherwise
	// it can only contribute to existing ones.
	AddNewInterfaces bool
	// ObsoleteOldDeclarations removes this source's annotation from members
	// it no longer declares, and drops members left without annotations.
	ObsoleteOldDeclarations bool
}

// DefaultOptions returns options for a WebIDL source that may add
// interfaces.
func DefaultOptions() Options {
	return Options{Syntax: idl.WebIDLSyntax, AddNewInterfaces: true}
}

func (o *Options) defined(name string) bool {
	for _, d := range o.Defines {
		if d == name {
			return true
		}
	}
	return false
}

// DefaultSameSignature lists the type names that are equivalent for merging.
var DefaultSameSignature = map[string]string{
	"int":           "long",
	"EventListener": "Function",
}

type imported struct {
	iface *idl.Interface
	opts  *Options
}

type importedImplements struct {
	stmt *idl.ImplementsStatement
	opts *Options
}

// Builder accumulates imported interfaces and merges them into a database.
// It is not safe for concurrent use.
type Builder struct {
	db              *database.Database
	sameSignature   map[string]string
	imported        []imported
	implements      []importedImplements
	typedefs        map[string]*idl.Type
	conditionalsMet map[string]bool
}

// Option configures a Builder.
type Option func(*Builder)

// WithSameSignature replaces the table of equivalent type names.
func WithSameSignature(m map[string]string) Option {
	return func(b *Builder) {
		b.sameSignature = make(map[string]string, len(m))
		for k, v := range m {
			b.sameSignature[k] = v
		}
	}
}

func New(db *database.Database, opts ...Option) *Builder {
	b := &Builder{
		db:              db,
		typedefs:        make(map[string]*idl.Type),
		conditionalsMet: make(map[string]bool),
	}
	WithSameSignature(DefaultSameSignature)(b)
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Database returns the database being built.
func (b *Builder) Database() *database.Database {
	return b.db
}

// ImportFile preprocesses and parses one file and queues its interfaces for
// MergeImportedInterfaces.
func (b *Builder) ImportFile(ctx context.Context, path string, opts Options) error {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return err
	}
	return b.ImportIDL(ctx, path, string(data), opts)
}

// ImportFiles imports every file, reporting all failures together.
func (b *Builder) ImportFiles(ctx context.Context, paths []string, opts Options) error {
	var errs error
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		errs = multierr.Append(errs, b.ImportFile(ctx, path, opts))
	}
	return errs
}

// ImportDirectory imports every .idl file under dir.
func (b *Builder) ImportDirectory(ctx context.Context, dir string, opts Options) error {
	paths, err := osmisc.FindFiles(dir, ".idl")
	if err != nil {
		return errors.Wrapf(err, "scanning %s", dir)
	}
	logger.Debugf(ctx, "importing %d files from %s", len(paths), dir)
	return b.ImportFiles(ctx, paths, opts)
}

// ImportIDL imports IDL text read from filename.
func (b *Builder) ImportIDL(ctx context.Context, filename, src string, opts Options) error {
	src, flags, err := idl.Preprocess(filename, src, opts.Defines)
	if err != nil {
		return err
	}
	for _, flag := range flags {
		b.conditionalsMet[flag] = true
	}
	file, err := idl.Parse(filename, src, opts.Syntax)
	if err != nil {
		return err
	}
	b.importFile(ctx, file, &opts)
	return nil
}

func (b *Builder) importFile(ctx context.Context, file *idl.File, opts *Options) {
	for _, m := range file.Skipped {
		logger.Warningf(ctx, "%s:%d:%d: skipping %s member of %s (source=%s)", file.Filename, m.Line, m.Column, m.Kind, m.Interface, opts.Source)
	}
	b.resolveTypedefs(file)
	b.renameTypes(file, opts)

	for _, i := range file.AllInterfaces() {
		if !b.enabled(i.ExtAttrs, opts) {
			logger.Infof(ctx, "skipping interface %s (source=%s)", i.ID, opts.Source)
			continue
		}
		logger.Debugf(ctx, "importing interface %s (source=%s file=%s)", i.ID, opts.Source, file.Filename)
		i.Constants = filterConstants(i.Constants, func(c *idl.Constant) bool { return b.enabled(c.ExtAttrs, opts) })
		i.Attributes = filterAttributes(i.Attributes, func(a *idl.Attribute) bool { return b.enabled(a.ExtAttrs, opts) })
		i.Operations = filterOperations(i.Operations, func(o *idl.Operation) bool { return b.enabled(o.ExtAttrs, opts) })
		i.Source = opts.Source
		b.imported = append(b.imported, imported{iface: i, opts: opts})
	}
	for _, s := range file.AllImplementsStatements() {
		b.implements = append(b.implements, importedImplements{stmt: s, opts: opts})
	}
	for _, e := range file.AllEnums() {
		b.db.AddEnum(e)
	}
}

var identifier = regexp.MustCompile(`[A-Za-z_]\w*(?:::[A-Za-z_]\w*)*`)

// resolveTypedefs replaces typedef names with their types. Typedefs seen in
// earlier files of the run apply as well.
func (b *Builder) resolveTypedefs(file *idl.File) {
	for _, t := range file.AllTypedefs() {
		b.typedefs[t.ID] = t.Type
	}
	if len(b.typedefs) == 0 {
		return
	}
	for _, t := range idl.Types(file) {
		// Chains of typedefs resolve in a bounded number of passes.
		for n := 0; n < 8; n++ {
			if target, ok := b.typedefs[t.ID]; ok {
				t.ID = target.ID
				t.Nullable = t.Nullable || target.Nullable
				continue
			}
			replaced := identifier.ReplaceAllStringFunc(t.ID, func(name string) string {
				if target, ok := b.typedefs[name]; ok {
					return target.String()
				}
				return name
			})
			if replaced == t.ID {
				break
			}
			t.ID = replaced
		}
	}
}

// renameTypes strips module scopes from names and applies the rename map to
// interface IDs, every type reference and [Supplemental=X].
func (b *Builder) renameTypes(file *idl.File, opts *Options) {
	rename := func(s string) string {
		return identifier.ReplaceAllStringFunc(s, func(name string) string {
			if i := strings.LastIndex(name, "::"); i >= 0 {
				name = name[i+2:]
			}
			if renamed, ok := opts.TypeRenameMap[name]; ok {
				return renamed
			}
			return name
		})
	}
	for _, i := range file.AllInterfaces() {
		i.ID = rename(i.ID)
		if attr, ok := i.ExtAttrs["Supplemental"]; ok && attr != nil && attr.Value != "" {
			attr.Value = rename(attr.Value)
		}
	}
	for _, e := range file.AllEnums() {
		e.ID = rename(e.ID)
	}
	for _, t := range idl.Types(file) {
		t.ID = rename(t.ID)
	}
}

// enabled evaluates [Conditional=A&B] or [Conditional=A|B] against the
// ENABLE_* defines and records every condition it meets.
func (b *Builder) enabled(extAttrs idl.ExtAttrs, opts *Options) bool {
	if !extAttrs.Has("Conditional") {
		return true
	}
	conditional := extAttrs.Value("Conditional")
	isEnabled := func(condition string) bool {
		flag := "ENABLE_" + strings.TrimSpace(condition)
		b.conditionalsMet[flag] = true
		return opts.defined(flag)
	}
	if strings.Contains(conditional, "&") {
		result := true
		for _, c := range strings.Split(conditional, "&") {
			result = isEnabled(c) && result
		}
		return result
	}
	result := false
	for _, c := range strings.Split(conditional, "|") {
		result = isEnabled(c) || result
	}
	return result
}

// ConditionalsMet returns the ENABLE_* flags referenced by the imported IDL.
func (b *Builder) ConditionalsMet() []string {
	var met []string
	for c := range b.conditionalsMet {
		met = append(met, c)
	}
	sort.Strings(met)
	return met
}

// ReportConditionals warns about known flags no imported IDL used and about
// flags used but not known. It returns both lists.
func (b *Builder) ReportConditionals(ctx context.Context, known []string) (unused, unknown []string) {
	knownSet := make(map[string]bool, len(known))
	for _, k := range known {
		knownSet[k] = true
		if !b.conditionalsMet[k] {
			unused = append(unused, k)
		}
	}
	for _, c := range b.ConditionalsMet() {
		if !knownSet[c] {
			unknown = append(unknown, c)
		}
	}
	sort.Strings(unused)
	if len(unused) > 0 {
		logger.Warningf(ctx, "there are some unused conditionals %v", unused)
	}
	if len(unknown) > 0 {
		logger.Warningf(ctx, "there are some unknown conditionals %v", unknown)
	}
	return unused, unknown
}

func filterConstants(in []*idl.Constant, keep func(*idl.Constant) bool) []*idl.Constant {
	var out []*idl.Constant
	for _, n := range in {
		if keep(n) {
			out = append(out, n)
		}
	}
	return out
}

func filterAttributes(in []*idl.Attribute, keep func(*idl.Attribute) bool) []*idl.Attribute {
	var out []*idl.Attribute
	for _, n := range in {
		if keep(n) {
			out = append(out, n)
		}
	}
	return out
}

func filterOperations(in []*idl.Operation, keep func(*idl.Operation) bool) []*idl.Operation {
	var out []*idl.Operation
	for _, n := range in {
		if keep(n) {
			out = append(out, n)
		}
	}
	return out
}
