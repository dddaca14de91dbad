// Copyright 2021 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"io/ioutil"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"go.dartlang.org/sdk/tools/dom/lib/databasebuilder"
	"go.dartlang.org/sdk/tools/dom/lib/generator"
	"go.dartlang.org/sdk/tools/dom/lib/idl"
)

// Config describes a database build and the systems generated from it.
type Config struct {
	// Database is the directory of the interface database.
	Database string `yaml:"database"`
	// UseCache makes generate read the database cache when there is one.
	UseCache bool `yaml:"use_cache"`
	// SameSignature replaces the default table of equivalent types.
	SameSignature map[string]string `yaml:"same_signature"`
	// KnownConditionals are the ENABLE_* flags the build knows about.
	KnownConditionals []string `yaml:"known_conditionals"`
	// DisplacementSources are passed to FixDisplacements in order.
	DisplacementSources []string `yaml:"displacement_sources"`
	// NormalizeSources are passed to NormalizeAnnotations.
	NormalizeSources []string  `yaml:"normalize_sources"`
	Sources          []*Source `yaml:"sources"`
	Systems          []*System `yaml:"systems"`
}

// Source is one upstream provider of IDL.
type Source struct {
	Name                            string            `yaml:"name"`
	Syntax                          idl.Syntax        `yaml:"syntax"`
	Defines                         []string          `yaml:"defines"`
	SourceAttributes                map[string]string `yaml:"source_attributes"`
	TypeRenameMap                   map[string]string `yaml:"type_rename_map"`
	Directories                     []string          `yaml:"directories"`
	Files                           []string          `yaml:"files"`
	RenameOperationArgumentsOnMerge bool              `yaml:"rename_operation_arguments_on_merge"`
	// AddNewInterfaces defaults to true.
	AddNewInterfaces        *bool `yaml:"add_new_interfaces"`
	ObsoleteOldDeclarations bool  `yaml:"obsolete_old_declarations"`
}

// Options converts the source to builder options.
func (s *Source) Options() databasebuilder.Options {
	opts := databasebuilder.DefaultOptions()
	opts.Syntax = s.Syntax
	opts.Defines = s.Defines
	opts.Source = s.Name
	opts.SourceAttributes = s.SourceAttributes
	opts.TypeRenameMap = s.TypeRenameMap
	opts.RenameOperationArgumentsOnMerge = s.RenameOperationArgumentsOnMerge
	if s.AddNewInterfaces != nil {
		opts.AddNewInterfaces = *s.AddNewInterfaces
	}
	opts.ObsoleteOldDeclarations = s.ObsoleteOldDeclarations
	return opts
}

// System configures one generator system.
type System struct {
	Name string `yaml:"name"`
	// Kind selects the implementation. Only "summarize" exists.
	Kind   string                  `yaml:"kind"`
	Filter generator.FilterOptions `yaml:"filter"`
	// SourceFilter limits generation to interfaces of these sources.
	SourceFilter []string  `yaml:"source_filter"`
	Templates    Templates `yaml:"templates"`
	Output       string    `yaml:"output"`
	LibDir       string    `yaml:"lib_dir"`
	// Auxiliary holds hand-written files that replace generated ones.
	Auxiliary   string   `yaml:"auxiliary"`
	PostProcess []string `yaml:"post_process"`
}

// Templates locates the templates of a system.
type Templates struct {
	Root       string          `yaml:"root"`
	Subpaths   []string        `yaml:"subpaths"`
	Conditions map[string]bool `yaml:"conditions"`
}

// LoadConfig reads a config file. Relative paths in it are relative to the
// directory of the file.
func LoadConfig(path string) (*Config, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	if err := c.validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config %s", path)
	}
	c.resolve(filepath.Dir(path))
	return &c, nil
}

func (c *Config) validate() error {
	if c.Database == "" {
		return errors.New("database is required")
	}
	names := make(map[string]bool)
	for _, s := range c.Sources {
		if s.Name == "" {
			return errors.New("every source needs a name")
		}
		if names[s.Name] {
			return errors.Errorf("duplicate source %q", s.Name)
		}
		names[s.Name] = true
	}
	for _, s := range c.Systems {
		if s.Kind != "summarize" {
			return errors.Errorf("system %q: unknown kind %q", s.Name, s.Kind)
		}
		if s.Output == "" {
			return errors.Errorf("system %q: output is required", s.Name)
		}
	}
	return nil
}

func (c *Config) resolve(dir string) {
	abs := func(p *string) {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
	abs(&c.Database)
	for _, s := range c.Sources {
		for i := range s.Directories {
			abs(&s.Directories[i])
		}
		for i := range s.Files {
			abs(&s.Files[i])
		}
	}
	for _, s := range c.Systems {
		abs(&s.Templates.Root)
		abs(&s.Output)
		abs(&s.LibDir)
		abs(&s.Auxiliary)
	}
}
