// Copyright 2021 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package generator

import (
	"context"
	"strings"

	"go.dartlang.org/sdk/tools/dom/lib/database"
	"go.dartlang.org/sdk/tools/dom/lib/idl"
	"go.dartlang.org/sdk/tools/lib/logger"
)

// FilterOptions select the interfaces and members a generator emits.
type FilterOptions struct {
	// AndAnnotations must all be present on a node, unless one of
	// OrAnnotations is. An empty list admits every node that is not
	// excluded.
	AndAnnotations []string `yaml:"and_annotations"`
	OrAnnotations  []string `yaml:"or_annotations"`
	// ExcludeDisplaced drops nodes whose annotation for these sources has a
	// `via` argument.
	ExcludeDisplaced []string `yaml:"exclude_displaced"`
	// ExcludeSuppressed drops nodes whose annotation for these sources has a
	// `suppressed` argument.
	ExcludeSuppressed []string `yaml:"exclude_suppressed"`
}

func (o *FilterOptions) matches(annotations idl.Annotations) bool {
	for _, a := range o.ExcludeDisplaced {
		if annotations[a].Has("via") {
			return false
		}
	}
	for _, a := range o.ExcludeSuppressed {
		if annotations[a].Has("suppressed") {
			return false
		}
	}
	for _, a := range o.OrAnnotations {
		if annotations.Has(a) {
			return true
		}
	}
	for _, a := range o.AndAnnotations {
		if !annotations.Has(a) {
			return false
		}
	}
	return true
}

// FilterInterfaces deletes the interfaces that do not match opts and drops
// the non-matching parents and members of the others. It then removes members
// with unidentified types. Run it on a clone of the database.
func FilterInterfaces(ctx context.Context, db *database.Database, opts FilterOptions) error {
	for _, i := range db.Interfaces() {
		if !opts.matches(i.Annotations) {
			logger.Debugf(ctx, "filtering out interface %s", i.ID)
			if err := db.DeleteInterface(i.ID); err != nil {
				return err
			}
			continue
		}
		var parents []*idl.ParentInterface
		for _, p := range i.Parents {
			if opts.matches(p.Annotations) {
				parents = append(parents, p)
			}
		}
		i.Parents = parents
		var constants []*idl.Constant
		for _, c := range i.Constants {
			if opts.matches(c.Annotations) {
				constants = append(constants, c)
			}
		}
		i.Constants = constants
		var attributes []*idl.Attribute
		for _, a := range i.Attributes {
			if opts.matches(a.Annotations) {
				attributes = append(attributes, a)
			}
		}
		i.Attributes = attributes
		var operations []*idl.Operation
		for _, o := range i.Operations {
			if opts.matches(o.Annotations) {
				operations = append(operations, o)
			}
		}
		i.Operations = operations
	}
	FilterMembersWithUnidentifiedTypes(ctx, db)
	return nil
}

// RegisteredTypes are the built-in types every generator knows.
var RegisteredTypes = map[string]bool{
	"any":                   true,
	"boolean":               true,
	"byte":                  true,
	"octet":                 true,
	"short":                 true,
	"unsigned short":        true,
	"long":                  true,
	"unsigned long":         true,
	"long long":             true,
	"unsigned long long":    true,
	"int":                   true,
	"float":                 true,
	"unrestricted float":    true,
	"double":                true,
	"unrestricted double":   true,
	"DOMString":             true,
	"ByteString":            true,
	"USVString":             true,
	"DOMTimeStamp":          true,
	"Date":                  true,
	"Dictionary":            true,
	"Function":              true,
	"object":                true,
	"void":                  true,
	"sequence":              true,
	"FrozenArray":           true,
	"record":                true,
	"Promise":               true,
	"ArrayBuffer":           true,
	"ArrayBufferView":       true,
	"DataView":              true,
	"Int8Array":             true,
	"Int16Array":            true,
	"Int32Array":            true,
	"Uint8Array":            true,
	"Uint8ClampedArray":     true,
	"Uint16Array":           true,
	"Uint32Array":           true,
	"Float32Array":          true,
	"Float64Array":          true,
	"SerializedScriptValue": true,
}

// IsRegisteredType reports whether name is a built-in type.
func IsRegisteredType(name string) bool {
	return RegisteredTypes[name]
}

// isCompoundType reports whether every part of a type expression resolves to
// a registered type, an interface or an enum of db.
func isCompoundType(db *database.Database, name string) bool {
	name = strings.TrimSpace(name)
	switch {
	case IsRegisteredType(name):
		return true
	case strings.HasSuffix(name, "?"):
		return isCompoundType(db, strings.TrimSuffix(name, "?"))
	case strings.HasSuffix(name, "[]"):
		return isCompoundType(db, strings.TrimSuffix(name, "[]"))
	case strings.HasPrefix(name, "(") && strings.HasSuffix(name, ")"):
		for _, member := range splitTopLevel(name[1:len(name)-1], " or ") {
			if !isCompoundType(db, member) {
				return false
			}
		}
		return true
	}
	if i := strings.Index(name, "<"); i > 0 && strings.HasSuffix(name, ">") {
		if !isCompoundType(db, name[:i]) {
			return false
		}
		for _, param := range splitTopLevel(name[i+1:len(name)-1], ",") {
			if !isCompoundType(db, param) {
				return false
			}
		}
		return true
	}
	if i := strings.LastIndex(name, "::"); i >= 0 {
		name = name[i+2:]
	}
	return db.HasInterface(name) || db.HasEnum(name)
}

// splitTopLevel splits s at sep where sep is not nested in <> or ().
func splitTopLevel(s, sep string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<', '(':
			depth++
		case '>', ')':
			depth--
		}
		if depth == 0 && strings.HasPrefix(s[i:], sep) {
			parts = append(parts, s[start:i])
			start = i + len(sep)
			i += len(sep) - 1
		}
	}
	return append(parts, s[start:])
}

// FilterMembersWithUnidentifiedTypes drops the parents and members of every
// interface that reference a type db cannot resolve. Each drop is logged and
// generation continues.
func FilterMembersWithUnidentifiedTypes(ctx context.Context, db *database.Database) {
	for _, i := range db.Interfaces() {
		identified := func(name string, n idl.Node) bool {
			for _, t := range idl.Types(n) {
				if !isCompoundType(db, t.ID) {
					logger.Warningf(ctx, "removing %s in %s which has unidentified type %s", name, i.ID, t.ID)
					return false
				}
			}
			return true
		}
		var parents []*idl.ParentInterface
		for _, p := range i.Parents {
			if identified("parent", p) {
				parents = append(parents, p)
			}
		}
		i.Parents = parents
		var constants []*idl.Constant
		for _, c := range i.Constants {
			if identified(c.ID, c) {
				constants = append(constants, c)
			}
		}
		i.Constants = constants
		var attributes []*idl.Attribute
		for _, a := range i.Attributes {
			if identified(a.ID, a) {
				attributes = append(attributes, a)
			}
		}
		i.Attributes = attributes
		var operations []*idl.Operation
		for _, o := range i.Operations {
			if identified(o.ID, o) {
				operations = append(operations, o)
			}
		}
		i.Operations = operations
	}
}

// MatchSourceFilter reports whether annotations name one of sources. Every
// node matches an empty filter.
func MatchSourceFilter(annotations idl.Annotations, sources []string) bool {
	if len(sources) == 0 {
		return true
	}
	for _, s := range sources {
		if annotations.Has(s) {
			return true
		}
	}
	return false
}
