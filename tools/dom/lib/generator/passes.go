// Copyright 2021 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package generator

import (
	"strings"

	"go.dartlang.org/sdk/tools/dom/lib/database"
	"go.dartlang.org/sdk/tools/dom/lib/idl"
)

// IsEventTarget reports whether i is EventTarget or inherits from it.
func IsEventTarget(db *database.Database, i *idl.Interface) bool {
	if i.ID == "EventTarget" {
		return true
	}
	for _, p := range db.Hierarchy(i) {
		if p.ID == "EventTarget" {
			return true
		}
	}
	return false
}

// FixEventTargets marks every event target with [EventTarget] and gives
// interfaces declared [EventTarget] an EventTarget parent.
func FixEventTargets(db *database.Database) {
	for _, i := range db.Interfaces() {
		switch {
		case IsEventTarget(db, i):
			if i.ExtAttrs == nil {
				i.ExtAttrs = idl.ExtAttrs{}
			}
			i.ExtAttrs["EventTarget"] = &idl.ExtAttr{}
		case i.ExtAttrs.Has("EventTarget"):
			i.Parents = append(i.Parents, &idl.ParentInterface{Type: &idl.Type{ID: "EventTarget"}})
		}
	}
}

// AddMissingArguments appends the implicit trailing argument of operations
// called with [CallWith=ScriptArguments].
func AddMissingArguments(db *database.Database) {
	for _, i := range db.Interfaces() {
		for _, o := range i.Operations {
			var with []string
			for _, name := range []string{"CallWith", "ConstructorCallWith"} {
				with = append(with, strings.FieldsFunc(o.ExtAttrs.Value(name), func(r rune) bool {
					return r == '|' || r == '&'
				})...)
			}
			for _, w := range with {
				if w == "ScriptArguments" {
					o.Arguments = append(o.Arguments, &idl.Argument{ID: "arg", Type: &idl.Type{ID: "object"}})
					break
				}
			}
		}
	}
}

// CleanupOperationArguments replaces enum argument types with DOMString.
func CleanupOperationArguments(db *database.Database) {
	for _, i := range db.Interfaces() {
		for _, o := range i.Operations {
			for _, arg := range o.Arguments {
				if db.HasEnum(arg.Type.ID) {
					arg.Type.ID = "DOMString"
				}
			}
		}
	}
}

// PreOrderInterfaces orders interfaces so that every parent found in db comes
// before its children. Each interface appears once.
func PreOrderInterfaces(db *database.Database, interfaces []*idl.Interface) []*idl.Interface {
	seen := make(map[string]bool)
	var ordered []*idl.Interface
	var visit func(*idl.Interface)
	visit = func(i *idl.Interface) {
		if seen[i.ID] {
			return
		}
		seen[i.ID] = true
		for _, p := range i.Parents {
			if parent, err := db.GetInterface(p.Type.ID); err == nil {
				visit(parent)
			}
		}
		ordered = append(ordered, i)
	}
	for _, i := range interfaces {
		visit(i)
	}
	return ordered
}
