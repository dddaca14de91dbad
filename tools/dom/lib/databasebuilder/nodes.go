// Copyright 2021 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package databasebuilder

import (
	"go.dartlang.org/sdk/tools/dom/lib/idl"
)

// The merge works on member lists of any kind through these accessors.

func annotationsOf(n idl.Node) *idl.Annotations {
	switch n := n.(type) {
	case *idl.ParentInterface:
		return &n.Annotations
	case *idl.Constant:
		return &n.Annotations
	case *idl.Attribute:
		return &n.Annotations
	case *idl.Operation:
		return &n.Annotations
	case *idl.Interface:
		return &n.Annotations
	}
	return &idl.Annotations{}
}

// extAttrsOf returns nil for parents, which carry no extended attributes.
func extAttrsOf(n idl.Node) *idl.ExtAttrs {
	switch n := n.(type) {
	case *idl.Constant:
		return &n.ExtAttrs
	case *idl.Attribute:
		return &n.ExtAttrs
	case *idl.Operation:
		return &n.ExtAttrs
	case *idl.Interface:
		return &n.ExtAttrs
	}
	return nil
}

func suppressed(n idl.Node) bool {
	if e := extAttrsOf(n); e != nil {
		return e.Has("Suppressed")
	}
	return false
}

func withAnnotations(nodes []idl.Node) []idl.Node {
	var kept []idl.Node
	for _, n := range nodes {
		if len(*annotationsOf(n)) > 0 {
			kept = append(kept, n)
		}
	}
	return kept
}

func parentNodes(in []*idl.ParentInterface) []idl.Node {
	out := make([]idl.Node, len(in))
	for i, n := range in {
		out[i] = n
	}
	return out
}

func parentsOf(in []idl.Node) []*idl.ParentInterface {
	var out []*idl.ParentInterface
	for _, n := range in {
		out = append(out, n.(*idl.ParentInterface))
	}
	return out
}

func constantNodes(in []*idl.Constant) []idl.Node {
	out := make([]idl.Node, len(in))
	for i, n := range in {
		out[i] = n
	}
	return out
}

func constantsOf(in []idl.Node) []*idl.Constant {
	var out []*idl.Constant
	for _, n := range in {
		out = append(out, n.(*idl.Constant))
	}
	return out
}

func attributeNodes(in []*idl.Attribute) []idl.Node {
	out := make([]idl.Node, len(in))
	for i, n := range in {
		out[i] = n
	}
	return out
}

func attributesOf(in []idl.Node) []*idl.Attribute {
	var out []*idl.Attribute
	for _, n := range in {
		out = append(out, n.(*idl.Attribute))
	}
	return out
}

func operationNodes(in []*idl.Operation) []idl.Node {
	out := make([]idl.Node, len(in))
	for i, n := range in {
		out[i] = n
	}
	return out
}

func operationsOf(in []idl.Node) []*idl.Operation {
	var out []*idl.Operation
	for _, n := range in {
		out = append(out, n.(*idl.Operation))
	}
	return out
}
