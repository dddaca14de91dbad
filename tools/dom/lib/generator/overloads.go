// Copyright 2021 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package generator

import (
	"sort"
	"strings"

	"go.dartlang.org/sdk/tools/dom/lib/idl"
)

// OperationInfo describes a set of overloads emitted as one operation.
type OperationInfo struct {
	Name     string
	IsStatic bool
	// Operations are the declared overloads.
	Operations []*idl.Operation
	// Overloads add one truncated copy of an operation per optional
	// argument.
	Overloads  []*idl.Operation
	ReturnType string
	Params     []*ParamInfo
}

// ParamInfo merges the arguments found at one position of the overloads.
type ParamInfo struct {
	Name       string
	Types      []string
	IsOptional bool
	IsNullable bool
	Default    string
}

// Type returns the single type of the parameter or a union of its types.
func (p *ParamInfo) Type() string {
	return union(p.Types)
}

func union(types []string) string {
	if len(types) == 1 {
		return types[0]
	}
	return "(" + strings.Join(types, " or ") + ")"
}

// GroupOverloads groups the operations of i by name and static-ness, in
// canonical order.
func GroupOverloads(i *idl.Interface) []*OperationInfo {
	type key struct {
		id       string
		isStatic bool
	}
	groups := make(map[key][]*idl.Operation)
	var order []key
	for _, o := range idl.SortedOperations(i.Operations) {
		k := key{o.ID, o.IsStatic}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], o)
	}
	var infos []*OperationInfo
	for _, k := range order {
		infos = append(infos, AnalyzeOperation(groups[k]))
	}
	return infos
}

func isOptional(arg *idl.Argument) bool {
	return arg.IsOptional() || arg.Variadic
}

// AnalyzeOperation merges a non-empty set of overloads. Arguments are
// zipped by position. Once an overload runs out of arguments or has an
// optional one, every later position is optional.
func AnalyzeOperation(operations []*idl.Operation) *OperationInfo {
	var split []*idl.Operation
	for _, o := range operations {
		for n, arg := range o.Arguments {
			if isOptional(arg) {
				truncated := o.Clone()
				truncated.Arguments = truncated.Arguments[:n]
				split = append(split, truncated)
			}
		}
		split = append(split, o)
	}

	info := &OperationInfo{
		Name:       operations[0].ID,
		IsStatic:   operations[0].IsStatic,
		Operations: operations,
		Overloads:  split,
	}
	var returns []string
	for _, o := range operations {
		returns = append(returns, o.Type.String())
	}
	info.ReturnType = union(distinct(returns))

	positions := 0
	for _, o := range split {
		if len(o.Arguments) > positions {
			positions = len(o.Arguments)
		}
	}
	optional := false
	for n := 0; n < positions; n++ {
		p := &ParamInfo{}
		var names, types []string
		for _, o := range split {
			if n >= len(o.Arguments) {
				optional = true
				continue
			}
			arg := o.Arguments[n]
			optional = optional || isOptional(arg)
			names = append(names, arg.ID)
			types = append(types, arg.Type.ID)
			p.IsNullable = p.IsNullable || arg.Type.Nullable
			if p.Default == "" {
				p.Default = arg.Default
			}
		}
		p.Name = strings.Join(distinct(names), "_OR_")
		p.Types = distinct(types)
		p.IsOptional = optional
		info.Params = append(info.Params, p)
	}
	return info
}

func distinct(in []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
