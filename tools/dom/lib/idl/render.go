// Copyright 2021 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package idl

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Render serializes node as canonical FremontCut text. Members are ordered
// by kind and ID so that rendering a parsed canonical file reproduces it
// byte for byte.
func Render(node Node) string {
	r := renderer{bol: true}
	r.render(node)
	return r.b.String()
}

type renderer struct {
	b      strings.Builder
	indent int
	bol    bool
}

func (r *renderer) w(format string, a ...interface{}) {
	s := format
	if len(a) > 0 {
		s = fmt.Sprintf(format, a...)
	}
	for _, line := range strings.SplitAfter(s, "\n") {
		if line == "" {
			continue
		}
		if r.bol && line != "\n" {
			r.b.WriteString(strings.Repeat(" ", r.indent))
		}
		r.b.WriteString(line)
		r.bol = strings.HasSuffix(line, "\n")
	}
}

func (r *renderer) render(node Node) {
	switch n := node.(type) {
	case *File:
		r.renderDefinitions(&n.Definitions, len(n.Modules) > 0)
		for _, m := range n.Modules {
			r.render(m)
		}
	case *Module:
		r.annotations(n.Annotations, "\n")
		r.extAttrs(n.ExtAttrs, "\n")
		r.w("module %s {\n", n.ID)
		r.renderDefinitions(&n.Definitions, false)
		r.w("};\n")
	case *Interface:
		r.renderInterface(n)
	case *ParentInterface:
		r.annotations(n.Annotations, " ")
		r.w(n.Type.String())
	case *Constant:
		r.annotations(n.Annotations, " ")
		r.extAttrs(n.ExtAttrs, " ")
		r.w("const %s %s = %s;\n", n.Type, n.ID, n.Value)
	case *Attribute:
		r.annotations(n.Annotations, " ")
		r.extAttrs(n.ExtAttrs, " ")
		if n.IsStatic {
			r.w("static ")
		}
		if n.IsStringifier {
			r.w("stringifier ")
		}
		if n.IsGetter {
			r.w("getter ")
		}
		if n.IsSetter {
			r.w("setter ")
		}
		r.w("attribute %s %s;\n", n.Type, n.ID)
	case *Operation:
		r.annotations(n.Annotations, " ")
		r.extAttrs(n.ExtAttrs, " ")
		if n.IsStatic {
			r.w("static ")
		}
		for _, s := range n.Specials {
			r.w(s + " ")
		}
		r.w("%s %s(", n.Type, n.ID)
		r.arguments(n.Arguments)
		r.w(");\n")
	case *Argument:
		r.extAttrs(n.ExtAttrs, " ")
		if n.Optional {
			r.w("optional ")
		}
		r.w(n.Type.String())
		if n.Variadic {
			r.w("...")
		}
		r.w(" " + n.ID)
		if n.Default != "" {
			r.w(" = " + n.Default)
		}
	case *Type:
		r.w(n.String())
	case *Snippet:
		r.annotations(n.Annotations, " ")
		r.w("snippet %s;\n", strconv.Quote(n.Text))
	case *Enum:
		r.annotations(n.Annotations, "\n")
		r.extAttrs(n.ExtAttrs, "\n")
		var values []string
		for _, v := range n.Values {
			values = append(values, strconv.Quote(v))
		}
		r.w("enum %s { %s };\n", n.ID, strings.Join(values, ", "))
	case *Typedef:
		r.w("typedef ")
		r.extAttrs(n.ExtAttrs, " ")
		r.w("%s %s;\n", n.Type, n.ID)
	case *ImplementsStatement:
		r.w("%s implements %s;\n", n.Implementor, n.Implemented)
	default:
		panic(fmt.Sprintf("unknown node type %T", node))
	}
}

func (r *renderer) renderDefinitions(d *Definitions, trailingBlank bool) {
	first := true
	sep := func() {
		if !first {
			r.w("\n")
		}
		first = false
	}
	for _, i := range d.Interfaces {
		sep()
		r.render(i)
	}
	for _, e := range d.Enums {
		sep()
		r.render(e)
	}
	for _, t := range d.Typedefs {
		sep()
		r.render(t)
	}
	for _, s := range d.ImplementsStatements {
		sep()
		r.render(s)
	}
	if trailingBlank && !first {
		r.w("\n")
	}
}

func (r *renderer) renderInterface(n *Interface) {
	r.annotations(n.Annotations, "\n")
	r.extAttrs(n.ExtAttrs, "\n")
	switch {
	case n.IsCallback:
		r.w("callback ")
	case n.IsSupplemental && !n.ExtAttrs.Has("Supplemental"):
		r.w("partial ")
	}
	r.w("interface %s", n.ID)
	if len(n.Parents) > 0 {
		r.w(" :\n")
		r.indent += 4
		for i, p := range n.Parents {
			if i > 0 {
				r.w(",\n")
			}
			r.render(p)
		}
		r.indent -= 4
	}
	r.w(" {\n")

	r.indent += 2
	if len(n.Constants) > 0 {
		r.w("\n/* Constants */\n")
		for _, c := range SortedConstants(n.Constants) {
			r.render(c)
		}
	}
	if len(n.Attributes) > 0 {
		r.w("\n/* Attributes */\n")
		for _, a := range SortedAttributes(n.Attributes) {
			r.render(a)
		}
	}
	if len(n.Operations) > 0 {
		r.w("\n/* Operations */\n")
		for _, o := range SortedOperations(n.Operations) {
			r.render(o)
		}
	}
	if len(n.Snippets) > 0 {
		r.w("\n/* Snippets */\n")
		for _, s := range n.Snippets {
			r.render(s)
		}
	}
	r.indent -= 2
	r.w("};\n")
}

func (r *renderer) arguments(args []*Argument) {
	for i, a := range args {
		if i > 0 {
			r.w(", ")
		}
		r.render(a)
	}
}

var bareValue = regexp.MustCompile(`^[\w.\-]+$`)

func (r *renderer) annotations(a Annotations, sep string) {
	if len(a) == 0 {
		return
	}
	for i, name := range a.Names() {
		if i > 0 {
			r.w(" ")
		}
		r.w("@" + name)
		args := a[name]
		if len(args) == 0 {
			continue
		}
		keys := make([]string, 0, len(args))
		for k := range args {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var parts []string
		for _, k := range keys {
			v := args[k]
			switch {
			case v == "":
				parts = append(parts, k)
			case bareValue.MatchString(v):
				parts = append(parts, k+"="+v)
			default:
				parts = append(parts, k+"="+strconv.Quote(v))
			}
		}
		r.w("(" + strings.Join(parts, ", ") + ")")
	}
	r.w(sep)
}

func (r *renderer) extAttrs(e ExtAttrs, sep string) {
	if len(e) == 0 {
		return
	}
	r.w("[")
	first := true
	for _, name := range e.Names() {
		attr := e[name]
		var value string
		var argLists [][]*Argument
		if attr != nil {
			value, argLists = attr.Value, attr.Args
		}
		head := name
		if value != "" {
			head += "=" + value
		}
		if len(argLists) == 0 {
			argLists = [][]*Argument{nil}
		}
		for _, args := range argLists {
			if !first {
				r.w(", ")
			}
			first = false
			r.w(head)
			if attr != nil && len(attr.Args) > 0 {
				r.w("(")
				r.arguments(args)
				r.w(")")
			}
		}
	}
	r.w("]")
	r.w(sep)
}

// SortedConstants returns the constants ordered by ID.
func SortedConstants(constants []*Constant) []*Constant {
	sorted := append([]*Constant(nil), constants...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	return sorted
}

// SortedAttributes returns the attributes ordered by ID, getters first.
func SortedAttributes(attributes []*Attribute) []*Attribute {
	sorted := append([]*Attribute(nil), attributes...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].ID != sorted[j].ID {
			return sorted[i].ID < sorted[j].ID
		}
		return sorted[i].IsGetter && !sorted[j].IsGetter
	})
	return sorted
}

// SortedOperations returns the operations ordered by ID. Overloads keep
// their declaration order.
func SortedOperations(operations []*Operation) []*Operation {
	sorted := append([]*Operation(nil), operations...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	return sorted
}
