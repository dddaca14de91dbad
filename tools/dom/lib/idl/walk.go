// Copyright 2021 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package idl

// Walk calls fn for node and, while fn returns true, for every node beneath
// it in declaration order. Arguments of extended attributes are visited after
// the node that owns them.
func Walk(node Node, fn func(Node) bool) {
	if node == nil || !fn(node) {
		return
	}
	switch n := node.(type) {
	case *File:
		for _, m := range n.Modules {
			Walk(m, fn)
		}
		walkDefinitions(&n.Definitions, fn)
	case *Module:
		walkExtAttrs(n.ExtAttrs, fn)
		walkDefinitions(&n.Definitions, fn)
	case *Interface:
		walkExtAttrs(n.ExtAttrs, fn)
		for _, p := range n.Parents {
			Walk(p, fn)
		}
		for _, c := range n.Constants {
			Walk(c, fn)
		}
		for _, a := range n.Attributes {
			Walk(a, fn)
		}
		for _, o := range n.Operations {
			Walk(o, fn)
		}
		for _, s := range n.Snippets {
			Walk(s, fn)
		}
	case *ParentInterface:
		walkType(n.Type, fn)
	case *Constant:
		walkType(n.Type, fn)
		walkExtAttrs(n.ExtAttrs, fn)
	case *Attribute:
		walkType(n.Type, fn)
		walkExtAttrs(n.ExtAttrs, fn)
	case *Operation:
		walkType(n.Type, fn)
		for _, a := range n.Arguments {
			Walk(a, fn)
		}
		walkExtAttrs(n.ExtAttrs, fn)
	case *Argument:
		walkType(n.Type, fn)
		walkExtAttrs(n.ExtAttrs, fn)
	case *Enum:
		walkExtAttrs(n.ExtAttrs, fn)
	case *Typedef:
		walkType(n.Type, fn)
		walkExtAttrs(n.ExtAttrs, fn)
	case *ImplementsStatement:
		walkType(n.Implementor, fn)
		walkType(n.Implemented, fn)
	}
}

func walkType(t *Type, fn func(Node) bool) {
	if t != nil {
		Walk(t, fn)
	}
}

func walkDefinitions(d *Definitions, fn func(Node) bool) {
	for _, i := range d.Interfaces {
		Walk(i, fn)
	}
	for _, e := range d.Enums {
		Walk(e, fn)
	}
	for _, t := range d.Typedefs {
		Walk(t, fn)
	}
	for _, s := range d.ImplementsStatements {
		Walk(s, fn)
	}
}

// Extended attributes are visited in name order so walks are deterministic.
func walkExtAttrs(e ExtAttrs, fn func(Node) bool) {
	for _, name := range e.Names() {
		attr := e[name]
		if attr == nil {
			continue
		}
		for _, args := range attr.Args {
			for _, a := range args {
				Walk(a, fn)
			}
		}
	}
}

// Types returns every type reference beneath node.
func Types(node Node) []*Type {
	var types []*Type
	Walk(node, func(n Node) bool {
		if t, ok := n.(*Type); ok {
			types = append(types, t)
		}
		return true
	})
	return types
}

func (t *Type) Clone() *Type {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func (a Annotation) Clone() Annotation {
	if a == nil {
		return nil
	}
	c := make(Annotation, len(a))
	for k, v := range a {
		c[k] = v
	}
	return c
}

func (a Annotations) Clone() Annotations {
	if a == nil {
		return nil
	}
	c := make(Annotations, len(a))
	for k, v := range a {
		c[k] = v.Clone()
	}
	return c
}

func (e *ExtAttr) Clone() *ExtAttr {
	if e == nil {
		return nil
	}
	c := &ExtAttr{Value: e.Value}
	for _, args := range e.Args {
		c.Args = append(c.Args, cloneArguments(args))
	}
	return c
}

func (e ExtAttrs) Clone() ExtAttrs {
	if e == nil {
		return nil
	}
	c := make(ExtAttrs, len(e))
	for k, v := range e {
		c[k] = v.Clone()
	}
	return c
}

func (a *Argument) Clone() *Argument {
	c := *a
	c.Type = a.Type.Clone()
	c.ExtAttrs = a.ExtAttrs.Clone()
	return &c
}

func cloneArguments(args []*Argument) []*Argument {
	if args == nil {
		return nil
	}
	c := make([]*Argument, len(args))
	for i, a := range args {
		c[i] = a.Clone()
	}
	return c
}

func (p *ParentInterface) Clone() *ParentInterface {
	return &ParentInterface{Type: p.Type.Clone(), Annotations: p.Annotations.Clone()}
}

func (c *Constant) Clone() *Constant {
	n := *c
	n.Type = c.Type.Clone()
	n.Annotations = c.Annotations.Clone()
	n.ExtAttrs = c.ExtAttrs.Clone()
	return &n
}

func (a *Attribute) Clone() *Attribute {
	n := *a
	n.Type = a.Type.Clone()
	n.Annotations = a.Annotations.Clone()
	n.ExtAttrs = a.ExtAttrs.Clone()
	return &n
}

func (o *Operation) Clone() *Operation {
	n := *o
	n.Type = o.Type.Clone()
	n.Arguments = cloneArguments(o.Arguments)
	n.Specials = append([]string(nil), o.Specials...)
	n.Annotations = o.Annotations.Clone()
	n.ExtAttrs = o.ExtAttrs.Clone()
	return &n
}

func (s *Snippet) Clone() *Snippet {
	return &Snippet{Text: s.Text, Annotations: s.Annotations.Clone()}
}

// Clone returns a deep copy of the interface; no maps or slices are shared.
func (i *Interface) Clone() *Interface {
	n := *i
	n.Parents = nil
	for _, p := range i.Parents {
		n.Parents = append(n.Parents, p.Clone())
	}
	n.Constants = nil
	for _, c := range i.Constants {
		n.Constants = append(n.Constants, c.Clone())
	}
	n.Attributes = nil
	for _, a := range i.Attributes {
		n.Attributes = append(n.Attributes, a.Clone())
	}
	n.Operations = nil
	for _, o := range i.Operations {
		n.Operations = append(n.Operations, o.Clone())
	}
	n.Snippets = nil
	for _, s := range i.Snippets {
		n.Snippets = append(n.Snippets, s.Clone())
	}
	n.Annotations = i.Annotations.Clone()
	n.ExtAttrs = i.ExtAttrs.Clone()
	return &n
}

func (e *Enum) Clone() *Enum {
	n := *e
	n.Values = append([]string(nil), e.Values...)
	n.Annotations = e.Annotations.Clone()
	n.ExtAttrs = e.ExtAttrs.Clone()
	return &n
}

func (t *Typedef) Clone() *Typedef {
	return &Typedef{ID: t.ID, Type: t.Type.Clone(), ExtAttrs: t.ExtAttrs.Clone()}
}

func (s *ImplementsStatement) Clone() *ImplementsStatement {
	return &ImplementsStatement{Implementor: s.Implementor.Clone(), Implemented: s.Implemented.Clone()}
}
