// Copyright 2021 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package idl parses interface definition files in the WebIDL, WebKit and
// FremontCut dialects into a typed tree, and renders that tree back into the
// canonical FremontCut text stored in an interface database.
package idl

import "sort"

// Node is implemented by every element of a parsed tree.
type Node interface {
	idlNode()
}

func (*File) idlNode()                {}
func (*Module) idlNode()              {}
func (*Interface) idlNode()           {}
func (*ParentInterface) idlNode()     {}
func (*Constant) idlNode()            {}
func (*Attribute) idlNode()           {}
func (*Operation) idlNode()           {}
func (*Argument) idlNode()            {}
func (*Type) idlNode()                {}
func (*Snippet) idlNode()             {}
func (*Enum) idlNode()                {}
func (*Typedef) idlNode()             {}
func (*ImplementsStatement) idlNode() {}

// Definitions are the top level declarations of a file or module.
type Definitions struct {
	Interfaces           []*Interface
	Enums                []*Enum
	Typedefs             []*Typedef
	ImplementsStatements []*ImplementsStatement
}

// File is the result of parsing one IDL file.
type File struct {
	Filename string
	Modules  []*Module
	Definitions

	// Skipped lists the members the parser accepted but does not model.
	Skipped []SkippedMember
}

// SkippedMember is an interface member such as iterable<T>, maplike<K, V>,
// serializer or a bare stringifier, which the AST has no node for.
type SkippedMember struct {
	Interface    string
	Kind         string
	Line, Column int
}

// AllInterfaces returns the interfaces of the file, including those nested
// in modules, in declaration order.
func (f *File) AllInterfaces() []*Interface {
	all := append([]*Interface(nil), f.Interfaces...)
	for _, m := range f.Modules {
		all = append(all, m.Interfaces...)
	}
	return all
}

// AllEnums returns the enums of the file, including those nested in modules.
func (f *File) AllEnums() []*Enum {
	all := append([]*Enum(nil), f.Enums...)
	for _, m := range f.Modules {
		all = append(all, m.Enums...)
	}
	return all
}

// AllTypedefs returns the typedefs of the file, including those nested in
// modules.
func (f *File) AllTypedefs() []*Typedef {
	all := append([]*Typedef(nil), f.Typedefs...)
	for _, m := range f.Modules {
		all = append(all, m.Typedefs...)
	}
	return all
}

// AllImplementsStatements returns the implements statements of the file,
// including those nested in modules.
func (f *File) AllImplementsStatements() []*ImplementsStatement {
	all := append([]*ImplementsStatement(nil), f.ImplementsStatements...)
	for _, m := range f.Modules {
		all = append(all, m.ImplementsStatements...)
	}
	return all
}

// Module is a WebKit style `module name { ... };` block.
type Module struct {
	ID          string
	Annotations Annotations
	ExtAttrs    ExtAttrs
	Definitions
}

// Interface is the unit stored in a database: one per file.
type Interface struct {
	ID          string
	Parents     []*ParentInterface
	Constants   []*Constant
	Attributes  []*Attribute
	Operations  []*Operation
	Snippets    []*Snippet
	Annotations Annotations
	ExtAttrs    ExtAttrs

	// Source names the import pass that produced the interface. It is not
	// part of the rendered text.
	Source string

	// IsSupplemental is set for `partial interface` and [Supplemental].
	IsSupplemental bool
	IsCallback     bool
}

// HasAnnotation reports whether the interface carries @name.
func (i *Interface) HasAnnotation(name string) bool {
	_, ok := i.Annotations[name]
	return ok
}

// IsReadOnly reports whether the attribute id has a getter but no setter.
func (i *Interface) IsReadOnly(id string) bool {
	getter, setter := false, false
	for _, a := range i.Attributes {
		if a.ID != id {
			continue
		}
		getter = getter || a.IsGetter
		setter = setter || a.IsSetter
	}
	return getter && !setter
}

// HasParent reports whether id is one of the direct parents.
func (i *Interface) HasParent(id string) bool {
	for _, p := range i.Parents {
		if p.Type.ID == id {
			return true
		}
	}
	return false
}

// HasMembers reports whether the interface declares anything besides parents.
func (i *Interface) HasMembers() bool {
	return len(i.Constants)+len(i.Attributes)+len(i.Operations)+len(i.Snippets) > 0
}

// ParentInterface is one entry after the `:` of an interface declaration.
type ParentInterface struct {
	Type        *Type
	Annotations Annotations
}

// Type is a reference to a type. ID is canonical text: multiword primitives
// joined by a single space, scoped names as a::b, generic parameters separated
// by ", ", and array suffixes as [].
type Type struct {
	ID       string
	Nullable bool
}

// String returns the type as written in IDL.
func (t *Type) String() string {
	if t.Nullable {
		return t.ID + "?"
	}
	return t.ID
}

// Constant is a `const T ID = value;` member. Value is kept as written.
type Constant struct {
	ID          string
	Type        *Type
	Value       string
	Annotations Annotations
	ExtAttrs    ExtAttrs
}

// Attribute is one half of an IDL attribute: a node is either the getter or
// the setter. `attribute T x;` parses into both, `readonly attribute` into a
// getter only.
type Attribute struct {
	ID            string
	Type          *Type
	IsGetter      bool
	IsSetter      bool
	IsStatic      bool
	IsStringifier bool
	Annotations   Annotations
	ExtAttrs      ExtAttrs
}

// Operation is a method. Overloads share an ID. Special operations may have
// an empty ID.
type Operation struct {
	ID          string
	Type        *Type
	Arguments   []*Argument
	Specials    []string
	IsStatic    bool
	Annotations Annotations
	ExtAttrs    ExtAttrs
}

// HasSpecial reports whether the operation is declared with the given special
// keyword (getter, setter, creator, deleter, legacycaller or stringifier).
func (o *Operation) HasSpecial(special string) bool {
	for _, s := range o.Specials {
		if s == special {
			return true
		}
	}
	return false
}

type Argument struct {
	ID       string
	Type     *Type
	Optional bool
	Variadic bool
	Default  string
	ExtAttrs ExtAttrs
}

// IsOptional also honors the WebKit [Optional] extended attribute.
func (a *Argument) IsOptional() bool {
	return a.Optional || a.ExtAttrs.Has("Optional")
}

// Snippet is a block of target code carried verbatim by FremontCut files.
type Snippet struct {
	Text        string
	Annotations Annotations
}

type Enum struct {
	ID          string
	Values      []string
	Annotations Annotations
	ExtAttrs    ExtAttrs
}

type Typedef struct {
	ID       string
	Type     *Type
	ExtAttrs ExtAttrs
}

// ImplementsStatement is `Implementor implements Implemented;`.
type ImplementsStatement struct {
	Implementor *Type
	Implemented *Type
}

// Annotation holds the arguments of one @Name(...) annotation. A bare
// argument such as @WebKit(suppressed) maps to the empty string.
type Annotation map[string]string

// Has reports whether the annotation carries the argument.
func (a Annotation) Has(arg string) bool {
	_, ok := a[arg]
	return ok
}

// Annotations maps annotation names to their arguments.
type Annotations map[string]Annotation

// Has reports whether the annotation name is present.
func (a Annotations) Has(name string) bool {
	_, ok := a[name]
	return ok
}

// Names returns the annotation names in sorted order.
func (a Annotations) Names() []string {
	names := make([]string, 0, len(a))
	for name := range a {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ExtAttr is one bracketed extended attribute. Value is the text after `=`
// (`A|B` lists kept verbatim). Args holds one list per parenthesized
// occurrence, so repeated [Constructor(...)] attributes accumulate.
type ExtAttr struct {
	Value string
	Args  [][]*Argument
}

// ExtAttrs maps extended attribute names to their values.
type ExtAttrs map[string]*ExtAttr

// Has reports whether the extended attribute name is present.
func (e ExtAttrs) Has(name string) bool {
	_, ok := e[name]
	return ok
}

// Value returns the value of name, or "" when it is absent or bare.
func (e ExtAttrs) Value(name string) string {
	if a, ok := e[name]; ok && a != nil {
		return a.Value
	}
	return ""
}

// Names returns the extended attribute names in sorted order.
func (e ExtAttrs) Names() []string {
	names := make([]string, 0, len(e))
	for name := range e {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
