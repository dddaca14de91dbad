// Copyright 2021 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package databasebuilder

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/pkg/errors"

	"go.dartlang.org/sdk/tools/dom/lib/idl"
	"go.dartlang.org/sdk/tools/lib/logger"
)

var (
	// ErrDuplicateSignature is returned when two members of one interface
	// merge to the same signature.
	ErrDuplicateSignature = errors.New("multiple members have the same signature")
	// ErrSupplementalTarget is returned when a supplemental interface names
	// an interface that does not exist.
	ErrSupplementalTarget = errors.New("supplemental target not found")
)

// MergeImportedInterfaces annotates the queued interfaces with their source,
// then adds or merges them into the database. Supplemental interfaces are
// merged after all primary interfaces, and implements statements last.
func (b *Builder) MergeImportedInterfaces(ctx context.Context) error {
	queue, implements := b.imported, b.implements
	b.imported, b.implements = nil, nil

	for _, imp := range queue {
		annotate(imp.iface, imp.opts)
	}

	for _, imp := range queue {
		if imp.iface.IsSupplemental {
			continue
		}
		if old, err := b.db.GetInterface(imp.iface.ID); err == nil {
			if err := b.mergeInterfaces(ctx, old, imp.iface, imp.opts); err != nil {
				return err
			}
		} else if imp.opts.AddNewInterfaces {
			if err := b.db.AddInterface(imp.iface); err != nil {
				return err
			}
		}
	}

	for _, imp := range queue {
		if !imp.iface.IsSupplemental {
			continue
		}
		target := imp.iface.ID
		if v := imp.iface.ExtAttrs.Value("Supplemental"); v != "" {
			target = v
		}
		old, err := b.db.GetInterface(target)
		if err != nil {
			return errors.Wrapf(ErrSupplementalTarget, "%s supplements %q", imp.iface.ID, target)
		}
		if err := b.mergeInterfaces(ctx, old, imp.iface, imp.opts); err != nil {
			return err
		}
	}

	for _, impl := range implements {
		b.mergeImplements(ctx, impl.stmt, impl.opts)
	}
	return nil
}

// annotate adds @Source(attrs) to an interface and its members. Nodes marked
// [Suppressed] get a bare `suppressed` argument as well.
func annotate(i *idl.Interface, opts *Options) {
	if opts.Source == "" {
		return
	}
	add := func(annotations *idl.Annotations, extAttrs idl.ExtAttrs) {
		a := idl.Annotation{}
		for k, v := range opts.SourceAttributes {
			a[k] = v
		}
		if extAttrs.Has("Suppressed") {
			a["suppressed"] = ""
		}
		if *annotations == nil {
			*annotations = idl.Annotations{}
		}
		(*annotations)[opts.Source] = a
	}
	add(&i.Annotations, i.ExtAttrs)
	for _, p := range i.Parents {
		add(&p.Annotations, nil)
	}
	for _, c := range i.Constants {
		add(&c.Annotations, c.ExtAttrs)
	}
	for _, a := range i.Attributes {
		add(&a.Annotations, a.ExtAttrs)
	}
	for _, o := range i.Operations {
		add(&o.Annotations, o.ExtAttrs)
	}
}

func (b *Builder) mergeInterfaces(ctx context.Context, old, incoming *idl.Interface, opts *Options) error {
	changed := false
	source := opts.Source
	if source != "" && !old.Annotations.Has(source) && incoming.Annotations.Has(source) && !incoming.IsSupplemental {
		if old.Annotations == nil {
			old.Annotations = idl.Annotations{}
		}
		old.Annotations[source] = incoming.Annotations[source]
		changed = true
	}

	if old.ID != incoming.ID {
		for _, n := range append(append(constantNodes(incoming.Constants), attributeNodes(incoming.Attributes)...), operationNodes(incoming.Operations)...) {
			e := extAttrsOf(n)
			if *e == nil {
				*e = idl.ExtAttrs{}
			}
			(*e)["ImplementedBy"] = &idl.ExtAttr{Value: incoming.ID}
		}
	}

	var err error
	mergeList := func(oldList, newList []idl.Node) []idl.Node {
		if err != nil {
			return oldList
		}
		var listChanged bool
		oldList, listChanged, err = b.mergeNodes(ctx, oldList, newList, opts)
		if listChanged {
			changed = true
			if opts.ObsoleteOldDeclarations {
				oldList = withAnnotations(oldList)
			}
		}
		return oldList
	}
	old.Parents = parentsOf(mergeList(parentNodes(old.Parents), parentNodes(incoming.Parents)))
	old.Constants = constantsOf(mergeList(constantNodes(old.Constants), constantNodes(incoming.Constants)))
	old.Attributes = attributesOf(mergeList(attributeNodes(old.Attributes), attributeNodes(incoming.Attributes)))
	old.Operations = operationsOf(mergeList(operationNodes(old.Operations), operationNodes(incoming.Operations)))
	if err != nil {
		return errors.Wrapf(err, "merging %s into %s", incoming.ID, old.ID)
	}
	if mergeSnippets(old, incoming) {
		changed = true
	}
	extAttrs := incoming.ExtAttrs.Clone()
	delete(extAttrs, "Supplemental")
	if mergeExtAttrs(&old.ExtAttrs, extAttrs) {
		changed = true
	}
	logger.Debugf(ctx, "merged interface %s (changed=%t, supplemental=%t)", old.ID, changed, incoming.IsSupplemental)
	return nil
}

// mergeNodes merges newList into oldList by signature and reports whether
// oldList changed.
func (b *Builder) mergeNodes(ctx context.Context, oldList, newList []idl.Node, opts *Options) ([]idl.Node, bool, error) {
	changed := false
	source := opts.Source
	oldSigs, err := b.signatures(oldList)
	if err != nil {
		return oldList, false, err
	}
	newSigs, err := b.signatures(newList)
	if err != nil {
		return oldList, false, err
	}

	// newList order keeps appended members in declaration order.
	seen := make(map[string]bool)
	for _, newNode := range newList {
		sig := b.sign(newNode)
		if seen[sig] {
			continue
		}
		seen[sig] = true
		newNode = newSigs[sig]
		oldNode, ok := oldSigs[sig]
		if !ok {
			oldList = append(oldList, newNode)
			changed = true
			continue
		}

		oldAnn, newAnn := annotationsOf(oldNode), annotationsOf(newNode)
		if !oldAnn.Has(source) && newAnn.Has(source) {
			if *oldAnn == nil {
				*oldAnn = idl.Annotations{}
			}
			(*oldAnn)[source] = (*newAnn)[source]
			changed = true
		}

		if oldOp, ok := oldNode.(*idl.Operation); ok {
			newOp := newNode.(*idl.Operation)
			for i, oldArg := range oldOp.Arguments {
				if i >= len(newOp.Arguments) {
					break
				}
				newArg := newOp.Arguments[i]
				if oldArg.ID != newArg.ID && (oldArg.ID == "arg" || strings.HasSuffix(oldArg.ID, "Arg") || opts.RenameOperationArgumentsOnMerge) {
					oldArg.ID = newArg.ID
					changed = true
				}
				if mergeExtAttrs(&oldArg.ExtAttrs, newArg.ExtAttrs) {
					changed = true
				}
				if oldArg.Default == "" && newArg.Default != "" {
					oldArg.Default = newArg.Default
					changed = true
				}
			}
		}
		if e := extAttrsOf(oldNode); e != nil {
			if mergeExtAttrs(e, *extAttrsOf(newNode)) {
				changed = true
			}
		}
	}

	if opts.ObsoleteOldDeclarations && source != "" {
		for _, oldNode := range oldList {
			sig := b.sign(oldNode)
			ann := annotationsOf(oldNode)
			if _, ok := newSigs[sig]; ok || !ann.Has(source) {
				continue
			}
			logger.Warningf(ctx, "%s not available in %s anymore", sig, source)
			delete(*ann, source)
			changed = true
		}
	}
	return oldList, changed, nil
}

// signatures maps each node's signature to the node. Two members with one
// signature are an error unless exactly one of them is suppressed; the later
// one wins.
func (b *Builder) signatures(nodes []idl.Node) (map[string]idl.Node, error) {
	sigs := make(map[string]idl.Node, len(nodes))
	for _, n := range nodes {
		sig := b.sign(n)
		if prev, ok := sigs[sig]; ok && suppressed(prev) == suppressed(n) {
			return nil, errors.Wrapf(ErrDuplicateSignature, "%q", sig)
		}
		sigs[sig] = n
	}
	return sigs, nil
}

// sign computes the merge identity of a node from its kind, names and types.
func (b *Builder) sign(n idl.Node) string {
	var parts []string
	switch n := n.(type) {
	case *idl.Type:
		id := strings.TrimPrefix(n.ID, "unsigned ")
		if same, ok := b.sameSignature[id]; ok {
			return same
		}
		return id
	case *idl.Interface:
		parts = []string{"interface", n.ID}
	case *idl.ParentInterface:
		parts = []string{"parent", b.sign(n.Type)}
	case *idl.Operation:
		parts = append(parts, "op")
		parts = append(parts, n.Specials...)
		if n.ID != "" {
			parts = append(parts, n.ID)
		}
		for _, arg := range n.Arguments {
			parts = append(parts, b.sign(arg.Type))
		}
		parts = append(parts, b.sign(n.Type))
	case *idl.Attribute:
		if n.IsGetter {
			parts = append(parts, "getter")
		}
		if n.IsSetter {
			parts = append(parts, "setter")
		}
		parts = append(parts, n.ID, b.sign(n.Type))
	case *idl.Constant:
		parts = []string{"const", n.ID, n.Value, b.sign(n.Type)}
	default:
		panic(fmt.Sprintf("cannot sign %T", n))
	}
	return strings.Join(parts, ":")
}

func (b *Builder) mergeImplements(ctx context.Context, stmt *idl.ImplementsStatement, opts *Options) {
	implementor, implemented := stmt.Implementor.ID, stmt.Implemented.ID
	logger.Debugf(ctx, "merging %s implements %s", implementor, implemented)
	i, err := b.db.GetInterface(implementor)
	if err != nil {
		return
	}
	annotation := func() idl.Annotation {
		a := idl.Annotation{}
		for k, v := range opts.SourceAttributes {
			a[k] = v
		}
		return a
	}
	for _, p := range i.Parents {
		if p.Type.ID != implemented {
			continue
		}
		if opts.Source != "" && !p.Annotations.Has(opts.Source) {
			if p.Annotations == nil {
				p.Annotations = idl.Annotations{}
			}
			p.Annotations[opts.Source] = annotation()
		}
		return
	}
	p := &idl.ParentInterface{Type: &idl.Type{ID: implemented}}
	if opts.Source != "" {
		p.Annotations = idl.Annotations{opts.Source: annotation()}
	}
	i.Parents = append(i.Parents, p)
}

// mergeExtAttrs copies incoming attributes into old and reports whether old
// changed. An existing ImplementedAs is never overridden.
func mergeExtAttrs(old *idl.ExtAttrs, incoming idl.ExtAttrs) bool {
	changed := false
	for _, name := range incoming.Names() {
		value := incoming[name]
		if prev, ok := (*old)[name]; ok {
			if name == "ImplementedAs" || reflect.DeepEqual(prev, value) {
				continue
			}
		}
		if *old == nil {
			*old = idl.ExtAttrs{}
		}
		(*old)[name] = value
		changed = true
	}
	return changed
}

func mergeSnippets(old, incoming *idl.Interface) bool {
	changed := false
next:
	for _, s := range incoming.Snippets {
		for _, o := range old.Snippets {
			if o.Text == s.Text {
				continue next
			}
		}
		old.Snippets = append(old.Snippets, s)
		changed = true
	}
	return changed
}

// FixDisplacements records members that source declares on an ancestor
// while another source declares them on the interface itself, as when W3C
// puts a member on HTMLDocument and WebKit puts it on Document. Such a member
// gains @source(via=Ancestor). Ancestor members that are themselves displaced
// are skipped, so the via names the interface that really declares the member.
func (b *Builder) FixDisplacements(ctx context.Context, source string) {
	for _, i := range b.db.Interfaces() {
		for _, ancestor := range b.db.Hierarchy(i) {
			n := 0
			n += b.fixDisplaced(source, ancestor.ID, constantNodes(i.Constants), constantNodes(ancestor.Constants))
			n += b.fixDisplaced(source, ancestor.ID, attributeNodes(i.Attributes), attributeNodes(ancestor.Attributes))
			n += b.fixDisplaced(source, ancestor.ID, operationNodes(i.Operations), operationNodes(ancestor.Operations))
			if n > 0 {
				logger.Debugf(ctx, "%s: %d members of %s displaced to %s", source, n, i.ID, ancestor.ID)
			}
		}
	}
}

func (b *Builder) fixDisplaced(source, via string, members, ancestorMembers []idl.Node) int {
	inherited := make(map[string]idl.Node, len(ancestorMembers))
	for _, m := range ancestorMembers {
		inherited[b.sign(m)] = m
	}
	fixed := 0
	for _, m := range members {
		parent, ok := inherited[b.sign(m)]
		if !ok {
			continue
		}
		declared, ok := (*annotationsOf(parent))[source]
		if !ok || declared.Has("via") {
			continue
		}
		ann := annotationsOf(m)
		if ann.Has(source) {
			continue
		}
		if *ann == nil {
			*ann = idl.Annotations{}
		}
		(*ann)[source] = idl.Annotation{"via": via}
		fixed++
	}
	return fixed
}

// NormalizeAnnotations removes member annotation arguments that repeat the
// interface-level annotation of the same source.
func (b *Builder) NormalizeAnnotations(ctx context.Context, sources []string) {
	for _, i := range b.db.Interfaces() {
		logger.Tracef(ctx, "normalizing annotations for %s", i.ID)
		for _, source := range sources {
			top := i.Annotations[source]
			if len(top) == 0 {
				continue
			}
			var nodes []idl.Node
			nodes = append(nodes, parentNodes(i.Parents)...)
			nodes = append(nodes, constantNodes(i.Constants)...)
			nodes = append(nodes, attributeNodes(i.Attributes)...)
			nodes = append(nodes, operationNodes(i.Operations)...)
			for _, n := range nodes {
				ann := (*annotationsOf(n))[source]
				for k, v := range ann {
					if tv, ok := top[k]; ok && tv == v {
						delete(ann, k)
					}
				}
			}
		}
	}
}
