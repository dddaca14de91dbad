// Copyright 2021 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package emitter assembles generated text from small templates.
//
// A template mixes literal text with $NAME substitutions and $!NAME holes.
// Emitting a template returns one child Emitter per hole, and content can be
// emitted into those children in any order. Substitutions are resolved
// against the bindings in scope at emit time, but only when the output is
// finally flattened, so a template may refer to names whose content is not
// produced yet.
package emitter

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Params are the bindings added by one Emit call.
type Params map[string]interface{}

// Emitter accumulates template output.
type Emitter struct {
	// items are strings, *Emitter values and deferred lookups.
	items    []interface{}
	bindings *Frame
	cache    *Cache
}

// New returns an empty emitter. Templates are parsed through cache; a nil
// cache gets a private one.
func New(cache *Cache) *Emitter {
	return NewWithBindings(cache, nil)
}

// NewWithBindings returns an empty emitter whose templates see bindings.
func NewWithBindings(cache *Cache, bindings *Frame) *Emitter {
	if cache == nil {
		cache = NewCache()
	}
	if bindings == nil {
		bindings = NewFrame(nil)
	}
	return &Emitter{bindings: bindings, cache: cache}
}

// Emit appends the template to the output with params added to the current
// bindings. It returns the emitters for the template holes in the order they
// first occur; the slice is empty when the template has no holes.
func (e *Emitter) Emit(source string, params Params) ([]*Emitter, error) {
	t, err := e.cache.Parse(source)
	if err != nil {
		return nil, err
	}
	return e.EmitTemplate(t, params), nil
}

// EmitTemplate is Emit for an already parsed template.
func (e *Emitter) EmitTemplate(t *Template, params Params) []*Emitter {
	fragments, holes := t.Apply(e.bindings.Extend(params), e.cache)
	e.items = append(e.items, fragments...)
	return holes
}

// EmitRaw appends text without scanning it for substitutions.
func (e *Emitter) EmitRaw(text string) {
	e.items = append(e.items, text)
}

// Bind renders the template into a new emitter and binds it as name for
// everything emitted afterwards. The template may not have holes.
func (e *Emitter) Bind(name, source string, params Params) (*Emitter, error) {
	t, err := e.cache.Parse(source)
	if err != nil {
		return nil, err
	}
	return e.BindTemplate(name, t, params)
}

// BindTemplate is Bind for an already parsed template.
func (e *Emitter) BindTemplate(name string, t *Template, params Params) (*Emitter, error) {
	if len(t.holes) > 0 {
		return nil, errors.Wrapf(ErrHolesInBinding, "binding %q", name)
	}
	env := e.bindings.Extend(params)
	value := &Emitter{bindings: env, cache: e.cache}
	value.items, _ = t.Apply(env, e.cache)
	e.bindings = e.bindings.Extend(map[string]interface{}{name: value})
	return value, nil
}

// Bindings returns the current binding scope.
func (e *Emitter) Bindings() *Frame {
	return e.bindings
}

// Fragments flattens the output, resolving every deferred lookup.
func (e *Emitter) Fragments() []string {
	var out []string
	flatten(e.items, &out)
	return out
}

// String returns the flattened output.
func (e *Emitter) String() string {
	return strings.Join(e.Fragments(), "")
}

// Flatten resolves fragments returned by Template.Apply into text.
func Flatten(fragments []interface{}) string {
	var out []string
	flatten(fragments, &out)
	return strings.Join(out, "")
}

func flatten(value interface{}, out *[]string) {
	switch v := value.(type) {
	case nil:
	case string:
		if v != "" {
			*out = append(*out, v)
		}
	case *Emitter:
		flatten(v.items, out)
	case deferred:
		flatten(v.env.Lookup(v.name, v.def), out)
	case []interface{}:
		for _, item := range v {
			flatten(item, out)
		}
	case []string:
		for _, item := range v {
			flatten(item, out)
		}
	case []*Emitter:
		for _, item := range v {
			flatten(item, out)
		}
	default:
		*out = append(*out, fmt.Sprint(v))
	}
}

// Format applies a template once and returns the text.
func Format(source string, params Params) (string, error) {
	e := New(nil)
	if _, err := e.Emit(source, params); err != nil {
		return "", err
	}
	return e.String(), nil
}
