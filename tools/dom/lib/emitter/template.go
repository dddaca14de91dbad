// Copyright 2021 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package emitter

import (
	"regexp"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
)

var (
	// ErrDuplicateHole is returned when a template names the same hole twice.
	ErrDuplicateHole = errors.New("duplicate hole")
	// ErrHolesInBinding is returned when Bind is given a template with holes.
	ErrHolesInBinding = errors.New("cannot bind a template that has holes")
)

// $FOO  $(FOO)  $!FOO  $(!FOO)  $?FOO  $(?FOO)
var substitution = regexp.MustCompile(`\$(\w+|\(\w+\))|\$!(\w+)|\$\(!(\w+)\)|\$\?(\w+)|\$\(\?(\w+)\)`)

// lookup is a reference to a name in a template. def is returned when the
// name is unbound at flatten time.
type lookup struct {
	name string
	def  interface{}
}

// Template is the parsed form of a template source. It is immutable and may
// be applied any number of times.
type Template struct {
	// items are literal strings and lookups.
	items []interface{}
	holes []string
}

// Holes returns the hole names in the order they first occur.
func (t *Template) Holes() []string {
	return append([]string(nil), t.holes...)
}

// Parse parses a template source.
//
//	$NAME, $(NAME)    substitute NAME, or leave the marker as is when unbound
//	$!NAME, $(!NAME)  a hole filled through the emitter returned for it
//	$?NAME, $(?NAME)  substitute NAME, or nothing when unbound
func Parse(source string) (*Template, error) {
	t := &Template{}
	seen := make(map[string]bool)
	last := 0
	for _, m := range substitution.FindAllStringSubmatchIndex(source, -1) {
		if m[0] > last {
			t.items = append(t.items, source[last:m[0]])
		}
		last = m[1]
		group := func(n int) string {
			if m[2*n] < 0 {
				return ""
			}
			return source[m[2*n]:m[2*n+1]]
		}
		switch {
		case group(1) != "":
			name := group(1)
			if name[0] == '(' {
				name = name[1 : len(name)-1]
			}
			t.items = append(t.items, lookup{name: name, def: source[m[0]:m[1]]})
		case group(2) != "" || group(3) != "":
			name := group(2) + group(3)
			if seen[name] {
				return nil, errors.Wrapf(ErrDuplicateHole, "%q in template %q", name, source)
			}
			seen[name] = true
			t.holes = append(t.holes, name)
			t.items = append(t.items, lookup{name: name})
		default:
			t.items = append(t.items, lookup{name: group(4) + group(5), def: ""})
		}
	}
	if last < len(source) {
		t.items = append(t.items, source[last:])
	}
	return t, nil
}

// Apply instantiates the template in env. Every hole gets a fresh emitter
// bound to env, and the returned fragments resolve their lookups against env
// extended with those emitters only when flattened.
func (t *Template) Apply(env *Frame, cache *Cache) ([]interface{}, []*Emitter) {
	if cache == nil {
		cache = NewCache()
	}
	var holes []*Emitter
	if len(t.holes) > 0 {
		replacements := make(map[string]interface{}, len(t.holes))
		for _, name := range t.holes {
			e := &Emitter{bindings: env, cache: cache}
			replacements[name] = e
			holes = append(holes, e)
		}
		env = env.Extend(replacements)
	}
	fragments := make([]interface{}, 0, len(t.items))
	for _, item := range t.items {
		switch item := item.(type) {
		case string:
			fragments = append(fragments, item)
		case lookup:
			fragments = append(fragments, deferred{lookup: item, env: env})
		}
	}
	return fragments, holes
}

// deferred is a lookup waiting for the template output to be flattened.
type deferred struct {
	lookup
	env *Frame
}

// DefaultCacheSize bounds caches created by NewCache.
const DefaultCacheSize = 4096

// Cache memoizes parsed templates by their literal source, evicting the least
// recently used template once full. A cache belongs to one generation run.
type Cache struct {
	templates *lru.Cache
}

func NewCache() *Cache {
	return NewCacheSize(DefaultCacheSize)
}

// NewCacheSize returns a cache holding at most size templates. A size below
// one means DefaultCacheSize.
func NewCacheSize(size int) *Cache {
	if size < 1 {
		size = DefaultCacheSize
	}
	templates, err := lru.New(size)
	if err != nil {
		// lru.New only fails on a non-positive size.
		panic(err)
	}
	return &Cache{templates: templates}
}

// Parse returns the parsed template for source, parsing it on first use.
// Templates are immutable, so two goroutines racing on one source may both
// parse it.
func (c *Cache) Parse(source string) (*Template, error) {
	if t, ok := c.templates.Get(source); ok {
		return t.(*Template), nil
	}
	t, err := Parse(source)
	if err != nil {
		return nil, err
	}
	c.templates.Add(source, t)
	return t, nil
}

// Len returns the number of cached templates.
func (c *Cache) Len() int {
	return c.templates.Len()
}

// Frame is an immutable scope of template bindings. Lookups that miss fall
// through to the parent frame.
type Frame struct {
	vars   map[string]interface{}
	parent *Frame
}

// NewFrame returns a root frame holding a copy of vars.
func NewFrame(vars map[string]interface{}) *Frame {
	return (*Frame)(nil).Extend(vars)
}

// Lookup returns the innermost binding of name, or def.
func (f *Frame) Lookup(name string, def interface{}) interface{} {
	for ; f != nil; f = f.parent {
		if v, ok := f.vars[name]; ok {
			return v
		}
	}
	return def
}

// Extend returns a child frame binding vars. The receiver is not modified.
func (f *Frame) Extend(vars map[string]interface{}) *Frame {
	child := &Frame{vars: make(map[string]interface{}, len(vars)), parent: f}
	for k, v := range vars {
		child.vars[k] = v
	}
	return child
}
