// Copyright 2021 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package emitter

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// ErrUnknownCondition is returned when a template tests a condition the
// loader was not given.
var ErrUnknownCondition = errors.New("unknown $if condition")

// TemplateLoader finds template files under a root directory and applies
// their $if/$else/$endif directives.
type TemplateLoader struct {
	root       string
	subpaths   []string
	conditions map[string]bool
	cache      *Cache

	mu     sync.Mutex
	loaded map[string]string
}

// NewTemplateLoader searches root/subpath for each subpath in order.
// Templates returned by LoadTemplate are parsed through cache.
func NewTemplateLoader(root string, subpaths []string, conditions map[string]bool, cache *Cache) *TemplateLoader {
	if cache == nil {
		cache = NewCache()
	}
	c := make(map[string]bool, len(conditions))
	for k, v := range conditions {
		c[k] = v
	}
	return &TemplateLoader{
		root:       root,
		subpaths:   append([]string(nil), subpaths...),
		conditions: c,
		cache:      cache,
		loaded:     make(map[string]string),
	}
}

// TryLoad returns the preprocessed source of the named template, and false
// if no subpath has it. more adds to or overrides the loader conditions.
func (l *TemplateLoader) TryLoad(name string, more map[string]bool) (string, bool, error) {
	conditions := make(map[string]bool, len(l.conditions)+len(more))
	for k, v := range l.conditions {
		conditions[k] = v
	}
	for k, v := range more {
		conditions[k] = v
	}
	key := cacheKey(name, conditions)

	l.mu.Lock()
	defer l.mu.Unlock()
	if source, ok := l.loaded[key]; ok {
		return source, true, nil
	}
	for _, subpath := range l.subpaths {
		filename := filepath.Join(l.root, subpath, name)
		data, err := ioutil.ReadFile(filename)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return "", false, err
		}
		source, err := preprocessTemplate(filename, string(data), conditions)
		if err != nil {
			return "", false, err
		}
		glog.V(2).Infof("loaded template %s", filename)
		l.loaded[key] = source
		return source, true, nil
	}
	return "", false, nil
}

// Load is TryLoad that fails when the template does not exist.
func (l *TemplateLoader) Load(name string, more map[string]bool) (string, error) {
	source, ok, err := l.TryLoad(name, more)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errors.Errorf("could not find template %q in %s under %v", name, l.root, l.subpaths)
	}
	return source, nil
}

// LoadTemplate loads and parses the named template.
func (l *TemplateLoader) LoadTemplate(name string, more map[string]bool) (*Template, error) {
	source, err := l.Load(name, more)
	if err != nil {
		return nil, err
	}
	return l.cache.Parse(source)
}

func cacheKey(name string, conditions map[string]bool) string {
	keys := make([]string, 0, len(conditions))
	for k, v := range conditions {
		keys = append(keys, fmt.Sprintf("%s=%t", k, v))
	}
	sort.Strings(keys)
	return name + "\x00" + strings.Join(keys, ",")
}

type ifState struct {
	parentActive bool
	sawElse      bool
}

// preprocessTemplate keeps the lines of taken $if branches. Other lines that
// start with $, such as a $!MEMBERS hole, are ordinary template text.
func preprocessTemplate(filename, source string, conditions map[string]bool) (string, error) {
	fail := func(lineno int, format string, a ...interface{}) error {
		return errors.Errorf("%s:%d: %s", filename, lineno, fmt.Sprintf(format, a...))
	}
	var out strings.Builder
	var stack []ifState
	active := true
	sawElse := false
	lines := strings.SplitAfter(source, "\n")
	for n, full := range lines {
		lineno := n + 1
		fields := strings.Fields(full)
		directive := ""
		if len(fields) > 0 {
			directive = fields[0]
		}
		switch directive {
		case "$if":
			if len(fields) != 2 {
				return "", fail(lineno, "$if does not have a single variable")
			}
			value, ok := conditions[fields[1]]
			if !ok {
				return "", errors.Wrapf(ErrUnknownCondition, "%s:%d: %q", filename, lineno, fields[1])
			}
			stack = append(stack, ifState{parentActive: active, sawElse: sawElse})
			active = active && value
			sawElse = false
		case "$else":
			if len(stack) == 0 {
				return "", fail(lineno, "$else without $if")
			}
			if sawElse {
				return "", fail(lineno, "double $else")
			}
			sawElse = true
			active = !active && stack[len(stack)-1].parentActive
		case "$endif":
			if len(stack) == 0 {
				return "", fail(lineno, "$endif without $if")
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			active, sawElse = top.parentActive, top.sawElse
		default:
			if active {
				out.WriteString(full)
			}
		}
	}
	if len(stack) != 0 {
		return "", fail(len(lines), "unterminated $if")
	}
	return out.String(), nil
}
