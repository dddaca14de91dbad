// Copyright 2021 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package idl

import (
	"fmt"
	"sort"
	"strings"
	"text/scanner"

	"github.com/pkg/errors"
)

type condState struct {
	// active is whether lines of the current branch are kept.
	active bool
	// taken is whether any branch of the group was already kept.
	taken bool
	// parentActive is whether the enclosing group keeps lines.
	parentActive bool
	sawElse      bool
	line         int
}

// Preprocess evaluates the C style conditional directives of an IDL file
// against defines. Directive lines and lines of disabled branches are blanked
// so parse errors keep their positions. It returns every ENABLE_* flag named
// by a directive, sorted, whether or not the branch was taken.
func Preprocess(filename, src string, defines []string) (string, []string, error) {
	defined := make(map[string]bool, len(defines))
	for _, d := range defines {
		defined[d] = true
	}
	flags := make(map[string]bool)

	var stack []condState
	active := func() bool {
		return len(stack) == 0 || stack[len(stack)-1].active
	}
	lines := strings.Split(src, "\n")
	for n, line := range lines {
		lineno := n + 1
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "#") {
			if !active() {
				lines[n] = ""
			}
			continue
		}
		lines[n] = ""
		directive := strings.TrimSpace(trimmed[1:])
		word := directive
		rest := ""
		if i := strings.IndexAny(directive, " \t("); i >= 0 {
			word, rest = directive[:i], strings.TrimSpace(directive[i:])
		}
		fail := func(format string, a ...interface{}) error {
			return errors.Errorf("%s:%d: %s", filename, lineno, fmt.Sprintf(format, a...))
		}
		eval := func(expr string) (bool, error) {
			v, err := evalCondition(expr, defined, flags)
			if err != nil {
				return false, fail("#%s %s: %v", word, expr, err)
			}
			return v, nil
		}

		switch word {
		case "if", "ifdef", "ifndef":
			var v bool
			var err error
			switch word {
			case "if":
				v, err = eval(rest)
			case "ifdef":
				v, err = eval("defined(" + rest + ")")
			case "ifndef":
				v, err = eval("!defined(" + rest + ")")
			}
			if err != nil {
				return "", nil, err
			}
			parent := active()
			stack = append(stack, condState{
				active:       parent && v,
				taken:        v,
				parentActive: parent,
				line:         lineno,
			})
		case "elif":
			if len(stack) == 0 {
				return "", nil, fail("#elif without #if")
			}
			top := &stack[len(stack)-1]
			if top.sawElse {
				return "", nil, fail("#elif after #else")
			}
			v, err := eval(rest)
			if err != nil {
				return "", nil, err
			}
			top.active = top.parentActive && !top.taken && v
			top.taken = top.taken || v
		case "else":
			if len(stack) == 0 {
				return "", nil, fail("#else without #if")
			}
			top := &stack[len(stack)-1]
			if top.sawElse {
				return "", nil, fail("duplicate #else")
			}
			top.sawElse = true
			top.active = top.parentActive && !top.taken
			top.taken = true
		case "endif":
			if len(stack) == 0 {
				return "", nil, fail("#endif without #if")
			}
			stack = stack[:len(stack)-1]
		default:
			// #include, #define and friends carry no meaning for IDL.
		}
	}
	if len(stack) != 0 {
		return "", nil, errors.Errorf("%s:%d: unterminated #if", filename, stack[len(stack)-1].line)
	}

	var met []string
	for flag := range flags {
		met = append(met, flag)
	}
	sort.Strings(met)
	return strings.Join(lines, "\n"), met, nil
}

// condParser evaluates `defined(X)`, `!`, `&&`, `||` and parentheses. A bare
// identifier is true when it is defined.
type condParser struct {
	s       scanner.Scanner
	tok     rune
	text    string
	defined map[string]bool
	flags   map[string]bool
}

func evalCondition(expr string, defined, flags map[string]bool) (bool, error) {
	p := &condParser{defined: defined, flags: flags}
	p.s.Init(strings.NewReader(expr))
	p.s.Mode = scanner.ScanIdents | scanner.ScanInts
	p.s.Error = func(*scanner.Scanner, string) {}
	p.next()
	v, err := p.or()
	if err != nil {
		return false, err
	}
	if p.tok != scanner.EOF {
		return false, errors.Errorf("unexpected %q", p.text)
	}
	return v, nil
}

func (p *condParser) next() {
	p.tok = p.s.Scan()
	p.text = p.s.TokenText()
}

func (p *condParser) expect(r rune) error {
	if p.tok != r {
		return errors.Errorf("expected %q, found %q", r, p.text)
	}
	p.next()
	return nil
}

func (p *condParser) or() (bool, error) {
	v, err := p.and()
	if err != nil {
		return false, err
	}
	for p.tok == '|' {
		p.next()
		if err := p.expect('|'); err != nil {
			return false, err
		}
		w, err := p.and()
		if err != nil {
			return false, err
		}
		v = v || w
	}
	return v, nil
}

func (p *condParser) and() (bool, error) {
	v, err := p.unary()
	if err != nil {
		return false, err
	}
	for p.tok == '&' {
		p.next()
		if err := p.expect('&'); err != nil {
			return false, err
		}
		w, err := p.unary()
		if err != nil {
			return false, err
		}
		v = v && w
	}
	return v, nil
}

func (p *condParser) unary() (bool, error) {
	switch p.tok {
	case '!':
		p.next()
		v, err := p.unary()
		return !v, err
	case '(':
		p.next()
		v, err := p.or()
		if err != nil {
			return false, err
		}
		return v, p.expect(')')
	case scanner.Int:
		v := p.text != "0"
		p.next()
		return v, nil
	case scanner.Ident:
		if p.text == "defined" {
			p.next()
			paren := p.tok == '('
			if paren {
				p.next()
			}
			if p.tok != scanner.Ident {
				return false, errors.Errorf("expected identifier after defined, found %q", p.text)
			}
			v := p.lookup(p.text)
			p.next()
			if paren {
				return v, p.expect(')')
			}
			return v, nil
		}
		v := p.lookup(p.text)
		p.next()
		return v, nil
	}
	return false, errors.Errorf("unexpected %q", p.text)
}

func (p *condParser) lookup(name string) bool {
	if strings.HasPrefix(name, "ENABLE_") {
		p.flags[name] = true
	}
	return p.defined[name]
}
