// Copyright 2021 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package generator

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"go.dartlang.org/sdk/tools/dom/lib/database"
	"go.dartlang.org/sdk/tools/dom/lib/idl"
	"go.dartlang.org/sdk/tools/lib/color"
	"go.dartlang.org/sdk/tools/lib/logger"
)

const shapesIDL = `
@A1 @A2
interface Shape {
  @A1 @A2 const long CONSTANT = 1;
  @A1 @A2 getter attribute long attr;
  @A1 boolean extra();
  @A1 @A2 boolean op();
};

@A3
interface Rectangle :
    @A3 Shape {
  @A3 getter attribute long width;
  @A3 getter attribute Unknown mystery;
  @A3 void resize(sequence<Unknown> sizes);
  @A3 void draw(sequence<Shape?> shapes, (long or DOMString)[] labels);
};

@A1
interface Line :
    @A1 Shape {
};
`

func newDatabase(t *testing.T, src string) *database.Database {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "database"))
	if err != nil {
		t.Fatal(err)
	}
	file, err := idl.Parse("test.idl", src, idl.FremontCutSyntax)
	if err != nil {
		t.Fatal(err)
	}
	for _, i := range file.AllInterfaces() {
		if err := db.AddInterface(i); err != nil {
			t.Fatal(err)
		}
	}
	for _, e := range file.AllEnums() {
		db.AddEnum(e)
	}
	return db
}

func testContext(out io.Writer) (context.Context, *logger.Logger) {
	l := logger.NewLogger(logger.WarningLevel, color.NewColor(color.ColorNever), out, out, "")
	return logger.WithLogger(context.Background(), l), l
}

func ids(interfaces []*idl.Interface) []string {
	var ids []string
	for _, i := range interfaces {
		ids = append(ids, i.ID)
	}
	return ids
}

func TestFilterInterfaces(t *testing.T) {
	db := newDatabase(t, shapesIDL)
	var out bytes.Buffer
	ctx, l := testContext(&out)
	opts := FilterOptions{AndAnnotations: []string{"A1", "A2"}, OrAnnotations: []string{"A3"}}
	if err := FilterInterfaces(ctx, db, opts); err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]string{"Rectangle", "Shape"}, ids(db.Interfaces())); diff != "" {
		t.Errorf("interfaces mismatch (-want +got):\n%s", diff)
	}

	shape, err := db.GetInterface("Shape")
	if err != nil {
		t.Fatal(err)
	}
	want := `@A1 @A2
interface Shape {

  /* Constants */
  @A1 @A2 const long CONSTANT = 1;

  /* Attributes */
  @A1 @A2 getter attribute long attr;

  /* Operations */
  @A1 @A2 boolean op();
};
`
	if diff := cmp.Diff(want, idl.Render(shape)); diff != "" {
		t.Errorf("Shape mismatch (-want +got):\n%s", diff)
	}

	rect, err := db.GetInterface("Rectangle")
	if err != nil {
		t.Fatal(err)
	}
	if !rect.HasParent("Shape") {
		t.Errorf("Rectangle lost its parent")
	}
	var members []string
	for _, a := range rect.Attributes {
		members = append(members, a.ID)
	}
	for _, o := range rect.Operations {
		members = append(members, o.ID)
	}
	if diff := cmp.Diff([]string{"width", "draw"}, members); diff != "" {
		t.Errorf("Rectangle members mismatch (-want +got):\n%s", diff)
	}
	if l.Warnings() != 2 {
		t.Errorf("got %d warnings, want one per dropped member:\n%s", l.Warnings(), out.String())
	}
}

func TestFilterInterfacesWithoutAndAnnotations(t *testing.T) {
	tests := []struct {
		name string
		opts FilterOptions
	}{
		{name: "empty filter"},
		{name: "or only", opts: FilterOptions{OrAnnotations: []string{"A3"}}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			db := newDatabase(t, shapesIDL)
			ctx, _ := testContext(ioutil.Discard)
			if err := FilterInterfaces(ctx, db, test.opts); err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff([]string{"Line", "Rectangle", "Shape"}, ids(db.Interfaces())); diff != "" {
				t.Errorf("interfaces mismatch (-want +got):\n%s", diff)
			}
			shape, err := db.GetInterface("Shape")
			if err != nil {
				t.Fatal(err)
			}
			if len(shape.Operations) != 2 {
				t.Errorf("Shape has %d operations, want both kept", len(shape.Operations))
			}
		})
	}
}

func TestFilterOptions(t *testing.T) {
	tests := []struct {
		name        string
		opts        FilterOptions
		annotations idl.Annotations
		want        bool
	}{
		{
			name: "no annotations required",
			want: true,
		},
		{
			name:        "or only keeps nodes without the or annotation",
			opts:        FilterOptions{OrAnnotations: []string{"Custom"}},
			annotations: idl.Annotations{"WebKit": {}},
			want:        true,
		},
		{
			name:        "empty filter still excludes displaced",
			opts:        FilterOptions{ExcludeDisplaced: []string{"WebKit"}},
			annotations: idl.Annotations{"WebKit": {"via": "Node"}},
			want:        false,
		},
		{
			name:        "and",
			opts:        FilterOptions{AndAnnotations: []string{"WebKit", "Dart"}},
			annotations: idl.Annotations{"WebKit": {}, "Dart": {}},
			want:        true,
		},
		{
			name:        "and missing one",
			opts:        FilterOptions{AndAnnotations: []string{"WebKit", "Dart"}},
			annotations: idl.Annotations{"WebKit": {}},
			want:        false,
		},
		{
			name:        "or",
			opts:        FilterOptions{AndAnnotations: []string{"WebKit", "Dart"}, OrAnnotations: []string{"Custom"}},
			annotations: idl.Annotations{"Custom": {}},
			want:        true,
		},
		{
			name:        "displaced",
			opts:        FilterOptions{OrAnnotations: []string{"WebKit"}, ExcludeDisplaced: []string{"WebKit"}},
			annotations: idl.Annotations{"WebKit": {"via": "Node"}},
			want:        false,
		},
		{
			name:        "suppressed",
			opts:        FilterOptions{OrAnnotations: []string{"Dart"}, ExcludeSuppressed: []string{"WebKit"}},
			annotations: idl.Annotations{"WebKit": {"suppressed": ""}, "Dart": {}},
			want:        false,
		},
		{
			name:        "suppressed by another source",
			opts:        FilterOptions{OrAnnotations: []string{"Dart"}, ExcludeSuppressed: []string{"Dart"}},
			annotations: idl.Annotations{"WebKit": {"suppressed": ""}, "Dart": {}},
			want:        true,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := test.opts.matches(test.annotations); got != test.want {
				t.Errorf("matches(%v) = %t, want %t", test.annotations, got, test.want)
			}
		})
	}
}

func TestIsCompoundType(t *testing.T) {
	db := newDatabase(t, `
interface Node { };
enum Direction { "up" };
`)
	tests := []struct {
		name string
		want bool
	}{
		{"long", true},
		{"unsigned long long", true},
		{"Node", true},
		{"Direction", true},
		{"core::Node", true},
		{"Node?", true},
		{"Node[]", true},
		{"sequence<Node>", true},
		{"record<DOMString, sequence<Node?>>", true},
		{"(Node or DOMString)", true},
		{"(Node or Missing)", false},
		{"sequence<Missing>", false},
		{"Missing", false},
		{"Missing<Node>", false},
	}
	for _, test := range tests {
		if got := isCompoundType(db, test.name); got != test.want {
			t.Errorf("isCompoundType(%q) = %t, want %t", test.name, got, test.want)
		}
	}
}

func TestPasses(t *testing.T) {
	db := newDatabase(t, `
interface EventTarget { };
interface Node : EventTarget { };
interface Element : Node { };
[EventTarget] interface Legacy { };
enum Mode { "a", "b" };
interface Console {
  [CallWith=ScriptState|ScriptArguments] void log(DOMString message);
  void setMode(Mode mode);
};
`)
	FixEventTargets(db)
	AddMissingArguments(db)
	CleanupOperationArguments(db)

	for _, id := range []string{"EventTarget", "Node", "Element"} {
		i, _ := db.GetInterface(id)
		if !i.ExtAttrs.Has("EventTarget") {
			t.Errorf("%s is not marked [EventTarget]", id)
		}
	}
	legacy, _ := db.GetInterface("Legacy")
	if !legacy.HasParent("EventTarget") {
		t.Errorf("Legacy did not get an EventTarget parent")
	}
	console, _ := db.GetInterface("Console")
	log := console.Operations[0]
	if len(log.Arguments) != 2 || log.Arguments[1].ID != "arg" || log.Arguments[1].Type.ID != "object" {
		t.Errorf("log arguments = %s", idl.Render(log))
	}
	if got := console.Operations[1].Arguments[0].Type.ID; got != "DOMString" {
		t.Errorf("enum argument type = %q, want DOMString", got)
	}
}

func TestPreOrderInterfaces(t *testing.T) {
	db := newDatabase(t, `
interface A : B, C { };
interface B : D { };
interface C : D, Missing { };
interface D { };
`)
	got := ids(PreOrderInterfaces(db, db.Interfaces()))
	if diff := cmp.Diff([]string{"D", "B", "C", "A"}, got); diff != "" {
		t.Errorf("pre-order mismatch (-want +got):\n%s", diff)
	}
}

func TestGroupOverloads(t *testing.T) {
	file, err := idl.Parse("test.idl", `
interface Canvas {
  void draw(long x, optional long y);
  void draw(DOMString? label);
  static Canvas create();
  void create(long... sizes);
};
`, idl.WebIDLSyntax)
	if err != nil {
		t.Fatal(err)
	}
	infos := GroupOverloads(file.Interfaces[0])
	if len(infos) != 3 {
		t.Fatalf("got %d groups, want 3", len(infos))
	}

	static, create, draw := infos[0], infos[1], infos[2]
	if create.Name != "create" || create.IsStatic || len(create.Overloads) != 2 {
		t.Errorf("instance create grouped incorrectly: %+v", create)
	}
	if static.Name != "create" || !static.IsStatic || static.ReturnType != "Canvas" || len(static.Params) != 0 {
		t.Errorf("static create grouped incorrectly: %+v", static)
	}

	if draw.Name != "draw" || len(draw.Operations) != 2 || len(draw.Overloads) != 3 {
		t.Fatalf("draw grouped incorrectly: %+v", draw)
	}
	want := []*ParamInfo{
		{Name: "label_OR_x", Types: []string{"DOMString", "long"}, IsNullable: true},
		{Name: "y", Types: []string{"long"}, IsOptional: true},
	}
	if diff := cmp.Diff(want, draw.Params); diff != "" {
		t.Errorf("draw params mismatch (-want +got):\n%s", diff)
	}
	if got := draw.Params[0].Type(); got != "(DOMString or long)" {
		t.Errorf("union type = %q", got)
	}
	if draw.ReturnType != "void" {
		t.Errorf("draw return type = %q, want void", draw.ReturnType)
	}
}

func TestMatchSourceFilter(t *testing.T) {
	annotations := idl.Annotations{"WebKit": {}}
	if !MatchSourceFilter(annotations, nil) {
		t.Error("an empty filter must match")
	}
	if !MatchSourceFilter(annotations, []string{"Dart", "WebKit"}) {
		t.Error("WebKit annotation must match")
	}
	if MatchSourceFilter(annotations, []string{"Dart"}) {
		t.Error("Dart filter must not match")
	}
}

type call struct {
	method, id string
}

type fakeSystem struct {
	calls []call
	fail  string
}

func (s *fakeSystem) ProcessInterface(ctx context.Context, i *idl.Interface) error {
	if i.ID == s.fail {
		return errors.New("boom")
	}
	s.calls = append(s.calls, call{"interface", i.ID})
	return nil
}

func (s *fakeSystem) ProcessCallback(ctx context.Context, i *idl.Interface, info *OperationInfo) error {
	s.calls = append(s.calls, call{"callback", i.ID + "." + info.Name})
	return nil
}

func (s *fakeSystem) GenerateLibraries(ctx context.Context, libDir string) error {
	s.calls = append(s.calls, call{"libraries", libDir})
	return nil
}

func (s *fakeSystem) Finish(ctx context.Context) error {
	s.calls = append(s.calls, call{"finish", ""})
	return nil
}

func TestGenerate(t *testing.T) {
	db := newDatabase(t, `
@WebKit
interface Element :
    @WebKit Node {
};
@Dart
interface Node {
};
@WebKit
callback interface Listener {
  @WebKit void handleEvent(Event event);
};
@WebKit
interface Handwritten {
};
@Other
interface Skipped {
};
`)
	aux := t.TempDir()
	if err := ioutil.WriteFile(filepath.Join(aux, "Handwritten.dart"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	g := New(db, WithSourceFilter("WebKit", "Dart"))
	if err := g.LoadAuxiliary(aux); err != nil {
		t.Fatal(err)
	}
	s := &fakeSystem{}
	if err := g.Generate(context.Background(), "lib", s); err != nil {
		t.Fatal(err)
	}
	want := []call{
		{"interface", "Node"},
		{"interface", "Element"},
		{"callback", "Listener.handleEvent"},
		{"libraries", "lib"},
		{"finish", ""},
	}
	if diff := cmp.Diff(want, s.calls, cmp.AllowUnexported(call{})); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}

	failing := &fakeSystem{fail: "Node"}
	err := Generate(context.Background(), db, failing)
	if err == nil || !strings.Contains(err.Error(), "generating Node") {
		t.Errorf("got %v, want the failing interface named", err)
	}
}

type fakeRunner struct {
	commands [][]string
	fail     bool
}

func (r *fakeRunner) Run(ctx context.Context, command []string, stdout, stderr io.Writer) error {
	r.commands = append(r.commands, command)
	if r.fail {
		io.WriteString(stderr, "bad input")
		return errors.New("exit status 1")
	}
	return nil
}

func TestRunPostProcess(t *testing.T) {
	r := &fakeRunner{}
	commands := []string{`dart format "out dir"`, "", "touch stamp"}
	if err := runPostProcess(context.Background(), r, commands); err != nil {
		t.Fatal(err)
	}
	want := [][]string{{"dart", "format", "out dir"}, {"touch", "stamp"}}
	if diff := cmp.Diff(want, r.commands); diff != "" {
		t.Errorf("commands mismatch (-want +got):\n%s", diff)
	}

	r = &fakeRunner{fail: true}
	err := runPostProcess(context.Background(), r, []string{"a", "b"})
	if err == nil || !strings.Contains(err.Error(), "bad input") || len(r.commands) != 1 {
		t.Errorf("got %v after %d commands, want the first failure with its output", err, len(r.commands))
	}
}

func TestRunPostProcessInDir(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no shell available")
	}
	dir := t.TempDir()
	if err := RunPostProcess(context.Background(), []string{"sh -c 'echo ok > stamp'"}, dir); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "stamp")); err != nil {
		t.Errorf("command did not run in %s: %v", dir, err)
	}
}
