// Copyright 2021 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package databasebuilder

import (
	"bytes"
	"context"
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"go.dartlang.org/sdk/tools/dom/lib/database"
	"go.dartlang.org/sdk/tools/dom/lib/idl"
	"go.dartlang.org/sdk/tools/lib/color"
	"go.dartlang.org/sdk/tools/lib/logger"
)

func newBuilder(t *testing.T, opts ...Option) *Builder {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "database"))
	if err != nil {
		t.Fatal(err)
	}
	return New(db, opts...)
}

func importIDL(t *testing.T, b *Builder, src string, opts Options) {
	t.Helper()
	if err := b.ImportIDL(context.Background(), "test.idl", src, opts); err != nil {
		t.Fatalf("ImportIDL failed: %v", err)
	}
}

func merge(t *testing.T, b *Builder) {
	t.Helper()
	if err := b.MergeImportedInterfaces(context.Background()); err != nil {
		t.Fatalf("MergeImportedInterfaces failed: %v", err)
	}
}

func mustGet(t *testing.T, b *Builder, id string) *idl.Interface {
	t.Helper()
	i, err := b.Database().GetInterface(id)
	if err != nil {
		t.Fatal(err)
	}
	return i
}

func source(name string, syntax idl.Syntax) Options {
	opts := DefaultOptions()
	opts.Source = name
	opts.Syntax = syntax
	return opts
}

func TestMergeTwoSources(t *testing.T) {
	b := newBuilder(t)
	webkit := source("WebKit", idl.WebKitSyntax)
	webkit.SourceAttributes = map[string]string{"revision": "1234"}
	importIDL(t, b, `
module core {
  interface Node {
    readonly attribute DOMString nodeName;
    Node appendChild(in Node arg);
  };
}
`, webkit)
	importIDL(t, b, `
interface Node {
  readonly attribute DOMString nodeName;
  Node appendChild(Node newChild);
  void normalize();
};
`, source("Dart", idl.WebIDLSyntax))
	merge(t, b)

	want := `@Dart @WebKit(revision=1234)
interface Node {

  /* Attributes */
  @Dart @WebKit(revision=1234) getter attribute DOMString nodeName;

  /* Operations */
  @Dart @WebKit(revision=1234) Node appendChild(Node newChild);
  @Dart void normalize();
};
`
	if diff := cmp.Diff(want, idl.Render(mustGet(t, b, "Node"))); diff != "" {
		t.Errorf("merged Node mismatch (-want +got):\n%s", diff)
	}
}

func TestSupplementalAndRename(t *testing.T) {
	b := newBuilder(t)
	opts := source("WebKit", idl.WebKitSyntax)
	opts.TypeRenameMap = map[string]string{"DOMWindow": "Window"}
	importIDL(t, b, `
module window {
  interface [Supplemental=DOMWindow] WindowTimers {
    long setTimeout(in TimeoutHandler handler, in long timeout);
  };
  interface DOMWindow {
    readonly attribute sequence<DOMWindow> frames;
    readonly attribute core::Node node;
  };
}
`, opts)
	importIDL(t, b, `
partial interface Window {
  void stop();
};
`, source("Dart", idl.WebIDLSyntax))
	merge(t, b)

	if b.Database().HasInterface("WindowTimers") || b.Database().HasInterface("DOMWindow") {
		t.Errorf("got interfaces %v, want only Window", b.Database().Interfaces())
	}
	w := mustGet(t, b, "Window")
	var types []string
	for _, a := range w.Attributes {
		types = append(types, a.Type.ID)
	}
	if diff := cmp.Diff([]string{"sequence<Window>", "Node"}, types); diff != "" {
		t.Errorf("renamed types mismatch (-want +got):\n%s", diff)
	}
	if len(w.Operations) != 2 {
		t.Fatalf("got %d operations, want setTimeout and stop", len(w.Operations))
	}
	if got := w.Operations[0].ExtAttrs.Value("ImplementedBy"); got != "WindowTimers" {
		t.Errorf("setTimeout ImplementedBy = %q, want WindowTimers", got)
	}
	if w.Operations[1].ExtAttrs.Has("ImplementedBy") {
		t.Errorf("partial interface of the same name must not set ImplementedBy")
	}
	if w.ExtAttrs.Has("Supplemental") {
		t.Errorf("Supplemental leaked into the target: %v", w.ExtAttrs.Names())
	}
	if w.Annotations.Has("Dart") {
		t.Errorf("supplemental interfaces must not annotate the target interface")
	}
	if !w.Operations[1].Annotations.Has("Dart") {
		t.Errorf("supplemental members must carry their source annotation")
	}
}

func TestMissingSupplementalTarget(t *testing.T) {
	b := newBuilder(t)
	importIDL(t, b, `partial interface Nowhere { void f(); };`, source("Dart", idl.WebIDLSyntax))
	err := b.MergeImportedInterfaces(context.Background())
	if !errors.Is(err, ErrSupplementalTarget) {
		t.Errorf("got %v, want ErrSupplementalTarget", err)
	}
}

func TestAddNewInterfaces(t *testing.T) {
	b := newBuilder(t)
	importIDL(t, b, `interface Node { void a(); };`, source("WebKit", idl.WebIDLSyntax))
	merge(t, b)

	opts := source("Dart", idl.WebIDLSyntax)
	opts.AddNewInterfaces = false
	importIDL(t, b, `
interface Node { void b(); };
interface Extra { };
`, opts)
	merge(t, b)

	if b.Database().HasInterface("Extra") {
		t.Errorf("Extra was added although AddNewInterfaces is false")
	}
	if got := len(mustGet(t, b, "Node").Operations); got != 2 {
		t.Errorf("got %d operations on Node, want 2", got)
	}
}

func TestConditionals(t *testing.T) {
	b := newBuilder(t)
	opts := source("WebKit", idl.WebIDLSyntax)
	opts.Defines = []string{"ENABLE_GAMEPAD", "ENABLE_A"}
	importIDL(t, b, `
[Conditional=WEB_AUDIO] interface AudioContext { };
interface Navigator {
  [Conditional=GAMEPAD|WEBVR] readonly attribute long pads;
  [Conditional=A&B] void both();
  void plain();
};
#if defined(ENABLE_SPEECH)
interface Speech { };
#endif
`, opts)
	merge(t, b)

	if got := ids(b.Database().Interfaces()); !cmp.Equal(got, []string{"Navigator"}) {
		t.Errorf("got interfaces %v, want [Navigator]", got)
	}
	n := mustGet(t, b, "Navigator")
	if len(n.Attributes) != 1 || len(n.Operations) != 1 || n.Operations[0].ID != "plain" {
		t.Errorf("conditional members filtered incorrectly: %s", idl.Render(n))
	}

	wantMet := []string{"ENABLE_A", "ENABLE_B", "ENABLE_GAMEPAD", "ENABLE_SPEECH", "ENABLE_WEBVR", "ENABLE_WEB_AUDIO"}
	if diff := cmp.Diff(wantMet, b.ConditionalsMet()); diff != "" {
		t.Errorf("ConditionalsMet mismatch (-want +got):\n%s", diff)
	}

	var out bytes.Buffer
	l := logger.NewLogger(logger.WarningLevel, color.NewColor(color.ColorNever), &out, &out, "")
	ctx := logger.WithLogger(context.Background(), l)
	known := []string{"ENABLE_A", "ENABLE_B", "ENABLE_GAMEPAD", "ENABLE_UNUSED", "ENABLE_WEBVR", "ENABLE_WEB_AUDIO"}
	unused, unknown := b.ReportConditionals(ctx, known)
	if !cmp.Equal(unused, []string{"ENABLE_UNUSED"}) || !cmp.Equal(unknown, []string{"ENABLE_SPEECH"}) {
		t.Errorf("ReportConditionals = %v, %v", unused, unknown)
	}
	if l.Warnings() != 2 {
		t.Errorf("got %d warnings, want 2:\n%s", l.Warnings(), out.String())
	}
}

func TestTypedefs(t *testing.T) {
	b := newBuilder(t)
	opts := source("WebKit", idl.WebIDLSyntax)
	importIDL(t, b, `
typedef unsigned long long DOMTimeStamp;
typedef sequence<DOMTimeStamp> Stamps;
`, opts)
	importIDL(t, b, `
interface Event {
  readonly attribute DOMTimeStamp timeStamp;
  Stamps history(DOMTimeStamp? since);
};
`, opts)
	merge(t, b)

	e := mustGet(t, b, "Event")
	got := []string{
		e.Attributes[0].Type.String(),
		e.Operations[0].Type.String(),
		e.Operations[0].Arguments[0].Type.String(),
	}
	want := []string{"unsigned long long", "sequence<unsigned long long>", "unsigned long long?"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("resolved types mismatch (-want +got):\n%s", diff)
	}
}

func TestEnums(t *testing.T) {
	b := newBuilder(t)
	importIDL(t, b, `enum Direction { "up", "down" };`, source("WebKit", idl.WebIDLSyntax))
	e, ok := b.Database().GetEnum("Direction")
	if !ok || !cmp.Equal(e.Values, []string{"up", "down"}) {
		t.Errorf("GetEnum(Direction) = %+v, %t", e, ok)
	}
}

func TestArgumentRenames(t *testing.T) {
	tests := []struct {
		name    string
		oldName string
		rename  bool
		want    string
	}{
		{name: "placeholder", oldName: "arg", want: "node"},
		{name: "suffixed placeholder", oldName: "nodeArg", want: "node"},
		{name: "kept", oldName: "child", want: "child"},
		{name: "forced", oldName: "child", rename: true, want: "node"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			b := newBuilder(t)
			importIDL(t, b, "interface N { void f(Node "+test.oldName+"); };", source("WebKit", idl.WebIDLSyntax))
			opts := source("Dart", idl.WebIDLSyntax)
			opts.RenameOperationArgumentsOnMerge = test.rename
			importIDL(t, b, "interface N { void f([TreatNullAs=NullString] Node node); };", opts)
			merge(t, b)

			arg := mustGet(t, b, "N").Operations[0].Arguments[0]
			if arg.ID != test.want {
				t.Errorf("argument = %q, want %q", arg.ID, test.want)
			}
			if arg.ExtAttrs.Value("TreatNullAs") != "NullString" {
				t.Errorf("argument ext attrs were not merged: %v", arg.ExtAttrs.Names())
			}
		})
	}
}

func TestSameSignature(t *testing.T) {
	const (
		first = `
interface N {
  void f(int x);
  attribute unsigned long size;
};
`
		second = `
interface N {
  void f(long x);
  readonly attribute long size;
};
`
	)
	tests := []struct {
		name    string
		opts    []Option
		wantOps int
	}{
		{name: "default", wantOps: 1},
		{name: "no equivalences", opts: []Option{WithSameSignature(nil)}, wantOps: 2},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			b := newBuilder(t, test.opts...)
			importIDL(t, b, first, source("WebKit", idl.WebIDLSyntax))
			importIDL(t, b, second, source("Dart", idl.WebIDLSyntax))
			merge(t, b)

			n := mustGet(t, b, "N")
			if len(n.Operations) != test.wantOps {
				t.Errorf("got %d operations, want %d:\n%s", len(n.Operations), test.wantOps, idl.Render(n))
			}
			// unsigned is never part of a signature.
			if len(n.Attributes) != 2 || !n.Attributes[0].Annotations.Has("Dart") {
				t.Errorf("size getters did not merge:\n%s", idl.Render(n))
			}
		})
	}
}

func TestDuplicateSignatures(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr error
	}{
		{
			name:    "duplicate",
			src:     `interface N { void f(long x); void f(long y); };`,
			wantErr: ErrDuplicateSignature,
		},
		{
			name: "one suppressed",
			src:  `interface N { void f(long x); [Suppressed] void f(long y); };`,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			b := newBuilder(t)
			importIDL(t, b, `interface N { };`, source("WebKit", idl.WebIDLSyntax))
			merge(t, b)
			importIDL(t, b, test.src, source("Dart", idl.WebIDLSyntax))
			err := b.MergeImportedInterfaces(context.Background())
			if !errors.Is(err, test.wantErr) {
				t.Errorf("got error %v, want %v", err, test.wantErr)
			}
		})
	}
}

func TestSuppressedAnnotation(t *testing.T) {
	b := newBuilder(t)
	opts := source("WebKit", idl.WebIDLSyntax)
	opts.SourceAttributes = map[string]string{"revision": "7"}
	importIDL(t, b, `[Suppressed] interface X { [Suppressed] void f(); void g(); };`, opts)
	merge(t, b)

	x := mustGet(t, b, "X")
	want := idl.Annotation{"revision": "7", "suppressed": ""}
	if diff := cmp.Diff(want, x.Annotations["WebKit"]); diff != "" {
		t.Errorf("interface annotation mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, x.Operations[0].Annotations["WebKit"]); diff != "" {
		t.Errorf("operation annotation mismatch (-want +got):\n%s", diff)
	}
	if x.Operations[1].Annotations["WebKit"].Has("suppressed") {
		t.Errorf("g is not suppressed")
	}
}

func TestObsoleteOldDeclarations(t *testing.T) {
	b := newBuilder(t)
	importIDL(t, b, `interface N { void a(); void b(); void c(); };`, source("WebKit", idl.WebIDLSyntax))
	importIDL(t, b, `interface N { void c(); };`, source("Dart", idl.WebIDLSyntax))
	merge(t, b)

	var out bytes.Buffer
	l := logger.NewLogger(logger.WarningLevel, color.NewColor(color.ColorNever), &out, &out, "")
	ctx := logger.WithLogger(context.Background(), l)
	opts := source("WebKit", idl.WebIDLSyntax)
	opts.ObsoleteOldDeclarations = true
	if err := b.ImportIDL(ctx, "test.idl", `interface N { void a(); };`, opts); err != nil {
		t.Fatal(err)
	}
	if err := b.MergeImportedInterfaces(ctx); err != nil {
		t.Fatal(err)
	}

	want := `@Dart @WebKit
interface N {

  /* Operations */
  @WebKit void a();
  @Dart void c();
};
`
	if diff := cmp.Diff(want, idl.Render(mustGet(t, b, "N"))); diff != "" {
		t.Errorf("N mismatch (-want +got):\n%s", diff)
	}
	if l.Warnings() != 2 {
		t.Errorf("got %d warnings, want one per obsolete member:\n%s", l.Warnings(), out.String())
	}
}

func TestImplements(t *testing.T) {
	b := newBuilder(t)
	importIDL(t, b, `
interface Window : EventTarget { };
interface WindowTimers { void setTimeout(); };
Window implements WindowTimers;
`, source("Dart", idl.WebIDLSyntax))
	importIDL(t, b, `Window implements EventTarget;`, source("WebKit", idl.WebIDLSyntax))
	merge(t, b)

	w := mustGet(t, b, "Window")
	var got []string
	for _, p := range w.Parents {
		got = append(got, p.Type.ID+":"+strings.Join(p.Annotations.Names(), ","))
	}
	want := []string{"EventTarget:Dart,WebKit", "WindowTimers:Dart"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("parents mismatch (-want +got):\n%s", diff)
	}
}

func TestSkippedMembersAreReported(t *testing.T) {
	var out bytes.Buffer
	l := logger.NewLogger(logger.WarningLevel, color.NewColor(color.ColorNever), &out, &out, "")
	l.SetFlags(0)
	ctx := logger.WithLogger(context.Background(), l)
	b := newBuilder(t)
	src := "interface Headers {\n  iterable<DOMString, DOMString>;\n  void append(DOMString name);\n};\n"
	if err := b.ImportIDL(ctx, "Headers.idl", src, source("W3C", idl.WebIDLSyntax)); err != nil {
		t.Fatal(err)
	}
	merge(t, b)

	if l.Warnings() != 1 {
		t.Errorf("got %d warnings, want 1:\n%s", l.Warnings(), out.String())
	}
	if want := "Headers.idl:2:3: skipping iterable member of Headers (source=W3C)"; !strings.Contains(out.String(), want) {
		t.Errorf("output %q does not contain %q", out.String(), want)
	}
	if ops := mustGet(t, b, "Headers").Operations; len(ops) != 1 || ops[0].ID != "append" {
		t.Errorf("Headers operations = %v, want only append", ops)
	}
}

func TestFixDisplacements(t *testing.T) {
	b := newBuilder(t)
	importIDL(t, b, `
interface Document : Node { void normalize(); };
interface HTMLDocument : Document { void open(); void close(); void normalize(); void write(DOMString text); };
`, source("W3C", idl.WebIDLSyntax))
	importIDL(t, b, `
interface Node { void normalize(); };
interface Document { void open(); void close(); };
interface HTMLDocument : Document { void close(); };
`, source("WebKit", idl.WebIDLSyntax))
	merge(t, b)
	b.FixDisplacements(context.Background(), "WebKit")

	annotations := func(id string) map[string]idl.Annotations {
		got := make(map[string]idl.Annotations)
		for _, o := range mustGet(t, b, id).Operations {
			got[o.ID] = o.Annotations
		}
		return got
	}
	tests := []struct {
		id   string
		want map[string]idl.Annotations
	}{
		{
			id: "HTMLDocument",
			want: map[string]idl.Annotations{
				// Declared by WebKit on the interface itself.
				"close": {"W3C": {}, "WebKit": {}},
				// Document.normalize is displaced too, so Node declares it.
				"normalize": {"W3C": {}, "WebKit": {"via": "Node"}},
				"open":      {"W3C": {}, "WebKit": {"via": "Document"}},
				// No ancestor declares it.
				"write": {"W3C": {}},
			},
		},
		{
			id: "Document",
			want: map[string]idl.Annotations{
				"close":     {"WebKit": {}},
				"normalize": {"W3C": {}, "WebKit": {"via": "Node"}},
				"open":      {"WebKit": {}},
			},
		},
		{
			id:   "Node",
			want: map[string]idl.Annotations{"normalize": {"WebKit": {}}},
		},
	}
	for _, test := range tests {
		if diff := cmp.Diff(test.want, annotations(test.id), cmpopts.EquateEmpty()); diff != "" {
			t.Errorf("%s annotations mismatch (-want +got):\n%s", test.id, diff)
		}
	}
	for _, o := range mustGet(t, b, "HTMLDocument").Operations {
		if o.ID != "open" {
			continue
		}
		if got, want := idl.Render(o), "@W3C @WebKit(via=Document) void open();\n"; got != want {
			t.Errorf("HTMLDocument.open renders as %q, want %q", got, want)
		}
	}
}

func TestNormalizeAnnotations(t *testing.T) {
	b := newBuilder(t)
	opts := source("WebKit", idl.WebIDLSyntax)
	opts.SourceAttributes = map[string]string{"revision": "1"}
	importIDL(t, b, `interface N { void a(); void b(); };`, opts)
	merge(t, b)
	n := mustGet(t, b, "N")
	n.Operations[1].Annotations["WebKit"]["revision"] = "2"

	b.NormalizeAnnotations(context.Background(), []string{"WebKit", "Dart"})
	want := `@WebKit(revision=1)
interface N {

  /* Operations */
  @WebKit void a();
  @WebKit(revision=2) void b();
};
`
	if diff := cmp.Diff(want, idl.Render(n)); diff != "" {
		t.Errorf("N mismatch (-want +got):\n%s", diff)
	}
}

func TestImportDirectory(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"core/Node.idl":      `interface Node { };`,
		"html/Element.idl":   `interface Element : Node { };`,
		"html/README":        `not idl`,
		"broken/Broken.idl":  `interface Broken {`,
		"broken/Missing.idl": `interface Missing : { };`,
	}
	for name, contents := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := ioutil.WriteFile(path, []byte(contents), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	b := newBuilder(t)
	err := b.ImportDirectory(context.Background(), dir, source("WebKit", idl.WebIDLSyntax))
	if err == nil {
		t.Fatal("ImportDirectory succeeded with broken files")
	}
	for _, name := range []string{"Broken.idl", "Missing.idl"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error %q does not mention %s", err, name)
		}
	}
	merge(t, b)
	if got := ids(b.Database().Interfaces()); !cmp.Equal(got, []string{"Element", "Node"}) {
		t.Errorf("got interfaces %v, want [Element Node]", got)
	}
}

func ids(interfaces []*idl.Interface) []string {
	var ids []string
	for _, i := range interfaces {
		ids = append(ids, i.ID)
	}
	return ids
}
