// Copyright 2018 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package logger provides leveled logging threaded through a context.Context.
//
// The IDL tools attach a *Logger to the context once in main; library
// packages call the package-level functions (Warningf, Infof, ...) which fall
// back to the standard library logger when no Logger is attached. Phases of a
// run (import, merge, one generator system) narrow the context with WithScope
// so each line says where it came from, while every scope feeds the same
// warning count.
package logger

import (
	"context"
	"fmt"
	"io"
	goLog "log"
	"os"
	"strings"
	"sync/atomic"

	"go.dartlang.org/sdk/tools/lib/color"
)

type loggerKey struct{}

// WithLogger returns the context with its logger set as the provided Logger.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// LoggerFromContext returns the context logger if configured, otherwise nil.
func LoggerFromContext(ctx context.Context) *Logger {
	if v, ok := ctx.Value(loggerKey{}).(*Logger); ok && v != nil {
		return v
	}
	return nil
}

// WithScope returns a context whose logger tags every line with scope. It is a
// no-op when ctx carries no Logger.
func WithScope(ctx context.Context, scope string) context.Context {
	if l := LoggerFromContext(ctx); l != nil {
		return WithLogger(ctx, l.Scope(scope))
	}
	return ctx
}

// Logger writes leveled, colored lines behind a fixed prefix.
type Logger struct {
	LoggerLevel LogLevel
	out         *goLog.Logger
	err         *goLog.Logger
	color       color.Color
	prefix      string
	scopes      []string

	// Shared by every scope derived from the same root. Warningf counts even
	// when the level suppresses output.
	warnings *int64
}

// LogLevel selects how much detail is printed.
type LogLevel int

const (
	NoLogLevel LogLevel = iota
	ErrorLevel
	WarningLevel
	InfoLevel
	DebugLevel
	TraceLevel
)

var levelNames = []string{
	NoLogLevel:   "no",
	ErrorLevel:   "error",
	WarningLevel: "warning",
	InfoLevel:    "info",
	DebugLevel:   "debug",
	TraceLevel:   "trace",
}

// Skips logf and the exported wrapper.
const startDepth = 2

func (l *LogLevel) String() string {
	if int(*l) < 0 || int(*l) >= len(levelNames) {
		return fmt.Sprintf("LogLevel(%d)", int(*l))
	}
	return levelNames[*l]
}

// Set implements flag.Value.
func (l *LogLevel) Set(s string) error {
	for level, name := range levelNames {
		if name == s {
			*l = LogLevel(level)
			return nil
		}
	}
	return fmt.Errorf("%s is not a valid level, want one of %s", s, strings.Join(levelNames, ", "))
}

// NewLogger creates a root logger. Errors go to errWriter and everything else
// to outWriter; nil writers default to stdout and stderr.
func NewLogger(level LogLevel, c color.Color, outWriter, errWriter io.Writer, prefix string) *Logger {
	if outWriter == nil {
		outWriter = os.Stdout
	}
	if errWriter == nil {
		errWriter = os.Stderr
	}
	return &Logger{
		LoggerLevel: level,
		out:         goLog.New(outWriter, "", goLog.LstdFlags),
		err:         goLog.New(errWriter, "", goLog.LstdFlags),
		color:       c,
		prefix:      prefix,
		warnings:    new(int64),
	}
}

// SetFlags sets the standard log flags on both writers.
func (l *Logger) SetFlags(flags int) {
	l.out.SetFlags(flags)
	l.err.SetFlags(flags)
}

// Scope returns a logger that shares l's writers and warning count and tags its
// lines with "[a/b] " for nested scopes a and b.
func (l *Logger) Scope(scope string) *Logger {
	child := *l
	child.scopes = append(append([]string(nil), l.scopes...), scope)
	return &child
}

// Warnings returns the number of warnings reported through l or any logger
// scoped from the same root.
func (l *Logger) Warnings() int64 {
	return atomic.LoadInt64(l.warnings)
}

func (l *Logger) logf(callDepth int, level LogLevel, format string, a ...interface{}) {
	if level == WarningLevel {
		atomic.AddInt64(l.warnings, 1)
	}
	if l.LoggerLevel < level {
		return
	}
	w, tag := l.out, ""
	switch level {
	case InfoLevel:
	case DebugLevel:
		tag = l.color.Cyan("DEBUG: ")
	case TraceLevel:
		tag = l.color.Blue("TRACE: ")
	case WarningLevel:
		tag = l.color.Yellow("WARN: ")
	case ErrorLevel:
		w, tag = l.err, l.color.Red("ERROR: ")
	default:
		panic(fmt.Sprintf("undefined log level %d: %s", level, fmt.Sprintf(format, a...)))
	}
	var b strings.Builder
	b.WriteString(l.prefix)
	if len(l.scopes) > 0 {
		fmt.Fprintf(&b, "[%s] ", strings.Join(l.scopes, "/"))
	}
	b.WriteString(tag)
	fmt.Fprintf(&b, format, a...)
	w.Output(callDepth+1, b.String())
}

func (l *Logger) Infof(format string, a ...interface{}) { l.logf(startDepth, InfoLevel, format, a...) }
func (l *Logger) Debugf(format string, a ...interface{}) {
	l.logf(startDepth, DebugLevel, format, a...)
}
func (l *Logger) Warningf(format string, a ...interface{}) {
	l.logf(startDepth, WarningLevel, format, a...)
}
func (l *Logger) Errorf(format string, a ...interface{}) {
	l.logf(startDepth, ErrorLevel, format, a...)
}

func logf(ctx context.Context, level LogLevel, format string, a ...interface{}) {
	if l := LoggerFromContext(ctx); l != nil {
		l.logf(startDepth+1, level, format, a...)
		return
	}
	goLog.Output(startDepth+1, fmt.Sprintf(format, a...))
}

func Infof(ctx context.Context, format string, a ...interface{}) {
	logf(ctx, InfoLevel, format, a...)
}

func Debugf(ctx context.Context, format string, a ...interface{}) {
	logf(ctx, DebugLevel, format, a...)
}

func Tracef(ctx context.Context, format string, a ...interface{}) {
	logf(ctx, TraceLevel, format, a...)
}

func Warningf(ctx context.Context, format string, a ...interface{}) {
	logf(ctx, WarningLevel, format, a...)
}

func Errorf(ctx context.Context, format string, a ...interface{}) {
	logf(ctx, ErrorLevel, format, a...)
}
