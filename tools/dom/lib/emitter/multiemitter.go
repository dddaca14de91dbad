// Copyright 2021 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package emitter

import (
	"context"
	"io/ioutil"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/golang/glog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.dartlang.org/sdk/tools/lib/osmisc"
	"go.dartlang.org/sdk/tools/lib/retry"
)

// WriteFunc stores the contents of one generated file.
type WriteFunc func(filename string, contents []byte) error

const (
	writeAttempts = 4
	writeInterval = 50 * time.Millisecond
)

// MultiEmitter owns one Emitter per output file, and lets emitters be found
// again by a key such as the name of the interface they generate.
type MultiEmitter struct {
	cache  *Cache
	byFile map[string]*Emitter
	byKey  map[string]*Emitter
}

// FlushStats summarizes a Flush.
type FlushStats struct {
	Files     int
	Written   int
	Unchanged int
	Bytes     uint64
}

func NewMultiEmitter(cache *Cache) *MultiEmitter {
	if cache == nil {
		cache = NewCache()
	}
	return &MultiEmitter{
		cache:  cache,
		byFile: make(map[string]*Emitter),
		byKey:  make(map[string]*Emitter),
	}
}

// FileEmitter returns a new emitter whose output goes to filename. A
// non-empty key also associates the emitter with that key.
func (m *MultiEmitter) FileEmitter(filename, key string) (*Emitter, error) {
	if _, ok := m.byFile[filename]; ok {
		return nil, errors.Errorf("file emitter %q already exists", filename)
	}
	e := New(m.cache)
	if key != "" {
		if err := m.Associate(key, e); err != nil {
			return nil, err
		}
	}
	m.byFile[filename] = e
	return e, nil
}

// Associate makes e findable by key.
func (m *MultiEmitter) Associate(key string, e *Emitter) error {
	if _, ok := m.byKey[key]; ok {
		return errors.Errorf("key %q already used", key)
	}
	m.byKey[key] = e
	return nil
}

// Find returns the emitter associated with key.
func (m *MultiEmitter) Find(key string) (*Emitter, bool) {
	e, ok := m.byKey[key]
	return e, ok
}

// Files returns the output file names in sorted order.
func (m *MultiEmitter) Files() []string {
	files := make([]string, 0, len(m.byFile))
	for f := range m.byFile {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

// Flush writes every file whose flattened content differs from what is on
// disk. A nil write uses WriteFile. Every file is attempted; the errors of
// all failed files are returned together.
func (m *MultiEmitter) Flush(ctx context.Context, write WriteFunc) (FlushStats, error) {
	if write == nil {
		write = func(filename string, contents []byte) error {
			return WriteFile(ctx, filename, contents)
		}
	}
	var stats FlushStats
	var errs error
	for _, filename := range m.Files() {
		contents := []byte(m.byFile[filename].String())
		stats.Files++
		current, err := ioutil.ReadFile(filename)
		if err == nil && string(current) == string(contents) {
			stats.Unchanged++
			continue
		}
		if err := write(filename, contents); err != nil {
			errs = multierr.Append(errs, errors.Wrapf(err, "writing %s", filename))
			continue
		}
		glog.V(1).Infof("wrote %s (%s)", filename, humanize.IBytes(uint64(len(contents))))
		stats.Written++
		stats.Bytes += uint64(len(contents))
	}
	return stats, errs
}

// WriteFile writes contents to filename, creating directories as needed and
// retrying transient failures.
func WriteFile(ctx context.Context, filename string, contents []byte) error {
	backoff := retry.WithMaxAttempts(retry.NewConstantBackoff(writeInterval), writeAttempts)
	return retry.Retry(ctx, backoff, func() error {
		_, err := osmisc.WriteFileIfChanged(filename, contents)
		if err != nil {
			glog.Warningf("writing %s: %v", filename, err)
		}
		return err
	})
}
