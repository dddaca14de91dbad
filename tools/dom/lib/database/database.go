// Copyright 2021 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package database stores merged interfaces as one canonical IDL file per
// interface under a root directory.
package database

import (
	"context"
	"encoding/gob"
	"io/ioutil"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/golang/glog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"go.dartlang.org/sdk/tools/dom/lib/idl"
	"go.dartlang.org/sdk/tools/lib/logger"
	"go.dartlang.org/sdk/tools/lib/osmisc"
)

var (
	ErrInterfaceExists   = errors.New("interface already exists")
	ErrInterfaceNotFound = errors.New("interface not found")
	// ErrMalformedFile is returned for a database file that does not hold
	// exactly one interface.
	ErrMalformedFile = errors.New("malformed database file")
)

const (
	// CacheFile is the name of the private cache written by Load.
	CacheFile = "cache.gob"
	// EnumsFile holds every enum of the database. The hyphen keeps it apart
	// from interface files, which are named by identifier.
	EnumsFile = "all-enums.idl"

	fileHeader = "// This file was generated by idlgen from the merged IDL sources.\n" +
		"// Changes are overwritten the next time the database is built.\n\n"
)

// Database is an in-memory view of the interfaces stored under a directory.
// It is not safe for concurrent use.
type Database struct {
	root       string
	interfaces map[string]*idl.Interface
	enums      map[string]*idl.Enum
	// paths remembers the file each interface was loaded from.
	paths map[string]string
	// pendingDeletions are removed from disk by the next Save.
	pendingDeletions map[string]bool
}

// New returns an empty database rooted at root, creating the directory.
func New(root string) (*Database, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating database directory %s", root)
	}
	db := &Database{root: root}
	db.reset()
	return db, nil
}

func (db *Database) reset() {
	db.interfaces = make(map[string]*idl.Interface)
	db.enums = make(map[string]*idl.Enum)
	db.paths = make(map[string]string)
	db.pendingDeletions = make(map[string]bool)
}

// Root returns the database directory.
func (db *Database) Root() string {
	return db.root
}

type loaded struct {
	path  string
	iface *idl.Interface
	enums []*idl.Enum
	err   error
}

// Load discards the in-memory state and parses every .idl file under the
// root, then writes the cache. Every malformed file is reported.
func (db *Database) Load(ctx context.Context) error {
	db.reset()
	files, err := osmisc.FindFiles(db.root, ".idl")
	if err != nil {
		return errors.Wrapf(err, "scanning %s", db.root)
	}

	results := make([]loaded, len(files))
	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, runtime.NumCPU())
	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			defer func() { <-sem }()
			if path == db.enumsPath() {
				results[i] = loadEnumsFile(path)
			} else {
				results[i] = loadInterfaceFile(path)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var errs error
	for _, r := range results {
		if r.err != nil {
			errs = multierr.Append(errs, r.err)
			continue
		}
		if r.iface == nil {
			for _, e := range r.enums {
				db.enums[e.ID] = e
			}
			continue
		}
		id := r.iface.ID
		if prev, ok := db.paths[id]; ok {
			errs = multierr.Append(errs, errors.Wrapf(ErrInterfaceExists, "%s in %s and %s", id, prev, r.path))
			continue
		}
		db.interfaces[id] = r.iface
		db.paths[id] = r.path
	}
	if errs != nil {
		return errs
	}
	logger.Debugf(ctx, "loaded %d interfaces and %d enums from %s", len(db.interfaces), len(db.enums), db.root)
	return db.Cache()
}

func loadInterfaceFile(path string) loaded {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return loaded{path: path, err: err}
	}
	file, err := idl.Parse(path, string(data), idl.FremontCutSyntax)
	if err != nil {
		return loaded{path: path, err: err}
	}
	interfaces := file.AllInterfaces()
	if len(interfaces) != 1 {
		return loaded{path: path, err: errors.Wrapf(ErrMalformedFile, "%s: expected one interface, found %d", path, len(interfaces))}
	}
	glog.V(2).Infof("parsed %s", path)
	return loaded{path: path, iface: interfaces[0]}
}

func loadEnumsFile(path string) loaded {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return loaded{path: path, err: err}
	}
	file, err := idl.Parse(path, string(data), idl.FremontCutSyntax)
	if err != nil {
		return loaded{path: path, err: err}
	}
	if n := len(file.AllInterfaces()); n != 0 {
		return loaded{path: path, err: errors.Wrapf(ErrMalformedFile, "%s: expected only enums, found %d interfaces", path, n)}
	}
	glog.V(2).Infof("parsed %s", path)
	return loaded{path: path, enums: file.AllEnums()}
}

func (db *Database) enumsPath() string {
	return filepath.Join(db.root, EnumsFile)
}

type cacheContents struct {
	Interfaces       map[string]*idl.Interface
	Enums            map[string]*idl.Enum
	Paths            map[string]string
	PendingDeletions []string
}

func (db *Database) cachePath() string {
	return filepath.Join(db.root, CacheFile)
}

// Cache writes the in-memory state to the private cache file.
func (db *Database) Cache() error {
	f, err := ioutil.TempFile(db.root, CacheFile+".tmp")
	if err != nil {
		return errors.Wrap(err, "creating cache")
	}
	defer os.Remove(f.Name())
	contents := cacheContents{
		Interfaces:       db.interfaces,
		Enums:            db.enums,
		Paths:            db.paths,
		PendingDeletions: db.PendingDeletions(),
	}
	if err := gob.NewEncoder(f).Encode(&contents); err != nil {
		f.Close()
		return errors.Wrap(err, "encoding cache")
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "writing cache")
	}
	return os.Rename(f.Name(), db.cachePath())
}

// LoadFromCache restores the state written by the last Load, or calls Load
// when there is no cache.
func (db *Database) LoadFromCache(ctx context.Context) error {
	f, err := os.Open(db.cachePath())
	if os.IsNotExist(err) {
		logger.Debugf(ctx, "no cache in %s, loading IDL files", db.root)
		return db.Load(ctx)
	}
	if err != nil {
		return errors.Wrap(err, "opening cache")
	}
	defer f.Close()
	var contents cacheContents
	if err := gob.NewDecoder(f).Decode(&contents); err != nil {
		return errors.Wrapf(err, "decoding %s", db.cachePath())
	}
	db.reset()
	for id, i := range contents.Interfaces {
		db.interfaces[id] = i
	}
	for id, e := range contents.Enums {
		db.enums[id] = e
	}
	for id, p := range contents.Paths {
		db.paths[id] = p
	}
	for _, id := range contents.PendingDeletions {
		db.pendingDeletions[id] = true
	}
	return nil
}

// Save renders every interface to its file and all enums to EnumsFile,
// rewriting only files whose contents changed, then removes the files of
// deleted interfaces.
func (db *Database) Save(ctx context.Context) error {
	var errs error
	written, unchanged := 0, 0
	var bytes uint64
	for _, i := range db.Interfaces() {
		path := db.pathOf(i.ID)
		contents := []byte(fileHeader + idl.Render(i))
		changed, err := osmisc.WriteFileIfChanged(path, contents)
		if err != nil {
			errs = multierr.Append(errs, errors.Wrapf(err, "saving %s", i.ID))
			continue
		}
		db.paths[i.ID] = path
		if changed {
			glog.V(1).Infof("wrote %s", path)
			written++
			bytes += uint64(len(contents))
		} else {
			unchanged++
		}
	}
	if changed, n, err := db.saveEnums(); err != nil {
		errs = multierr.Append(errs, err)
	} else if changed {
		written++
		bytes += uint64(n)
	}
	for _, id := range db.PendingDeletions() {
		path := db.pathOf(id)
		if err := osmisc.RemoveIfExists(path); err != nil {
			errs = multierr.Append(errs, errors.Wrapf(err, "deleting %s", id))
			continue
		}
		glog.V(1).Infof("deleted %s", path)
		delete(db.pendingDeletions, id)
		delete(db.paths, id)
	}
	logger.Infof(ctx, "saved %s: %d written (%s), %d unchanged", db.root, written, humanize.IBytes(bytes), unchanged)
	return errs
}

func (db *Database) saveEnums() (bool, int, error) {
	path := db.enumsPath()
	if len(db.enums) == 0 {
		return false, 0, errors.Wrap(osmisc.RemoveIfExists(path), "deleting enums")
	}
	contents := []byte(fileHeader + idl.Render(&idl.File{Definitions: idl.Definitions{Enums: db.Enums()}}))
	changed, err := osmisc.WriteFileIfChanged(path, contents)
	if err != nil {
		return false, 0, errors.Wrap(err, "saving enums")
	}
	if changed {
		glog.V(1).Infof("wrote %s", path)
	}
	return changed, len(contents), nil
}

func (db *Database) pathOf(id string) string {
	if p, ok := db.paths[id]; ok {
		return p
	}
	return filepath.Join(db.root, id+".idl")
}

// Delete removes the database directory and empties the database.
func (db *Database) Delete() error {
	db.reset()
	return os.RemoveAll(db.root)
}

// Clone returns a deep copy that can be changed without affecting db.
func (db *Database) Clone() *Database {
	c := &Database{root: db.root}
	c.reset()
	for id, i := range db.interfaces {
		c.interfaces[id] = i.Clone()
	}
	for id, e := range db.enums {
		c.enums[id] = e.Clone()
	}
	for id, p := range db.paths {
		c.paths[id] = p
	}
	for id := range db.pendingDeletions {
		c.pendingDeletions[id] = true
	}
	return c
}

func (db *Database) HasInterface(id string) bool {
	_, ok := db.interfaces[id]
	return ok
}

func (db *Database) GetInterface(id string) (*idl.Interface, error) {
	i, ok := db.interfaces[id]
	if !ok {
		return nil, errors.Wrap(ErrInterfaceNotFound, id)
	}
	return i, nil
}

// AddInterface adds a new interface. Adding an ID that is pending deletion
// cancels the deletion.
func (db *Database) AddInterface(i *idl.Interface) error {
	if db.HasInterface(i.ID) {
		return errors.Wrap(ErrInterfaceExists, i.ID)
	}
	db.interfaces[i.ID] = i
	delete(db.pendingDeletions, i.ID)
	return nil
}

// DeleteInterface removes the interface now and its file on the next Save.
func (db *Database) DeleteInterface(id string) error {
	if !db.HasInterface(id) {
		return errors.Wrap(ErrInterfaceNotFound, id)
	}
	delete(db.interfaces, id)
	db.pendingDeletions[id] = true
	return nil
}

// Interfaces returns all interfaces sorted by ID.
func (db *Database) Interfaces() []*idl.Interface {
	interfaces := make([]*idl.Interface, 0, len(db.interfaces))
	for _, i := range db.interfaces {
		interfaces = append(interfaces, i)
	}
	sort.Slice(interfaces, func(a, b int) bool { return interfaces[a].ID < interfaces[b].ID })
	return interfaces
}

// PendingDeletions returns the IDs whose files the next Save removes, sorted.
func (db *Database) PendingDeletions() []string {
	ids := make([]string, 0, len(db.pendingDeletions))
	for id := range db.pendingDeletions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Hierarchy returns the ancestors of i that are in the database, depth
// first in declaration order. Each ancestor appears once.
func (db *Database) Hierarchy(i *idl.Interface) []*idl.Interface {
	var result []*idl.Interface
	seen := map[string]bool{i.ID: true}
	var visit func(*idl.Interface)
	visit = func(i *idl.Interface) {
		for _, p := range i.Parents {
			parent, ok := db.interfaces[p.Type.ID]
			if !ok || seen[parent.ID] {
				continue
			}
			seen[parent.ID] = true
			result = append(result, parent)
			visit(parent)
		}
	}
	visit(i)
	return result
}

// AddEnum adds or replaces an enum. Save writes all enums to EnumsFile.
func (db *Database) AddEnum(e *idl.Enum) {
	db.enums[e.ID] = e
}

func (db *Database) HasEnum(id string) bool {
	_, ok := db.enums[id]
	return ok
}

func (db *Database) GetEnum(id string) (*idl.Enum, bool) {
	e, ok := db.enums[id]
	return e, ok
}

// Enums returns all enums sorted by ID.
func (db *Database) Enums() []*idl.Enum {
	enums := make([]*idl.Enum, 0, len(db.enums))
	for _, e := range db.enums {
		enums = append(enums, e)
	}
	sort.Slice(enums, func(a, b int) bool { return enums[a].ID < enums[b].ID })
	return enums
}
