// Copyright 2020 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package osmisc

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kr/fs"
)

// IsDir determines whether a given path exists *and* is a directory. It will
// return false (with no error) if the path does not exist.
func IsDir(path string) (bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}

// FindFiles returns every regular file under root whose name ends in suffix,
// sorted by path. Hidden directories are not entered.
func FindFiles(root, suffix string) ([]string, error) {
	var files []string
	walker := fs.Walk(root)
	for walker.Step() {
		if err := walker.Err(); err != nil {
			return nil, err
		}
		info := walker.Stat()
		if info.IsDir() {
			if walker.Path() != root && strings.HasPrefix(info.Name(), ".") {
				walker.SkipDir()
			}
			continue
		}
		if info.Mode().IsRegular() && strings.HasSuffix(info.Name(), suffix) {
			files = append(files, filepath.Clean(walker.Path()))
		}
	}
	sort.Strings(files)
	return files, nil
}
