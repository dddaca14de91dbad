// Copyright 2019 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package osmisc

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
)

// WriteFileIfChanged overwrites filename with contents unless the file already
// has exactly those contents, creating parent directories as needed. It
// reports whether the file was written.
func WriteFileIfChanged(filename string, contents []byte) (bool, error) {
	stat, err := os.Stat(filename)
	if err == nil && stat.Size() == int64(len(contents)) {
		current, err := ioutil.ReadFile(filename)
		if err != nil {
			return false, err
		}
		if bytes.Equal(current, contents) {
			return false, nil
		}
	} else if err != nil && !os.IsNotExist(err) {
		return false, err
	}
	if err := os.MkdirAll(filepath.Dir(filename), 0o777); err != nil {
		return false, err
	}
	if err := ioutil.WriteFile(filename, contents, 0o666); err != nil {
		return false, err
	}
	return true, nil
}

// RemoveIfExists removes filename, treating a missing file as success.
func RemoveIfExists(filename string) error {
	if err := os.Remove(filename); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
