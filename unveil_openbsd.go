// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package upload

import (
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

// unveilError explains why 'unveil' refused a path.
type unveilError struct {
	path   string
	reason string
}

func (e unveilError) Error() string {
	if e.path == "" {
		return "call 'unveil' failed: " + e.reason
	}
	return "call 'unveil' failed for " + e.path + ": " + e.reason
}

func translateUnveilErrorCode(path string, err error) error {
	var reason string
	switch err {
	case nil:
		return nil
	case unix.E2BIG:
		reason = "per-process limit reached"
	case unix.ENOENT:
		reason = "path does not exist"
	case unix.EINVAL:
		reason = "invalid value for 'permissions'"
	case unix.EPERM:
		reason = "called after locking"
	default:
		return err
	}
	return unveilError{path: path, reason: reason}
}

// unveil registers paths that shall remain accessible.
//
// Directories that can be created in need to exist beforehand,
// for nothing outside them will be visible afterwards.
func unveil(path, perm string) error {
	if strings.ContainsRune(perm, 'c') {
		if err := os.MkdirAll(path, 0750); err != nil {
			return err
		}
	}
	return translateUnveilErrorCode(path, unix.Unveil(path, perm))
}

// unveilBlock removes access to any remaining paths from this process.
func unveilBlock() error {
	return translateUnveilErrorCode("", unix.UnveilBlock())
}
