// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !openbsd
// +build !openbsd

package upload

// unveil registers paths that shall remain accessible.
//
// Is a nop on this operating system.
func unveil(path, perm string) error {
	return nil
}

// unveilBlock removes access to any remaining paths from this process.
//
// Is a nop on this operating system.
func unveilBlock() error {
	return nil
}
