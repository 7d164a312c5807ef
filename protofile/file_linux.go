package protofile // import "blitznote.com/src/png.upload/protofile"

import (
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// Set once the kernel turned out not to know O_TMPFILE.
var tmpfileUnknown atomic.Bool

func init() {
	IntentNew = intentNewTmpfile
}

// unixProtoFile is the variant that utilizes O_TMPFILE.
// Although it might seem that data is written to the parent directory itself,
// it actually goes into a nameless file.
type unixProtoFile struct {
	*os.File

	persisted bool
	finalName string
}

func intentNewTmpfile(path, filename string) (ProtoFileBehaver, error) {
	if tmpfileUnknown.Load() {
		return intentNewUniversal(path, filename)
	}
	t, err := os.OpenFile(path, os.O_WRONLY|unix.O_TMPFILE, permBitsFile)
	// did it fail because…
	if err != nil {
		perr, ok := err.(*os.PathError)
		if !ok {
			return nil, err
		}
		switch perr.Err {
		case unix.EISDIR, unix.ENOENT: // … kernel does not know O_TMPFILE
			// If so, don't try it again.
			tmpfileUnknown.Store(true)
			fallthrough
		case unix.EOPNOTSUPP: // … O_TMPFILE is not supported on this FS
			return intentNewUniversal(path, filename)
		default: // … something 'regular'.
			return nil, err
		}
	}
	return &unixProtoFile{
		File:      t,
		finalName: filepath.Join(path, filename),
	}, nil
}

// Zap closes the file. Nameless files get discarded by the kernel.
func (p *unixProtoFile) Zap() error {
	if p.persisted {
		return nil
	}
	return p.File.Close()
}

// Persist gives the file a name by linking its descriptor into the directory.
func (p *unixProtoFile) Persist() error {
	if err := p.File.Sync(); err != nil {
		return err
	}

	oldpath := "/proc/self/fd/" + strconv.Itoa(int(p.File.Fd()))
	err := unix.Linkat(unix.AT_FDCWD, oldpath, unix.AT_FDCWD, p.finalName, unix.AT_SYMLINK_FOLLOW)
	if err == unix.EEXIST { // Someone claimed our name; the last write wins.
		finfo, err2 := os.Lstat(p.finalName)
		if err2 == nil && !finfo.IsDir() {
			os.Remove(p.finalName)
			err = unix.Linkat(unix.AT_FDCWD, oldpath, unix.AT_FDCWD, p.finalName, unix.AT_SYMLINK_FOLLOW)
		}
	}
	if err != nil {
		return &os.LinkError{Op: "linkat", Old: oldpath, New: p.finalName, Err: err}
	}
	p.persisted = true
	return p.File.Close()
}

func (p *unixProtoFile) SizeWillBe(numBytes int64) error {
	if numBytes <= reserveFileSizeThreshold {
		return nil
	}
	err := unix.Fallocate(int(p.File.Fd()), 0, 0, numBytes)
	if err == unix.EOPNOTSUPP {
		return nil
	}
	return err
}
