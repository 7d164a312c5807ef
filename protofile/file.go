package protofile // import "blitznote.com/src/png.upload/protofile"

import (
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
)

const (
	// Files expected to be smaller than this (in bytes) don't get their space reserved.
	reserveFileSizeThreshold = 1 << 15

	permBitsFile = 0640
)

// ProtoFileBehaver is a file that has not been named yet.
type ProtoFileBehaver interface {
	io.Writer

	// Zap discards a file that has not been persisted.
	Zap() error

	// Persist emerges the file under its final name, and closes it.
	Persist() error

	// SizeWillBe reserves space on disk for the file contents.
	SizeWillBe(numBytes int64) error
}

// IntentNew results in a sink for writes to disk, which becomes
// file 'filename' in directory 'path' on Persist.
//
// 'path' must exist.
// Depending on the operating- and filesystem a degraded implementation will be used.
var IntentNew func(path, filename string) (ProtoFileBehaver, error) = intentNewUniversal

// generalizedProtoFile is a dot-file that gets renamed.
type generalizedProtoFile struct {
	*os.File

	persisted bool
	finalName string
}

func intentNewUniversal(path, filename string) (ProtoFileBehaver, error) {
	t, err := ioutil.TempFile(path, "."+filename+".*")
	if err != nil {
		return nil, err
	}
	if err = t.Chmod(permBitsFile); err != nil {
		t.Close()
		os.Remove(t.Name())
		return nil, err
	}
	return &generalizedProtoFile{
		File:      t,
		finalName: filepath.Join(path, filename),
	}, nil
}

// Zap is a NOP on persisted files.
func (p *generalizedProtoFile) Zap() error {
	if p.persisted {
		return nil
	}
	p.File.Close()
	return os.Remove(p.File.Name())
}

func (p *generalizedProtoFile) Persist() error {
	if err := p.File.Sync(); err != nil {
		return err
	}
	if err := p.File.Close(); err != nil {
		return err
	}
	if err := os.Rename(p.File.Name(), p.finalName); err != nil {
		return err
	}
	p.persisted = true
	return nil
}

func (p *generalizedProtoFile) SizeWillBe(numBytes int64) error {
	if numBytes <= reserveFileSizeThreshold {
		return nil
	}
	return p.File.Truncate(numBytes)
}
