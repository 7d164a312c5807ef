// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package upload // import "blitznote.com/src/png.upload"

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/text/unicode/norm"

	"blitznote.com/src/png.upload/protofile"
)

// Handler accepts one file per request, and keeps it if its extension is allowed.
type Handler struct {
	Config *Configuration
}

// NewHandler creates a new instance of the upload handler,
// meant to be used in Go's own http server.
//
// Its responsibility is to reject invalid or formally incorrect configurations.
func NewHandler(config *Configuration) (*Handler, error) {
	if config == nil {
		return nil, errors.New("the configuration is missing")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Handler{Config: config}, nil
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.serveHTTP(w, r)
}

// serveHTTP writes the response, and returns what it has written for the benefit of any caller.
func (h *Handler) serveHTTP(w http.ResponseWriter, r *http.Request) (int, error) {
	if h.Config.MaxTransactionSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.Config.MaxTransactionSize)
	}

	fileName, err := h.receive(r)
	if err != nil {
		code := responseCode(err)
		if code >= http.StatusInternalServerError {
			h.Config.logf("upload failed: %v", err)
		}
		writeFailure(w, err)
		return code, err
	}

	writeSuccess(w, fileName, h.Config.AllowedExtensions)
	return http.StatusOK, nil
}

// receive runs the validation pipeline, and returns the name under which the file has been kept.
func (h *Handler) receive(r *http.Request) (string, error) {
	staged, err := decodeForm(r, h.Config.FormField, h.Config.StagingDir)
	if err != nil {
		return "", err
	}
	if staged == nil {
		return "", errNoFileUploaded
	}

	if !h.acceptableFilename(staged.Filename) {
		staged.Discard(h.Config.Logger)
		return "", errInvalidFilename
	}

	ext := Extension(staged.Filename)
	if !h.Config.AllowedExtensions.Contains(ext) {
		staged.Discard(h.Config.Logger)
		return "", fileTypeError{ext: ext, allowed: h.Config.AllowedExtensions}
	}

	err = MoveIntoPlace(staged.Path, h.Config.UploadsDir, staged.Filename)
	if err != nil {
		staged.Discard(h.Config.Logger)
		return "", err
	}
	return staged.Filename, nil
}

// acceptableFilename rejects names we won't use as the last element of a path.
func (h *Handler) acceptableFilename(fileName string) bool {
	if strings.ContainsAny(fileName, `/\`) {
		return false
	}
	var enforceForm *norm.Form
	if h.Config.UnicodeForm != nil {
		enforceForm = &h.Config.UnicodeForm.Use
	}
	return IsAcceptableFilename(fileName, h.Config.RestrictFilenamesTo, enforceForm)
}

// MoveIntoPlace moves the file at 'stagedPath' to 'dir/fileName',
// creating 'dir' if needed. An existing file of the same name gets replaced.
//
// If 'dir' is on another device the file is copied, and the staged file is removed
// if that succeeded.
func MoveIntoPlace(stagedPath, dir, fileName string) error {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return newStorageError(err, "create uploads directory")
	}

	err := os.Rename(stagedPath, filepath.Join(dir, fileName))
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return newStorageError(err, "move into place")
	}

	if err = copyIntoPlace(stagedPath, dir, fileName); err != nil {
		return newStorageError(err, "copy into place")
	}
	os.Remove(stagedPath)
	return nil
}

// copyIntoPlace writes a copy of 'src' which appears in 'dir' only once it's complete.
func copyIntoPlace(src, dir, fileName string) error {
	fd, err := os.Open(src)
	if err != nil {
		return err
	}
	defer fd.Close()

	w, err := protofile.IntentNew(dir, fileName)
	if err != nil {
		return err
	}
	defer w.Zap()

	if finfo, err := fd.Stat(); err == nil {
		w.SizeWillBe(finfo.Size())
	}
	if _, err = io.Copy(w, fd); err != nil {
		return err
	}
	return w.Persist()
}
