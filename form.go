package upload // import "blitznote.com/src/png.upload"

import (
	"io"
	"io/ioutil"
	"log"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// StagedFile is the one file of a request, written to the staging directory
// but not yet vetted.
type StagedFile struct {
	// As sent by the client, unaltered. Can contain path separators.
	Filename string

	// Location in the staging directory.
	Path string

	// In bytes.
	Size int64
}

// Discard removes the staged file.
//
// Failing to do so is logged, and otherwise ignored.
func (f *StagedFile) Discard(logger *log.Logger) {
	err := os.Remove(f.Path)
	if err == nil || os.IsNotExist(err) {
		return
	}
	if logger != nil {
		logger.Printf("cannot discard staged file %s: %v", f.Path, err)
	}
}

// decodeForm reads the multipart body of 'r' and stages the file in form field 'field'.
//
// A nil *StagedFile without an error means: there was no such file.
// Only the first file in 'field' is considered, any other parts are skipped.
// URL-encoded forms are valid, but cannot carry any file.
func decodeForm(r *http.Request, field, stagingDir string) (*StagedFile, error) {
	mr, err := r.MultipartReader()
	if err == http.ErrNotMultipart && isURLEncodedForm(r) {
		return nil, nil
	}
	if err != nil {
		return nil, decodeFailure(err)
	}

	var staged *StagedFile
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			if staged != nil {
				os.Remove(staged.Path)
			}
			return nil, decodeFailure(err)
		}

		fileName := rawFileName(part)
		if staged != nil || part.FormName() != field || fileName == "" {
			_, err = io.Copy(ioutil.Discard, part)
			part.Close()
			if err != nil {
				if staged != nil {
					os.Remove(staged.Path)
				}
				return nil, decodeFailure(err)
			}
			continue
		}

		staged, err = stage(part, stagingDir, fileName)
		part.Close()
		if err != nil {
			return nil, err
		}
	}

	return staged, nil
}

func isURLEncodedForm(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/x-www-form-urlencoded"
}

// rawFileName extracts parameter 'filename' from header Content-Disposition.
//
// Unlike multipart.Part.FileName this doesn't strip any directories,
// which we'd like to see to reject such names.
func rawFileName(p *multipart.Part) string {
	_, params, err := mime.ParseMediaType(p.Header.Get("Content-Disposition"))
	if err != nil {
		return ""
	}
	return params["filename"]
}

// stage copies the contents of 'r' into a new file in 'stagingDir'.
func stage(r io.Reader, stagingDir, fileName string) (*StagedFile, error) {
	if err := os.MkdirAll(stagingDir, 0750); err != nil {
		return nil, newStorageError(err, "create staging directory")
	}
	stagedPath := filepath.Join(stagingDir, "upload-"+uuid.New().String())
	fd, err := os.OpenFile(stagedPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0640)
	if err != nil {
		return nil, newStorageError(err, "create staged file")
	}

	n, err := io.Copy(fd, r)
	if err == nil {
		err = fd.Close()
	} else {
		fd.Close()
	}
	if err != nil {
		os.Remove(stagedPath)
		if _, isWriteError := errors.Cause(err).(*os.PathError); isWriteError {
			return nil, newStorageError(err, "write staged file")
		}
		return nil, decodeFailure(err)
	}

	return &StagedFile{
		Filename: fileName,
		Path:     stagedPath,
		Size:     n,
	}, nil
}

// decodeFailure sorts out bodies that were too large.
func decodeFailure(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return errTooLarge
	}
	return decodeError{cause: err}
}
