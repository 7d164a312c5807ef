// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package upload

import (
	"net/http"

	"github.com/pkg/errors"
)

// UploadError adds a behavioural hint to an Error.
type UploadError interface {
	error

	// SuggestedResponseCode gives a HTTP status code.
	SuggestedResponseCode() int
}

// clientInputError is returned when the client sent something we won't keep,
// like no file at all or one with a disallowed extension.
//
// The client should not try again with the same payload.
type clientInputError string

// Error implements the error interface.
func (e clientInputError) Error() string { return string(e) }

// SuggestedResponseCode implements the UploadError interface.
func (e clientInputError) SuggestedResponseCode() int { return http.StatusBadRequest }

// decodeError wraps anything the multipart decoder complained about.
type decodeError struct{ cause error }

// Error implements the error interface.
func (e decodeError) Error() string { return e.cause.Error() }

// Cause enables errors.Cause.
func (e decodeError) Cause() error { return e.cause }

// SuggestedResponseCode implements the UploadError interface.
func (e decodeError) SuggestedResponseCode() int { return http.StatusInternalServerError }

// entityTooLargeError is returned if the request body exceeds MaxTransactionSize.
type entityTooLargeError string

// Error implements the error interface.
func (e entityTooLargeError) Error() string { return string(e) }

// SuggestedResponseCode implements the UploadError interface.
func (e entityTooLargeError) SuggestedResponseCode() int { return http.StatusRequestEntityTooLarge }

// storageError is given when the file could not be put into its final place.
//
// It carries the failed operation for the log,
// whereas only the underlying message is shown to the client.
type storageError struct{ cause error }

// Error implements the error interface.
func (e storageError) Error() string { return e.cause.Error() }

// Cause enables errors.Cause.
func (e storageError) Cause() error { return e.cause }

// SuggestedResponseCode implements the UploadError interface.
func (e storageError) SuggestedResponseCode() int { return http.StatusInternalServerError }

// notFoundError is returned for unmatched routes and missing assets.
type notFoundError string

// Error implements the error interface.
func (e notFoundError) Error() string { return string(e) }

// SuggestedResponseCode implements the UploadError interface.
func (e notFoundError) SuggestedResponseCode() int { return http.StatusNotFound }

// Errors with fixed messages.
const (
	errNoFileUploaded  clientInputError    = "No file uploaded"
	errInvalidFilename clientInputError    = "Invalid file name"
	errTooLarge        entityTooLargeError = "Request Entity Too Large"
	errNotFound        notFoundError       = "Not found"
)

// fileTypeError names the rejected extension.
type fileTypeError struct {
	ext     string
	allowed AllowList
}

// Error implements the error interface.
func (e fileTypeError) Error() string { return "Invalid file type: " + e.ext }

// SuggestedResponseCode implements the UploadError interface.
func (e fileTypeError) SuggestedResponseCode() int { return http.StatusBadRequest }

// newStorageError annotates 'err' with the step that failed.
func newStorageError(err error, step string) storageError {
	return storageError{cause: errors.Wrap(err, step)}
}

// clientMessage is what we tell the client: the innermost error's text.
func clientMessage(err error) string {
	return errors.Cause(err).Error()
}

// responseCode translates any error into a HTTP status code.
func responseCode(err error) int {
	if e, ok := err.(UploadError); ok {
		return e.SuggestedResponseCode()
	}
	return http.StatusInternalServerError
}
