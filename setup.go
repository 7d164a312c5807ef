package upload // import "blitznote.com/src/png.upload"

import (
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/pkg/errors"
	"golang.org/x/text/unicode/norm"
)

// Defaults, as found in a fresh installation.
const (
	DefaultPort      = "3000"
	DefaultFormField = "myfile"

	portEnvironmentVariable = "PORT"
)

// AllowList is the immutable set of acceptable filename extensions.
//
// Every element is lower-case and starts with a dot.
type AllowList struct {
	exts map[string]struct{}
}

// NewAllowList normalizes the given extensions into an AllowList.
//
// "PNG", ".png", and ".Png" are all the same.
func NewAllowList(extensions ...string) AllowList {
	a := AllowList{exts: make(map[string]struct{}, len(extensions))}
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" || ext == "." {
			continue
		}
		if ext[0] != '.' {
			ext = "." + ext
		}
		a.exts[ext] = struct{}{}
	}
	return a
}

// Contains reports whether 'ext' is allowed, ignoring case.
func (a AllowList) Contains(ext string) bool {
	_, found := a.exts[strings.ToLower(ext)]
	return found
}

// Len is the number of allowed extensions.
func (a AllowList) Len() int { return len(a.exts) }

// Extensions returns the allowed extensions in lexical order.
func (a AllowList) Extensions() []string {
	l := make([]string, 0, len(a.exts))
	for ext := range a.exts {
		l = append(l, ext)
	}
	sort.Strings(l)
	return l
}

// String renders the list as it's used in HTML attribute 'accept'.
func (a AllowList) String() string {
	return strings.Join(a.Extensions(), ",")
}

// Configuration is shared by all requests, and must not be modified after
// it has been handed to NewHandler or NewRouter.
type Configuration struct {
	// Accepted files end up here. Created on first use.
	UploadsDir string

	// Uploads are streamed to this directory before they get vetted.
	// Should reside on the same device as UploadsDir; if not, files get copied.
	StagingDir string

	// Served verbatim for any GET request other than "/".
	// Only NewRouter uses this.
	StaticDir string

	// Extensions of files we keep.
	AllowedExtensions AllowList

	// Name of the form field carrying the file.
	FormField string

	// Upper bound of a request's body in bytes. 0 means unlimited.
	MaxTransactionSize int64

	// Set this to enforce a particular Unicode normalization form on filenames.
	UnicodeForm *struct{ Use norm.Form }

	// Filenames must consist of runes in these ranges, if set.
	RestrictFilenamesTo []*unicode.RangeTable

	// Receives lines about requests and failed cleanups.
	Logger *log.Logger
}

// NewDefaultConfiguration creates a new default configuration
// with all paths relative to 'root'.
//
// Only files with extension ".png" are accepted.
func NewDefaultConfiguration(root string) *Configuration {
	return &Configuration{
		UploadsDir:        filepath.Join(root, "uploads"),
		StagingDir:        filepath.Join(root, ".staging"),
		StaticDir:         filepath.Join(root, "public"),
		AllowedExtensions: NewAllowList(".png"),
		FormField:         DefaultFormField,
		Logger:            log.New(os.Stderr, "pngupload: ", log.LstdFlags),
	}
}

// Validate rejects incomplete configurations.
func (c *Configuration) Validate() error {
	switch {
	case c.UploadsDir == "":
		return errors.New("the uploads directory is missing")
	case c.StagingDir == "":
		return errors.New("the staging directory is missing")
	case c.AllowedExtensions.Len() == 0:
		return errors.New("no file extension has been allowed")
	case c.FormField == "":
		return errors.New("the name of the form field is missing")
	case c.MaxTransactionSize < 0:
		return errors.New("the maximum transaction size must not be negative")
	}

	// The staging directory must not be observable as part of the uploads.
	uploads, err := filepath.Abs(c.UploadsDir)
	if err != nil {
		return errors.Wrap(err, "uploads directory")
	}
	staging, err := filepath.Abs(c.StagingDir)
	if err != nil {
		return errors.Wrap(err, "staging directory")
	}
	if staging == uploads || strings.HasPrefix(staging, uploads+string(filepath.Separator)) {
		return errors.Errorf("the staging directory %q must not be within %q", c.StagingDir, c.UploadsDir)
	}
	return nil
}

func (c *Configuration) logf(format string, v ...interface{}) {
	if c.Logger == nil {
		return
	}
	c.Logger.Printf(format, v...)
}

// ListenAddress derives the address to listen on from environment variable PORT,
// which defaults to 3000.
//
// 'lookup' is os.LookupEnv outside of tests.
func ListenAddress(lookup func(string) (string, bool)) (string, error) {
	port, present := lookup(portEnvironmentVariable)
	port = strings.TrimSpace(port)
	if !present || port == "" {
		port = DefaultPort
	}
	n, err := strconv.ParseUint(port, 10, 16)
	if err != nil || n == 0 {
		return "", errors.Errorf("%s: not a valid port: %q", portEnvironmentVariable, port)
	}
	return ":" + port, nil
}

// Unveil restricts the process to the directories in the configuration.
// Static assets can only be read.
//
// Call this once, after all other files have been opened.
// Is a nop on operating systems other than OpenBSD,
// where it also creates missing writable directories up front.
func (c *Configuration) Unveil() error {
	paths := []struct{ path, perm string }{
		{c.UploadsDir, "rwc"},
		{c.StagingDir, "rwc"},
		{c.StaticDir, "r"},
	}
	for _, p := range paths {
		if p.path == "" {
			continue
		}
		if err := unveil(p.path, p.perm); err != nil {
			return errors.Wrap(err, p.path)
		}
	}
	return unveilBlock()
}
