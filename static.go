package upload // import "blitznote.com/src/png.upload"

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const contentTypeFallback = "application/octet-stream"

// Content types of files one would expect next to a web form.
var contentTypes = map[string]string{
	".css":   "text/css; charset=utf-8",
	".gif":   "image/gif",
	".htm":   contentTypeHTML,
	".html":  contentTypeHTML,
	".ico":   "image/x-icon",
	".jpeg":  "image/jpeg",
	".jpg":   "image/jpeg",
	".js":    "text/javascript; charset=utf-8",
	".json":  "application/json",
	".map":   "application/json",
	".png":   "image/png",
	".svg":   "image/svg+xml",
	".txt":   "text/plain; charset=utf-8",
	".webp":  "image/webp",
	".woff":  "font/woff",
	".woff2": "font/woff2",
}

// ContentType maps an extension such as ".css" to its MIME type,
// or "application/octet-stream" if it's unknown.
func ContentType(ext string) string {
	if ctype, found := contentTypes[strings.ToLower(ext)]; found {
		return ctype
	}
	return contentTypeFallback
}

// StaticHandler serves files from a directory, and nothing above it.
type StaticHandler struct {
	Root string
}

// NewStaticHandler creates a handler for the assets in 'root'.
func NewStaticHandler(root string) *StaticHandler {
	return &StaticHandler{Root: root}
}

// ServeHTTP implements http.Handler.
//
// Directories, and anything else that's not a regular file, are reported as not found.
func (h *StaticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fileName, ok := h.resolve(r.URL.Path)
	if ok {
		fileName, ok = h.withinRoot(fileName)
	}
	if !ok {
		serveNotFound(w, r)
		return
	}

	fd, err := os.Open(fileName)
	if err != nil {
		serveNotFound(w, r)
		return
	}
	defer fd.Close()
	finfo, err := fd.Stat()
	if err != nil || !finfo.Mode().IsRegular() {
		serveNotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", ContentType(filepath.Ext(fileName)))
	http.ServeContent(w, r, finfo.Name(), finfo.ModTime(), fd)
}

// resolve translates the request path into one below Root.
// Anything that would escape Root is rejected.
func (h *StaticHandler) resolve(urlPath string) (string, bool) {
	if strings.ContainsRune(urlPath, 0) || strings.Contains(urlPath, `\`) {
		return "", false
	}
	clean := path.Clean("/" + urlPath) // "/../etc/passwd" → "/etc/passwd"
	if clean == "/" {
		return "", false
	}
	return filepath.Join(h.Root, filepath.FromSlash(clean)), true
}

// withinRoot follows any symlinks in 'fileName', and returns the
// target only if it still is below Root.
func (h *StaticHandler) withinRoot(fileName string) (string, bool) {
	root, err := filepath.EvalSymlinks(h.Root)
	if err != nil {
		return "", false
	}
	target, err := filepath.EvalSymlinks(fileName)
	if err != nil {
		return "", false
	}
	if !strings.HasPrefix(target, root+string(filepath.Separator)) {
		return "", false
	}
	return target, true
}

// serveNotFound is the response to anything we don't have.
func serveNotFound(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(errNotFound.SuggestedResponseCode())
	w.Write([]byte(errNotFound.Error()))
}
