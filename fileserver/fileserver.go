// Package fileserver maps request paths onto a directory and answers with
// file contents, a directory listing or an error status.
package fileserver

import (
	"errors"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/charmbracelet/log"
)

// Handler serves a single directory tree read-only.
type Handler struct {
	fs     rootFS
	files  http.Handler
	logger *log.Logger
}

// New creates a Handler serving root.
func New(root string, logger *log.Logger) *Handler {
	fs := rootFS{dir: http.Dir(root), logger: logger}
	return &Handler{
		fs:     fs,
		files:  http.FileServer(fs),
		logger: logger,
	}
}

func (h *Handler) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	if !isHTTPVersionSupported(req) {
		http.Error(rw, "Expected HTTP/1.x", http.StatusHTTPVersionNotSupported)
		return
	}

	switch req.Method {
	case http.MethodGet, http.MethodHead:
		// http.FileServer redirects .../index.html to ./ instead of serving it
		if strings.HasSuffix(req.URL.Path, "/"+indexPage) && h.serveIndex(rw, req) {
			return
		}
		h.files.ServeHTTP(rw, req)
	default:
		http.Error(rw, "Unsupported method ("+req.Method+")", http.StatusNotImplemented)
	}
}

const indexPage = "index.html"

// serveIndex answers a request naming an index page directly. It returns
// false when the name is a directory, leaving it to http.FileServer.
func (h *Handler) serveIndex(rw http.ResponseWriter, req *http.Request) bool {
	name := path.Clean(req.URL.Path)
	f, err := h.fs.Open(name)
	if err != nil {
		serveError(rw, err)
		return true
	}
	defer f.Close()

	d, err := f.Stat()
	if err != nil {
		serveError(rw, err)
		return true
	}
	if d.IsDir() {
		return false
	}

	http.ServeContent(rw, req, d.Name(), d.ModTime(), f)
	return true
}

// serveError answers the same way http.FileServer does for open failures.
func serveError(rw http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, os.ErrNotExist):
		http.Error(rw, "404 page not found", http.StatusNotFound)
	case errors.Is(err, os.ErrPermission):
		http.Error(rw, "403 Forbidden", http.StatusForbidden)
	default:
		http.Error(rw, "500 Internal Server Error", http.StatusInternalServerError)
	}
}

// only plain HTTP/1.0 and HTTP/1.1 are spoken
func isHTTPVersionSupported(req *http.Request) bool {
	if maj, _, ok := http.ParseHTTPVersion(req.Proto); ok {
		return maj == 1
	}
	return false
}

// rootFS reports filesystem failures other than missing files. http.Dir
// already refuses names that would escape the root.
type rootFS struct {
	dir    http.Dir
	logger *log.Logger
}

func (fs rootFS) Open(name string) (http.File, error) {
	f, err := fs.dir.Open(name)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		fs.logger.Warn("Failed to open", "path", name, "err", err)
	}
	return f, err
}
