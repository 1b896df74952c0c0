// Package headers adds a fixed set of response headers to everything a
// handler sends. The headers are set at the moment the status line is about
// to be written, so they survive handlers that reset the header map on
// their error paths.
package headers

import (
	"io"
	"net/http"
	"slices"
)

// Inject wraps next so that every response carries fixed. Values already
// present under the same names are replaced, all other headers are left
// alone.
func Inject(next http.Handler, fixed http.Header) http.Handler {
	fixed = fixed.Clone()
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		w := &writer{ResponseWriter: rw, fixed: fixed}
		next.ServeHTTP(w, req)
		// net/http writes the implicit 200 itself when the handler wrote nothing
		w.inject()
	})
}

type writer struct {
	http.ResponseWriter
	fixed    http.Header
	injected bool
}

func (w *writer) inject() {
	if w.injected {
		return
	}
	w.injected = true

	h := w.ResponseWriter.Header()
	for name, values := range w.fixed {
		h[name] = slices.Clone(values)
	}
}

func (w *writer) WriteHeader(code int) {
	// informational responses don't end the header block
	if code >= 200 || code == http.StatusSwitchingProtocols {
		w.inject()
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *writer) Write(b []byte) (int, error) {
	w.inject()
	return w.ResponseWriter.Write(b)
}

// ReadFrom keeps the underlying sendfile path available to http.FileServer.
func (w *writer) ReadFrom(src io.Reader) (int64, error) {
	w.inject()
	if rf, ok := w.ResponseWriter.(io.ReaderFrom); ok {
		return rf.ReadFrom(src)
	}
	return io.Copy(struct{ io.Writer }{w.ResponseWriter}, src)
}

func (w *writer) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
