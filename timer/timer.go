package timer

import (
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
)

// Report describes one finished request.
type Report struct {
	Method   string
	Path     string
	Proto    string
	Remote   string
	Status   int
	Bytes    int64
	Duration time.Duration
}

// Saver receives a Report when a request is done.
type Saver func(r Report)

// MakeRequestTimeTracker wraps handler, measures the full round trip of
// every request and passes the result to the savers.
func MakeRequestTimeTracker(handler http.Handler, savers ...Saver) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		start := time.Now()
		rec := &recorder{ResponseWriter: rw}

		handler.ServeHTTP(rec, req)

		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		r := Report{
			Method:   req.Method,
			Path:     req.URL.RequestURI(),
			Proto:    req.Proto,
			Remote:   req.RemoteAddr,
			Status:   status,
			Bytes:    rec.bytes,
			Duration: time.Since(start),
		}
		for _, save := range savers {
			save(r)
		}
	})
}

// SaveToLog writes an access log line per request. Server errors are logged
// at error level.
func SaveToLog(logger *log.Logger) Saver {
	return func(r Report) {
		keyvals := []interface{}{
			"method", r.Method,
			"path", r.Path,
			"proto", r.Proto,
			"status", r.Status,
			"bytes", r.Bytes,
			"duration", r.Duration,
			"remote", r.Remote,
		}
		if r.Status >= http.StatusInternalServerError {
			logger.Error("Request", keyvals...)
			return
		}
		logger.Info("Request", keyvals...)
	}
}

type recorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (r *recorder) WriteHeader(code int) {
	if r.status == 0 && code >= 200 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *recorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += int64(n)
	return n, err
}

func (r *recorder) ReadFrom(src io.Reader) (int64, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	var n int64
	var err error
	if rf, ok := r.ResponseWriter.(io.ReaderFrom); ok {
		n, err = rf.ReadFrom(src)
	} else {
		n, err = io.Copy(struct{ io.Writer }{r.ResponseWriter}, src)
	}
	r.bytes += n
	return n, err
}

func (r *recorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
