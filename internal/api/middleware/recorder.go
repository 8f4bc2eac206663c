package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// statusRecorder remembers what the wrapped handler wrote.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (sr *statusRecorder) WriteHeader(code int) {
	if sr.status == 0 {
		sr.status = code
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += int64(n)
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

// outcome summarises one served request.
type outcome struct {
	route    string
	status   int
	bytes    int64
	duration time.Duration
}

func (o outcome) failed() bool { return o.status >= http.StatusBadRequest }

// serveRecorded runs next and reports how the request went.
// A handler that writes nothing counts as 200.
func serveRecorded(next http.Handler, w http.ResponseWriter, r *http.Request) outcome {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w}

	next.ServeHTTP(rec, r)

	status := rec.status
	if status == 0 {
		status = http.StatusOK
	}
	return outcome{
		route:    routePattern(r),
		status:   status,
		bytes:    rec.bytes,
		duration: time.Since(start),
	}
}

// routePattern returns the matched chi route, or the raw path outside a chi router.
// It is only complete after routing, so callers read it once next has returned.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}
