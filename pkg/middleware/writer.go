package middleware

import (
	"net/http"
	"sync"
)

// trackingWriter remembers the response status and, once sealed, swallows
// anything next tries to write. Sealing is how Timeout takes over a response
// the handler has not started.
type trackingWriter struct {
	http.ResponseWriter

	mu      sync.Mutex
	status  int
	started bool
	sealed  bool
}

func newTrackingWriter(w http.ResponseWriter) *trackingWriter {
	return &trackingWriter{ResponseWriter: w, status: http.StatusOK}
}

func (tw *trackingWriter) WriteHeader(code int) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.sealed {
		return
	}
	if !tw.started {
		tw.status = code
		tw.started = true
	}
	tw.ResponseWriter.WriteHeader(code)
}

func (tw *trackingWriter) Write(b []byte) (int, error) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.sealed {
		return 0, http.ErrHandlerTimeout
	}
	tw.started = true
	return tw.ResponseWriter.Write(b)
}

// seal reports whether the response was still untouched, in which case the
// caller now owns the underlying writer.
func (tw *trackingWriter) seal() bool {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.started {
		return false
	}
	tw.sealed = true
	return true
}

func (tw *trackingWriter) Status() int {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return tw.status
}
