package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/okian/xcleague/pkg/metrics"
)

// failure labels an error response for the error metrics.
type failure struct {
	kind     string
	severity string
}

// failures covers every error status the API writes. A bad request or a
// missing entity is the caller's doing; a store failure is ours.
var failures = map[int]failure{
	http.StatusBadRequest:          {kind: "bad_request", severity: "medium"},
	http.StatusNotFound:            {kind: "not_found", severity: "low"},
	http.StatusMethodNotAllowed:    {kind: "method_not_allowed", severity: "low"},
	http.StatusInternalServerError: {kind: "store_error", severity: "high"},
}

func classify(status int) failure {
	if f, ok := failures[status]; ok {
		return f
	}
	if status >= http.StatusInternalServerError {
		return failure{kind: "server_error", severity: "high"}
	}
	return failure{kind: "client_error", severity: "medium"}
}

// MetricsMiddleware records request counts and latency per endpoint, and
// error metrics for every response at or above 400.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		ms := float64(time.Since(start).Milliseconds())
		status := strconv.Itoa(rec.status)
		metrics.RecordHTTPRequest(endpoint, r.Method, status)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, status, ms)

		if rec.status < http.StatusBadRequest {
			return
		}
		f := classify(rec.status)
		metrics.RecordErrorByEndpoint(endpoint, r.Method, f.kind)
		metrics.RecordErrorByType(f.kind, f.severity)
		metrics.RecordErrorLatency("http", f.kind, ms)
	}
}

// getOnly answers anything but GET and HEAD with 405.
func getOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", ErrMethodNotAllowed)
			return
		}
		next(w, r)
	}
}

// statusRecorder remembers the status a handler wrote.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}
