// File: internal/middleware/logger.go
package middleware

import (
	"log"
	"net/http"
	"time"

	"github.com/calyra-app/calyra/internal/ratelimit"
)

// statusRecorder captures the response status for the request log. It
// must keep forwarding Flush: the turn endpoints type-assert the
// writer to http.Flusher before streaming server-sent events.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

func (rec *statusRecorder) Flush() {
	if f, ok := rec.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// LoggingMiddleware logs one line per request with method, path,
// caller, status and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		log.Printf("[Request] %s %s from %s | Status: %d | Duration: %v",
			r.Method,
			r.RequestURI,
			ratelimit.GetClientIP(r),
			rec.status,
			time.Since(start),
		)
	})
}
