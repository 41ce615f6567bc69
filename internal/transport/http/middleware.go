package http

import (
	"log"
	"net/http"
	"time"
)

// RequestLogger logs one line per request with the final status and latency.
func RequestLogger(next http.Handler, logger *log.Logger) http.Handler {
	if logger == nil {
		logger = log.Default()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		logger.Printf("request method=%s path=%s status=%d duration=%s",
			r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}

// statusRecorder captures the status code; WriteHeader may never be called,
// in which case the implicit 200 stands.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
