package http

import "net/http"

// HealthHandler reports process liveness. Database reachability is not
// checked here; the handler answers even when storage is down.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
