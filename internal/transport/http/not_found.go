package http

import "net/http"

// NotFoundHandler is the catch-all route, answering JSON like every other
// endpoint.
func NotFoundHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "not found")
	})
}
