package middleware

import (
	"net/http"
	"time"
)

// Timeout cancels the request context after d. A handler still running by
// then is abandoned and the client gets 503 with the TIMEOUT envelope.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	body := errorJSON("TIMEOUT", "request timed out")

	return func(next http.Handler) http.Handler {
		th := http.TimeoutHandler(next, d, body)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// overwritten by the handler's own headers when it finishes in time
			w.Header().Set("Content-Type", "application/json")
			th.ServeHTTP(w, r)
		})
	}
}
