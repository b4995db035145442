// internal/middleware/logging.go
package middleware

import (
	"log"
	"net/http"
	"time"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// RequestLogger logs each completed request with its duration and the
// acting user, when one was resolved.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		userID := "-"
		if user, ok := UserFromContext(r.Context()); ok {
			userID = user.ID.String()
		}

		level := "INFO"
		if rec.status >= http.StatusInternalServerError {
			level = "ERROR"
		}
		log.Printf("[%s] %s %s completed in %v (status: %d, user: %s)",
			level, r.Method, r.URL.Path, time.Since(start), rec.status, userID)
	})
}
