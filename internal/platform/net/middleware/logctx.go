package middleware

import (
	"net/http"

	"sibyl/internal/platform/logger"
	pnet "sibyl/internal/platform/net"
)

// LogContext copies the middleware-assigned request id onto the logger
// context, so logger.C children and the query tracer carry request_id.
// Mount it after RequestID
func LogContext() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id := pnet.RequestID(r.Context()); id != "" {
				r = r.WithContext(logger.WithRequest(r.Context(), id, ""))
			}
			next.ServeHTTP(w, r)
		})
	}
}
