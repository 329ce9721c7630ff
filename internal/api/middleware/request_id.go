package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// requestIDPrefix namespaces IDs minted by this server so they're
// recognizable as config-server-originated in a log stream shared with
// other services sitting behind the same edge proxy.
const requestIDPrefix = "cfgsrv-"

// RequestIDMiddleware extracts a caller-supplied request ID from
// RequestIDHeader, or mints one of this server's own, and stores it on both
// the request context and the response header.
//
// A caller-supplied ID is trusted verbatim so a request can be correlated
// across an upstream proxy and this server's own logs; a minted ID is
// prefixed to distinguish it from IDs other services in the same
// environment would generate.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = requestIDPrefix + uuid.New().String()
		}

		ctx := context.WithValue(r.Context(), RequestIDContextKey, requestID)
		r = r.WithContext(ctx)

		w.Header().Set(RequestIDHeader, requestID)

		next.ServeHTTP(w, r)
	})
}

// GetRequestID extracts the request ID stashed by RequestIDMiddleware.
// Returns "" if none is present, which callers use to skip the
// WithRequestID envelope field rather than render a blank one.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDContextKey).(string); ok {
		return id
	}
	return ""
}
