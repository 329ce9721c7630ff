package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// responseWriter wraps http.ResponseWriter to capture status code and size
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	size       int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	size, err := rw.ResponseWriter.Write(b)
	rw.size += size
	return size, err
}

// LoggingMiddleware logs each HTTP request as one structured slog line.
//
// Every request carries the ambient fields (request ID, method, path,
// status, duration, size, client IP, user agent). Requests whose matched
// route defines app/profiles/label variables additionally carry them as
// application/profiles/label fields, so a log line can be correlated to the
// config coordinates it served without parsing the path template back out.
// The label field is the raw path segment; an omitted label is not filled in
// with the default.
func LoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			requestID := GetRequestID(r.Context())

			clientIP := r.Header.Get("X-Forwarded-For")
			if clientIP == "" {
				clientIP = r.Header.Get("X-Real-IP")
			}
			if clientIP == "" {
				clientIP = r.RemoteAddr
			}

			next.ServeHTTP(rw, r)

			duration := time.Since(start)

			fields := []any{
				"request_id", requestID,
				"method", r.Method,
				"path", r.URL.Path,
				"query", r.URL.RawQuery,
				"status", rw.statusCode,
				"duration_ms", duration.Milliseconds(),
				"duration_ns", duration.Nanoseconds(),
				"size_bytes", rw.size,
				"client_ip", clientIP,
				"user_agent", r.UserAgent(),
			}
			fields = append(fields, coordinateFields(r)...)

			logger.Info("HTTP request", fields...)
		})
	}
}

// coordinateFields reads the app/profiles/label route variables off a
// matched request, from whichever route defines them (the fetch routes and
// the single-entry cache delete route).
// mux.Vars is populated by this point because gorilla/mux performs route
// matching before invoking the middleware chain.
func coordinateFields(r *http.Request) []any {
	vars := mux.Vars(r)
	if len(vars) == 0 {
		return nil
	}

	var fields []any
	if app, ok := vars["app"]; ok {
		fields = append(fields, "application", app)
	}
	if profiles, ok := vars["profiles"]; ok {
		fields = append(fields, "profiles", profiles)
	}
	if label, ok := vars["label"]; ok && label != "" {
		fields = append(fields, "label", label)
	}
	return fields
}
