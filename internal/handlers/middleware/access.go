package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type logger interface {
	Info(msg string, args ...any)
}

type requestObserver interface {
	ObserveRequest(method string, code int, d time.Duration)
}

// What is known about request when it is served
type requestRecord struct {
	status int
	size   int
	userID uuid.UUID
}

type recordKey struct{}

// Remember authenticated user for the access log
// Does nothing if request is not served by AccessMiddleware
func recordUser(ctx context.Context, userID uuid.UUID) {
	if rec, ok := ctx.Value(recordKey{}).(*requestRecord); ok {
		rec.userID = userID
	}
}

type recordWriter struct {
	http.ResponseWriter
	rec         *requestRecord
	wroteHeader bool
}

func (w *recordWriter) Write(p []byte) (int, error) {
	w.wroteHeader = true
	size, err := w.ResponseWriter.Write(p)
	w.rec.size += size
	return size, err
}

func (w *recordWriter) WriteHeader(statusCode int) {
	w.ResponseWriter.WriteHeader(statusCode)
	if !w.wroteHeader {
		w.rec.status = statusCode
		w.wroteHeader = true
	}
}

// Log every request and observe its duration
// Authenticated user id is logged if request passed AuthMiddleware
func AccessMiddleware(l logger, o requestObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rec := &requestRecord{status: http.StatusOK}
			rw := &recordWriter{ResponseWriter: w, rec: rec}
			ctx := context.WithValue(r.Context(), recordKey{}, rec)

			next.ServeHTTP(rw, r.WithContext(ctx))

			duration := time.Since(start)
			o.ObserveRequest(r.Method, rec.status, duration)

			args := []any{
				"method", r.Method,
				"uri", r.RequestURI,
				"duration", duration,
				"status", rec.status,
				"size", rec.size,
			}
			if rec.userID != uuid.Nil {
				args = append(args, "user_id", rec.userID)
			}
			l.Info("got HTTP request", args...)
		})
	}
}
