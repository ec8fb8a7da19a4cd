package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type ctxKey string

const (
	CtxKeyRequestID ctxKey = "request_id"
	CtxKeyTraceID   ctxKey = "trace_id"

	HeaderRequestID = "X-Request-ID"
	HeaderTraceID   = "X-Trace-ID"

	maxInboundIDLength = 128
)

func inboundID(r *http.Request, header string) string {
	v := r.Header.Get(header)
	if v == "" || len(v) > maxInboundIDLength {
		return uuid.NewString()
	}
	return v
}

// WithRequestAndTrace attaches request and trace identifiers to the request
// context, echoes them on the response and logs request start/finish.
func WithRequestAndTrace(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := inboundID(r, HeaderRequestID)
			traceID := inboundID(r, HeaderTraceID)

			ctx := context.WithValue(r.Context(), CtxKeyRequestID, reqID)
			ctx = context.WithValue(ctx, CtxKeyTraceID, traceID)
			r = r.WithContext(ctx)

			w.Header().Set(HeaderRequestID, reqID)
			w.Header().Set(HeaderTraceID, traceID)

			start := time.Now()
			logger.Debug("incoming request",
				"request_id", reqID,
				"trace_id", traceID,
				"method", r.Method,
				"path", r.URL.Path,
			)

			next.ServeHTTP(w, r)

			logger.Info("finished request",
				"request_id", reqID,
				"trace_id", traceID,
				"method", r.Method,
				"path", r.URL.Path,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyRequestID).(string); ok {
		return v
	}
	return ""
}

func TraceIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyTraceID).(string); ok {
		return v
	}
	return ""
}
