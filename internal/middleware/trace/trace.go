// Package trace assigns request ids, logs every request and turns panics
// into 500 responses.
package trace

import (
	"context"
	"net/http"
	"regexp"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	applog "forestgrant/internal/log"
)

type ContextKey string

const RequestIDKey ContextKey = "request_id"

// HeaderRequestID is read from incoming requests and echoed on responses.
const HeaderRequestID = "X-Request-ID"

var validRequestID = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

type Middleware struct {
	logger    *applog.Logger
	extractIP func(*http.Request) string
	onPanic   func(http.ResponseWriter, *http.Request)
	total     atomic.Int64
	panics    atomic.Int64
}

type Metrics struct {
	TotalRequests int64
	Panics        int64
}

// NewMiddleware builds the tracing middleware. onPanic writes the response
// after a recovered panic; nil means a bare 500.
func NewMiddleware(logger *applog.Logger, extractIP func(*http.Request) string, onPanic func(http.ResponseWriter, *http.Request)) *Middleware {
	return &Middleware{logger: logger, extractIP: extractIP, onPanic: onPanic}
}

func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.total.Add(1)

		requestID := r.Header.Get(HeaderRequestID)
		if !validRequestID.MatchString(requestID) {
			requestID = GenerateRequestID()
		}
		w.Header().Set(HeaderRequestID, requestID)

		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		ctx = applog.NewContext(ctx, m.logger.With(applog.FieldRequestID, requestID))
		r = r.WithContext(ctx)

		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		defer func() {
			if rec := recover(); rec != nil {
				m.panics.Add(1)
				applog.FromContext(ctx).ErrorContext(ctx, "Panic while serving request",
					"panic", rec,
					"stack", string(debug.Stack()))
				if !rw.wroteHeader {
					if m.onPanic != nil {
						m.onPanic(rw, r)
					} else {
						rw.WriteHeader(http.StatusInternalServerError)
					}
				}
			}
			applog.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
		}()
		next.ServeHTTP(rw, r)
	})
}

// responseWriter remembers the status code for logging.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.statusCode = code
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

func GenerateRequestID() string {
	return "req_" + uuid.NewString()
}

// GetRequestID returns the id assigned by Middleware, or "".
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

func (m *Middleware) GetMetrics() Metrics {
	return Metrics{TotalRequests: m.total.Load(), Panics: m.panics.Load()}
}

