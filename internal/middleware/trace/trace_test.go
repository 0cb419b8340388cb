package trace

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	applog "forestgrant/internal/log"
)

func newLogger(buf *bytes.Buffer) *applog.Logger {
	return applog.New(applog.Config{Format: "text", Output: buf})
}

func TestMiddlewareAssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	m := NewMiddleware(newLogger(&buf), nil, nil)

	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Regexp(t, `^req_`, seen, "expected generated id")
	assert.Equal(t, seen, rr.Header().Get(HeaderRequestID))
	assert.Contains(t, buf.String(), "status_code=418")
}

func TestMiddlewareKeepsValidIncomingID(t *testing.T) {
	m := NewMiddleware(newLogger(&bytes.Buffer{}), nil, nil)
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for in, keep := range map[string]bool{
		"abc-123":           true,
		"bad id with space": false,
		"":                  false,
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderRequestID, in)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		got := rr.Header().Get(HeaderRequestID)
		if keep {
			assert.Equal(t, in, got, "expected %q to be kept", in)
		} else {
			assert.NotEqual(t, in, got, "expected %q to be replaced", in)
		}
	}
}

func TestMiddlewareRecoversPanics(t *testing.T) {
	var buf bytes.Buffer
	m := NewMiddleware(newLogger(&buf), nil, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false}`))
	})
	h := m.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/applications/x/financial-information", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, `{"success":false}`, rr.Body.String())
	got := m.GetMetrics()
	assert.Equal(t, int64(1), got.Panics)
	assert.Equal(t, int64(1), got.TotalRequests)
	assert.Contains(t, buf.String(), "Panic while serving request")
}
