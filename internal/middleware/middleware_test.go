package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"timetrack-gateway/internal/common/logging"
)

func TestRequestID_Generates(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := logging.RequestIDFromContext(r.Context())
		require.True(t, ok)
		assert.Equal(t, id, r.Header.Get(RequestIDHeader))
		seen = id
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	_, err := uuid.Parse(seen)
	assert.NoError(t, err)
	assert.Equal(t, seen, w.Header().Get(RequestIDHeader))
}

func TestRequestID_KeepsCallerID(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = logging.RequestIDFromContext(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(RequestIDHeader, "trace-abc-123")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	assert.Equal(t, "trace-abc-123", seen)
	assert.Equal(t, "trace-abc-123", w.Header().Get(RequestIDHeader))
}

func TestRequestID_ReplacesBadCallerID(t *testing.T) {
	for _, bad := range []string{strings.Repeat("x", 200), "has space", "tab\tinside"} {
		var seen string
		handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen, _ = logging.RequestIDFromContext(r.Context())
		}))

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set(RequestIDHeader, bad)
		handler.ServeHTTP(httptest.NewRecorder(), r)

		assert.NotEqual(t, bad, seen)
		_, err := uuid.Parse(seen)
		assert.NoError(t, err)
	}
}

func TestLoggingMiddleware_PassesThrough(t *testing.T) {
	logging.SetGlobalLogger(logging.NewNopLogger())
	t.Cleanup(func() { logging.SetGlobalLogger(logging.NewDefaultLogger()) })

	tests := []struct {
		name   string
		status int
		write  bool
	}{
		{"implicit ok", http.StatusOK, true},
		{"not found", http.StatusNotFound, false},
		{"bad gateway", http.StatusBadGateway, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.write {
					w.Write([]byte("body"))
					return
				}
				w.WriteHeader(tt.status)
			}))

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dashboard/?q=1", nil))
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestResponseWriter_CapturesFirstStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rec, statusCode: http.StatusOK}

	rw.WriteHeader(http.StatusTeapot)
	rw.WriteHeader(http.StatusInternalServerError)

	assert.Equal(t, http.StatusTeapot, rw.statusCode)
	assert.Same(t, rec, rw.Unwrap())
}

func TestResponseWriter_Flush(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rec, statusCode: http.StatusOK}

	require.NoError(t, http.NewResponseController(rw).Flush())
	assert.True(t, rec.Flushed)
}
