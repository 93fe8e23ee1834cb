package httputil

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecoveryMiddleware(t *testing.T) {
	t.Run("recovers from panic", func(t *testing.T) {
		handler := RecoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("something broke")
		}))

		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/test", nil)

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("passes through normal requests", func(t *testing.T) {
		handler := RecoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/test", nil)

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestCORSMiddleware(t *testing.T) {
	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("allowed origin gets CORS headers", func(t *testing.T) {
		handler := CORSMiddleware([]string{"https://coinrader.net"})(nextHandler)

		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("Origin", "https://coinrader.net")

		handler.ServeHTTP(w, req)

		assert.Equal(t, "https://coinrader.net", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "GET, POST, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
	})

	t.Run("disallowed origin gets no CORS headers", func(t *testing.T) {
		handler := CORSMiddleware([]string{"https://coinrader.net"})(nextHandler)

		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("Origin", "https://evil.example.com")

		handler.ServeHTTP(w, req)

		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("wildcard allows any origin", func(t *testing.T) {
		handler := CORSMiddleware([]string{"*"})(nextHandler)

		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("Origin", "https://anywhere.example.com")

		handler.ServeHTTP(w, req)

		assert.Equal(t, "https://anywhere.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight returns 200 without calling handler", func(t *testing.T) {
		called := false
		handler := CORSMiddleware([]string{"https://coinrader.net"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		}))

		w := httptest.NewRecorder()
		req := httptest.NewRequest("OPTIONS", "/test", nil)
		req.Header.Set("Origin", "https://coinrader.net")

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.False(t, called)
	})
}

func TestContentTypeMiddleware(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		contentType string
		expectCode  int
	}{
		{
			name:        "POST with application/json",
			method:      "POST",
			contentType: "application/json",
			expectCode:  http.StatusOK,
		},
		{
			name:        "POST with charset parameter",
			method:      "POST",
			contentType: "application/json; charset=utf-8",
			expectCode:  http.StatusOK,
		},
		{
			name:        "POST with sendBeacon text/plain",
			method:      "POST",
			contentType: "text/plain;charset=UTF-8",
			expectCode:  http.StatusOK,
		},
		{
			name:        "POST with unsupported type",
			method:      "POST",
			contentType: "text/html",
			expectCode:  http.StatusBadRequest,
		},
		{
			name:        "POST with malformed type",
			method:      "POST",
			contentType: "application/;;json",
			expectCode:  http.StatusBadRequest,
		},
		{
			name:       "POST without content type",
			method:     "POST",
			expectCode: http.StatusOK,
		},
		{
			name:        "GET bypasses content type check",
			method:      "GET",
			contentType: "text/html",
			expectCode:  http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := ContentTypeMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			w := httptest.NewRecorder()
			req := httptest.NewRequest(tt.method, "/test", nil)
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectCode, w.Code)
		})
	}
}

func TestMaxBytesMiddleware(t *testing.T) {
	t.Run("body under limit reads fully", func(t *testing.T) {
		handler := MaxBytesMiddleware(1024)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(r.Body)
			assert.NoError(t, err)
			assert.Equal(t, "small body", string(body))
			w.WriteHeader(http.StatusOK)
		}))

		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/test", bytes.NewBufferString("small body"))

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("body over limit errors on read", func(t *testing.T) {
		handler := MaxBytesMiddleware(16)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, err := io.ReadAll(r.Body)
			assert.Error(t, err)
			w.WriteHeader(http.StatusRequestEntityTooLarge)
		}))

		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/test", bytes.NewBufferString(strings.Repeat("x", 64)))

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})
}

func TestChain(t *testing.T) {
	var order []string

	mw := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	handler := Chain(mw("first"), mw("second"), mw("third"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/test", nil)

	handler.ServeHTTP(w, req)

	assert.Equal(t, []string{"first", "second", "third", "handler"}, order)
	assert.Equal(t, http.StatusOK, w.Code)
}
