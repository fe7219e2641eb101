package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func securedHeaders(t *testing.T) http.Header {
	t.Helper()
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	SecurityHeaders(handler).ServeHTTP(w, req)
	return w.Header()
}

func TestSecurityHeaders(t *testing.T) {
	headers := securedHeaders(t)

	expected := map[string]string{
		"X-Frame-Options":        "DENY",
		"X-Content-Type-Options": "nosniff",
		"X-XSS-Protection":       "1; mode=block",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
	}
	for header, want := range expected {
		if got := headers.Get(header); got != want {
			t.Errorf("Expected %s header to be '%s', got '%s'", header, want, got)
		}
	}

	if got := headers.Get("Permissions-Policy"); !strings.Contains(got, "camera=()") {
		t.Errorf("Expected Permissions-Policy to deny camera, got '%s'", got)
	}
}

func TestSecurityHeaders_EditorContentPolicy(t *testing.T) {
	csp := securedHeaders(t).Get("Content-Security-Policy")

	// The policy must admit what the editor actually needs: the CDN
	// bundle, blob workers for rendering, inline SVG pages, and the
	// document WebSocket
	for _, directive := range []string{
		"default-src 'self'",
		"script-src 'self' 'unsafe-inline' https://cdn.jsdelivr.net",
		"worker-src 'self' blob:",
		"img-src 'self' data: blob:",
		"connect-src 'self' ws: wss:",
	} {
		if !strings.Contains(csp, directive) {
			t.Errorf("Expected CSP to contain %q, got '%s'", directive, csp)
		}
	}
}

func TestSecurityHeadersFunc(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}

	secured := SecurityHeadersFunc(handler)

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	secured(w, req)

	if w.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("Expected X-Frame-Options to be set")
	}
}

func TestSecurityHeaders_PassesThrough(t *testing.T) {
	called := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.Write([]byte("Hello"))
	})

	secured := SecurityHeaders(handler)

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	secured.ServeHTTP(w, req)

	if !called {
		t.Error("Expected handler to be called")
	}

	if w.Body.String() != "Hello" {
		t.Errorf("Expected body 'Hello', got '%s'", w.Body.String())
	}
}
