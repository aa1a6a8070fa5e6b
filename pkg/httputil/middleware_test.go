package httputil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
	}))

	// A generated id reaches both the handler and the response.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if seen == "" {
		t.Error("Expected a generated request id in context")
	}
	if rec.Header().Get(HeaderRequestID) != seen {
		t.Errorf("Response header %q does not match context id %q", rec.Header().Get(HeaderRequestID), seen)
	}

	// An incoming id is preserved.
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(HeaderRequestID, "req-123")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if seen != "req-123" {
		t.Errorf("Expected incoming id to be preserved, got %q", seen)
	}
}

func TestRequestID_MissingReturnsEmpty(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	if got := RequestID(req.Context()); got != "" {
		t.Errorf("Expected empty id without middleware, got %q", got)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := RecoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500 after panic, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "boom") {
		t.Error("Panic detail must not leak to the client")
	}
}

func TestMaxBytesMiddleware(t *testing.T) {
	handler := MaxBytesMiddleware(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var buf [64]byte
		if _, err := r.Body.Read(buf[:]); err != nil {
			WriteBadRequest(w, "request body too large")
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("POST", "/", strings.NewReader(strings.Repeat("x", 64)))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for oversized body, got %d", rec.Code)
	}

	req = httptest.NewRequest("POST", "/", strings.NewReader("tiny"))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 for small body, got %d", rec.Code)
	}
}
