package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSubject(t *testing.T) {
	tests := []struct {
		name        string
		subject     string
		role        string
		wantSubject string
		wantAdmin   bool
	}{
		{"no headers", "", "", "", false},
		{"subject only", "user-1", "", "user-1", false},
		{"admin role", "admin-1", "admin", "admin-1", true},
		{"unknown role is not admin", "user-1", "superuser", "user-1", false},
		{"role without subject", "", "admin", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotSubject string
			var gotAdmin bool
			handler := Subject(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotSubject = SubjectID(r)
				gotAdmin = IsAdmin(r)
			}))

			req := httptest.NewRequest("GET", "/", nil)
			if tt.subject != "" {
				req.Header.Set(HeaderSubject, tt.subject)
			}
			if tt.role != "" {
				req.Header.Set(HeaderRole, tt.role)
			}
			handler.ServeHTTP(httptest.NewRecorder(), req)

			if gotSubject != tt.wantSubject {
				t.Errorf("SubjectID = %q, want %q", gotSubject, tt.wantSubject)
			}
			if gotAdmin != tt.wantAdmin {
				t.Errorf("IsAdmin = %v, want %v", gotAdmin, tt.wantAdmin)
			}
		})
	}
}

func TestRequireSubject(t *testing.T) {
	called := false
	handler := Subject(RequireSubject(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without subject, got %d", rec.Code)
	}
	if called {
		t.Error("Handler must not run without a subject")
	}

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(HeaderSubject, "user-1")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 with subject, got %d", rec.Code)
	}
	if !called {
		t.Error("Handler must run with a subject")
	}
}

func TestRequireAdmin(t *testing.T) {
	tests := []struct {
		name       string
		subject    string
		role       string
		wantStatus int
	}{
		{"no subject", "", "", http.StatusUnauthorized},
		{"subject without role", "user-1", "", http.StatusForbidden},
		{"admin", "admin-1", "admin", http.StatusOK},
		{"admin role without subject", "", "admin", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := Subject(RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})))

			req := httptest.NewRequest("GET", "/", nil)
			if tt.subject != "" {
				req.Header.Set(HeaderSubject, tt.subject)
			}
			if tt.role != "" {
				req.Header.Set(HeaderRole, tt.role)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("Expected %d, got %d", tt.wantStatus, rec.Code)
			}
		})
	}
}
