package middleware

import (
	"context"
	"net/http"

	"github.com/mindgrove-hq/mindgrove/pkg/httputil"
)

type contextKey string

const (
	subjectKey contextKey = "subject_id"
	adminKey   contextKey = "is_admin"
)

// Headers stamped by the authenticating gateway.
const (
	HeaderSubject = "X-Mindgrove-Subject"
	HeaderRole    = "X-Mindgrove-Role"
)

// Subject extracts the authenticated subject id from the gateway headers
// and stores it in the request context. Requests without a subject pass
// through unauthenticated; handlers that need one fail closed via
// SubjectID returning "".
func Subject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if subject := r.Header.Get(HeaderSubject); subject != "" {
			ctx = context.WithValue(ctx, subjectKey, subject)
		}
		if r.Header.Get(HeaderRole) == "admin" {
			ctx = context.WithValue(ctx, adminKey, true)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SubjectID returns the authenticated subject id, or "" when the request
// carried none.
func SubjectID(r *http.Request) string {
	if v, ok := r.Context().Value(subjectKey).(string); ok {
		return v
	}
	return ""
}

// IsAdmin reports whether the gateway marked the caller as a platform
// admin.
func IsAdmin(r *http.Request) bool {
	v, ok := r.Context().Value(adminKey).(bool)
	return ok && v
}

// RequireSubject rejects requests that carry no authenticated subject.
func RequireSubject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if SubjectID(r) == "" {
			httputil.WriteUnauthorized(w, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects requests from non-admin callers. Provider, model
// and route administration is platform-admin only.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if SubjectID(r) == "" {
			httputil.WriteUnauthorized(w, "authentication required")
			return
		}
		if !IsAdmin(r) {
			httputil.WriteForbidden(w, "platform admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
