// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Overview
//
// This package offers helper functions for JSON encoding/decoding, error responses,
// path parameter parsing, and the base middleware the API server mounts.
//
// # Response Helpers
//
// JSON responses:
//
//	httputil.WriteJSON(w, http.StatusOK, data)
//	httputil.WriteSuccess(w, resolved)
//	httputil.WriteCreated(w, provider)
//
// Error responses:
//
//	httputil.WriteError(w, http.StatusBadGateway, err)
//	httputil.WriteValidationError(w, "subject_id is required")
//	httputil.WriteUnauthorized(w, "authentication required")
//	httputil.WriteForbidden(w, "platform admin role required")
//	httputil.WriteDetailedError(w, http.StatusConflict, err, details)
//
// # Request Parsing
//
// JSON parsing:
//
//	var params RouteParams
//	if !httputil.ParseJSONOrError(w, r, &params) {
//		return // Error response already written
//	}
//
// Path parameters:
//
//	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
//
// String path and query parameters go straight through mux.Vars and
// r.URL.Query in the handlers.
//
// # Middleware
//
// RequestIDMiddleware, RecoveryMiddleware and MaxBytesMiddleware are
// mounted at the top of the API router; RequestID(ctx) recovers the id
// for log correlation.
//
// # Related Packages
//
//   - pkg/middleware: Subject extraction and admin gating
package httputil
