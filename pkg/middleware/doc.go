// Package middleware provides HTTP middleware for subject identity and
// admin gating. Authentication itself lives in the hosting platform; by
// the time a request reaches this service the gateway has verified the
// caller and stamped identity headers, so the middleware only extracts
// and propagates them.
package middleware
