// Package aiprovider holds the upstream model adapters. Each adapter
// speaks one vendor's wire protocol and maps the shared request shape
// onto it; the routing layer decides which adapter and model key a
// feature invocation uses.
package aiprovider
