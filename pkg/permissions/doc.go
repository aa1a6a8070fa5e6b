// Package permissions implements the canonical permission model shared by
// every shareable entity in mindgrove: the four-boolean flag set with
// detail/scope qualifiers, the coarse role vocabulary used by the sharing
// UI, merge rules for inherited contexts, and the persistent grant store.
//
// Every entity-mutating operation in the system gates on HasAccess; there
// is no other authorization checkpoint.
package permissions
