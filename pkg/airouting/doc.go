// Package airouting decides which AI provider and model serves each
// product feature. Admins bind features to provider models through
// routes, optionally scoped to a surface or a specific master project;
// the resolver picks the most specific enabled route whose model still
// satisfies the feature's capability requirements.
package airouting
