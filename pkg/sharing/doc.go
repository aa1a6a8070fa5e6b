// Package sharing exposes one generic sharing drawer over heterogeneous
// entity storage. Each shareable entity type implements Adapter, which
// translates between the canonical permission model and the entity's
// native fields. The drawer itself is adapter-agnostic: it only ever sees
// a title, a resolved grant list, and three async mutators.
package sharing
