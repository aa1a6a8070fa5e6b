package permissions

// RoleToFlags expands a role into its canonical flag template. Pure and
// total: an unknown role degrades to the viewer template rather than
// erroring. Detail defaults to detailed and scope to this_only unless
// overridden.
func RoleToFlags(role Role, overrides *FlagOverrides) Flags {
	flags := Flags{
		Detail: DetailDetailed,
		Scope:  ScopeThisOnly,
	}

	if overrides != nil {
		if overrides.Detail != nil {
			flags.Detail = *overrides.Detail
		}
		if overrides.Scope != nil {
			flags.Scope = *overrides.Scope
		}
	}

	switch role {
	case RoleOwner:
		flags.CanView = true
		flags.CanComment = true
		flags.CanEdit = true
		flags.CanManage = true
	case RoleEditor:
		flags.CanView = true
		flags.CanComment = true
		flags.CanEdit = true
	case RoleCommenter:
		flags.CanView = true
		flags.CanComment = true
	default:
		// viewer, and anything unrecognized
		flags.CanView = true
	}

	return flags
}

// FlagsToRoleApprox collapses a flag set to the most privileged role whose
// minimum requirement is met. Intentionally lossy: {edit:true,
// comment:false} still reads as editor. Callers must not round-trip
// arbitrary flags through a role and expect fidelity; only the canonical
// templates from RoleToFlags survive the trip.
func FlagsToRoleApprox(flags Flags) Role {
	switch {
	case flags.CanManage:
		return RoleOwner
	case flags.CanEdit:
		return RoleEditor
	case flags.CanComment:
		return RoleCommenter
	default:
		return RoleViewer
	}
}

// MergeFlags computes the effective flags for a child entity reached
// through a parent context. Capabilities only ever narrow: booleans AND,
// detail drops to overview if either side says overview, and scope drops
// to this_only if either side says this_only. The result is marked
// inherited and carries the parent's source context.
func MergeFlags(parent, child Flags, sourceContextID string) Flags {
	merged := Flags{
		CanView:    parent.CanView && child.CanView,
		CanComment: parent.CanComment && child.CanComment,
		CanEdit:    parent.CanEdit && child.CanEdit,
		CanManage:  parent.CanManage && child.CanManage,
		Detail:     DetailDetailed,
		Scope:      ScopeIncludeChildren,
	}

	if parent.Detail == DetailOverview || child.Detail == DetailOverview {
		merged.Detail = DetailOverview
	}
	if parent.Scope == ScopeThisOnly || child.Scope == ScopeThisOnly {
		merged.Scope = ScopeThisOnly
	}

	merged.IsInherited = true
	if sourceContextID != "" {
		merged.SourceContextID = &sourceContextID
	}

	return merged
}

// HasAccess is the uniform authorization gate. Every mutation path calls
// this before touching an entity.
func HasAccess(flags Flags, access Access) bool {
	switch access {
	case AccessView:
		return flags.CanView
	case AccessComment:
		return flags.CanComment
	case AccessEdit:
		return flags.CanEdit
	case AccessManage:
		return flags.CanManage
	default:
		return false
	}
}
