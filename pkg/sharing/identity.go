package sharing

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mindgrove-hq/mindgrove/pkg/permissions"
)

// Display lookups live here rather than in a generic identity service on
// purpose: each adapter picks which tables it consults, and the canonical
// permission layer never learns about identity storage at all.

func lookupUserDisplay(ctx context.Context, db *sql.DB, subjectType permissions.SubjectType, subjectID string) (SubjectDisplay, error) {
	if subjectType != permissions.SubjectUser {
		return fallbackDisplay(subjectType, subjectID), nil
	}

	var d SubjectDisplay
	var email, avatar sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT display_name, email, avatar_url FROM users WHERE id = $1`, subjectID,
	).Scan(&d.Name, &email, &avatar)
	if err == sql.ErrNoRows {
		return fallbackDisplay(subjectType, subjectID), nil
	}
	if err != nil {
		return SubjectDisplay{}, fmt.Errorf("failed to resolve user display: %w", err)
	}
	d.Email = email.String
	d.AvatarURL = avatar.String
	return d, nil
}

func lookupContactDisplay(ctx context.Context, db *sql.DB, subjectID string) (SubjectDisplay, error) {
	var d SubjectDisplay
	var email sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT name, email FROM contacts WHERE id = $1`, subjectID,
	).Scan(&d.Name, &email)
	if err == sql.ErrNoRows {
		return fallbackDisplay(permissions.SubjectContact, subjectID), nil
	}
	if err != nil {
		return SubjectDisplay{}, fmt.Errorf("failed to resolve contact display: %w", err)
	}
	d.Email = email.String
	return d, nil
}

func fallbackDisplay(subjectType permissions.SubjectType, subjectID string) SubjectDisplay {
	return SubjectDisplay{Name: fmt.Sprintf("%s:%s", subjectType, subjectID)}
}

// resolveActiveFlags is the shared actor-flags lookup adapters use when
// deciding management rights for non-owners.
func resolveActiveFlags(ctx context.Context, grants permissions.GrantStore, entityType permissions.EntityType, entityID, actorID string) (permissions.Flags, bool, error) {
	grant, err := grants.Get(ctx, entityType, entityID, permissions.SubjectUser, actorID)
	if err != nil {
		return permissions.Flags{}, false, err
	}
	if grant == nil || grant.Revoked() {
		return permissions.Flags{}, false, nil
	}
	return grant.Flags, true, nil
}
