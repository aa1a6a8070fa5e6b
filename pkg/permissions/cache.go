package permissions

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// CachedResolver wraps a Store with a Redis cache for hot permission
// checks. Mutations flow through it so the cache never serves a grant the
// store no longer holds.
type CachedResolver struct {
	store *Store
	redis *redis.Client
	ttl   time.Duration
}

// NewCachedResolver creates a Redis-backed cache over the grant store.
func NewCachedResolver(store *Store, client *redis.Client, ttl time.Duration) *CachedResolver {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedResolver{
		store: store,
		redis: client,
		ttl:   ttl,
	}
}

type cachedFlags struct {
	Flags Flags `json:"flags"`
	Found bool  `json:"found"`
}

func flagsCacheKey(entityType EntityType, entityID string, subjectType SubjectType, subjectID string) string {
	return fmt.Sprintf("perm:%s:%s:%s:%s", entityType, entityID, subjectType, subjectID)
}

// ResolveFlags returns the active flags for a subject, serving from cache
// when possible. Negative results are cached too: "no access" is the
// common case for widget canvases polling shared entities.
func (c *CachedResolver) ResolveFlags(ctx context.Context, entityType EntityType, entityID string, subjectType SubjectType, subjectID string) (Flags, bool, error) {
	key := flagsCacheKey(entityType, entityID, subjectType, subjectID)

	if cached, err := c.redis.Get(ctx, key).Result(); err == nil {
		var entry cachedFlags
		if err := json.Unmarshal([]byte(cached), &entry); err == nil {
			return entry.Flags, entry.Found, nil
		}
	}

	flags, found, err := c.store.ResolveFlags(ctx, entityType, entityID, subjectType, subjectID)
	if err != nil {
		return Flags{}, false, err
	}

	if payload, err := json.Marshal(cachedFlags{Flags: flags, Found: found}); err == nil {
		c.redis.Set(ctx, key, payload, c.ttl)
	}

	return flags, found, nil
}

// Upsert writes through to the store and invalidates the cached entry.
func (c *CachedResolver) Upsert(ctx context.Context, grant *Grant) error {
	if err := c.store.Upsert(ctx, grant); err != nil {
		return err
	}
	c.invalidate(ctx, grant.EntityType, grant.EntityID, grant.SubjectType, grant.SubjectID)
	return nil
}

// Revoke writes through to the store and invalidates the cached entry.
func (c *CachedResolver) Revoke(ctx context.Context, entityType EntityType, entityID string, subjectType SubjectType, subjectID string) error {
	if err := c.store.Revoke(ctx, entityType, entityID, subjectType, subjectID); err != nil {
		return err
	}
	c.invalidate(ctx, entityType, entityID, subjectType, subjectID)
	return nil
}

// Restore writes through to the store and invalidates the cached entry.
func (c *CachedResolver) Restore(ctx context.Context, entityType EntityType, entityID string, subjectType SubjectType, subjectID string) error {
	if err := c.store.Restore(ctx, entityType, entityID, subjectType, subjectID); err != nil {
		return err
	}
	c.invalidate(ctx, entityType, entityID, subjectType, subjectID)
	return nil
}

// Purge writes through to the store and invalidates the cached entry.
func (c *CachedResolver) Purge(ctx context.Context, entityType EntityType, entityID string, subjectType SubjectType, subjectID string) error {
	if err := c.store.Purge(ctx, entityType, entityID, subjectType, subjectID); err != nil {
		return err
	}
	c.invalidate(ctx, entityType, entityID, subjectType, subjectID)
	return nil
}

// Get reads through to the store. Single-grant reads are admin surface
// traffic, so they skip the cache and always see the current row.
func (c *CachedResolver) Get(ctx context.Context, entityType EntityType, entityID string, subjectType SubjectType, subjectID string) (*Grant, error) {
	return c.store.Get(ctx, entityType, entityID, subjectType, subjectID)
}

// ListActive reads through to the store.
func (c *CachedResolver) ListActive(ctx context.Context, entityType EntityType, entityID string) ([]Grant, error) {
	return c.store.ListActive(ctx, entityType, entityID)
}

// ListAll reads through to the store.
func (c *CachedResolver) ListAll(ctx context.Context, entityType EntityType, entityID string) ([]Grant, error) {
	return c.store.ListAll(ctx, entityType, entityID)
}

// PurgeRevokedBefore passes through to the store. Purged rows were already
// revoked, so any cached entries for them hold a negative result and can
// expire on their own.
func (c *CachedResolver) PurgeRevokedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return c.store.PurgeRevokedBefore(ctx, cutoff)
}

func (c *CachedResolver) invalidate(ctx context.Context, entityType EntityType, entityID string, subjectType SubjectType, subjectID string) {
	c.redis.Del(ctx, flagsCacheKey(entityType, entityID, subjectType, subjectID))
}
