package policy

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	cacheKeyPrefix = "authz:perms:"
	// cacheGlobalField is the hash field for the unscoped permission set.
	cacheGlobalField = "@global"
)

// Cache stores resolved permission sets in Redis, one hash per user keyed by
// department scope. Mutations invalidate per user; policy-level changes
// flush everything.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a permission cache.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Get returns the cached permission set, or ok=false on a miss.
func (c *Cache) Get(ctx context.Context, userID, departmentID string) ([]string, bool, error) {
	data, err := c.client.HGet(ctx, c.key(userID), c.field(departmentID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var perms []string
	if err := json.Unmarshal(data, &perms); err != nil {
		return nil, false, err
	}
	return perms, true, nil
}

// Set stores a permission set under the user's hash and refreshes the TTL.
func (c *Cache) Set(ctx context.Context, userID, departmentID string, perms []string) error {
	data, err := json.Marshal(perms)
	if err != nil {
		return err
	}
	key := c.key(userID)
	if err := c.client.HSet(ctx, key, c.field(departmentID), data).Err(); err != nil {
		return err
	}
	return c.client.Expire(ctx, key, c.ttl).Err()
}

// InvalidateUser drops every cached scope for one user.
func (c *Cache) InvalidateUser(ctx context.Context, userID string) error {
	return c.client.Del(ctx, c.key(userID)).Err()
}

// InvalidateAll drops every cached permission set.
func (c *Cache) InvalidateAll(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, cacheKeyPrefix+"*", 100).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func (c *Cache) key(userID string) string {
	return cacheKeyPrefix + userID
}

func (c *Cache) field(departmentID string) string {
	if departmentID == "" {
		return cacheGlobalField
	}
	return departmentID
}

// CachedResolver serves permission sets from the cache, falling back to the
// underlying resolver on a miss. Cache failures degrade to direct
// resolution; they never fail a permission check.
type CachedResolver struct {
	*Resolver
	cache  *Cache
	logger *slog.Logger
}

// NewCachedResolver wraps a resolver with the permission cache.
func NewCachedResolver(resolver *Resolver, cache *Cache, logger *slog.Logger) *CachedResolver {
	return &CachedResolver{Resolver: resolver, cache: cache, logger: logger}
}

// PermissionsForUser consults the cache first.
func (c *CachedResolver) PermissionsForUser(ctx context.Context, userID, departmentID string) ([]string, error) {
	if userID == "" {
		return nil, nil
	}
	if perms, ok, err := c.cache.Get(ctx, userID, departmentID); err == nil && ok {
		return perms, nil
	} else if err != nil && c.logger != nil {
		c.logger.Warn("permission cache read failed", slog.Any("error", err))
	}

	perms, err := c.Resolver.PermissionsForUser(ctx, userID, departmentID)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, userID, departmentID, perms); err != nil && c.logger != nil {
		c.logger.Warn("permission cache write failed", slog.Any("error", err))
	}
	return perms, nil
}

// HasPolicyPermission answers membership against the cached set.
func (c *CachedResolver) HasPolicyPermission(ctx context.Context, userID, permissionID, departmentID string) (bool, error) {
	perms, err := c.PermissionsForUser(ctx, userID, departmentID)
	if err != nil {
		return false, err
	}
	for _, perm := range perms {
		if perm == permissionID {
			return true, nil
		}
	}
	return false, nil
}

// CheckPermission mirrors Resolver.CheckPermission over the cached sets.
func (c *CachedResolver) CheckPermission(ctx context.Context, user UserRef, permissionID string) (bool, error) {
	if user.ID != "" {
		if user.DepartmentID != "" {
			ok, err := c.HasPolicyPermission(ctx, user.ID, permissionID, user.DepartmentID)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		ok, err := c.HasPolicyPermission(ctx, user.ID, permissionID, "")
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	if user.Role != "" {
		return LegacyRoleGrants(user.Role, permissionID), nil
	}
	return false, nil
}
