package policy

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// countingStore wraps a memoryStore to observe resolver fallthroughs.
type countingStore struct {
	*memoryStore
	assignmentCalls int
}

func (s *countingStore) ListAssignmentsForUser(ctx context.Context, userID string) ([]Assignment, error) {
	s.assignmentCalls++
	return s.memoryStore.ListAssignmentsForUser(ctx, userID)
}

func newCacheForTest(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewCache(client, time.Minute), mr
}

func TestCacheRoundTrip(t *testing.T) {
	cache, _ := newCacheForTest(t)
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, "u1", "phed")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, cache.Set(ctx, "u1", "phed", []string{PermReadProjects}))
	require.NoError(t, cache.Set(ctx, "u1", "", []string{PermReadReports}))

	perms, ok, err := cache.Get(ctx, "u1", "phed")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []string{PermReadProjects}, perms)

	// Global scope lives in its own hash field.
	perms, ok, err = cache.Get(ctx, "u1", "")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []string{PermReadReports}, perms)
}

func TestCacheInvalidateUser(t *testing.T) {
	cache, _ := newCacheForTest(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "u1", "phed", []string{PermReadProjects}))
	require.NoError(t, cache.Set(ctx, "u2", "phed", []string{PermReadProjects}))

	require.NoError(t, cache.InvalidateUser(ctx, "u1"))

	_, ok, err := cache.Get(ctx, "u1", "phed")
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = cache.Get(ctx, "u2", "phed")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCacheInvalidateAll(t *testing.T) {
	cache, _ := newCacheForTest(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "u1", "phed", []string{PermReadProjects}))
	require.NoError(t, cache.Set(ctx, "u2", "", []string{PermReadReports}))

	require.NoError(t, cache.InvalidateAll(ctx))

	for _, userID := range []string{"u1", "u2"} {
		_, ok, err := cache.Get(ctx, userID, "phed")
		require.NoError(t, err)
		require.False(t, ok, userID)
	}
}

func TestCacheEntriesExpire(t *testing.T) {
	cache, mr := newCacheForTest(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "u1", "phed", []string{PermReadProjects}))
	mr.FastForward(2 * time.Minute)

	_, ok, err := cache.Get(ctx, "u1", "phed")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCachedResolverServesFromCache(t *testing.T) {
	store := &countingStore{memoryStore: districtStore()}
	store.assign(Assignment{ID: "a1", UserID: "u1", PolicyID: "phed-staff-policy", DepartmentID: "phed"})
	cache, _ := newCacheForTest(t)
	resolver := NewCachedResolver(NewResolver(store, nil), cache, nil)
	ctx := context.Background()

	want := []string{PermReadPayments, PermReadProjects, PermReadReports, PermReadVendors}

	perms, err := resolver.PermissionsForUser(ctx, "u1", "phed")
	require.NoError(t, err)
	require.Equal(t, want, perms)
	require.Equal(t, 1, store.assignmentCalls)

	// Second read is a cache hit; the store is not consulted again.
	perms, err = resolver.PermissionsForUser(ctx, "u1", "phed")
	require.NoError(t, err)
	require.Equal(t, want, perms)
	require.Equal(t, 1, store.assignmentCalls)
}

func TestCachedResolverDegradesOnCacheFailure(t *testing.T) {
	store := &countingStore{memoryStore: districtStore()}
	store.assign(Assignment{ID: "a1", UserID: "u1", PolicyID: "phed-staff-policy", DepartmentID: "phed"})
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewCache(client, time.Minute)
	resolver := NewCachedResolver(NewResolver(store, nil), cache, nil)

	mr.Close()

	// Redis being down must not fail the query.
	perms, err := resolver.PermissionsForUser(context.Background(), "u1", "phed")
	require.NoError(t, err)
	require.Equal(t, []string{PermReadPayments, PermReadProjects, PermReadReports, PermReadVendors}, perms)
	require.Equal(t, 1, store.assignmentCalls)
}

func TestCachedResolverCheckPermission(t *testing.T) {
	store := &countingStore{memoryStore: districtStore()}
	store.assign(Assignment{ID: "a1", UserID: "u4", PolicyID: "hr-manager-policy"})
	cache, _ := newCacheForTest(t)
	resolver := NewCachedResolver(NewResolver(store, nil), cache, nil)
	ctx := context.Background()

	// Global policy grant reached through the two-pass check.
	granted, err := resolver.CheckPermission(ctx, UserRef{ID: "u4", DepartmentID: "finance"}, PermCreateUsers)
	require.NoError(t, err)
	require.True(t, granted)

	// Legacy fallback still applies through the cached path.
	granted, err = resolver.CheckPermission(ctx, UserRef{ID: "u9", Role: RoleViewer}, PermReadProjects)
	require.NoError(t, err)
	require.True(t, granted)
}

func TestCachedResolverStaleUntilInvalidated(t *testing.T) {
	store := &countingStore{memoryStore: districtStore()}
	store.assign(Assignment{ID: "a1", UserID: "u1", PolicyID: "phed-staff-policy", DepartmentID: "phed"})
	cache, _ := newCacheForTest(t)
	resolver := NewCachedResolver(NewResolver(store, nil), cache, nil)
	ctx := context.Background()

	_, err := resolver.PermissionsForUser(ctx, "u1", "phed")
	require.NoError(t, err)

	// Revoke directly in the store; the cached set answers until the user
	// is invalidated.
	store.assignments["u1"] = nil

	perms, err := resolver.PermissionsForUser(ctx, "u1", "phed")
	require.NoError(t, err)
	require.NotEmpty(t, perms)

	require.NoError(t, cache.InvalidateUser(ctx, "u1"))

	perms, err = resolver.PermissionsForUser(ctx, "u1", "phed")
	require.NoError(t, err)
	require.Empty(t, perms)
}
