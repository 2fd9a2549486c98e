package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	_ "github.com/officehub/officehub/testing"
)

type stubWarmer struct {
	mu     sync.Mutex
	depts  map[string][]string
	warmed []string
	err    error
}

func (s *stubWarmer) PermissionsForUser(ctx context.Context, userID, departmentID string) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warmed = append(s.warmed, userID+"/"+departmentID)
	return []string{"read:projects"}, nil
}

func (s *stubWarmer) AccessibleDepartments(ctx context.Context, userID string) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.depts[userID], nil
}

func warmupTask(t *testing.T, payload CacheWarmupPayload) *asynq.Task {
	t.Helper()
	task, err := NewCacheWarmupTask(payload)
	require.NoError(t, err)
	return task
}

func TestCacheWarmupWarmsEveryScope(t *testing.T) {
	warmer := &stubWarmer{depts: map[string][]string{
		"u1": {"phed"},
		"u2": {"finance", "it", "phed", "pwd"},
	}}
	job := NewCacheWarmupJob(nil, warmer, nil)

	err := job.Handle(context.Background(), warmupTask(t, CacheWarmupPayload{UserIDs: []string{"u1", "u2"}}))
	require.NoError(t, err)

	// One global entry per user plus one per accessible department.
	require.ElementsMatch(t, []string{
		"u1/", "u1/phed",
		"u2/", "u2/finance", "u2/it", "u2/phed", "u2/pwd",
	}, warmer.warmed)
}

func TestCacheWarmupToleratesResolverFailure(t *testing.T) {
	warmer := &stubWarmer{err: errors.New("store down")}
	job := NewCacheWarmupJob(nil, warmer, nil)

	// Per-user failures are logged, not fatal.
	err := job.Handle(context.Background(), warmupTask(t, CacheWarmupPayload{UserIDs: []string{"u1"}}))
	require.NoError(t, err)
}

func TestCacheWarmupRejectsMalformedPayload(t *testing.T) {
	warmer := &stubWarmer{}
	job := NewCacheWarmupJob(nil, warmer, nil)

	err := job.Handle(context.Background(), asynq.NewTask(TaskCacheWarmup, []byte("not json")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestDanglingScanPayloadRoundTrip(t *testing.T) {
	task, err := NewDanglingScanTask(DanglingScanPayload{DeleteOrphans: true})
	require.NoError(t, err)
	require.Equal(t, TaskDanglingScan, task.Type())

	var payload DanglingScanPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	require.True(t, payload.DeleteOrphans)
}
