package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskDanglingScan walks policy assignments looking for orphaned references.
	TaskDanglingScan = "authz:dangling_scan"
	// TaskCacheWarmup precomputes permission sets for active users.
	TaskCacheWarmup = "authz:cache_warmup"
)

// DanglingScanPayload configures a dangling reference scan run.
type DanglingScanPayload struct {
	// DeleteOrphans removes assignments whose policy no longer exists
	// instead of only reporting them.
	DeleteOrphans bool `json:"delete_orphans"`
}

// NewDanglingScanTask constructs an Asynq task.
func NewDanglingScanTask(payload DanglingScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDanglingScan, data), nil
}

// CacheWarmupPayload configures a permission cache warmup run.
type CacheWarmupPayload struct {
	// UserIDs limits the warmup to specific users. Empty means all active users.
	UserIDs []string `json:"user_ids,omitempty"`
}

// NewCacheWarmupTask constructs an Asynq task.
func NewCacheWarmupTask(payload CacheWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCacheWarmup, data), nil
}
