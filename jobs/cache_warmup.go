package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

const warmupConcurrency = 4

// PermissionWarmer computes and caches permission sets. The cached resolver
// satisfies it.
type PermissionWarmer interface {
	PermissionsForUser(ctx context.Context, userID, departmentID string) ([]string, error)
	AccessibleDepartments(ctx context.Context, userID string) ([]string, error)
}

// CacheWarmupJob precomputes permission sets for active users so the first
// request after a cache flush does not pay the resolution cost.
type CacheWarmupJob struct {
	Pool   *pgxpool.Pool
	Warmer PermissionWarmer
	Logger *slog.Logger
}

// NewCacheWarmupJob initialises the cache warmup handler.
func NewCacheWarmupJob(pool *pgxpool.Pool, warmer PermissionWarmer, logger *slog.Logger) *CacheWarmupJob {
	return &CacheWarmupJob{Pool: pool, Warmer: warmer, Logger: logger}
}

// Handle executes the warmup.
func (j *CacheWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Warmer == nil {
		return errors.New("cache warmup: handler not configured")
	}
	var payload CacheWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	start := time.Now()
	userIDs := payload.UserIDs
	if len(userIDs) == 0 {
		var err error
		userIDs, err = j.activeUserIDs(ctx)
		if err != nil {
			j.logger().Error("listing active users failed", slog.Any("error", err))
			return err
		}
	}

	var warmed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(warmupConcurrency)
	for _, userID := range userIDs {
		g.Go(func() error {
			// Global view first, then each department the user reaches.
			if _, err := j.Warmer.PermissionsForUser(gctx, userID, ""); err != nil {
				j.logger().Warn("warmup failed", slog.String("user_id", userID), slog.Any("error", err))
				return nil
			}
			depts, err := j.Warmer.AccessibleDepartments(gctx, userID)
			if err != nil {
				j.logger().Warn("warmup failed", slog.String("user_id", userID), slog.Any("error", err))
				return nil
			}
			for _, dept := range depts {
				if _, err := j.Warmer.PermissionsForUser(gctx, userID, dept); err != nil {
					j.logger().Warn("warmup failed",
						slog.String("user_id", userID),
						slog.String("department_id", dept),
						slog.Any("error", err),
					)
				}
			}
			warmed.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	j.logger().Info("completed cache warmup",
		slog.Int("users", len(userIDs)),
		slog.Int64("warmed", warmed.Load()),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

func (j *CacheWarmupJob) activeUserIDs(ctx context.Context) ([]string, error) {
	rows, err := j.Pool.Query(ctx, `SELECT id FROM users WHERE is_active ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (j *CacheWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
