package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/officehub/officehub/internal/shared"
)

// DanglingScanJob sweeps policy assignments for references to policies or
// departments that no longer exist. The resolver drops such rows silently at
// read time; this job surfaces them so operators can clean up.
type DanglingScanJob struct {
	Pool   *pgxpool.Pool
	Logger *slog.Logger
	Audit  *shared.AuditLogger
	clock  func() time.Time
}

// NewDanglingScanJob initialises the dangling scan handler.
func NewDanglingScanJob(pool *pgxpool.Pool, logger *slog.Logger, audit *shared.AuditLogger) *DanglingScanJob {
	return &DanglingScanJob{
		Pool:   pool,
		Logger: logger,
		Audit:  audit,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

type danglingAssignment struct {
	ID           string
	UserID       string
	PolicyID     string
	DepartmentID string
	Reason       string
}

// Handle executes the dangling reference scan.
func (j *DanglingScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Pool == nil {
		return errors.New("dangling scan: handler not configured")
	}
	var payload DanglingScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	start := j.now()
	logger := j.logger().With(slog.Bool("delete_orphans", payload.DeleteOrphans))
	logger.Info("starting dangling reference scan")

	orphans, err := j.scan(ctx)
	if err != nil {
		logger.Error("scan failed", slog.Any("error", err))
		return err
	}

	for _, o := range orphans {
		logger.Warn("dangling assignment detected",
			slog.String("assignment_id", o.ID),
			slog.String("user_id", o.UserID),
			slog.String("policy_id", o.PolicyID),
			slog.String("reason", o.Reason),
		)
		if j.Audit != nil {
			if err := j.Audit.Record(ctx, shared.AuditLog{
				Action:   "authz.dangling_detected",
				Entity:   "assignment",
				EntityID: o.ID,
				Meta: map[string]any{
					"user_id":       o.UserID,
					"policy_id":     o.PolicyID,
					"department_id": o.DepartmentID,
					"reason":        o.Reason,
				},
			}); err != nil {
				logger.Error("audit record failed", slog.Any("error", err))
			}
		}
	}

	removed := 0
	if payload.DeleteOrphans && len(orphans) > 0 {
		removed, err = j.remove(ctx, orphans)
		if err != nil {
			logger.Error("orphan removal failed", slog.Any("error", err))
			return err
		}
	}

	logger.Info("completed dangling reference scan",
		slog.Int("orphans", len(orphans)),
		slog.Int("removed", removed),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

func (j *DanglingScanJob) scan(ctx context.Context) ([]danglingAssignment, error) {
	rows, err := j.Pool.Query(ctx, `
		SELECT a.id, a.user_id, a.policy_id, COALESCE(a.department_id, ''),
			CASE
				WHEN p.id IS NULL THEN 'missing_policy'
				ELSE 'missing_department'
			END AS reason
		FROM user_policy_assignments a
		LEFT JOIN policies p ON p.id = a.policy_id
		LEFT JOIN departments d ON d.id = a.department_id
		WHERE p.id IS NULL
			OR (a.department_id IS NOT NULL AND a.department_id <> '' AND d.id IS NULL)
		ORDER BY a.assigned_at, a.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var orphans []danglingAssignment
	for rows.Next() {
		var o danglingAssignment
		if err := rows.Scan(&o.ID, &o.UserID, &o.PolicyID, &o.DepartmentID, &o.Reason); err != nil {
			return nil, err
		}
		orphans = append(orphans, o)
	}
	return orphans, rows.Err()
}

func (j *DanglingScanJob) remove(ctx context.Context, orphans []danglingAssignment) (int, error) {
	ids := make([]string, 0, len(orphans))
	for _, o := range orphans {
		ids = append(ids, o.ID)
	}
	tag, err := j.Pool.Exec(ctx, `DELETE FROM user_policy_assignments WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (j *DanglingScanJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

func (j *DanglingScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
