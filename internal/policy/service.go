package policy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/officehub/officehub/internal/shared"
)

// Validation errors returned by the mutation service.
var (
	ErrInvalidUserType     = errors.New("policy: unknown user type")
	ErrScopeMismatch       = errors.New("policy: department scope does not match user type")
	ErrMalformedPermission = errors.New("policy: permission id must look like action:resource")
	ErrMissingField        = errors.New("policy: required field missing")
)

// RepositoryPort defines the persistence surface the mutation service needs.
type RepositoryPort interface {
	Store
	GetPolicy(ctx context.Context, id string) (Policy, error)
	UpsertPolicy(ctx context.Context, p Policy) (Policy, error)
	DeletePolicy(ctx context.Context, id string) error
	ListAssignments(ctx context.Context) ([]Assignment, error)
	UpsertAssignment(ctx context.Context, a Assignment) (Assignment, error)
	DeleteAssignment(ctx context.Context, userID, policyID string) error
}

// Auditor records administrative actions.
type Auditor interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Invalidator drops cached permission sets after a mutation.
type Invalidator interface {
	InvalidateUser(ctx context.Context, userID string) error
	InvalidateAll(ctx context.Context) error
}

// Service owns policy and assignment mutations. Reads go through Resolver;
// UI-facing consumers never mutate through the resolver.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
	audit  Auditor
	cache  Invalidator
}

// NewService builds a Service instance. Audit and cache are optional.
func NewService(repo RepositoryPort, logger *slog.Logger, audit Auditor, cache Invalidator) *Service {
	return &Service{repo: repo, logger: logger, audit: audit, cache: cache}
}

// ListPolicies returns the policy catalog.
func (s *Service) ListPolicies(ctx context.Context) ([]Policy, error) {
	return s.repo.ListPolicies(ctx)
}

// GetPolicy fetches one policy.
func (s *Service) GetPolicy(ctx context.Context, id string) (Policy, error) {
	return s.repo.GetPolicy(ctx, id)
}

// UpsertPolicy validates and persists a policy. A department-scoped policy
// must carry a department-specific user type and vice versa.
func (s *Service) UpsertPolicy(ctx context.Context, actorID string, p Policy) (Policy, error) {
	p.ID = strings.TrimSpace(p.ID)
	p.Name = strings.TrimSpace(p.Name)
	if p.ID == "" {
		return Policy{}, fmt.Errorf("%w: id", ErrMissingField)
	}
	if p.Name == "" {
		return Policy{}, fmt.Errorf("%w: name", ErrMissingField)
	}
	if !p.UserType.Valid() {
		return Policy{}, fmt.Errorf("%w: %q", ErrInvalidUserType, p.UserType)
	}
	if p.UserType.DepartmentSpecific() != (p.DepartmentID != "") {
		return Policy{}, ErrScopeMismatch
	}
	for _, perm := range p.Permissions {
		if !WellFormedPermission(perm) {
			return Policy{}, fmt.Errorf("%w: %q", ErrMalformedPermission, perm)
		}
	}

	saved, err := s.repo.UpsertPolicy(ctx, p)
	if err != nil {
		return Policy{}, err
	}
	s.recordAudit(ctx, actorID, "policy.upsert", "policy", saved.ID, map[string]any{
		"department_id": saved.DepartmentID,
		"user_type":     string(saved.UserType),
		"permissions":   len(saved.Permissions),
	})
	s.invalidateAll(ctx)
	return saved, nil
}

// DeletePolicy removes a policy. Assignments referencing it are left behind
// on purpose; resolution treats them as dangling and the nightly scan
// surfaces them to operators.
func (s *Service) DeletePolicy(ctx context.Context, actorID, id string) error {
	if err := s.repo.DeletePolicy(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "policy.delete", "policy", id, nil)
	s.invalidateAll(ctx)
	return nil
}

// Assign grants a policy to a user. Re-assigning the same pair updates the
// existing record rather than duplicating it.
func (s *Service) Assign(ctx context.Context, actorID string, a Assignment) (Assignment, error) {
	a.UserID = strings.TrimSpace(a.UserID)
	a.PolicyID = strings.TrimSpace(a.PolicyID)
	if a.UserID == "" || a.PolicyID == "" {
		return Assignment{}, fmt.Errorf("%w: user id and policy id", ErrMissingField)
	}
	if _, err := s.repo.GetPolicy(ctx, a.PolicyID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Assignment{}, fmt.Errorf("policy: cannot assign unknown policy %q: %w", a.PolicyID, err)
		}
		return Assignment{}, err
	}
	a.AssignedBy = actorID

	saved, err := s.repo.UpsertAssignment(ctx, a)
	if err != nil {
		return Assignment{}, err
	}
	s.recordAudit(ctx, actorID, "assignment.upsert", "assignment", saved.ID, map[string]any{
		"user_id":       saved.UserID,
		"policy_id":     saved.PolicyID,
		"department_id": saved.DepartmentID,
	})
	s.invalidateUser(ctx, saved.UserID)
	return saved, nil
}

// Unassign revokes a policy from a user.
func (s *Service) Unassign(ctx context.Context, actorID, userID, policyID string) error {
	if err := s.repo.DeleteAssignment(ctx, userID, policyID); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "assignment.delete", "assignment", userID+"/"+policyID, nil)
	s.invalidateUser(ctx, userID)
	return nil
}

// ListAssignments returns every assignment.
func (s *Service) ListAssignments(ctx context.Context) ([]Assignment, error) {
	return s.repo.ListAssignments(ctx)
}

// AssignmentsForUser returns the user's assignments in assignment order.
func (s *Service) AssignmentsForUser(ctx context.Context, userID string) ([]Assignment, error) {
	return s.repo.ListAssignmentsForUser(ctx, userID)
}

func (s *Service) recordAudit(ctx context.Context, actorID, action, entity, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{ActorID: actorID, Action: action, Entity: entity, EntityID: entityID, Meta: meta}); err != nil && s.logger != nil {
		s.logger.Warn("audit record failed", slog.Any("error", err))
	}
}

func (s *Service) invalidateUser(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateUser(ctx, userID); err != nil && s.logger != nil {
		s.logger.Warn("permission cache invalidation failed", slog.String("user_id", userID), slog.Any("error", err))
	}
}

func (s *Service) invalidateAll(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateAll(ctx); err != nil && s.logger != nil {
		s.logger.Warn("permission cache flush failed", slog.Any("error", err))
	}
}
