package users

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/officehub/officehub/internal/policy"
	"github.com/officehub/officehub/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	List(ctx context.Context) ([]User, error)
	ListActive(ctx context.Context) ([]User, error)
	Get(ctx context.Context, id string) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	Create(ctx context.Context, u User) (User, error)
	Update(ctx context.Context, u User) (User, error)
	SetActive(ctx context.Context, id string, active bool) error
}

// Service handles user management logic. It also backs the authorization
// middleware's user directory.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// List returns all users.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// ListActive returns active users only.
func (s *Service) ListActive(ctx context.Context) ([]User, error) {
	return s.repo.ListActive(ctx)
}

// Get fetches one user.
func (s *Service) Get(ctx context.Context, id string) (User, error) {
	return s.repo.Get(ctx, id)
}

// Create registers a new user account.
func (s *Service) Create(ctx context.Context, form UserForm) (User, error) {
	email := strings.ToLower(strings.TrimSpace(form.Email))
	name := strings.TrimSpace(form.Name)
	if email == "" || name == "" {
		return User{}, errors.New("users: email and name required")
	}
	if form.Password == "" {
		return User{}, errors.New("users: password required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(form.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	id := strings.TrimSpace(form.ID)
	if id == "" {
		id = uuid.NewString()
	}
	return s.repo.Create(ctx, User{
		ID:           id,
		Email:        email,
		Name:         name,
		Role:         strings.TrimSpace(form.Role),
		DepartmentID: strings.TrimSpace(form.DepartmentID),
		IsActive:     true,
		PasswordHash: string(hash),
	})
}

// Update edits an existing account. An empty password keeps the old hash.
func (s *Service) Update(ctx context.Context, id string, form UserForm) (User, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return User{}, err
	}
	existing.Email = strings.ToLower(strings.TrimSpace(form.Email))
	existing.Name = strings.TrimSpace(form.Name)
	existing.Role = strings.TrimSpace(form.Role)
	existing.DepartmentID = strings.TrimSpace(form.DepartmentID)
	if form.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(form.Password), bcrypt.DefaultCost)
		if err != nil {
			return User{}, err
		}
		existing.PasswordHash = string(hash)
	}
	return s.repo.Update(ctx, existing)
}

// Deactivate disables login without deleting the account.
func (s *Service) Deactivate(ctx context.Context, id string) error {
	return s.repo.SetActive(ctx, id, false)
}

// Activate re-enables a deactivated account.
func (s *Service) Activate(ctx context.Context, id string) error {
	return s.repo.SetActive(ctx, id, true)
}

// FindUserRef implements policy.UserDirectory.
func (s *Service) FindUserRef(ctx context.Context, userID string) (policy.UserRef, bool, error) {
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return policy.UserRef{}, false, nil
		}
		return policy.UserRef{}, false, err
	}
	return policy.UserRef{ID: u.ID, Role: u.Role, DepartmentID: u.DepartmentID}, true, nil
}
