package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/officehub/officehub/internal/shared"
	"github.com/officehub/officehub/internal/users"
)

type stubFinder struct {
	byEmail map[string]users.User
	err     error
}

func (f stubFinder) FindByEmail(ctx context.Context, email string) (users.User, error) {
	if f.err != nil {
		return users.User{}, f.err
	}
	u, ok := f.byEmail[email]
	if !ok {
		return users.User{}, shared.ErrNotFound
	}
	return u, nil
}

type stubSessions struct {
	created []string
	deleted []string
}

func (s *stubSessions) CreateSession(ctx context.Context, id, userID string, expiresAt time.Time, ip, ua string) error {
	s.created = append(s.created, id)
	return nil
}

func (s *stubSessions) DeleteSession(ctx context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}

func hash(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestAuthenticate(t *testing.T) {
	finder := stubFinder{byEmail: map[string]users.User{
		"staff@officehub.local": {
			ID:           "u1",
			Email:        "staff@officehub.local",
			Name:         "PHED Staffer",
			DepartmentID: "phed",
			IsActive:     true,
			PasswordHash: hash(t, "secret123"),
		},
	}}
	svc := NewService(finder, &stubSessions{})
	ctx := context.Background()

	u, err := svc.Authenticate(ctx, "staff@officehub.local", "secret123")
	require.NoError(t, err)
	require.Equal(t, "u1", u.ID)

	// Email is normalised before lookup.
	u, err = svc.Authenticate(ctx, "  STAFF@officehub.local ", "secret123")
	require.NoError(t, err)
	require.Equal(t, "u1", u.ID)
}

func TestAuthenticateFailuresAreUniform(t *testing.T) {
	finder := stubFinder{byEmail: map[string]users.User{
		"staff@officehub.local": {
			ID:           "u1",
			Email:        "staff@officehub.local",
			IsActive:     true,
			PasswordHash: hash(t, "secret123"),
		},
		"gone@officehub.local": {
			ID:           "u2",
			Email:        "gone@officehub.local",
			IsActive:     false,
			PasswordHash: hash(t, "secret123"),
		},
	}}
	svc := NewService(finder, &stubSessions{})
	ctx := context.Background()

	// Unknown account, wrong password, and deactivated account all yield
	// the same error.
	_, err := svc.Authenticate(ctx, "nobody@officehub.local", "secret123")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "staff@officehub.local", "wrong")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "gone@officehub.local", "secret123")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateStoreFailurePassesThrough(t *testing.T) {
	svc := NewService(stubFinder{err: errors.New("connection reset")}, &stubSessions{})

	_, err := svc.Authenticate(context.Background(), "staff@officehub.local", "secret123")
	require.Error(t, err)
	require.NotErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestSessionLifecycle(t *testing.T) {
	sessions := &stubSessions{}
	svc := NewService(stubFinder{}, sessions)
	ctx := context.Background()

	require.NoError(t, svc.RegisterSession(ctx, "sess-1", "u1", time.Now().Add(time.Hour), "127.0.0.1", "test-agent"))
	require.NoError(t, svc.RemoveSession(ctx, "sess-1"))
	require.Equal(t, []string{"sess-1"}, sessions.created)
	require.Equal(t, []string{"sess-1"}, sessions.deleted)
}
