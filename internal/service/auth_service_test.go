package service

import (
	"context"
	"testing"

	"go-udhar-pos/internal/model"
	"go-udhar-pos/internal/repository"
	"go-udhar-pos/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func seedUser(t *testing.T, users repository.UserRepository, username, password, role string, active bool) *model.User {
	t.Helper()
	u := &model.User{Username: username, Name: "User " + username, Role: role, IsActive: active}
	require.NoError(t, u.SetPassword(password))
	require.NoError(t, users.Create(context.Background(), u))
	return u
}

func TestLoginAndIdentify(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	users := memory.New().Users()
	u := seedUser(t, users, "bilal", "secret1", model.RoleStaff, true)
	svc := NewAuthService(users, zap.NewNop())
	ctx := context.Background()

	resp, err := svc.Login(ctx, "bilal", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, u.ID, resp.User.ID)

	who, err := svc.Identify(ctx, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, model.Identity{ID: u.ID.String(), Name: "User bilal", Role: model.RoleStaff}, *who)

	_, err = svc.Identify(ctx, "not-a-token")
	assert.Error(t, err)
}

func TestLoginFailures(t *testing.T) {
	users := memory.New().Users()
	seedUser(t, users, "bilal", "secret1", model.RoleStaff, true)
	seedUser(t, users, "gone", "secret1", model.RoleStaff, false)
	svc := NewAuthService(users, zap.NewNop())

	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
	}{
		{"unknown user", "nobody", "secret1", ErrInvalidCredentials},
		{"wrong password", "bilal", "nope", ErrInvalidCredentials},
		{"inactive user", "gone", "secret1", ErrUserInactive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), tt.username, tt.password)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestIdentifyUsesStoredRole(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	users := memory.New().Users()
	u := seedUser(t, users, "bilal", "secret1", model.RoleStaff, true)
	svc := NewAuthService(users, zap.NewNop())

	resp, err := svc.Login(context.Background(), "bilal", "secret1")
	require.NoError(t, err)

	require.NoError(t, users.Delete(context.Background(), u.ID))
	_, err = svc.Identify(context.Background(), resp.Token)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestChangePassword(t *testing.T) {
	users := memory.New().Users()
	u := seedUser(t, users, "bilal", "secret1", model.RoleStaff, true)
	svc := NewAuthService(users, zap.NewNop())
	ctx := context.Background()

	assert.ErrorIs(t, svc.ChangePassword(ctx, u.ID, "wrong", "newsecret"), ErrWrongPassword)
	assert.ErrorIs(t, svc.ChangePassword(ctx, u.ID, "secret1", "abc"), ErrValidation)

	require.NoError(t, svc.ChangePassword(ctx, u.ID, "secret1", "newsecret"))
	_, err := svc.Login(ctx, "bilal", "newsecret")
	assert.NoError(t, err)
	_, err = svc.Login(ctx, "bilal", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
