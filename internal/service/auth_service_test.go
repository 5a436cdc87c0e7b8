package service

import (
	"context"
	"testing"
	"time"

	"github.com/replika-labs/wms-01-sub000/internal/config"
	"github.com/replika-labs/wms-01-sub000/internal/dto"
	"github.com/replika-labs/wms-01-sub000/internal/model"
	"github.com/replika-labs/wms-01-sub000/internal/repository"
	"github.com/replika-labs/wms-01-sub000/internal/testutil"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthFixture(t *testing.T) AuthService {
	t.Helper()
	db := testutil.NewDB(t)
	cfg := &config.Config{JWTSecret: "test-secret", JWTExpirationHours: 1, JWTRefreshHours: 24}
	return NewAuthService(repository.NewUserRepository(db), cfg)
}

func claimsOf(t *testing.T, token string) jwt.MapClaims {
	t.Helper()
	parsed, err := jwt.Parse(token, func(*jwt.Token) (interface{}, error) { return []byte("test-secret"), nil })
	require.NoError(t, err)
	return parsed.Claims.(jwt.MapClaims)
}

func TestAuthService_LoginAndRefresh(t *testing.T) {
	svc := newAuthFixture(t)
	ctx := context.Background()

	created, err := svc.CreateUser(ctx, dto.CreateUserRequest{
		Name: "Ana Admin", Email: " Ana@Example.com ", Password: "s3cret-pass", Role: model.RoleAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", created.Email)

	_, err = svc.Login(ctx, dto.LoginRequest{Email: "ana@example.com", Password: "wrong-pass"})
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = svc.Login(ctx, dto.LoginRequest{Email: "nobody@example.com", Password: "s3cret-pass"})
	assert.ErrorIs(t, err, ErrUnauthorized)

	resp, err := svc.Login(ctx, dto.LoginRequest{Email: "ana@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.Equal(t, "bearer", resp.TokenType)
	assert.Equal(t, 3600, resp.ExpiresIn)
	assert.NotNil(t, resp.User.LastLoginAt)

	access := claimsOf(t, resp.AccessToken)
	assert.Equal(t, TokenAccess, access["typ"])
	assert.Equal(t, float64(created.ID), access["user_id"])
	assert.Equal(t, model.RoleAdmin, access["role"])

	_, err = svc.Refresh(ctx, resp.AccessToken)
	assert.ErrorIs(t, err, ErrUnauthorized, "access tokens cannot refresh")
	_, err = svc.Refresh(ctx, "not-a-token")
	assert.ErrorIs(t, err, ErrUnauthorized)

	refreshed, err := svc.Refresh(ctx, resp.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, created.ID, refreshed.User.ID)

	require.NoError(t, svc.DeactivateUser(ctx, created.ID))
	_, err = svc.Refresh(ctx, resp.RefreshToken)
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = svc.Login(ctx, dto.LoginRequest{Email: "ana@example.com", Password: "s3cret-pass"})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestAuthService_ExpiredRefreshIsRejected(t *testing.T) {
	svc := newAuthFixture(t)
	ctx := context.Background()
	u, err := svc.CreateUser(ctx, dto.CreateUserRequest{Name: "Sam", Email: "sam@example.com", Password: "password1", Role: model.RoleStaff})
	require.NoError(t, err)

	inner := svc.(*authService)
	inner.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	old, err := inner.issue(&model.User{ID: u.ID, Name: u.Name, Role: u.Role})
	require.NoError(t, err)
	inner.now = time.Now

	_, err = svc.Refresh(ctx, old.RefreshToken)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestAuthService_UserManagement(t *testing.T) {
	svc := newAuthFixture(t)
	ctx := context.Background()

	a, err := svc.CreateUser(ctx, dto.CreateUserRequest{Name: "First", Email: "first@example.com", Password: "password1", Role: model.RoleStaff})
	require.NoError(t, err)
	_, err = svc.CreateUser(ctx, dto.CreateUserRequest{Name: "Again", Email: "FIRST@example.com", Password: "password1", Role: model.RoleStaff})
	assert.ErrorIs(t, err, ErrConflict)
	b, err := svc.CreateUser(ctx, dto.CreateUserRequest{Name: "Second", Email: "second@example.com", Password: "password1", Role: model.RoleStaff})
	require.NoError(t, err)

	role := model.RoleManager
	updated, err := svc.UpdateUser(ctx, a.ID, dto.UpdateUserRequest{Role: &role})
	require.NoError(t, err)
	assert.Equal(t, model.RoleManager, updated.Role)

	taken := "second@example.com"
	_, err = svc.UpdateUser(ctx, a.ID, dto.UpdateUserRequest{Email: &taken})
	assert.ErrorIs(t, err, ErrConflict)
	_, err = svc.UpdateUser(ctx, 999, dto.UpdateUserRequest{Role: &role})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, svc.DeactivateUser(ctx, b.ID))
	active, err := svc.ListUsers(ctx, false)
	require.NoError(t, err)
	assert.Len(t, active, 1)
	all, err := svc.ListUsers(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, svc.ReactivateUser(ctx, b.ID))
	assert.ErrorIs(t, svc.DeactivateUser(ctx, 999), ErrNotFound)

	me, err := svc.Me(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, me.Active)
}
