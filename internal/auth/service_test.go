package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/quietdash/quietdash/internal/database"
	dbmock "github.com/quietdash/quietdash/internal/database/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestService() (*Service, *dbmock.MockDB) {
	db := dbmock.NewMockDB()
	return New(db, NewTokenManager("test-secret", time.Hour)), db
}

func TestRegister(t *testing.T) {
	svc, db := newTestService()
	ctx := context.Background()

	res, err := svc.Register(ctx, "User@Example.com", "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.Equal(t, "user@example.com", res.User.Email)
	assert.Empty(t, res.User.Password, "password hash must not leave the service")

	stored, err := db.GetUserByEmail(ctx, "user@example.com")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("password123")))
	cost, err := bcrypt.Cost([]byte(stored.Password))
	require.NoError(t, err)
	assert.Equal(t, 10, cost)

	settings, err := db.GetDisplaySettings(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, 300, settings.RefreshInterval)
	assert.Equal(t, database.OrientationLandscape, settings.Orientation)

	require.Len(t, stored.Dashboards, 1)
	assert.Equal(t, "Default Dashboard", stored.Dashboards[0].Name)
	assert.True(t, stored.Dashboards[0].IsActive)
}

func TestRegister_Duplicate(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "user@example.com", "password123")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "user@example.com", "password456")
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestRegister_RaceOnInsert(t *testing.T) {
	svc, db := newTestService()
	db.CreateUserError = database.ErrDuplicate

	_, err := svc.Register(context.Background(), "user@example.com", "password123")
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestLogin(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	registered, err := svc.Register(ctx, "user@example.com", "password123")
	require.NoError(t, err)

	res, err := svc.Login(ctx, "USER@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, res.User.ID)
	assert.NotEmpty(t, res.AccessToken)

	_, err = svc.Login(ctx, "user@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_StoreFailure(t *testing.T) {
	svc, db := newTestService()
	db.GetUserByEmailError = errors.New("connection refused")

	_, err := svc.Login(context.Background(), "user@example.com", "password123")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestValidateToken(t *testing.T) {
	svc, db := newTestService()
	ctx := context.Background()

	res, err := svc.Register(ctx, "user@example.com", "password123")
	require.NoError(t, err)

	user, err := svc.ValidateToken(ctx, res.AccessToken)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, res.User.ID, user.ID)
	assert.Empty(t, user.Password)

	user, err = svc.ValidateToken(ctx, "garbage")
	require.NoError(t, err)
	assert.Nil(t, user)

	orphan, err := svc.tokens.Generate("deleted-user", "gone@example.com")
	require.NoError(t, err)
	user, err = svc.ValidateToken(ctx, orphan)
	require.NoError(t, err)
	assert.Nil(t, user)

	db.Reset()
	user, err = svc.ValidateToken(ctx, res.AccessToken)
	require.NoError(t, err)
	assert.Nil(t, user)
}
