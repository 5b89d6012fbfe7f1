package display

import (
	"context"
	"testing"

	"github.com/quietdash/quietdash/internal/database"
	dbmock "github.com/quietdash/quietdash/internal/database/mock"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsService(t *testing.T) {
	db := dbmock.NewMockDB()
	ctx := context.Background()
	user := &database.User{Email: "user@example.com", DisplaySettings: database.DefaultDisplaySettings()}
	require.NoError(t, db.CreateUser(ctx, user))

	svc := NewSettingsService(db)

	settings, err := svc.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 300, settings.RefreshInterval)

	updated, err := svc.Update(ctx, user.ID, UpdateSettingsInput{
		Brightness:  lo.ToPtr(20),
		Orientation: lo.ToPtr(database.OrientationPortrait),
	})
	require.NoError(t, err)
	assert.Equal(t, 20, updated.Brightness)
	assert.Equal(t, 300, updated.RefreshInterval)
	assert.Equal(t, database.OrientationPortrait, updated.Orientation)

	_, err = svc.Get(ctx, "unknown")
	assert.ErrorIs(t, err, ErrSettingsNotFound)
	_, err = svc.Update(ctx, "unknown", UpdateSettingsInput{})
	assert.ErrorIs(t, err, ErrSettingsNotFound)
}
