package database

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/quietdash/quietdash/internal/config"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := New(&config.DatabaseConfig{
		Driver: config.DatabaseDriverSQLite,
		Path:   filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func newTestUser(t *testing.T, c *Client, email string) *User {
	t.Helper()
	user := &User{
		Email:           email,
		Password:        "hash",
		DisplaySettings: DefaultDisplaySettings(),
		Dashboards:      []Dashboard{{Name: "Default Dashboard", IsActive: true}},
	}
	require.NoError(t, c.CreateUser(context.Background(), user))
	return user
}

func TestNew_NilConfig(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestNew_UnsupportedDriver(t *testing.T) {
	_, err := New(&config.DatabaseConfig{Driver: "mysql"})
	assert.Error(t, err)
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "data/q.db?_txlock=immediate&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", sqliteDSN("data/q.db"))
	assert.Contains(t, sqliteDSN("q.db?cache=shared"), "q.db?cache=shared&_txlock=immediate")
}

func TestCreateUser_CreatesDefaults(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	user := newTestUser(t, c, "user@example.com")
	assert.NotEmpty(t, user.ID)

	settings, err := c.GetDisplaySettings(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 300, settings.RefreshInterval)
	assert.Equal(t, 100, settings.Brightness)
	assert.Equal(t, OrientationLandscape, settings.Orientation)

	byEmail, err := c.GetUserByEmail(ctx, "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	err = c.CreateUser(ctx, &User{Email: "user@example.com", Password: "x"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestGetUser_NotFound(t *testing.T) {
	c := newTestClient(t)
	_, err := c.GetUserByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateDisplaySettings(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	user := newTestUser(t, c, "user@example.com")

	settings, err := c.GetDisplaySettings(ctx, user.ID)
	require.NoError(t, err)
	settings.Brightness = 40
	settings.Orientation = OrientationPortrait
	require.NoError(t, c.UpdateDisplaySettings(ctx, settings))

	got, err := c.GetDisplaySettings(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, got.Brightness)
	assert.Equal(t, OrientationPortrait, got.Orientation)
	assert.Equal(t, 300, got.RefreshInterval)
}

func TestAPIKeys(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	alice := newTestUser(t, c, "alice@example.com")
	bob := newTestUser(t, c, "bob@example.com")

	older := &APIKey{UserID: alice.ID, Provider: ProviderOpenWeatherMap, EncryptedKey: "aa", IV: "bb", AuthTag: "cc"}
	older.CreatedAt = time.Now().Add(-time.Hour)
	require.NoError(t, c.CreateAPIKey(ctx, older))
	newer := &APIKey{UserID: alice.ID, Provider: ProviderGoogleCalendar, EncryptedKey: "dd", IV: "ee", AuthTag: "ff"}
	require.NoError(t, c.CreateAPIKey(ctx, newer))

	t.Run("duplicate provider", func(t *testing.T) {
		err := c.CreateAPIKey(ctx, &APIKey{UserID: alice.ID, Provider: ProviderOpenWeatherMap, EncryptedKey: "1", IV: "2", AuthTag: "3"})
		assert.ErrorIs(t, err, ErrDuplicate)
	})

	t.Run("same provider other user", func(t *testing.T) {
		err := c.CreateAPIKey(ctx, &APIKey{UserID: bob.ID, Provider: ProviderOpenWeatherMap, EncryptedKey: "1", IV: "2", AuthTag: "3"})
		assert.NoError(t, err)
	})

	t.Run("list newest first", func(t *testing.T) {
		keys, err := c.GetAPIKeys(ctx, alice.ID)
		require.NoError(t, err)
		require.Len(t, keys, 2)
		assert.Equal(t, newer.ID, keys[0].ID)
		assert.Equal(t, older.ID, keys[1].ID)
	})

	t.Run("scoped to owner", func(t *testing.T) {
		_, err := c.GetAPIKey(ctx, bob.ID, older.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, c.DeleteAPIKey(ctx, bob.ID, older.ID), ErrNotFound)
	})

	t.Run("update", func(t *testing.T) {
		older.EncryptedKey = "99"
		require.NoError(t, c.UpdateAPIKey(ctx, older))
		got, err := c.GetAPIKeyByProvider(ctx, alice.ID, ProviderOpenWeatherMap)
		require.NoError(t, err)
		assert.Equal(t, "99", got.EncryptedKey)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, c.DeleteAPIKey(ctx, alice.ID, older.ID))
		assert.ErrorIs(t, c.DeleteAPIKey(ctx, alice.ID, older.ID), ErrNotFound)
	})
}

func TestWidgetConfigs(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	user := newTestUser(t, c, "user@example.com")

	first := &WidgetConfig{
		UserID:   user.ID,
		Type:     WidgetTypeWeather,
		Enabled:  true,
		Position: Position{X: 0, Y: 0, Width: 400, Height: 240},
		Settings: datatypes.JSON(`{"units":"metric"}`),
	}
	first.CreatedAt = time.Now().Add(-time.Hour)
	require.NoError(t, c.CreateWidgetConfig(ctx, first))
	second := &WidgetConfig{UserID: user.ID, Type: WidgetTypeNewsRSS, Enabled: true, Settings: datatypes.JSON(`{}`)}
	require.NoError(t, c.CreateWidgetConfig(ctx, second))

	err := c.CreateWidgetConfig(ctx, &WidgetConfig{UserID: user.ID, Type: WidgetTypeWeather, Settings: datatypes.JSON(`{}`)})
	assert.ErrorIs(t, err, ErrDuplicate)

	widgets, err := c.GetWidgetConfigs(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, widgets, 2)
	assert.Equal(t, first.ID, widgets[0].ID)
	assert.Equal(t, 400, widgets[0].Position.Width)

	first.Enabled = false
	first.Position.X = 10
	require.NoError(t, c.UpdateWidgetConfig(ctx, first))
	got, err := c.GetWidgetConfigByType(ctx, user.ID, WidgetTypeWeather)
	require.NoError(t, err)
	assert.False(t, got.Enabled)
	assert.Equal(t, 10, got.Position.X)
	assert.JSONEq(t, `{"units":"metric"}`, string(got.Settings))

	require.NoError(t, c.DeleteWidgetConfig(ctx, user.ID, second.ID))
	_, err = c.GetWidgetConfig(ctx, user.ID, second.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWaitlist(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	first := &WaitlistEntry{Email: "first@example.com", VerificationToken: "token-1"}
	require.NoError(t, c.CreateWaitlistEntry(ctx, first))
	assert.Equal(t, 1, first.QueuePosition)

	second := &WaitlistEntry{Email: "second@example.com", VerificationToken: "token-2", ReferredBy: lo.ToPtr("AAAAAAAA")}
	require.NoError(t, c.CreateWaitlistEntry(ctx, second))
	assert.Equal(t, 2, second.QueuePosition)

	err := c.CreateWaitlistEntry(ctx, &WaitlistEntry{Email: "first@example.com", VerificationToken: "token-3"})
	assert.ErrorIs(t, err, ErrDuplicate)

	byToken, err := c.GetWaitlistEntryByToken(ctx, "token-2")
	require.NoError(t, err)
	assert.Equal(t, second.ID, byToken.ID)

	now := time.Now()
	ok, err := c.MarkWaitlistEntryVerified(ctx, first.ID, "AAAAAAAA", now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.MarkWaitlistEntryVerified(ctx, first.ID, "BBBBBBBB", now)
	require.NoError(t, err)
	assert.False(t, ok, "second verification must not update")

	_, err = c.MarkWaitlistEntryVerified(ctx, second.ID, "AAAAAAAA", now)
	assert.ErrorIs(t, err, ErrDuplicate)

	require.NoError(t, c.IncrementReferralCount(ctx, "AAAAAAAA"))
	assert.ErrorIs(t, c.IncrementReferralCount(ctx, "ZZZZZZZZ"), ErrNotFound)

	referrer, err := c.GetWaitlistEntryByReferralCode(ctx, "AAAAAAAA")
	require.NoError(t, err)
	assert.Equal(t, first.ID, referrer.ID)
	assert.Equal(t, 1, referrer.ReferralCount)
	assert.True(t, referrer.IsVerified)

	unsynced, err := c.GetUnsyncedWaitlistEntries(ctx, 10)
	require.NoError(t, err)
	require.Len(t, unsynced, 1)
	require.NoError(t, c.SetWaitlistEntrySynced(ctx, first.ID))
	unsynced, err = c.GetUnsyncedWaitlistEntries(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, unsynced)

	counts, err := c.GetWaitlistCounts(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts.Total)
	assert.Equal(t, int64(1), counts.Verified)
	assert.Equal(t, int64(2), counts.Since)

	page, err := c.GetWaitlistEntries(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, second.ID, page[0].ID)
}

func TestCreateWaitlistEntry_ConcurrentPositions(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	const signups = 10
	var wg sync.WaitGroup
	errs := make([]error, signups)
	entries := make([]*WaitlistEntry, signups)
	for i := range signups {
		wg.Add(1)
		go func() {
			defer wg.Done()
			entries[i] = &WaitlistEntry{
				Email:             fmt.Sprintf("user%d@example.com", i),
				VerificationToken: fmt.Sprintf("token-%d", i),
			}
			errs[i] = c.CreateWaitlistEntry(ctx, entries[i])
		}()
	}
	wg.Wait()

	positions := make([]int, 0, signups)
	for i := range signups {
		require.NoError(t, errs[i])
		positions = append(positions, entries[i].QueuePosition)
	}
	slices.Sort(positions)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, positions)
}
