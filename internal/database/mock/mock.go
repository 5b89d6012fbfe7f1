package mock

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/quietdash/quietdash/internal/database"
	"github.com/samber/lo"
)

var _ database.DB = (*MockDB)(nil)

// MockDB is a mock implementation of database.DB for testing.
type MockDB struct {
	mu sync.RWMutex

	users           map[string]*database.User
	displaySettings map[string]*database.DisplaySettings // keyed by user ID
	apiKeys         map[string]*database.APIKey
	widgets         map[string]*database.WidgetConfig
	waitlist        map[string]*database.WaitlistEntry

	// Error simulation
	CreateUserError                 error
	GetUserByEmailError             error
	CreateAPIKeyError               error
	CreateWidgetConfigError         error
	CreateWaitlistEntryError        error
	GetWaitlistEntryByEmailError    error
	GetWaitlistEntryByTokenError    error
	MarkWaitlistEntryVerifiedError  error
	IncrementReferralCountError     error
	SetWaitlistEntrySyncedError     error
	GetWaitlistCountsError          error
	GetUnsyncedWaitlistEntriesError error
}

// NewMockDB creates a new MockDB instance.
func NewMockDB() *MockDB {
	m := &MockDB{}
	m.Reset()
	return m
}

// Reset clears all data and errors from the mock database.
func (m *MockDB) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.users = make(map[string]*database.User)
	m.displaySettings = make(map[string]*database.DisplaySettings)
	m.apiKeys = make(map[string]*database.APIKey)
	m.widgets = make(map[string]*database.WidgetConfig)
	m.waitlist = make(map[string]*database.WaitlistEntry)

	m.CreateUserError = nil
	m.GetUserByEmailError = nil
	m.CreateAPIKeyError = nil
	m.CreateWidgetConfigError = nil
	m.CreateWaitlistEntryError = nil
	m.GetWaitlistEntryByEmailError = nil
	m.GetWaitlistEntryByTokenError = nil
	m.MarkWaitlistEntryVerifiedError = nil
	m.IncrementReferralCountError = nil
	m.SetWaitlistEntrySyncedError = nil
	m.GetWaitlistCountsError = nil
	m.GetUnsyncedWaitlistEntriesError = nil
}

func stamp(model *database.Model) {
	now := time.Now()
	if model.ID == "" {
		model.ID = uuid.NewString()
	}
	if model.CreatedAt.IsZero() {
		model.CreatedAt = now
	}
	model.UpdatedAt = now
}

// Users

func (m *MockDB) CreateUser(ctx context.Context, user *database.User) error {
	if m.CreateUserError != nil {
		return m.CreateUserError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == user.Email {
			return database.ErrDuplicate
		}
	}

	stamp(&user.Model)
	user.DisplaySettings.UserID = user.ID
	stamp(&user.DisplaySettings.Model)
	for i := range user.Dashboards {
		user.Dashboards[i].UserID = user.ID
		stamp(&user.Dashboards[i].Model)
	}

	stored := *user
	m.users[user.ID] = &stored
	settings := user.DisplaySettings
	m.displaySettings[user.ID] = &settings
	return nil
}

func (m *MockDB) GetUserByID(ctx context.Context, id string) (*database.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	u := *user
	return &u, nil
}

func (m *MockDB) GetUserByEmail(ctx context.Context, email string) (*database.User, error) {
	if m.GetUserByEmailError != nil {
		return nil, m.GetUserByEmailError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, user := range m.users {
		if user.Email == email {
			u := *user
			return &u, nil
		}
	}
	return nil, database.ErrNotFound
}

func (m *MockDB) GetDisplaySettings(ctx context.Context, userID string) (*database.DisplaySettings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	settings, ok := m.displaySettings[userID]
	if !ok {
		return nil, database.ErrNotFound
	}
	s := *settings
	return &s, nil
}

func (m *MockDB) UpdateDisplaySettings(ctx context.Context, settings *database.DisplaySettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.displaySettings[settings.UserID]
	if !ok || current.ID != settings.ID {
		return database.ErrNotFound
	}
	current.RefreshInterval = settings.RefreshInterval
	current.Brightness = settings.Brightness
	current.Orientation = settings.Orientation
	current.UpdatedAt = time.Now()
	return nil
}

// API keys

func (m *MockDB) CreateAPIKey(ctx context.Context, key *database.APIKey) error {
	if m.CreateAPIKeyError != nil {
		return m.CreateAPIKeyError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, k := range m.apiKeys {
		if k.UserID == key.UserID && k.Provider == key.Provider {
			return database.ErrDuplicate
		}
	}
	stamp(&key.Model)
	stored := *key
	m.apiKeys[key.ID] = &stored
	return nil
}

func (m *MockDB) GetAPIKey(ctx context.Context, userID, id string) (*database.APIKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	key, ok := m.apiKeys[id]
	if !ok || key.UserID != userID {
		return nil, database.ErrNotFound
	}
	k := *key
	return &k, nil
}

func (m *MockDB) GetAPIKeyByProvider(ctx context.Context, userID string, provider database.Provider) (*database.APIKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, key := range m.apiKeys {
		if key.UserID == userID && key.Provider == provider {
			k := *key
			return &k, nil
		}
	}
	return nil, database.ErrNotFound
}

func (m *MockDB) GetAPIKeys(ctx context.Context, userID string) ([]database.APIKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := lo.FilterMap(lo.Values(m.apiKeys), func(k *database.APIKey, _ int) (database.APIKey, bool) {
		return *k, k.UserID == userID
	})
	sort.SliceStable(keys, func(i, j int) bool { return keys[i].CreatedAt.After(keys[j].CreatedAt) })
	return keys, nil
}

func (m *MockDB) UpdateAPIKey(ctx context.Context, key *database.APIKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.apiKeys[key.ID]
	if !ok || current.UserID != key.UserID {
		return database.ErrNotFound
	}
	current.EncryptedKey = key.EncryptedKey
	current.IV = key.IV
	current.AuthTag = key.AuthTag
	current.UpdatedAt = time.Now()
	key.UpdatedAt = current.UpdatedAt
	return nil
}

func (m *MockDB) DeleteAPIKey(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key, ok := m.apiKeys[id]
	if !ok || key.UserID != userID {
		return database.ErrNotFound
	}
	delete(m.apiKeys, id)
	return nil
}

// Widget configs

func (m *MockDB) CreateWidgetConfig(ctx context.Context, widget *database.WidgetConfig) error {
	if m.CreateWidgetConfigError != nil {
		return m.CreateWidgetConfigError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, w := range m.widgets {
		if w.UserID == widget.UserID && w.Type == widget.Type {
			return database.ErrDuplicate
		}
	}
	stamp(&widget.Model)
	stored := *widget
	stored.Settings = slices.Clone(widget.Settings)
	m.widgets[widget.ID] = &stored
	return nil
}

func (m *MockDB) GetWidgetConfig(ctx context.Context, userID, id string) (*database.WidgetConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	widget, ok := m.widgets[id]
	if !ok || widget.UserID != userID {
		return nil, database.ErrNotFound
	}
	w := *widget
	return &w, nil
}

func (m *MockDB) GetWidgetConfigByType(ctx context.Context, userID string, widgetType database.WidgetType) (*database.WidgetConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, widget := range m.widgets {
		if widget.UserID == userID && widget.Type == widgetType {
			w := *widget
			return &w, nil
		}
	}
	return nil, database.ErrNotFound
}

func (m *MockDB) GetWidgetConfigs(ctx context.Context, userID string) ([]database.WidgetConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	widgets := lo.FilterMap(lo.Values(m.widgets), func(w *database.WidgetConfig, _ int) (database.WidgetConfig, bool) {
		return *w, w.UserID == userID
	})
	sort.SliceStable(widgets, func(i, j int) bool { return widgets[i].CreatedAt.Before(widgets[j].CreatedAt) })
	return widgets, nil
}

func (m *MockDB) UpdateWidgetConfig(ctx context.Context, widget *database.WidgetConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.widgets[widget.ID]
	if !ok || current.UserID != widget.UserID {
		return database.ErrNotFound
	}
	current.Enabled = widget.Enabled
	current.Position = widget.Position
	current.Settings = slices.Clone(widget.Settings)
	current.UpdatedAt = time.Now()
	widget.UpdatedAt = current.UpdatedAt
	return nil
}

func (m *MockDB) DeleteWidgetConfig(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	widget, ok := m.widgets[id]
	if !ok || widget.UserID != userID {
		return database.ErrNotFound
	}
	delete(m.widgets, id)
	return nil
}

// Waitlist

func (m *MockDB) CreateWaitlistEntry(ctx context.Context, entry *database.WaitlistEntry) error {
	if m.CreateWaitlistEntryError != nil {
		return m.CreateWaitlistEntryError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.waitlist {
		if e.Email == entry.Email || e.VerificationToken == entry.VerificationToken {
			return database.ErrDuplicate
		}
	}
	entry.QueuePosition = len(m.waitlist) + 1
	stamp(&entry.Model)
	stored := *entry
	m.waitlist[entry.ID] = &stored
	return nil
}

func (m *MockDB) GetWaitlistEntryByEmail(ctx context.Context, email string) (*database.WaitlistEntry, error) {
	if m.GetWaitlistEntryByEmailError != nil {
		return nil, m.GetWaitlistEntryByEmailError
	}
	return m.findWaitlistEntry(func(e *database.WaitlistEntry) bool { return e.Email == email })
}

func (m *MockDB) GetWaitlistEntryByToken(ctx context.Context, token string) (*database.WaitlistEntry, error) {
	if m.GetWaitlistEntryByTokenError != nil {
		return nil, m.GetWaitlistEntryByTokenError
	}
	return m.findWaitlistEntry(func(e *database.WaitlistEntry) bool { return e.VerificationToken == token })
}

func (m *MockDB) GetWaitlistEntryByReferralCode(ctx context.Context, code string) (*database.WaitlistEntry, error) {
	return m.findWaitlistEntry(func(e *database.WaitlistEntry) bool {
		return e.ReferralCode != nil && *e.ReferralCode == code
	})
}

func (m *MockDB) findWaitlistEntry(match func(*database.WaitlistEntry) bool) (*database.WaitlistEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, entry := range m.waitlist {
		if match(entry) {
			e := *entry
			return &e, nil
		}
	}
	return nil, database.ErrNotFound
}

func (m *MockDB) MarkWaitlistEntryVerified(ctx context.Context, id, referralCode string, verifiedAt time.Time) (bool, error) {
	if m.MarkWaitlistEntryVerifiedError != nil {
		return false, m.MarkWaitlistEntryVerifiedError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.waitlist[id]
	if !ok || entry.IsVerified {
		return false, nil
	}
	for _, e := range m.waitlist {
		if e.ReferralCode != nil && *e.ReferralCode == referralCode {
			return false, database.ErrDuplicate
		}
	}
	entry.IsVerified = true
	entry.VerifiedAt = lo.ToPtr(verifiedAt)
	entry.ReferralCode = lo.ToPtr(referralCode)
	return true, nil
}

func (m *MockDB) IncrementReferralCount(ctx context.Context, referralCode string) error {
	if m.IncrementReferralCountError != nil {
		return m.IncrementReferralCountError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, entry := range m.waitlist {
		if entry.ReferralCode != nil && *entry.ReferralCode == referralCode {
			entry.ReferralCount++
			return nil
		}
	}
	return database.ErrNotFound
}

func (m *MockDB) SetWaitlistEntrySynced(ctx context.Context, id string) error {
	if m.SetWaitlistEntrySyncedError != nil {
		return m.SetWaitlistEntrySyncedError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.waitlist[id]
	if !ok {
		return database.ErrNotFound
	}
	entry.SyncedToResend = true
	return nil
}

func (m *MockDB) GetUnsyncedWaitlistEntries(ctx context.Context, limit int) ([]database.WaitlistEntry, error) {
	if m.GetUnsyncedWaitlistEntriesError != nil {
		return nil, m.GetUnsyncedWaitlistEntriesError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := lo.FilterMap(lo.Values(m.waitlist), func(e *database.WaitlistEntry, _ int) (database.WaitlistEntry, bool) {
		return *e, e.IsVerified && !e.SyncedToResend
	})
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].QueuePosition < entries[j].QueuePosition })
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (m *MockDB) GetWaitlistCounts(ctx context.Context, since time.Time) (*database.WaitlistCounts, error) {
	if m.GetWaitlistCountsError != nil {
		return nil, m.GetWaitlistCountsError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var counts database.WaitlistCounts
	for _, entry := range m.waitlist {
		counts.Total++
		if entry.IsVerified {
			counts.Verified++
		}
		if !entry.CreatedAt.Before(since) {
			counts.Since++
		}
	}
	return &counts, nil
}

func (m *MockDB) GetWaitlistEntries(ctx context.Context, limit, offset int) ([]database.WaitlistEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := lo.Map(lo.Values(m.waitlist), func(e *database.WaitlistEntry, _ int) database.WaitlistEntry { return *e })
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].QueuePosition < entries[j].QueuePosition })
	entries = lo.Drop(entries, offset)
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (m *MockDB) Close() error {
	return nil
}

// AddWaitlistEntry stores an entry as is. Useful to seed verified entries.
func (m *MockDB) AddWaitlistEntry(entry database.WaitlistEntry) *database.WaitlistEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry.QueuePosition == 0 {
		entry.QueuePosition = len(m.waitlist) + 1
	}
	entry.Email = strings.ToLower(entry.Email)
	stamp(&entry.Model)
	m.waitlist[entry.ID] = &entry
	e := entry
	return &e
}

// WaitlistLen returns the number of stored waitlist entries.
func (m *MockDB) WaitlistLen() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.waitlist)
}
