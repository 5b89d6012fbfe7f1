package database

import (
	"context"
	"time"
)

// DB defines the persistence operations of QuietDash.
type DB interface {
	// Users
	CreateUser(ctx context.Context, user *User) error
	GetUserByID(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetDisplaySettings(ctx context.Context, userID string) (*DisplaySettings, error)
	UpdateDisplaySettings(ctx context.Context, settings *DisplaySettings) error

	// API keys
	CreateAPIKey(ctx context.Context, key *APIKey) error
	GetAPIKey(ctx context.Context, userID, id string) (*APIKey, error)
	GetAPIKeyByProvider(ctx context.Context, userID string, provider Provider) (*APIKey, error)
	GetAPIKeys(ctx context.Context, userID string) ([]APIKey, error)
	UpdateAPIKey(ctx context.Context, key *APIKey) error
	DeleteAPIKey(ctx context.Context, userID, id string) error

	// Widget configs
	CreateWidgetConfig(ctx context.Context, widget *WidgetConfig) error
	GetWidgetConfig(ctx context.Context, userID, id string) (*WidgetConfig, error)
	GetWidgetConfigByType(ctx context.Context, userID string, widgetType WidgetType) (*WidgetConfig, error)
	GetWidgetConfigs(ctx context.Context, userID string) ([]WidgetConfig, error)
	UpdateWidgetConfig(ctx context.Context, widget *WidgetConfig) error
	DeleteWidgetConfig(ctx context.Context, userID, id string) error

	// Waitlist
	CreateWaitlistEntry(ctx context.Context, entry *WaitlistEntry) error
	GetWaitlistEntryByEmail(ctx context.Context, email string) (*WaitlistEntry, error)
	GetWaitlistEntryByToken(ctx context.Context, token string) (*WaitlistEntry, error)
	GetWaitlistEntryByReferralCode(ctx context.Context, code string) (*WaitlistEntry, error)
	MarkWaitlistEntryVerified(ctx context.Context, id, referralCode string, verifiedAt time.Time) (bool, error)
	IncrementReferralCount(ctx context.Context, referralCode string) error
	SetWaitlistEntrySynced(ctx context.Context, id string) error
	GetUnsyncedWaitlistEntries(ctx context.Context, limit int) ([]WaitlistEntry, error)
	GetWaitlistCounts(ctx context.Context, since time.Time) (*WaitlistCounts, error)
	GetWaitlistEntries(ctx context.Context, limit, offset int) ([]WaitlistEntry, error)

	Close() error
}
