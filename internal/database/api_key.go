package database

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"
)

// Provider is the external data source an API key authenticates against.
type Provider string

const (
	ProviderOpenWeatherMap Provider = "openweathermap"
	ProviderGoogleCalendar Provider = "google_calendar"
)

// Providers lists every supported provider.
var Providers = []Provider{ProviderOpenWeatherMap, ProviderGoogleCalendar}

// APIKey is a third party API key of a user, stored AES-GCM encrypted.
// A user has at most one key per provider.
type APIKey struct {
	Model
	UserID       string   `gorm:"uniqueIndex:idx_api_keys_user_provider;not null;type:varchar(36)"`
	Provider     Provider `gorm:"uniqueIndex:idx_api_keys_user_provider;not null"`
	EncryptedKey string   `gorm:"not null"`
	IV           string   `gorm:"column:iv;not null"`
	AuthTag      string   `gorm:"not null"`
}

func (c *Client) CreateAPIKey(ctx context.Context, key *APIKey) error {
	if err := c.db.WithContext(ctx).Create(key).Error; err != nil {
		err = translate(err)
		if !errors.Is(err, ErrDuplicate) {
			log.Error("failed to create API key", "error", err)
		}
		return err
	}
	return nil
}

func (c *Client) GetAPIKey(ctx context.Context, userID, id string) (*APIKey, error) {
	var key APIKey
	if err := c.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&key).Error; err != nil {
		if err != gorm.ErrRecordNotFound {
			log.Error("failed to get API key", "error", err)
		}
		return nil, err
	}
	return &key, nil
}

func (c *Client) GetAPIKeyByProvider(ctx context.Context, userID string, provider Provider) (*APIKey, error) {
	var key APIKey
	if err := c.db.WithContext(ctx).Where("user_id = ? AND provider = ?", userID, provider).First(&key).Error; err != nil {
		if err != gorm.ErrRecordNotFound {
			log.Error("failed to get API key by provider", "error", err)
		}
		return nil, err
	}
	return &key, nil
}

// GetAPIKeys returns all keys of a user, newest first.
func (c *Client) GetAPIKeys(ctx context.Context, userID string) ([]APIKey, error) {
	var keys []APIKey
	if err := c.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&keys).Error; err != nil {
		log.Error("failed to get API keys", "error", err)
		return nil, err
	}
	return keys, nil
}

// UpdateAPIKey replaces the encrypted material of an existing key.
func (c *Client) UpdateAPIKey(ctx context.Context, key *APIKey) error {
	result := c.db.WithContext(ctx).Model(key).
		Where("user_id = ?", key.UserID).
		Select("encrypted_key", "iv", "auth_tag", "updated_at").
		Updates(key)
	if result.Error != nil {
		log.Error("failed to update API key", "error", result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *Client) DeleteAPIKey(ctx context.Context, userID, id string) error {
	result := c.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&APIKey{})
	if result.Error != nil {
		log.Error("failed to delete API key", "error", result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
