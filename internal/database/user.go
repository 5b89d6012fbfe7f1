package database

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"
)

// Orientation of the e-ink panel.
type Orientation string

const (
	OrientationLandscape Orientation = "landscape"
	OrientationPortrait  Orientation = "portrait"
)

// User represents an account of the backoffice app.
// The password hash is never serialized.
type User struct {
	Model
	Email           string          `gorm:"uniqueIndex;not null" json:"email"`
	Password        string          `gorm:"not null" json:"-"`
	DisplaySettings DisplaySettings `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	Dashboards      []Dashboard     `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	APIKeys         []APIKey        `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	WidgetConfigs   []WidgetConfig  `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
}

// DisplaySettings holds the per user settings of the physical display.
type DisplaySettings struct {
	Model
	UserID          string      `gorm:"uniqueIndex;not null;type:varchar(36)" json:"userId"`
	RefreshInterval int         `gorm:"not null;default:300" json:"refreshInterval"` // seconds
	Brightness      int         `gorm:"not null;default:100" json:"brightness"`
	Orientation     Orientation `gorm:"not null;default:landscape" json:"orientation"`
}

// DefaultDisplaySettings returns the settings a new user starts with.
func DefaultDisplaySettings() DisplaySettings {
	return DisplaySettings{
		RefreshInterval: 300,
		Brightness:      100,
		Orientation:     OrientationLandscape,
	}
}

// Dashboard is a named layout of a user. One default dashboard is created on registration.
type Dashboard struct {
	Model
	UserID   string `gorm:"index;not null;type:varchar(36)" json:"userId"`
	Name     string `gorm:"not null" json:"name"`
	IsActive bool   `gorm:"default:false" json:"isActive"`
}

// CreateUser stores the user together with its nested display settings and dashboards.
func (c *Client) CreateUser(ctx context.Context, user *User) error {
	if err := c.db.WithContext(ctx).Create(user).Error; err != nil {
		err = translate(err)
		if !errors.Is(err, ErrDuplicate) {
			log.Error("failed to create user", "error", err)
		}
		return err
	}
	return nil
}

func (c *Client) GetUserByID(ctx context.Context, id string) (*User, error) {
	var user User
	if err := c.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if err != gorm.ErrRecordNotFound {
			log.Error("failed to get user by ID", "error", err)
		}
		return nil, err
	}
	return &user, nil
}

func (c *Client) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	if err := c.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if err != gorm.ErrRecordNotFound {
			log.Error("failed to get user by email", "error", err)
		}
		return nil, err
	}
	return &user, nil
}

func (c *Client) GetDisplaySettings(ctx context.Context, userID string) (*DisplaySettings, error) {
	var settings DisplaySettings
	if err := c.db.WithContext(ctx).Where("user_id = ?", userID).First(&settings).Error; err != nil {
		if err != gorm.ErrRecordNotFound {
			log.Error("failed to get display settings", "error", err)
		}
		return nil, err
	}
	return &settings, nil
}

func (c *Client) UpdateDisplaySettings(ctx context.Context, settings *DisplaySettings) error {
	result := c.db.WithContext(ctx).Model(settings).Select("refresh_interval", "brightness", "orientation", "updated_at").Updates(settings)
	if result.Error != nil {
		log.Error("failed to update display settings", "error", result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
