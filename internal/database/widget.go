package database

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// WidgetType identifies what a widget shows.
type WidgetType string

const (
	WidgetTypeWeather  WidgetType = "weather"
	WidgetTypeCalendar WidgetType = "calendar"
	WidgetTypeTimeDate WidgetType = "time_date"
	WidgetTypeNewsRSS  WidgetType = "news_rss"
)

// WidgetTypes lists every supported widget type.
var WidgetTypes = []WidgetType{WidgetTypeWeather, WidgetTypeCalendar, WidgetTypeTimeDate, WidgetTypeNewsRSS}

// Position is the rectangle a widget occupies on the 800x480 canvas.
type Position struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// WidgetConfig is the configuration of one widget of a user.
// A user has at most one widget per type.
type WidgetConfig struct {
	Model
	UserID   string         `gorm:"uniqueIndex:idx_widget_configs_user_type;not null;type:varchar(36)"`
	Type     WidgetType     `gorm:"uniqueIndex:idx_widget_configs_user_type;not null"`
	Enabled  bool           `gorm:"not null"`
	Position Position       `gorm:"embedded;embeddedPrefix:position_"`
	Settings datatypes.JSON `gorm:"not null"`
}

func (c *Client) CreateWidgetConfig(ctx context.Context, widget *WidgetConfig) error {
	if err := c.db.WithContext(ctx).Create(widget).Error; err != nil {
		err = translate(err)
		if !errors.Is(err, ErrDuplicate) {
			log.Error("failed to create widget config", "error", err)
		}
		return err
	}
	return nil
}

func (c *Client) GetWidgetConfig(ctx context.Context, userID, id string) (*WidgetConfig, error) {
	var widget WidgetConfig
	if err := c.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&widget).Error; err != nil {
		if err != gorm.ErrRecordNotFound {
			log.Error("failed to get widget config", "error", err)
		}
		return nil, err
	}
	return &widget, nil
}

func (c *Client) GetWidgetConfigByType(ctx context.Context, userID string, widgetType WidgetType) (*WidgetConfig, error) {
	var widget WidgetConfig
	if err := c.db.WithContext(ctx).Where("user_id = ? AND type = ?", userID, widgetType).First(&widget).Error; err != nil {
		if err != gorm.ErrRecordNotFound {
			log.Error("failed to get widget config by type", "error", err)
		}
		return nil, err
	}
	return &widget, nil
}

// GetWidgetConfigs returns all widgets of a user, oldest first.
func (c *Client) GetWidgetConfigs(ctx context.Context, userID string) ([]WidgetConfig, error) {
	var widgets []WidgetConfig
	if err := c.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at ASC").Find(&widgets).Error; err != nil {
		log.Error("failed to get widget configs", "error", err)
		return nil, err
	}
	return widgets, nil
}

func (c *Client) UpdateWidgetConfig(ctx context.Context, widget *WidgetConfig) error {
	result := c.db.WithContext(ctx).Model(widget).
		Where("user_id = ?", widget.UserID).
		Select("enabled", "position_x", "position_y", "position_width", "position_height", "settings", "updated_at").
		Updates(widget)
	if result.Error != nil {
		log.Error("failed to update widget config", "error", result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *Client) DeleteWidgetConfig(ctx context.Context, userID, id string) error {
	result := c.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&WidgetConfig{})
	if result.Error != nil {
		log.Error("failed to delete widget config", "error", result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
