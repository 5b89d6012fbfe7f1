package display

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/quietdash/quietdash/internal/database"
)

// ErrSettingsNotFound is returned when the user has no display settings.
var ErrSettingsNotFound = errors.New("Display settings not found") //nolint:staticcheck

// UpdateSettingsInput holds the settings to change. Nil fields are left untouched.
// Bounds are enforced by the request binding.
type UpdateSettingsInput struct {
	RefreshInterval *int
	Brightness      *int
	Orientation     *database.Orientation
}

// SettingsService reads and updates the panel settings of a user.
type SettingsService struct {
	db database.DB
}

// NewSettingsService creates a SettingsService.
func NewSettingsService(db database.DB) *SettingsService {
	return &SettingsService{db: db}
}

func (s *SettingsService) Get(ctx context.Context, userID string) (*database.DisplaySettings, error) {
	settings, err := s.db.GetDisplaySettings(ctx, userID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrSettingsNotFound
		}
		return nil, fmt.Errorf("failed to get display settings: %w", err)
	}
	return settings, nil
}

func (s *SettingsService) Update(ctx context.Context, userID string, in UpdateSettingsInput) (*database.DisplaySettings, error) {
	settings, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.RefreshInterval != nil {
		settings.RefreshInterval = *in.RefreshInterval
	}
	if in.Brightness != nil {
		settings.Brightness = *in.Brightness
	}
	if in.Orientation != nil {
		settings.Orientation = *in.Orientation
	}

	if err := s.db.UpdateDisplaySettings(ctx, settings); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrSettingsNotFound
		}
		return nil, fmt.Errorf("failed to update display settings: %w", err)
	}

	log.Info("Display settings updated", "user_id", userID)
	return settings, nil
}
