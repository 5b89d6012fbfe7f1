package widgets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/quietdash/quietdash/internal/database"
	"gorm.io/datatypes"
)

const (
	CanvasWidth  = 800
	CanvasHeight = 480
)

// ErrNotFound is returned when the widget does not exist or belongs to another user.
var ErrNotFound = errors.New("Widget config not found") //nolint:staticcheck

// ExistsError is returned when the user already configured a widget of the type.
type ExistsError struct {
	Type database.WidgetType
}

func (e *ExistsError) Error() string {
	return fmt.Sprintf("Widget of type %s already exists", e.Type)
}

// CreateInput describes a new widget.
type CreateInput struct {
	Type     database.WidgetType
	Enabled  *bool
	Position database.Position
	Settings json.RawMessage
}

// UpdateInput holds the fields to change. Nil fields are left untouched.
type UpdateInput struct {
	Enabled  *bool
	Position *database.Position
	Settings json.RawMessage
}

// Service manages the widget configurations of users.
type Service struct {
	db database.DB
}

// New creates a widget service.
func New(db database.DB) *Service {
	return &Service{db: db}
}

// ValidatePosition checks that the rectangle lies within the canvas bounds.
func ValidatePosition(p database.Position) error {
	fields := map[string]string{}
	if p.X < 0 || p.X > CanvasWidth {
		fields["position.x"] = fmt.Sprintf("must be between 0 and %d", CanvasWidth)
	}
	if p.Y < 0 || p.Y > CanvasHeight {
		fields["position.y"] = fmt.Sprintf("must be between 0 and %d", CanvasHeight)
	}
	if p.Width < 1 || p.Width > CanvasWidth {
		fields["position.width"] = fmt.Sprintf("must be between 1 and %d", CanvasWidth)
	}
	if p.Height < 1 || p.Height > CanvasHeight {
		fields["position.height"] = fmt.Sprintf("must be between 1 and %d", CanvasHeight)
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// Create stores a widget. One widget per type and user.
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (*database.WidgetConfig, error) {
	if !slices.Contains(database.WidgetTypes, in.Type) {
		return nil, &ValidationError{Fields: map[string]string{"type": fmt.Sprintf("unsupported widget type %q", in.Type)}}
	}
	if err := ValidatePosition(in.Position); err != nil {
		return nil, err
	}
	settings, err := ParseSettings(in.Type, in.Settings)
	if err != nil {
		return nil, err
	}

	_, err = s.db.GetWidgetConfigByType(ctx, userID, in.Type)
	switch {
	case err == nil:
		return nil, &ExistsError{Type: in.Type}
	case !errors.Is(err, database.ErrNotFound):
		return nil, fmt.Errorf("failed to look up widget config: %w", err)
	}

	widget := &database.WidgetConfig{
		UserID:   userID,
		Type:     in.Type,
		Enabled:  in.Enabled == nil || *in.Enabled,
		Position: in.Position,
		Settings: datatypes.JSON(settings),
	}
	if err := s.db.CreateWidgetConfig(ctx, widget); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, &ExistsError{Type: in.Type}
		}
		return nil, fmt.Errorf("failed to create widget config: %w", err)
	}

	log.Info("Widget config created", "user_id", userID, "type", in.Type)
	return widget, nil
}

// List returns the widgets of a user, oldest first.
func (s *Service) List(ctx context.Context, userID string) ([]database.WidgetConfig, error) {
	widgets, err := s.db.GetWidgetConfigs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list widget configs: %w", err)
	}
	return widgets, nil
}

// Get returns a single widget of the user.
func (s *Service) Get(ctx context.Context, userID, id string) (*database.WidgetConfig, error) {
	widget, err := s.db.GetWidgetConfig(ctx, userID, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get widget config: %w", err)
	}
	return widget, nil
}

// GetByType returns the widget of the given type, or nil if the user has none.
func (s *Service) GetByType(ctx context.Context, userID string, t database.WidgetType) (*database.WidgetConfig, error) {
	widget, err := s.db.GetWidgetConfigByType(ctx, userID, t)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get widget config: %w", err)
	}
	return widget, nil
}

// Update applies the provided fields. Settings are validated against the stored type.
func (s *Service) Update(ctx context.Context, userID, id string, in UpdateInput) (*database.WidgetConfig, error) {
	widget, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if in.Enabled != nil {
		widget.Enabled = *in.Enabled
	}
	if in.Position != nil {
		if err := ValidatePosition(*in.Position); err != nil {
			return nil, err
		}
		widget.Position = *in.Position
	}
	if in.Settings != nil {
		settings, err := ParseSettings(widget.Type, in.Settings)
		if err != nil {
			return nil, err
		}
		widget.Settings = datatypes.JSON(settings)
	}

	if err := s.db.UpdateWidgetConfig(ctx, widget); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update widget config: %w", err)
	}

	log.Info("Widget config updated", "user_id", userID, "type", widget.Type)
	return widget, nil
}

// Delete removes a widget of the user.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if err := s.db.DeleteWidgetConfig(ctx, userID, id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete widget config: %w", err)
	}
	log.Info("Widget config deleted", "user_id", userID, "id", id)
	return nil
}
