package widgets

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	_ "time/tzdata" // timezone validation must not depend on the host zoneinfo

	"github.com/go-playground/validator/v10"
	"github.com/quietdash/quietdash/internal/database"
)

// WeatherSettings configures the weather widget.
type WeatherSettings struct {
	Location string `json:"location,omitempty" validate:"omitempty,max=200"`
	Units    string `json:"units,omitempty" validate:"omitempty,oneof=metric imperial"`
}

// CalendarSettings configures the calendar widget.
type CalendarSettings struct {
	CalendarID string `json:"calendarId,omitempty" validate:"omitempty,max=200"`
	MaxEvents  int    `json:"maxEvents,omitempty" validate:"omitempty,min=1,max=20"`
}

// TimeDateSettings configures the clock widget.
type TimeDateSettings struct {
	Timezone    string `json:"timezone,omitempty" validate:"omitempty,timezone"`
	Use24Hour   bool   `json:"use24Hour,omitempty"`
	ShowSeconds bool   `json:"showSeconds,omitempty"`
}

// NewsRSSSettings configures the news widget.
type NewsRSSSettings struct {
	FeedURL  string `json:"feedUrl,omitempty" validate:"omitempty,url"`
	MaxItems int    `json:"maxItems,omitempty" validate:"omitempty,min=1,max=20"`
}

// ValidationError lists the invalid fields of a widget request.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, reason := range e.Fields {
		parts = append(parts, field+": "+reason)
	}
	return "invalid widget config: " + strings.Join(parts, ", ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func newSettings(t database.WidgetType) (any, error) {
	switch t {
	case database.WidgetTypeWeather:
		return &WeatherSettings{}, nil
	case database.WidgetTypeCalendar:
		return &CalendarSettings{}, nil
	case database.WidgetTypeTimeDate:
		return &TimeDateSettings{}, nil
	case database.WidgetTypeNewsRSS:
		return &NewsRSSSettings{}, nil
	default:
		return nil, &ValidationError{Fields: map[string]string{"type": fmt.Sprintf("unsupported widget type %q", t)}}
	}
}

// ParseSettings validates raw settings against the schema of the widget type
// and returns them normalized. Empty input yields an empty object.
func ParseSettings(t database.WidgetType, raw json.RawMessage) (json.RawMessage, error) {
	settings, err := newSettings(t)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.DisallowUnknownFields()
		if err := dec.Decode(settings); err != nil {
			return nil, &ValidationError{Fields: map[string]string{"settings": decodeReason(err)}}
		}
	}

	if err := validate.Struct(settings); err != nil {
		return nil, toValidationError(err, "settings.")
	}

	normalized, err := json.Marshal(settings)
	if err != nil {
		return nil, fmt.Errorf("failed to encode settings: %w", err)
	}
	return normalized, nil
}

// DecodeSettings returns the typed settings of a stored widget.
func DecodeSettings(w *database.WidgetConfig) (any, error) {
	settings, err := newSettings(w.Type)
	if err != nil {
		return nil, err
	}
	if len(w.Settings) > 0 {
		if err := json.Unmarshal(w.Settings, settings); err != nil {
			return nil, fmt.Errorf("failed to decode %s settings: %w", w.Type, err)
		}
	}
	return settings, nil
}

func decodeReason(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return fmt.Sprintf("%s must be of type %s", typeErr.Field, typeErr.Type)
	}
	// DisallowUnknownFields reports `json: unknown field "x"`
	return strings.TrimPrefix(err.Error(), "json: ")
}

func toValidationError(err error, prefix string) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[prefix+fe.Field()] = Reason(fe)
	}
	return &ValidationError{Fields: fields}
}

// Reason renders a validator failure as a short message.
func Reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "email":
		return "must be a valid email"
	case "url":
		return "must be a valid URL"
	case "timezone":
		return "must be a valid IANA timezone"
	default:
		return "failed on " + fe.Tag()
	}
}
