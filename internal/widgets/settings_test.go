package widgets

import (
	"encoding/json"
	"testing"

	"github.com/quietdash/quietdash/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestParseSettings(t *testing.T) {
	tests := []struct {
		name       string
		widgetType database.WidgetType
		raw        string
		want       string
		wantField  string
	}{
		{name: "empty", widgetType: database.WidgetTypeWeather, raw: "", want: `{}`},
		{name: "null", widgetType: database.WidgetTypeCalendar, raw: "null", want: `{}`},
		{name: "weather", widgetType: database.WidgetTypeWeather, raw: `{"location":"Berlin","units":"metric"}`, want: `{"location":"Berlin","units":"metric"}`},
		{name: "weather bad units", widgetType: database.WidgetTypeWeather, raw: `{"units":"kelvin"}`, wantField: "settings.units"},
		{name: "calendar", widgetType: database.WidgetTypeCalendar, raw: `{"calendarId":"primary","maxEvents":5}`, want: `{"calendarId":"primary","maxEvents":5}`},
		{name: "calendar too many events", widgetType: database.WidgetTypeCalendar, raw: `{"maxEvents":21}`, wantField: "settings.maxEvents"},
		{name: "time date", widgetType: database.WidgetTypeTimeDate, raw: `{"timezone":"Europe/Zurich","use24Hour":true}`, want: `{"timezone":"Europe/Zurich","use24Hour":true}`},
		{name: "time date bad zone", widgetType: database.WidgetTypeTimeDate, raw: `{"timezone":"Mars/Olympus"}`, wantField: "settings.timezone"},
		{name: "news", widgetType: database.WidgetTypeNewsRSS, raw: `{"feedUrl":"https://example.com/rss","maxItems":10}`, want: `{"feedUrl":"https://example.com/rss","maxItems":10}`},
		{name: "news bad url", widgetType: database.WidgetTypeNewsRSS, raw: `{"feedUrl":"not a url"}`, wantField: "settings.feedUrl"},
		{name: "unknown field", widgetType: database.WidgetTypeWeather, raw: `{"colour":"red"}`, wantField: "settings"},
		{name: "wrong type", widgetType: database.WidgetTypeCalendar, raw: `{"maxEvents":"five"}`, wantField: "settings"},
		{name: "not an object", widgetType: database.WidgetTypeCalendar, raw: `[1,2]`, wantField: "settings"},
		{name: "unsupported type", widgetType: "stocks", raw: `{}`, wantField: "type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSettings(tt.widgetType, json.RawMessage(tt.raw))
			if tt.wantField != "" {
				var verr *ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Contains(t, verr.Fields, tt.wantField)
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestDecodeSettings(t *testing.T) {
	settings, err := DecodeSettings(&database.WidgetConfig{
		Type:     database.WidgetTypeTimeDate,
		Settings: datatypes.JSON(`{"timezone":"UTC","use24Hour":true}`),
	})
	require.NoError(t, err)

	td, ok := settings.(*TimeDateSettings)
	require.True(t, ok)
	assert.Equal(t, "UTC", td.Timezone)
	assert.True(t, td.Use24Hour)
	assert.False(t, td.ShowSeconds)
}
