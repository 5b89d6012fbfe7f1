package display

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"
	"github.com/eko/gocache/lib/v4/store"
	"github.com/quietdash/quietdash/internal/cache"
	"github.com/quietdash/quietdash/internal/database"
	"github.com/quietdash/quietdash/internal/metrics"
	"github.com/quietdash/quietdash/internal/widgets"
)

const (
	Width  = 800
	Height = 480

	imageTTL = 2 * time.Minute
)

// WidgetSource looks up the widget of a type for a user. A nil widget means none is configured.
type WidgetSource interface {
	GetByType(ctx context.Context, userID string, t database.WidgetType) (*database.WidgetConfig, error)
}

// Renderer produces the PNG shown on the e-ink panel.
type Renderer struct {
	title    string
	location *time.Location
	widgets  WidgetSource
	cache    *cache.DisplayCache
	now      func() time.Time
}

// NewRenderer creates a renderer. widgetSource and imageCache may be nil.
func NewRenderer(title string, location *time.Location, widgetSource WidgetSource, imageCache *cache.DisplayCache) *Renderer {
	if location == nil {
		location = time.Local
	}
	return &Renderer{
		title:    title,
		location: location,
		widgets:  widgetSource,
		cache:    imageCache,
		now:      time.Now,
	}
}

// clock is the dynamic content of the image.
type clock struct {
	Time string
	Date string
}

func (r *Renderer) clock(ctx context.Context, userID string) clock {
	loc := r.location
	layout := "03:04 PM"

	if r.widgets != nil {
		w, err := r.widgets.GetByType(ctx, userID, database.WidgetTypeTimeDate)
		if err != nil {
			log.Warn("Failed to load clock settings, using defaults", "user_id", userID, "error", err)
		}
		if w != nil {
			if s, err := widgets.DecodeSettings(w); err == nil {
				td := s.(*widgets.TimeDateSettings)
				if td.Timezone != "" {
					if tz, err := time.LoadLocation(td.Timezone); err == nil {
						loc = tz
					}
				}
				switch {
				case td.Use24Hour && td.ShowSeconds:
					layout = "15:04:05"
				case td.Use24Hour:
					layout = "15:04"
				case td.ShowSeconds:
					layout = "03:04:05 PM"
				}
			}
		}
	}

	now := r.now().In(loc)
	return clock{
		Time: now.Format(layout),
		Date: now.Format("Monday, January 2"),
	}
}

// Render returns the display image of the user as PNG.
// Images are cached per user for as long as the clock text does not change.
func (r *Renderer) Render(ctx context.Context, userID string) ([]byte, error) {
	c := r.clock(ctx, userID)
	key := userID + "|" + c.Date + "|" + c.Time

	if r.cache != nil {
		if data, err := r.cache.Images.Get(ctx, key); err == nil {
			metrics.RecordDisplayRender(true)
			return data, nil
		}
	}

	data, err := r.render(c)
	if err != nil {
		return nil, err
	}
	metrics.RecordDisplayRender(false)

	if r.cache != nil {
		if err := r.cache.Images.Set(ctx, key, data, store.WithExpiration(imageTTL)); err != nil {
			log.Warn("Failed to cache display image", "user_id", userID, "error", err)
		}
	}
	return data, nil
}

type box struct {
	x, y, w, h int
	title      string
	lines      []line
}

type line struct {
	text  string
	x, y  int
	size  float64
	bold  bool
	align align
}

func (r *Renderer) layout(c clock) []box {
	const startY = 90
	return []box{
		{
			x: 20, y: startY, w: 360, h: 150, title: "Time & Date",
			lines: []line{
				{text: c.Time, x: 200, y: startY + 60, size: 48, bold: true, align: alignCenter},
				{text: c.Date, x: 200, y: startY + 110, size: 24, align: alignCenter},
			},
		},
		{
			x: 400, y: startY, w: 380, h: 150, title: "Weather",
			lines: []line{
				{text: "Configure your API key", x: 420, y: startY + 70, size: 24},
				{text: "to see weather data", x: 420, y: startY + 100, size: 24},
			},
		},
		{
			x: 20, y: startY + 170, w: 360, h: 200, title: "Calendar",
			lines: []line{
				{text: "Configure your Google", x: 40, y: startY + 220, size: 20},
				{text: "Calendar API to see events", x: 40, y: startY + 250, size: 20},
			},
		},
		{
			x: 400, y: startY + 170, w: 380, h: 200, title: "News",
			lines: []line{
				{text: "Configure RSS feed", x: 420, y: startY + 220, size: 20},
				{text: "to see latest news", x: 420, y: startY + 250, size: 20},
			},
		},
	}
}

func (r *Renderer) render(c clock) ([]byte, error) {
	cv := newCanvas(imaging.New(Width, Height, white))
	defer cv.close()

	// frame and header
	cv.strokeRect(10, 10, Width-20, Height-20, 2, black)
	cv.fillRect(10, 10, Width-20, 60, black)
	if err := cv.fillText(r.title, Width/2, 40, 32, true, alignCenter, white); err != nil {
		return nil, fmt.Errorf("failed to draw header: %w", err)
	}

	for _, b := range r.layout(c) {
		cv.strokeRect(b.x, b.y, b.w, b.h, 1, black)
		cv.fillRect(b.x, b.y, b.w, 30, grey)
		errs := []error{cv.fillText(b.title, b.x+10, b.y+15, 18, true, alignLeft, black)}
		for _, l := range b.lines {
			errs = append(errs, cv.fillText(l.text, l.x, l.y, l.size, l.bold, l.align, black))
		}
		if err := errors.Join(errs...); err != nil {
			return nil, fmt.Errorf("failed to draw %s box: %w", b.title, err)
		}
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, imaging.Grayscale(cv.img), imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode display image: %w", err)
	}
	return buf.Bytes(), nil
}
