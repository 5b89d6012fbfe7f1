package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	apiauth "github.com/quietdash/quietdash/internal/api/auth"
	"github.com/quietdash/quietdash/internal/api/models"
	"github.com/quietdash/quietdash/internal/display"
)

const contentTypePNG = "image/png"

type DisplayHandler struct {
	renderer *display.Renderer
	settings *display.SettingsService
}

func NewDisplay(renderer *display.Renderer, settings *display.SettingsService) *DisplayHandler {
	return &DisplayHandler{renderer: renderer, settings: settings}
}

// Image serves the panel image. The device must always fetch a fresh copy.
func (h *DisplayHandler) Image(c *gin.Context) {
	h.serveImage(c, true)
}

// Preview serves the same image for browsers.
func (h *DisplayHandler) Preview(c *gin.Context) {
	h.serveImage(c, false)
}

func (h *DisplayHandler) serveImage(c *gin.Context, noCache bool) {
	user := apiauth.CurrentUser(c)

	data, err := h.renderer.Render(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	if noCache {
		c.Header("Cache-Control", "no-cache")
	}
	c.Header("Content-Length", strconv.Itoa(len(data)))
	c.Data(http.StatusOK, contentTypePNG, data)
}

func (h *DisplayHandler) GetSettings(c *gin.Context) {
	user := apiauth.CurrentUser(c)

	settings, err := h.settings.Get(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ToDisplaySettings(settings))
}

func (h *DisplayHandler) UpdateSettings(c *gin.Context) {
	var req models.UpdateDisplaySettingsRequest
	if !bindJSON(c, &req) {
		return
	}
	user := apiauth.CurrentUser(c)

	settings, err := h.settings.Update(c.Request.Context(), user.ID, display.UpdateSettingsInput{
		RefreshInterval: req.RefreshInterval,
		Brightness:      req.Brightness,
		Orientation:     req.Orientation,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ToDisplaySettings(settings))
}
