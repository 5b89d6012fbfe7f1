package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apiauth "github.com/quietdash/quietdash/internal/api/auth"
	"github.com/quietdash/quietdash/internal/api/models"
	"github.com/quietdash/quietdash/internal/widgets"
)

type WidgetHandler struct {
	widgets *widgets.Service
}

func NewWidgets(svc *widgets.Service) *WidgetHandler {
	return &WidgetHandler{widgets: svc}
}

func (h *WidgetHandler) Create(c *gin.Context) {
	var req models.CreateWidgetRequest
	if !bindJSON(c, &req) {
		return
	}
	user := apiauth.CurrentUser(c)

	widget, err := h.widgets.Create(c.Request.Context(), user.ID, widgets.CreateInput{
		Type:     req.Type,
		Enabled:  req.Enabled,
		Position: *req.Position,
		Settings: req.Settings,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.ToWidgetConfig(widget))
}

func (h *WidgetHandler) List(c *gin.Context) {
	user := apiauth.CurrentUser(c)

	list, err := h.widgets.List(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ToWidgetConfigs(list))
}

func (h *WidgetHandler) Get(c *gin.Context) {
	user := apiauth.CurrentUser(c)

	widget, err := h.widgets.Get(c.Request.Context(), user.ID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ToWidgetConfig(widget))
}

// Update applies the provided fields only.
func (h *WidgetHandler) Update(c *gin.Context) {
	var req models.UpdateWidgetRequest
	if !bindJSON(c, &req) {
		return
	}
	user := apiauth.CurrentUser(c)

	widget, err := h.widgets.Update(c.Request.Context(), user.ID, c.Param("id"), widgets.UpdateInput{
		Enabled:  req.Enabled,
		Position: req.Position,
		Settings: req.Settings,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ToWidgetConfig(widget))
}

func (h *WidgetHandler) Delete(c *gin.Context) {
	user := apiauth.CurrentUser(c)

	if err := h.widgets.Delete(c.Request.Context(), user.ID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
