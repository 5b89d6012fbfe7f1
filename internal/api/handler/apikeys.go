package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apiauth "github.com/quietdash/quietdash/internal/api/auth"
	"github.com/quietdash/quietdash/internal/api/models"
	"github.com/quietdash/quietdash/internal/apikeys"
)

type APIKeyHandler struct {
	keys *apikeys.Service
}

func NewAPIKeys(svc *apikeys.Service) *APIKeyHandler {
	return &APIKeyHandler{keys: svc}
}

func (h *APIKeyHandler) Create(c *gin.Context) {
	var req models.CreateAPIKeyRequest
	if !bindJSON(c, &req) {
		return
	}
	user := apiauth.CurrentUser(c)

	key, err := h.keys.Create(c.Request.Context(), user.ID, req.Provider, req.APIKey)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.ToAPIKey(key))
}

func (h *APIKeyHandler) List(c *gin.Context) {
	user := apiauth.CurrentUser(c)

	keys, err := h.keys.List(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ToAPIKeys(keys))
}

func (h *APIKeyHandler) Get(c *gin.Context) {
	user := apiauth.CurrentUser(c)

	key, err := h.keys.Get(c.Request.Context(), user.ID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ToAPIKey(key))
}

// Update replaces the stored secret.
func (h *APIKeyHandler) Update(c *gin.Context) {
	var req models.UpdateAPIKeyRequest
	if !bindJSON(c, &req) {
		return
	}
	user := apiauth.CurrentUser(c)

	key, err := h.keys.Update(c.Request.Context(), user.ID, c.Param("id"), &req.APIKey)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ToAPIKey(key))
}

func (h *APIKeyHandler) Delete(c *gin.Context) {
	user := apiauth.CurrentUser(c)

	if err := h.keys.Delete(c.Request.Context(), user.ID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
