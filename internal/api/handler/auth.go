package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apiauth "github.com/quietdash/quietdash/internal/api/auth"
	"github.com/quietdash/quietdash/internal/api/models"
	"github.com/quietdash/quietdash/internal/auth"
)

type AuthHandler struct {
	auth *auth.Service
}

func NewAuth(svc *auth.Service) *AuthHandler {
	return &AuthHandler{auth: svc}
}

// Register creates an account and returns its first access token.
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.auth.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.AuthResponse{User: models.ToUser(res.User), AccessToken: res.AccessToken})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.AuthResponse{User: models.ToUser(res.User), AccessToken: res.AccessToken})
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, apiauth.CurrentUser(c))
}
