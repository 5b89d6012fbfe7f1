package handler

import (
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/quietdash/quietdash/internal/api/models"
	"github.com/quietdash/quietdash/internal/apikeys"
	"github.com/quietdash/quietdash/internal/auth"
	"github.com/quietdash/quietdash/internal/display"
	"github.com/quietdash/quietdash/internal/waitlist"
	"github.com/quietdash/quietdash/internal/widgets"
)

const validationFailed = "validation failed"

// bindJSON decodes the body into obj and writes a 400 response if that fails.
func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[fe.Field()] = widgets.Reason(fe)
			}
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: validationFailed, Fields: fields})
			return false
		}
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: validationFailed, Fields: map[string]string{"body": "must be valid JSON"}})
		return false
	}
	return true
}

// respondError maps service errors to status codes. Unknown errors are logged
// and reported without details.
func respondError(c *gin.Context, err error) {
	var (
		validationErr *widgets.ValidationError
		existsErr     *widgets.ExistsError
	)

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: validationFailed, Fields: validationErr.Fields})
	case errors.As(err, &existsErr),
		errors.Is(err, auth.ErrUserExists),
		errors.Is(err, apikeys.ErrAPIKeyExists):
		c.JSON(http.StatusConflict, models.ErrorResponse{Error: err.Error()})
	case errors.Is(err, apikeys.ErrNotFound),
		errors.Is(err, widgets.ErrNotFound),
		errors.Is(err, display.ErrSettingsNotFound),
		errors.Is(err, waitlist.ErrInvalidToken):
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: err.Error()})
	case errors.Is(err, auth.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: err.Error()})
	case errors.Is(err, waitlist.ErrAlreadyOnWaitlist):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
	case errors.Is(err, waitlist.ErrVerificationEmailFailed):
		log.Error("Upstream email failure", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusBadGateway, models.ErrorResponse{Error: waitlist.ErrVerificationEmailFailed.Error()})
	default:
		log.Error("Request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Internal server error"})
	}
}
