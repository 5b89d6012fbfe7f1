package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/quietdash/quietdash/internal/api/models"
	"github.com/quietdash/quietdash/internal/database"
)

const userContextKey = "user"

// TokenValidator resolves a bearer token to its user. A nil user means the token is not valid.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*database.User, error)
}

// RequireAuth rejects requests without a valid bearer token and stores the user in the context.
func RequireAuth(v TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			unauthorized(c)
			return
		}

		user, err := v.ValidateToken(c.Request.Context(), token)
		if err != nil {
			log.Error("Failed to validate token", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Internal server error"})
			return
		}
		if user == nil {
			unauthorized(c)
			return
		}

		c.Set("user_id", user.ID)
		c.Set(userContextKey, models.ToUser(user))
		c.Next()
	}
}

// CurrentUser returns the user stored by RequireAuth.
func CurrentUser(c *gin.Context) models.User {
	return c.MustGet(userContextKey).(models.User)
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized"})
}
