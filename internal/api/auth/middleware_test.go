package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/quietdash/quietdash/internal/api/models"
	"github.com/quietdash/quietdash/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeValidator struct {
	users map[string]*database.User
	err   error
}

func (f *fakeValidator) ValidateToken(_ context.Context, token string) (*database.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.users[token], nil
}

func newRouter(v TokenValidator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", RequireAuth(v), func(c *gin.Context) {
		c.JSON(http.StatusOK, CurrentUser(c))
	})
	return r
}

func TestRequireAuth(t *testing.T) {
	user := &database.User{Email: "user@example.com", Password: "hash"}
	user.ID = "user-1"
	v := &fakeValidator{users: map[string]*database.User{"good": user}}

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "missing header", want: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic good", want: http.StatusUnauthorized},
		{name: "empty token", header: "Bearer ", want: http.StatusUnauthorized},
		{name: "unknown token", header: "Bearer bad", want: http.StatusUnauthorized},
		{name: "valid token", header: "Bearer good", want: http.StatusOK},
		{name: "lowercase scheme", header: "bearer good", want: http.StatusOK},
	}

	router := newRouter(v)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRequireAuth_StoresSanitizedUser(t *testing.T) {
	user := &database.User{Email: "user@example.com", Password: "hash"}
	user.ID = "user-1"
	router := newRouter(&fakeValidator{users: map[string]*database.User{"good": user}})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer good")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var got models.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "user-1", got.ID)
	assert.Equal(t, "user@example.com", got.Email)
	assert.NotContains(t, w.Body.String(), "hash")
}

func TestRequireAuth_ValidatorError(t *testing.T) {
	router := newRouter(&fakeValidator{err: errors.New("db down")})
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer good")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
