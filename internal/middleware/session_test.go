package middleware_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"commission-art-backend/internal/logging"
	"commission-art-backend/internal/middleware"
	"commission-art-backend/internal/models"
	"commission-art-backend/internal/session"
	"commission-art-backend/internal/supabase"
	"commission-art-backend/internal/workflow"
)

type profileMap map[uuid.UUID]*models.Profile

func (m profileMap) GetProfile(_ context.Context, id uuid.UUID) (*models.Profile, error) {
	if p, ok := m[id]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("failed to get profile: %w", supabase.ErrNoRows)
}

type failingProfiles struct{}

func (failingProfiles) GetProfile(context.Context, uuid.UUID) (*models.Profile, error) {
	return nil, errors.New("connection refused")
}

func sessionRouter(loader middleware.ProfileLoader, userID string, guards ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(middleware.UserIDKey, userID)
		c.Set(middleware.AccessTokenKey, "token")
	})
	router.Use(middleware.LoadSession(loader, logging.NewNop()))
	router.Use(guards...)
	router.GET("/test", func(c *gin.Context) {
		s, _ := session.FromGin(c)
		c.JSON(http.StatusOK, gin.H{"role": s.Role(), "token": s.AccessToken})
	})
	return router
}

func serve(router *gin.Engine) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestLoadSession(t *testing.T) {
	userID := uuid.New()
	bannedID := uuid.New()
	profiles := profileMap{
		userID:   {ID: userID, Role: workflow.RoleUser},
		bannedID: {ID: bannedID, Role: workflow.RoleUser, IsBanned: true},
	}

	w := serve(sessionRouter(profiles, userID.String()))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"role":"user","token":"token"}`, w.Body.String())

	w = serve(sessionRouter(profiles, bannedID.String()))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = serve(sessionRouter(profiles, uuid.NewString()))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(sessionRouter(profiles, "user-123"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(sessionRouter(failingProfiles{}, userID.String()))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRoleGuards(t *testing.T) {
	user, artist, admin := uuid.New(), uuid.New(), uuid.New()
	profiles := profileMap{
		user:   {ID: user, Role: workflow.RoleUser},
		artist: {ID: artist, Role: workflow.RoleArtist},
		admin:  {ID: admin, Role: workflow.RoleAdmin},
	}

	tests := []struct {
		name  string
		id    uuid.UUID
		guard gin.HandlerFunc
		want  int
	}{
		{"user is not a manager", user, middleware.RequireManager(), http.StatusForbidden},
		{"artist is a manager", artist, middleware.RequireManager(), http.StatusOK},
		{"admin is a manager", admin, middleware.RequireManager(), http.StatusOK},
		{"artist is not an admin", artist, middleware.RequireAdmin(), http.StatusForbidden},
		{"admin is an admin", admin, middleware.RequireAdmin(), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(sessionRouter(profiles, tt.id.String(), tt.guard))
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRoleGuards_WithoutSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/test", middleware.RequireAdmin(), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusUnauthorized, serve(router).Code)
}
