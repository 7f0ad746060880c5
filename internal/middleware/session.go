package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"commission-art-backend/internal/models"
	"commission-art-backend/internal/session"
	"commission-art-backend/internal/supabase"
)

type ProfileLoader interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error)
}

// LoadSession builds the request's session.Context from the verified user
// id. It must run after AuthMiddleware. Banned users are turned away here so
// no handler has to check.
func LoadSession(profiles ProfileLoader, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := uuid.Parse(c.GetString(UserIDKey))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
				Error:   "invalid user id",
				Message: "token subject is not a valid user id",
			})
			return
		}

		profile, err := profiles.GetProfile(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, supabase.ErrNoRows) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
					Error:   "profile not found",
					Message: "no profile exists for this account",
				})
				return
			}
			logger.Error("failed to load profile", "user_id", userID, "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, models.ErrorResponse{
				Error: "failed to load profile",
			})
			return
		}

		if profile.IsBanned {
			c.AbortWithStatusJSON(http.StatusForbidden, models.ErrorResponse{
				Error:   "account banned",
				Message: "this account has been suspended",
			})
			return
		}

		session.Set(c, &session.Context{
			UserID:      userID,
			Profile:     profile,
			AccessToken: c.GetString(AccessTokenKey),
		})
		c.Next()
	}
}

// RequireManager admits artists and admins.
func RequireManager() gin.HandlerFunc {
	return requireSession(func(s *session.Context) bool { return s.CanManageOrders() })
}

func RequireAdmin() gin.HandlerFunc {
	return requireSession(func(s *session.Context) bool { return s.IsAdmin() })
}

func requireSession(allowed func(*session.Context) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := session.FromGin(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{Error: "not signed in"})
			return
		}
		if !allowed(s) {
			c.AbortWithStatusJSON(http.StatusForbidden, models.ErrorResponse{Error: "access denied"})
			return
		}
		c.Next()
	}
}
