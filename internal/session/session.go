// Package session carries the signed-in user through a request.
package session

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"commission-art-backend/internal/models"
	"commission-art-backend/internal/workflow"
)

const contextKey = "session"

// Context is built once per request after the bearer token is verified and
// the profile row is loaded. Handlers read it instead of consulting global
// auth state.
type Context struct {
	UserID      uuid.UUID
	Profile     *models.Profile
	AccessToken string
}

func (s *Context) Role() workflow.Role {
	if s == nil || s.Profile == nil {
		return ""
	}
	return s.Profile.Role
}

func (s *Context) Actor() workflow.Actor {
	return workflow.Actor{ID: s.UserID, Role: s.Role()}
}

func (s *Context) CanManageOrders() bool {
	return workflow.CanManageOrders(s.Role())
}

func (s *Context) IsAdmin() bool {
	return workflow.IsAdmin(s.Role())
}

func Set(c *gin.Context, s *Context) {
	c.Set(contextKey, s)
}

// FromGin returns the request's session, if the session middleware ran.
func FromGin(c *gin.Context) (*Context, bool) {
	v, ok := c.Get(contextKey)
	if !ok {
		return nil, false
	}
	s, ok := v.(*Context)
	return s, ok && s != nil
}
