package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"commission-art-backend/internal/models"
	"commission-art-backend/internal/services"
	"commission-art-backend/internal/workflow"
)

type AuthHandler struct {
	auth   *services.AuthService
	logger *slog.Logger
}

func NewAuthHandler(auth *services.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:   auth,
		logger: logger,
	}
}

func sessionResponse(s *services.SignedIn) models.SessionResponse {
	return models.SessionResponse{
		AccessToken:  s.Session.AccessToken,
		RefreshToken: s.Session.RefreshToken,
		ExpiresIn:    s.Session.ExpiresIn,
		Profile:      profileResponse(s.Profile),
	}
}

// Register godoc
// @Summary     Register
// @Description Creates an account with role user. The tokens are empty when the project requires email confirmation.
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body models.RegisterRequest true "Account details"
// @Success     201 {object} models.SessionResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request body", Message: err.Error()})
		return
	}

	signedIn, err := h.auth.Register(c.Request.Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, sessionResponse(signedIn))
}

// Login godoc
// @Summary     Log in
// @Description Signs in with email and password.
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body models.LoginRequest true "Credentials"
// @Success     200 {object} models.SessionResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     403 {object} models.ErrorResponse
// @Router      /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request body", Message: err.Error()})
		return
	}

	signedIn, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, sessionResponse(signedIn))
}

// Logout godoc
// @Summary     Log out
// @Description Revokes the caller's session.
// @Tags        auth
// @Security    Bearer
// @Success     204
// @Failure     401 {object} models.ErrorResponse
// @Router      /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}

	if err := h.auth.Logout(c.Request.Context(), sess); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Me godoc
// @Summary     Current user
// @Description Returns the caller's profile and the features their role unlocks.
// @Tags        auth
// @Produce     json
// @Security    Bearer
// @Success     200 {object} models.MeResponse
// @Failure     401 {object} models.ErrorResponse
// @Router      /me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, models.MeResponse{
		Profile:      profileResponse(sess.Profile),
		Capabilities: workflow.Capabilities(sess.Role()),
	})
}
