package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"commission-art-backend/internal/models"
	"commission-art-backend/internal/ratelimit"
	"commission-art-backend/internal/services"
	"commission-art-backend/internal/validation"
	"commission-art-backend/internal/workflow"
)

// respondError maps service errors to HTTP responses. Store errors are
// logged and their detail is not sent to the client.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	var (
		verr *validation.Error
		terr *workflow.InvalidTransitionError
		serr *services.StoreError
	)

	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "validation failed", Message: verr.Error()})
	case errors.As(err, &terr):
		c.JSON(http.StatusConflict, models.ErrorResponse{Error: "invalid transition", Message: terr.Error()})
	case errors.Is(err, ratelimit.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, models.ErrorResponse{Error: "rate limited", Message: err.Error()})
	case errors.Is(err, services.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "unauthenticated", Message: err.Error()})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, models.ErrorResponse{Error: "forbidden", Message: "you are not allowed to do this"})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "not found"})
	case errors.Is(err, services.ErrChatUnavailable):
		c.JSON(http.StatusConflict, models.ErrorResponse{Error: "chat unavailable", Message: err.Error()})
	case errors.As(err, &serr):
		logger.Error("store error", "op", serr.Op, "path", c.FullPath(), "error", serr.Err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "store error", Message: "the request could not be completed, please retry"})
	default:
		logger.Error("unexpected error", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "internal error"})
	}
}
