package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"commission-art-backend/internal/models"
	"commission-art-backend/internal/services"
	"commission-art-backend/internal/workflow"
)

type AdminHandler struct {
	orders *services.OrderService
	auth   *services.AuthService
	logger *slog.Logger
}

func NewAdminHandler(orders *services.OrderService, auth *services.AuthService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		orders: orders,
		auth:   auth,
		logger: logger,
	}
}

// Stats godoc
// @Summary     Dashboard counters
// @Tags        admin
// @Produce     json
// @Security    Bearer
// @Success     200 {object} models.StatsResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     403 {object} models.ErrorResponse
// @Router      /admin/stats [get]
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.orders.Stats(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	byStatus := make(map[string]int, len(workflow.Statuses()))
	for _, s := range workflow.Statuses() {
		byStatus[string(s)] = stats.OrdersByStatus[s]
	}

	c.JSON(http.StatusOK, models.StatsResponse{
		Users:          stats.Users,
		Orders:         stats.Orders,
		GalleryItems:   stats.GalleryItems,
		OrdersByStatus: byStatus,
	})
}

// Users godoc
// @Summary     List users
// @Tags        admin
// @Produce     json
// @Security    Bearer
// @Success     200 {object} models.UsersResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     403 {object} models.ErrorResponse
// @Router      /admin/users [get]
func (h *AdminHandler) Users(c *gin.Context) {
	profiles, err := h.auth.Users(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	resp := models.UsersResponse{Users: make([]models.ProfileResponse, len(profiles))}
	for i := range profiles {
		resp.Users[i] = profileResponse(&profiles[i])
	}
	c.JSON(http.StatusOK, resp)
}
