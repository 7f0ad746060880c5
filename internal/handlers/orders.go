package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"commission-art-backend/internal/models"
	"commission-art-backend/internal/services"
	"commission-art-backend/internal/session"
	"commission-art-backend/internal/validation"
	"commission-art-backend/internal/workflow"
)

type OrdersHandler struct {
	orders *services.OrderService
	logger *slog.Logger
}

func NewOrdersHandler(orders *services.OrderService, logger *slog.Logger) *OrdersHandler {
	return &OrdersHandler{
		orders: orders,
		logger: logger,
	}
}

// currentSession returns the request's session or answers 401.
func currentSession(c *gin.Context) (*session.Context, bool) {
	sess, ok := session.FromGin(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "not signed in"})
		return nil, false
	}
	return sess, true
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid " + name, Message: err.Error()})
		return uuid.Nil, false
	}
	return id, true
}

// CreateOrder godoc
// @Summary     Create an order
// @Description Submits a new art request with up to 10 reference images. The order starts pending with no artist and no price. Only clients place orders.
// @Tags        orders
// @Accept      multipart/form-data
// @Produce     json
// @Security    Bearer
// @Param       title       formData string true  "Title (1-100 characters)"
// @Param       description formData string true  "Description (1-2000 characters)"
// @Param       images      formData file   false "Reference images (up to 10, 10MB each)"
// @Success     201 {object} models.OrderResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     403 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /orders [post]
func (h *OrdersHandler) CreateOrder(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}

	images, err := formFiles(c, "images", validation.MaxOrderImageSize)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	order, err := h.orders.CreateOrder(c.Request.Context(), sess, services.CreateOrderInput{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		Images:      images,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, orderResponse(order, sess))
}

// ListOrders godoc
// @Summary     List orders
// @Description Clients see their own orders; artists and admins see every order.
// @Tags        orders
// @Produce     json
// @Security    Bearer
// @Param       status query string false "Filter by status"
// @Success     200 {object} models.OrderListResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /orders [get]
func (h *OrdersHandler) ListOrders(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}

	orders, err := h.orders.ListOrders(c.Request.Context(), sess, workflow.Status(c.Query("status")))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	resp := models.OrderListResponse{Orders: make([]models.OrderSummary, len(orders))}
	for i := range orders {
		resp.Orders[i] = orderSummary(&orders[i])
	}
	c.JSON(http.StatusOK, resp)
}

// GetOrder godoc
// @Summary     Get an order
// @Description Returns the order with the actions the caller may take and the chat mode.
// @Tags        orders
// @Produce     json
// @Security    Bearer
// @Param       order_id path string true "Order ID"
// @Success     200 {object} models.OrderResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /orders/{order_id} [get]
func (h *OrdersHandler) GetOrder(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	orderID, ok := pathUUID(c, "order_id")
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(c.Request.Context(), sess, orderID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, orderResponse(order, sess))
}

// Transition godoc
// @Summary     Apply a workflow action
// @Description Runs accept, reject, set_price, confirm_payment or reject_payment. reject and reject_payment need a reason, set_price needs a positive price.
// @Tags        orders
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       order_id path string                   true  "Order ID"
// @Param       action   path string                   true  "Action"
// @Param       request  body models.TransitionRequest false "Action input"
// @Success     200 {object} models.OrderResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /orders/{order_id}/actions/{action} [post]
func (h *OrdersHandler) Transition(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	orderID, ok := pathUUID(c, "order_id")
	if !ok {
		return
	}

	action, ok := workflow.ParseAction(c.Param("action"))
	if !ok {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "unknown action", Message: c.Param("action")})
		return
	}

	var req models.TransitionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request body", Message: err.Error()})
			return
		}
	}

	order, err := h.orders.Transition(c.Request.Context(), sess, orderID, action, services.TransitionInput{
		Reason: req.Reason,
		Price:  req.Price,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, orderResponse(order, sess))
}

// UploadPaymentProof godoc
// @Summary     Upload a payment screenshot
// @Description The client who placed the order uploads proof of an off-platform payment. Replaces any earlier screenshot.
// @Tags        orders
// @Accept      multipart/form-data
// @Produce     json
// @Security    Bearer
// @Param       order_id path     string true "Order ID"
// @Param       file     formData file   true "Screenshot (image, 5MB max)"
// @Success     200 {object} models.OrderResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /orders/{order_id}/payment-proof [post]
func (h *OrdersHandler) UploadPaymentProof(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	orderID, ok := pathUUID(c, "order_id")
	if !ok {
		return
	}

	file, err := requiredFile(c, "file", validation.MaxPaymentProofSize)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	order, err := h.orders.UploadPaymentProof(c.Request.Context(), sess, orderID, file)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, orderResponse(order, sess))
}

// CompleteOrder godoc
// @Summary     Deliver the final work
// @Description Uploads the finished artwork and completes an in-progress order.
// @Tags        orders
// @Accept      multipart/form-data
// @Produce     json
// @Security    Bearer
// @Param       order_id path     string true "Order ID"
// @Param       file     formData file   true "Final work (50MB max)"
// @Success     200 {object} models.OrderResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /orders/{order_id}/complete [post]
func (h *OrdersHandler) CompleteOrder(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	orderID, ok := pathUUID(c, "order_id")
	if !ok {
		return
	}

	file, err := requiredFile(c, "file", validation.MaxFinalWorkSize)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	order, err := h.orders.CompleteOrder(c.Request.Context(), sess, orderID, file)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, orderResponse(order, sess))
}
