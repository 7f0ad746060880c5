package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"commission-art-backend/internal/models"
	"commission-art-backend/internal/services"
	"commission-art-backend/internal/validation"
)

type MessagesHandler struct {
	messages *services.MessageService
	logger   *slog.Logger
}

func NewMessagesHandler(messages *services.MessageService, logger *slog.Logger) *MessagesHandler {
	return &MessagesHandler{
		messages: messages,
		logger:   logger,
	}
}

// ListMessages godoc
// @Summary     List chat messages
// @Description Returns the order's chat in send order with the current chat mode.
// @Tags        messages
// @Produce     json
// @Security    Bearer
// @Param       order_id path string true "Order ID"
// @Success     200 {object} models.MessagesResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /orders/{order_id}/messages [get]
func (h *MessagesHandler) ListMessages(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	orderID, ok := pathUUID(c, "order_id")
	if !ok {
		return
	}

	mode, msgs, err := h.messages.ListMessages(c.Request.Context(), sess, orderID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	resp := models.MessagesResponse{
		ChatMode: string(mode),
		Messages: make([]models.MessageResponse, len(msgs)),
	}
	for i := range msgs {
		resp.Messages[i] = messageResponse(&msgs[i])
	}
	c.JSON(http.StatusOK, resp)
}

// SendMessage godoc
// @Summary     Send a chat message
// @Description Posts text, an image, or both. Each sender may post once per second.
// @Tags        messages
// @Accept      multipart/form-data
// @Produce     json
// @Security    Bearer
// @Param       order_id path     string true  "Order ID"
// @Param       content  formData string false "Message text (1000 characters max)"
// @Param       image    formData file   false "Image attachment (5MB max)"
// @Success     201 {object} models.MessageResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Failure     429 {object} models.ErrorResponse
// @Router      /orders/{order_id}/messages [post]
func (h *MessagesHandler) SendMessage(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	orderID, ok := pathUUID(c, "order_id")
	if !ok {
		return
	}

	image, err := formFile(c, "image", validation.MaxMessageImageSize)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	msg, err := h.messages.SendMessage(c.Request.Context(), sess, orderID, c.PostForm("content"), image)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, messageResponse(msg))
}
