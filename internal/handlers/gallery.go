package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"commission-art-backend/internal/models"
	"commission-art-backend/internal/services"
	"commission-art-backend/internal/validation"
)

type GalleryHandler struct {
	gallery *services.GalleryService
	logger  *slog.Logger
}

func NewGalleryHandler(gallery *services.GalleryService, logger *slog.Logger) *GalleryHandler {
	return &GalleryHandler{
		gallery: gallery,
		logger:  logger,
	}
}

// ListGallery godoc
// @Summary     List the portfolio
// @Description Public. Newest items first.
// @Tags        gallery
// @Produce     json
// @Success     200 {object} models.GalleryResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /gallery [get]
func (h *GalleryHandler) ListGallery(c *gin.Context) {
	items, err := h.gallery.List(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	resp := models.GalleryResponse{Items: make([]models.GalleryItemResponse, len(items))}
	for i := range items {
		resp.Items[i] = galleryItemResponse(&items[i])
	}
	c.JSON(http.StatusOK, resp)
}

// CreateGalleryItem godoc
// @Summary     Add a portfolio item
// @Description Artists and admins only. A thumbnail URL is derived from the image.
// @Tags        gallery
// @Accept      multipart/form-data
// @Produce     json
// @Security    Bearer
// @Param       title       formData string true  "Title"
// @Param       description formData string false "Description"
// @Param       image       formData file   true  "Image (10MB max)"
// @Success     201 {object} models.GalleryItemResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     403 {object} models.ErrorResponse
// @Router      /gallery [post]
func (h *GalleryHandler) CreateGalleryItem(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}

	image, err := requiredFile(c, "image", validation.MaxGalleryImageSize)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	item, err := h.gallery.Create(c.Request.Context(), sess, c.PostForm("title"), c.PostForm("description"), image)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, galleryItemResponse(item))
}

// DeleteGalleryItem godoc
// @Summary     Remove a portfolio item
// @Description Artists and admins only. Removes the stored image too.
// @Tags        gallery
// @Security    Bearer
// @Param       item_id path string true "Gallery item ID"
// @Success     204
// @Failure     400 {object} models.ErrorResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     403 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /gallery/{item_id} [delete]
func (h *GalleryHandler) DeleteGalleryItem(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	itemID, ok := pathUUID(c, "item_id")
	if !ok {
		return
	}

	if err := h.gallery.Delete(c.Request.Context(), sess, itemID); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Status(http.StatusNoContent)
}
