package services

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"

	"commission-art-backend/internal/models"
	"commission-art-backend/internal/session"
	"commission-art-backend/internal/validation"
)

type GalleryService struct {
	gallery GalleryStore
	storage *StorageService
	logger  *slog.Logger
}

func NewGalleryService(gallery GalleryStore, storage *StorageService, logger *slog.Logger) *GalleryService {
	return &GalleryService{
		gallery: gallery,
		storage: storage,
		logger:  logger,
	}
}

// List returns the public gallery, newest first.
func (s *GalleryService) List(ctx context.Context) ([]models.GalleryItem, error) {
	items, err := s.gallery.ListGalleryItems(ctx)
	if err != nil {
		return nil, storeError("list gallery items", err)
	}
	return items, nil
}

func (s *GalleryService) Create(ctx context.Context, sess *session.Context, title, description string, image validation.Upload) (*models.GalleryItem, error) {
	if !sess.CanManageOrders() {
		return nil, ErrForbidden
	}

	title = validation.CleanText(title)
	description = validation.CleanText(description)
	if err := validation.GalleryItem(validation.GalleryInput{
		Title:       title,
		Description: description,
		Image:       image,
	}); err != nil {
		return nil, err
	}

	id := uuid.New()
	url, thumb, err := s.storage.UploadGalleryImage(id, image)
	if err != nil {
		return nil, err
	}

	item, err := s.gallery.CreateGalleryItem(ctx, &models.GalleryItem{
		ID:           id,
		Title:        title,
		Description:  sql.NullString{String: description, Valid: description != ""},
		ImageURL:     url,
		ThumbnailURL: sql.NullString{String: thumb, Valid: thumb != ""},
		CreatedBy:    sess.UserID,
	})
	if err != nil {
		if rmErr := s.storage.RemoveGalleryImage(url); rmErr != nil {
			s.logger.Warn("failed to remove orphaned gallery image", "url", url, "error", rmErr)
		}
		return nil, storeError("create gallery item", err)
	}

	s.logger.Info("gallery item created", "id", item.ID, "created_by", sess.UserID)
	return item, nil
}

// Delete removes the image from storage, then the row. A failed storage
// removal is logged and does not keep the row.
func (s *GalleryService) Delete(ctx context.Context, sess *session.Context, id uuid.UUID) error {
	if !sess.CanManageOrders() {
		return ErrForbidden
	}

	item, err := s.gallery.GetGalleryItem(ctx, id)
	if err != nil {
		return storeError("get gallery item", err)
	}

	if err := s.storage.RemoveGalleryImage(item.ImageURL); err != nil {
		s.logger.Warn("failed to remove gallery image", "id", id, "url", item.ImageURL, "error", err)
	}

	if err := s.gallery.DeleteGalleryItem(ctx, id); err != nil {
		return storeError("delete gallery item", err)
	}

	s.logger.Info("gallery item deleted", "id", id, "deleted_by", sess.UserID)
	return nil
}
