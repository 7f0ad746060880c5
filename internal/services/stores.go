package services

import (
	"context"

	"github.com/google/uuid"

	"commission-art-backend/internal/models"
	"commission-art-backend/internal/supabase"
	"commission-art-backend/internal/workflow"
)

type OrderStore interface {
	CreateOrder(ctx context.Context, orderID, userID uuid.UUID, title, description string, referenceImages []string) (*models.Order, error)
	GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, error)
	UpdateOrder(ctx context.Context, orderID uuid.UUID, u workflow.Update) error
	Stats(ctx context.Context) (*models.Stats, error)
}

type MessageStore interface {
	CreateMessage(ctx context.Context, orderID, senderID uuid.UUID, content, imageURL string) (*models.Message, error)
	ListMessages(ctx context.Context, orderID uuid.UUID) ([]models.Message, error)
}

type GalleryStore interface {
	CreateGalleryItem(ctx context.Context, item *models.GalleryItem) (*models.GalleryItem, error)
	GetGalleryItem(ctx context.Context, id uuid.UUID) (*models.GalleryItem, error)
	ListGalleryItems(ctx context.Context) ([]models.GalleryItem, error)
	DeleteGalleryItem(ctx context.Context, id uuid.UUID) error
}

type ProfileStore interface {
	CreateProfile(ctx context.Context, id uuid.UUID, email, fullName string) (*models.Profile, error)
	GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	ListProfiles(ctx context.Context) ([]models.Profile, error)
}

type MediaStore interface {
	Upload(bucket, path string, data []byte, contentType string, upsert bool) (string, error)
	ThumbnailURL(bucket, path string, width int) string
	Remove(bucket string, paths ...string) error
	PathFromPublicURL(bucket, publicURL string) (string, bool)
}

type Identity interface {
	SignUp(ctx context.Context, email, password, fullName string) (*supabase.AuthSession, error)
	SignIn(ctx context.Context, email, password string) (*supabase.AuthSession, error)
	SignOut(ctx context.Context, accessToken string) error
}

var (
	_ OrderStore   = (*supabase.DatabaseClient)(nil)
	_ MessageStore = (*supabase.DatabaseClient)(nil)
	_ GalleryStore = (*supabase.DatabaseClient)(nil)
	_ ProfileStore = (*supabase.DatabaseClient)(nil)
	_ MediaStore   = (*supabase.StorageClient)(nil)
	_ Identity     = (*supabase.AuthClient)(nil)
)
