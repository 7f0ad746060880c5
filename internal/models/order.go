package models

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"commission-art-backend/internal/workflow"
)

type Order struct {
	ID                     uuid.UUID
	UserID                 uuid.UUID
	ArtistID               uuid.NullUUID
	Title                  string
	Description            string
	ReferenceImages        pq.StringArray
	Status                 workflow.Status
	RejectionReason        sql.NullString
	Price                  decimal.NullDecimal
	PaymentScreenshotURL   sql.NullString
	PaymentRejectionReason sql.NullString
	FinalWorkURL           sql.NullString
	CreatedAt              time.Time
	UpdatedAt              time.Time

	// Joined from profiles, empty when the query does not join.
	ClientName  sql.NullString
	ClientEmail sql.NullString
	ArtistName  sql.NullString
}

// Gate returns the fields the workflow gate decides on.
func (o *Order) Gate() workflow.Order {
	return workflow.Order{
		Status:               o.Status,
		UserID:               o.UserID,
		HasPaymentScreenshot: o.PaymentScreenshotURL.Valid && o.PaymentScreenshotURL.String != "",
	}
}

// OrderFilter narrows ListOrders. Zero values mean no filtering.
type OrderFilter struct {
	UserID uuid.NullUUID
	Status workflow.Status
}

type Message struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	SenderID  uuid.UUID
	Content   string
	ImageURL  sql.NullString
	CreatedAt time.Time

	SenderName  sql.NullString
	SenderEmail sql.NullString
}

type Profile struct {
	ID        uuid.UUID
	Email     string
	FullName  sql.NullString
	AvatarURL sql.NullString
	Role      workflow.Role
	IsBanned  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type GalleryItem struct {
	ID           uuid.UUID
	Title        string
	Description  sql.NullString
	ImageURL     string
	ThumbnailURL sql.NullString
	CreatedBy    uuid.UUID
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Stats backs the admin dashboard counters.
type Stats struct {
	Users          int
	Orders         int
	GalleryItems   int
	OrdersByStatus map[workflow.Status]int
}
