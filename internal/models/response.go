package models

import "time"

type OrderResponse struct {
	ID                     string    `json:"order_id"`
	UserID                 string    `json:"user_id"`
	ArtistID               string    `json:"artist_id,omitempty"`
	Title                  string    `json:"title"`
	Description            string    `json:"description"`
	ReferenceImages        []string  `json:"reference_images"`
	Status                 string    `json:"status"`
	RejectionReason        string    `json:"rejection_reason,omitempty"`
	Price                  string    `json:"price,omitempty"`
	PaymentScreenshotURL   string    `json:"payment_screenshot_url,omitempty"`
	PaymentRejectionReason string    `json:"payment_rejection_reason,omitempty"`
	FinalWorkURL           string    `json:"final_work_url,omitempty"`
	ClientName             string    `json:"client_name,omitempty"`
	ClientEmail            string    `json:"client_email,omitempty"`
	ArtistName             string    `json:"artist_name,omitempty"`
	AvailableActions       []string  `json:"available_actions"`
	ChatMode               string    `json:"chat_mode"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

type OrderListResponse struct {
	Orders []OrderSummary `json:"orders"`
}

type OrderSummary struct {
	ID          string    `json:"order_id"`
	Title       string    `json:"title"`
	Status      string    `json:"status"`
	Price       string    `json:"price,omitempty"`
	ClientName  string    `json:"client_name,omitempty"`
	ClientEmail string    `json:"client_email,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type MessageResponse struct {
	ID          string    `json:"id"`
	OrderID     string    `json:"order_id"`
	SenderID    string    `json:"sender_id"`
	SenderName  string    `json:"sender_name,omitempty"`
	SenderEmail string    `json:"sender_email,omitempty"`
	Content     string    `json:"content"`
	ImageURL    string    `json:"image_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type MessagesResponse struct {
	ChatMode string            `json:"chat_mode"`
	Messages []MessageResponse `json:"messages"`
}

type GalleryItemResponse struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	ImageURL     string    `json:"image_url"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	CreatedBy    string    `json:"created_by"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type GalleryResponse struct {
	Items []GalleryItemResponse `json:"items"`
}

type ProfileResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	Role      string    `json:"role"`
	IsBanned  bool      `json:"is_banned"`
	CreatedAt time.Time `json:"created_at"`
}

type MeResponse struct {
	Profile      ProfileResponse `json:"profile"`
	Capabilities []string        `json:"capabilities"`
}

type UsersResponse struct {
	Users []ProfileResponse `json:"users"`
}

type SessionResponse struct {
	AccessToken  string          `json:"access_token,omitempty"`
	RefreshToken string          `json:"refresh_token,omitempty"`
	ExpiresIn    int             `json:"expires_in,omitempty"`
	Profile      ProfileResponse `json:"profile"`
}

type StatsResponse struct {
	Users          int            `json:"users"`
	Orders         int            `json:"orders"`
	GalleryItems   int            `json:"gallery_items"`
	OrdersByStatus map[string]int `json:"orders_by_status"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
