package handlers

import (
	"commission-art-backend/internal/models"
	"commission-art-backend/internal/session"
	"commission-art-backend/internal/workflow"
)

func orderResponse(o *models.Order, sess *session.Context) models.OrderResponse {
	resp := models.OrderResponse{
		ID:                     o.ID.String(),
		UserID:                 o.UserID.String(),
		Title:                  o.Title,
		Description:            o.Description,
		ReferenceImages:        []string(o.ReferenceImages),
		Status:                 string(o.Status),
		RejectionReason:        o.RejectionReason.String,
		PaymentScreenshotURL:   o.PaymentScreenshotURL.String,
		PaymentRejectionReason: o.PaymentRejectionReason.String,
		FinalWorkURL:           o.FinalWorkURL.String,
		ClientName:             o.ClientName.String,
		ClientEmail:            o.ClientEmail.String,
		ArtistName:             o.ArtistName.String,
		ChatMode:               string(workflow.ChatModeFor(o.Status)),
		CreatedAt:              o.CreatedAt,
		UpdatedAt:              o.UpdatedAt,
	}
	if resp.ReferenceImages == nil {
		resp.ReferenceImages = []string{}
	}
	if o.ArtistID.Valid {
		resp.ArtistID = o.ArtistID.UUID.String()
	}
	if o.Price.Valid {
		resp.Price = o.Price.Decimal.String()
	}

	actions := workflow.AvailableActions(o.Gate(), sess.Actor())
	resp.AvailableActions = make([]string, len(actions))
	for i, a := range actions {
		resp.AvailableActions[i] = string(a)
	}
	return resp
}

func orderSummary(o *models.Order) models.OrderSummary {
	s := models.OrderSummary{
		ID:          o.ID.String(),
		Title:       o.Title,
		Status:      string(o.Status),
		ClientName:  o.ClientName.String,
		ClientEmail: o.ClientEmail.String,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
	if o.Price.Valid {
		s.Price = o.Price.Decimal.String()
	}
	return s
}

func messageResponse(m *models.Message) models.MessageResponse {
	return models.MessageResponse{
		ID:          m.ID.String(),
		OrderID:     m.OrderID.String(),
		SenderID:    m.SenderID.String(),
		SenderName:  m.SenderName.String,
		SenderEmail: m.SenderEmail.String,
		Content:     m.Content,
		ImageURL:    m.ImageURL.String,
		CreatedAt:   m.CreatedAt,
	}
}

func galleryItemResponse(g *models.GalleryItem) models.GalleryItemResponse {
	return models.GalleryItemResponse{
		ID:           g.ID.String(),
		Title:        g.Title,
		Description:  g.Description.String,
		ImageURL:     g.ImageURL,
		ThumbnailURL: g.ThumbnailURL.String,
		CreatedBy:    g.CreatedBy.String(),
		CreatedAt:    g.CreatedAt,
		UpdatedAt:    g.UpdatedAt,
	}
}

func profileResponse(p *models.Profile) models.ProfileResponse {
	return models.ProfileResponse{
		ID:        p.ID.String(),
		Email:     p.Email,
		FullName:  p.FullName.String,
		AvatarURL: p.AvatarURL.String,
		Role:      string(p.Role),
		IsBanned:  p.IsBanned,
		CreatedAt: p.CreatedAt,
	}
}
