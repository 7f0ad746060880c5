package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"commission-art-backend/internal/metrics"
	"commission-art-backend/internal/models"
	"commission-art-backend/internal/ratelimit"
	"commission-art-backend/internal/session"
	"commission-art-backend/internal/validation"
	"commission-art-backend/internal/workflow"
)

type MessageService struct {
	orders   OrderStore
	messages MessageStore
	storage  *StorageService
	limiter  ratelimit.Limiter
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewMessageService(
	orders OrderStore,
	messages MessageStore,
	storage *StorageService,
	limiter ratelimit.Limiter,
	m *metrics.Metrics,
	logger *slog.Logger,
) *MessageService {
	return &MessageService{
		orders:   orders,
		messages: messages,
		storage:  storage,
		limiter:  limiter,
		metrics:  m,
		logger:   logger,
	}
}

func (s *MessageService) chat(ctx context.Context, sess *session.Context, orderID uuid.UUID) (*models.Order, workflow.ChatMode, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, "", storeError("get order", err)
	}
	if !CanView(sess, order) {
		return nil, "", ErrNotFound
	}
	return order, workflow.ChatModeFor(order.Status), nil
}

// ListMessages returns the chat history oldest first, with the chat mode
// the order's status allows.
func (s *MessageService) ListMessages(ctx context.Context, sess *session.Context, orderID uuid.UUID) (workflow.ChatMode, []models.Message, error) {
	_, mode, err := s.chat(ctx, sess, orderID)
	if err != nil {
		return "", nil, err
	}
	if !mode.CanRead() {
		return mode, nil, ErrChatUnavailable
	}

	messages, err := s.messages.ListMessages(ctx, orderID)
	if err != nil {
		return "", nil, storeError("list messages", err)
	}
	return mode, messages, nil
}

// SendMessage posts a chat message with an optional image. A message with
// only an image gets placeholder content.
func (s *MessageService) SendMessage(ctx context.Context, sess *session.Context, orderID uuid.UUID, content string, image *validation.Upload) (*models.Message, error) {
	order, mode, err := s.chat(ctx, sess, orderID)
	if err != nil {
		return nil, err
	}
	if !mode.CanWrite() {
		return nil, ErrChatUnavailable
	}

	content = validation.CleanText(content)
	if err := validation.Message(content, image); err != nil {
		s.metrics.ObserveMessage("invalid")
		return nil, err
	}

	if err := s.limiter.Allow(ctx, sess.UserID); err != nil {
		if errors.Is(err, ratelimit.ErrRateLimited) {
			s.metrics.ObserveMessage("rate_limited")
			return nil, err
		}
		s.logger.Warn("rate limiter unavailable, allowing message", "user_id", sess.UserID, "error", err)
	}

	var imageURL string
	if image != nil {
		imageURL, err = s.storage.UploadChatImage(order.ID, *image)
		if err != nil {
			return nil, err
		}
	}
	if content == "" {
		content = validation.ImagePlaceholderContent
	}

	msg, err := s.messages.CreateMessage(ctx, order.ID, sess.UserID, content, imageURL)
	if err != nil {
		return nil, storeError("create message", err)
	}
	s.metrics.ObserveMessage("sent")
	return msg, nil
}
