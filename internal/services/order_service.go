package services

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"commission-art-backend/internal/metrics"
	"commission-art-backend/internal/models"
	"commission-art-backend/internal/session"
	"commission-art-backend/internal/validation"
	"commission-art-backend/internal/workflow"
)

type OrderService struct {
	orders  OrderStore
	storage *StorageService
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewOrderService(orders OrderStore, storage *StorageService, m *metrics.Metrics, logger *slog.Logger) *OrderService {
	return &OrderService{
		orders:  orders,
		storage: storage,
		metrics: m,
		logger:  logger,
	}
}

type CreateOrderInput struct {
	Title       string
	Description string
	Images      []validation.Upload
}

// TransitionInput carries the optional body of a workflow action.
type TransitionInput struct {
	Reason string
	Price  *decimal.Decimal
}

// CreateOrder validates the request, uploads reference images and inserts a
// pending order owned by the caller. Only clients place orders.
func (s *OrderService) CreateOrder(ctx context.Context, sess *session.Context, in CreateOrderInput) (*models.Order, error) {
	if !workflow.CanPlaceOrders(sess.Role()) {
		return nil, ErrForbidden
	}

	in.Title = validation.CleanText(in.Title)
	in.Description = validation.CleanText(in.Description)

	if err := validation.Order(validation.OrderInput{
		Title:       in.Title,
		Description: in.Description,
		Images:      in.Images,
	}); err != nil {
		return nil, err
	}

	urls, err := s.storage.UploadReferenceImages(sess.UserID, in.Images)
	if err != nil {
		return nil, err
	}

	order, err := s.orders.CreateOrder(ctx, uuid.New(), sess.UserID, in.Title, in.Description, urls)
	if err != nil {
		s.storage.RemoveReferenceImages(urls)
		return nil, storeError("create order", err)
	}

	s.logger.Info("order created", "order_id", order.ID, "user_id", sess.UserID, "images", len(urls))
	return order, nil
}

// ListOrders returns the caller's own orders, or every order for artists and
// admins. An empty status lists all statuses.
func (s *OrderService) ListOrders(ctx context.Context, sess *session.Context, status workflow.Status) ([]models.Order, error) {
	if status != "" && !status.Valid() {
		return nil, &validation.Error{Field: "status", Message: "unknown status"}
	}

	filter := models.OrderFilter{Status: status}
	if !sess.CanManageOrders() {
		filter.UserID = uuid.NullUUID{UUID: sess.UserID, Valid: true}
	}

	orders, err := s.orders.ListOrders(ctx, filter)
	if err != nil {
		return nil, storeError("list orders", err)
	}
	return orders, nil
}

// GetOrder loads an order the caller may see. Orders of other clients are
// reported as not found.
func (s *OrderService) GetOrder(ctx context.Context, sess *session.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, storeError("get order", err)
	}
	if !CanView(sess, order) {
		return nil, ErrNotFound
	}
	return order, nil
}

// CanView reports whether sess is a participant of order.
func CanView(sess *session.Context, order *models.Order) bool {
	return sess.CanManageOrders() || order.UserID == sess.UserID
}

// Transition applies a workflow action that needs no file.
func (s *OrderService) Transition(ctx context.Context, sess *session.Context, orderID uuid.UUID, action workflow.Action, in TransitionInput) (*models.Order, error) {
	order, err := s.GetOrder(ctx, sess, orderID)
	if err != nil {
		return nil, err
	}

	payload := workflow.Payload{Reason: validation.CleanText(in.Reason)}
	if in.Price != nil {
		payload.Price = *in.Price
	}

	return s.apply(ctx, sess, order, action, payload)
}

// UploadPaymentProof stores the client's payment screenshot on an order
// awaiting payment. Permission is checked before the upload.
func (s *OrderService) UploadPaymentProof(ctx context.Context, sess *session.Context, orderID uuid.UUID, file validation.Upload) (*models.Order, error) {
	order, err := s.GetOrder(ctx, sess, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(order, workflow.ActionUploadPaymentProof, sess); err != nil {
		return nil, err
	}
	if err := validation.Image("payment_screenshot", file, validation.MaxPaymentProofSize); err != nil {
		return nil, err
	}

	url, err := s.storage.UploadPaymentProof(order.ID, file)
	if err != nil {
		return nil, err
	}

	err = s.commit(ctx, sess, order, workflow.ActionUploadPaymentProof, workflow.Payload{ScreenshotURL: url})
	settleReplacedFile(order.PaymentScreenshotURL, url, err, s.storage.RemovePaymentProof)
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, order.ID)
}

// CompleteOrder attaches the final work and completes the order.
func (s *OrderService) CompleteOrder(ctx context.Context, sess *session.Context, orderID uuid.UUID, file validation.Upload) (*models.Order, error) {
	order, err := s.GetOrder(ctx, sess, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(order, workflow.ActionComplete, sess); err != nil {
		return nil, err
	}
	if err := validation.File("final_work", file, validation.MaxFinalWorkSize); err != nil {
		return nil, err
	}

	url, err := s.storage.UploadFinalWork(order.ID, file)
	if err != nil {
		return nil, err
	}

	err = s.commit(ctx, sess, order, workflow.ActionComplete, workflow.Payload{FinalWorkURL: url})
	settleReplacedFile(order.FinalWorkURL, url, err, s.storage.RemoveFinalWork)
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, order.ID)
}

// settleReplacedFile removes whichever of the previous and the new object is
// no longer referenced by the order. An object overwritten in place is kept.
func settleReplacedFile(previous sql.NullString, current string, commitErr error, remove func(url string)) {
	if previous.Valid && previous.String == current {
		return
	}
	if commitErr != nil {
		remove(current)
		return
	}
	if previous.Valid && previous.String != "" {
		remove(previous.String)
	}
}

func (s *OrderService) authorize(order *models.Order, action workflow.Action, sess *session.Context) error {
	err := workflow.Authorize(order.Gate(), action, sess.Actor())
	if err != nil {
		s.metrics.ObserveTransition(string(action), err)
	}
	return err
}

func (s *OrderService) apply(ctx context.Context, sess *session.Context, order *models.Order, action workflow.Action, payload workflow.Payload) (*models.Order, error) {
	if err := s.commit(ctx, sess, order, action, payload); err != nil {
		return nil, err
	}
	return s.reload(ctx, order.ID)
}

// commit runs the gate and persists its update.
func (s *OrderService) commit(ctx context.Context, sess *session.Context, order *models.Order, action workflow.Action, payload workflow.Payload) error {
	update, err := workflow.AttemptTransition(order.Gate(), action, sess.Actor(), payload)
	if err != nil {
		s.metrics.ObserveTransition(string(action), err)
		return err
	}

	if err := s.orders.UpdateOrder(ctx, order.ID, update); err != nil {
		s.metrics.ObserveTransition(string(action), err)
		return storeError("update order", err)
	}
	s.metrics.ObserveTransition(string(action), nil)

	s.logger.Info("order transitioned",
		"order_id", order.ID,
		"action", action,
		"from", order.Status,
		"to", update.Status,
		"actor_id", sess.UserID,
		"actor_role", sess.Role(),
	)
	return nil
}

func (s *OrderService) reload(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	updated, err := s.orders.GetOrder(ctx, id)
	if err != nil {
		return nil, storeError("get order", err)
	}
	return updated, nil
}

func (s *OrderService) Stats(ctx context.Context) (*models.Stats, error) {
	stats, err := s.orders.Stats(ctx)
	if err != nil {
		return nil, storeError("stats", err)
	}
	return stats, nil
}

