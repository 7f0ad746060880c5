package handlers

import (
	"io"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"commission-art-backend/internal/services"
	"commission-art-backend/internal/session"
	"commission-art-backend/internal/supabase"
)

const keepAliveInterval = 25 * time.Second

type EventsHandler struct {
	realtime *supabase.RealtimeClient
	orders   *services.OrderService
	done     <-chan struct{}
	logger   *slog.Logger
}

// NewEventsHandler ends every open stream once done is closed. A nil done
// never ends them.
func NewEventsHandler(realtime *supabase.RealtimeClient, orders *services.OrderService, done <-chan struct{}, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{
		realtime: realtime,
		orders:   orders,
		done:     done,
		logger:   logger,
	}
}

// OrderEvents godoc
// @Summary     Follow one order
// @Description Server-sent events for changes to the order and new chat messages. Clients re-fetch on every event. EventSource clients may pass the token as access_token.
// @Tags        events
// @Produce     text/event-stream
// @Security    Bearer
// @Param       order_id path string true "Order ID"
// @Success     200 {object} supabase.ChangeEvent
// @Failure     401 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /orders/{order_id}/events [get]
func (h *EventsHandler) OrderEvents(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}
	orderID, ok := pathUUID(c, "order_id")
	if !ok {
		return
	}

	if _, err := h.orders.GetOrder(c.Request.Context(), sess, orderID); err != nil {
		respondError(c, h.logger, err)
		return
	}

	sub := h.realtime.Subscribe(supabase.ChangeFilter{OrderID: uuid.NullUUID{UUID: orderID, Valid: true}})
	defer sub.Unsubscribe()

	h.stream(c, sub, func(supabase.ChangeEvent) bool { return true })
}

// OrderListEvents godoc
// @Summary     Follow the order list
// @Description Server-sent events for order changes the caller can see.
// @Tags        events
// @Produce     text/event-stream
// @Security    Bearer
// @Success     200 {object} supabase.ChangeEvent
// @Failure     401 {object} models.ErrorResponse
// @Router      /events/orders [get]
func (h *EventsHandler) OrderListEvents(c *gin.Context) {
	sess, ok := currentSession(c)
	if !ok {
		return
	}

	sub := h.realtime.Subscribe(supabase.ChangeFilter{Table: supabase.TableOrders})
	defer sub.Unsubscribe()

	h.stream(c, sub, func(ev supabase.ChangeEvent) bool {
		return h.visible(c, sess, ev)
	})
}

// visible reports whether sess may learn about ev. Deleted orders can no
// longer be looked up, so only managers hear about them.
func (h *EventsHandler) visible(c *gin.Context, sess *session.Context, ev supabase.ChangeEvent) bool {
	if ev.Op == supabase.OpResync || sess.CanManageOrders() {
		return true
	}
	if ev.Op == "DELETE" {
		return false
	}
	_, err := h.orders.GetOrder(c.Request.Context(), sess, ev.OrderID)
	return err == nil
}

func (h *EventsHandler) stream(c *gin.Context, sub *supabase.Subscription, allow func(supabase.ChangeEvent) bool) {
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	// First frame so clients know the subscription is live.
	c.SSEvent("ready", gin.H{"subscribed": true})
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case <-h.done:
			return false
		case ev, ok := <-sub.C:
			if !ok {
				return false
			}
			if allow(ev) {
				c.SSEvent("change", ev)
			}
			return true
		case <-ticker.C:
			c.SSEvent("ping", time.Now().Unix())
			return true
		}
	})
}
