package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ChangeChannel is the Postgres notification channel fed by row triggers.
const ChangeChannel = "row_changes"

const (
	TableOrders   = "orders"
	TableMessages = "messages"

	// OpResync is delivered to every subscriber after the listener
	// reconnects, since notifications sent while disconnected are lost.
	OpResync = "RESYNC"
)

const subscriptionBuffer = 16

type ChangeEvent struct {
	Table   string    `json:"table"`
	Op      string    `json:"op"`
	ID      uuid.UUID `json:"id"`
	OrderID uuid.UUID `json:"order_id"`
}

// ChangeFilter selects events. Zero fields match anything.
type ChangeFilter struct {
	Table   string
	OrderID uuid.NullUUID
}

func (f ChangeFilter) Matches(ev ChangeEvent) bool {
	if ev.Op == OpResync {
		return true
	}
	if f.Table != "" && f.Table != ev.Table {
		return false
	}
	if f.OrderID.Valid && f.OrderID.UUID != ev.OrderID {
		return false
	}
	return true
}

// RealtimeClient fans out row change notifications to in-process
// subscribers.
type RealtimeClient struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	logger *slog.Logger
}

func NewRealtimeClient(logger *slog.Logger) *RealtimeClient {
	return &RealtimeClient{
		subs:   make(map[*Subscription]struct{}),
		logger: logger,
	}
}

type Subscription struct {
	C <-chan ChangeEvent

	c      chan ChangeEvent
	filter ChangeFilter
	hub    *RealtimeClient
	once   sync.Once
}

// Unsubscribe stops delivery and closes C. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs, s)
		close(s.c)
		s.hub.mu.Unlock()
	})
}

func (r *RealtimeClient) Subscribe(filter ChangeFilter) *Subscription {
	c := make(chan ChangeEvent, subscriptionBuffer)
	sub := &Subscription{C: c, c: c, filter: filter, hub: r}

	r.mu.Lock()
	r.subs[sub] = struct{}{}
	r.mu.Unlock()
	return sub
}

func (r *RealtimeClient) Subscribers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

// Publish delivers ev to matching subscribers. A subscriber whose buffer is
// full misses the event.
func (r *RealtimeClient) Publish(ev ChangeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for sub := range r.subs {
		if !sub.filter.Matches(ev) {
			continue
		}
		select {
		case sub.c <- ev:
		default:
			r.logger.Warn("dropping change event for slow subscriber", "table", ev.Table, "id", ev.ID)
		}
	}
}

func ParseChangeEvent(payload string) (ChangeEvent, error) {
	var ev ChangeEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return ChangeEvent{}, fmt.Errorf("invalid change payload: %w", err)
	}
	return ev, nil
}

// Listen publishes notifications until ctx is cancelled or the channel is
// closed. A nil notification means the connection was re-established.
func (r *RealtimeClient) Listen(ctx context.Context, notifications <-chan *pq.Notification) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case n, ok := <-notifications:
			if !ok {
				return nil
			}
			if n == nil {
				r.Publish(ChangeEvent{Op: OpResync})
				continue
			}
			if n.Channel != ChangeChannel {
				continue
			}
			ev, err := ParseChangeEvent(n.Extra)
			if err != nil {
				r.logger.Warn("ignoring notification", "error", err)
				continue
			}
			r.Publish(ev)
		}
	}
}

// ListenPostgres connects a pq.Listener to the change channel and feeds it
// into Listen. It blocks until ctx is cancelled.
func (r *RealtimeClient) ListenPostgres(ctx context.Context, dsn string) error {
	listener := pq.NewListener(dsn, 2*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			r.logger.Error("change feed listener", "event", ev, "error", err)
		}
	})
	defer listener.Close()

	if err := listener.Listen(ChangeChannel); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", ChangeChannel, err)
	}
	r.logger.Info("listening for row changes", "channel", ChangeChannel)

	go func() {
		ticker := time.NewTicker(90 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := listener.Ping(); err != nil {
					r.logger.Warn("change feed ping failed", "error", err)
				}
			}
		}
	}()

	return r.Listen(ctx, listener.Notify)
}
