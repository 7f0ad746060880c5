package services_test

import (
	"time"

	"commission-art-backend/internal/logging"
	"commission-art-backend/internal/metrics"
	"commission-art-backend/internal/models"
	"commission-art-backend/internal/ratelimit"
	"commission-art-backend/internal/services"
	"commission-art-backend/internal/services/servicetest"
	"commission-art-backend/internal/session"
	"commission-art-backend/internal/workflow"
)

var (
	pngHeader = servicetest.PNGHeader
	mediaBase = servicetest.MediaBase
)

type fixture struct {
	store   *servicetest.Store
	media   *servicetest.Media
	metrics *metrics.Metrics
	clock   time.Time
	orders  *services.OrderService
	chat    *services.MessageService
	gallery *services.GalleryService
}

func newFixture() *fixture {
	f := &fixture{
		store:   servicetest.NewStore(),
		media:   servicetest.NewMedia(),
		metrics: metrics.New(),
		clock:   time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	logger := logging.NewNop()
	storage := services.NewStorageService(f.media, servicetest.Buckets, f.metrics, logger)
	limiter := ratelimit.NewMemoryLimiterWithClock(ratelimit.MessageWindow, func() time.Time { return f.clock })

	f.orders = services.NewOrderService(f.store, storage, f.metrics, logger)
	f.chat = services.NewMessageService(f.store, f.store, storage, limiter, f.metrics, logger)
	f.gallery = services.NewGalleryService(f.store, storage, logger)
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.clock = f.clock.Add(d)
}

func (f *fixture) user(role workflow.Role) *session.Context {
	p := f.store.AddProfile(role)
	return &session.Context{UserID: p.ID, Profile: p, AccessToken: "token-" + p.ID.String()}
}

func (f *fixture) orderAt(owner *session.Context, status workflow.Status) *models.Order {
	return f.store.AddOrder(owner.UserID, status)
}
