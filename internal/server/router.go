package server

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"commission-art-backend/docs"
	"commission-art-backend/internal/config"
	"commission-art-backend/internal/handlers"
	"commission-art-backend/internal/metrics"
	"commission-art-backend/internal/middleware"
	"commission-art-backend/internal/services"
	"commission-art-backend/internal/supabase"
)

// Deps are the collaborators the HTTP layer needs.
type Deps struct {
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	DB       handlers.Pinger
	Profiles middleware.ProfileLoader
	Realtime *supabase.RealtimeClient
	// Streams ends the open event streams when cancelled. Optional.
	Streams context.Context

	Auth     *services.AuthService
	Orders   *services.OrderService
	Messages *services.MessageService
	Gallery  *services.GalleryService
}

// NewHTTPServer serves router on addr. Shutdown waits for idle connections
// and event streams never go idle, so stopStreams runs when Shutdown starts.
func NewHTTPServer(addr string, router http.Handler, stopStreams func()) *http.Server {
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}
	if stopStreams != nil {
		srv.RegisterOnShutdown(stopStreams)
	}
	return srv
}

func NewRouter(cfg *config.Config, d Deps) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	setSwaggerHost(cfg.BaseURL)

	router := gin.New()

	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(d.Metrics.Middleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", handlers.HealthHandler)
	router.GET("/ready", handlers.ReadyHandler(d.DB, d.Logger))
	router.GET("/metrics", gin.WrapH(d.Metrics.Handler()))

	authHandler := handlers.NewAuthHandler(d.Auth, d.Logger)
	ordersHandler := handlers.NewOrdersHandler(d.Orders, d.Logger)
	messagesHandler := handlers.NewMessagesHandler(d.Messages, d.Logger)
	galleryHandler := handlers.NewGalleryHandler(d.Gallery, d.Logger)
	adminHandler := handlers.NewAdminHandler(d.Orders, d.Auth, d.Logger)
	var streamsDone <-chan struct{}
	if d.Streams != nil {
		streamsDone = d.Streams.Done()
	}
	eventsHandler := handlers.NewEventsHandler(d.Realtime, d.Orders, streamsDone, d.Logger)

	public := router.Group("/api/v1")
	public.POST("/auth/register", authHandler.Register)
	public.POST("/auth/login", authHandler.Login)
	public.GET("/gallery", galleryHandler.ListGallery)

	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(cfg))
	api.Use(middleware.LoadSession(d.Profiles, d.Logger))

	api.POST("/auth/logout", authHandler.Logout)
	api.GET("/me", authHandler.Me)

	// Orders
	api.POST("/orders", ordersHandler.CreateOrder)
	api.GET("/orders", ordersHandler.ListOrders)
	api.GET("/orders/:order_id", ordersHandler.GetOrder)
	api.POST("/orders/:order_id/actions/:action", ordersHandler.Transition)
	api.POST("/orders/:order_id/payment-proof", ordersHandler.UploadPaymentProof)
	api.POST("/orders/:order_id/complete", ordersHandler.CompleteOrder)

	// Chat
	api.GET("/orders/:order_id/messages", messagesHandler.ListMessages)
	api.POST("/orders/:order_id/messages", messagesHandler.SendMessage)

	// Change feed
	api.GET("/orders/:order_id/events", eventsHandler.OrderEvents)
	api.GET("/events/orders", eventsHandler.OrderListEvents)

	// Gallery management
	api.POST("/gallery", middleware.RequireManager(), galleryHandler.CreateGalleryItem)
	api.DELETE("/gallery/:item_id", middleware.RequireManager(), galleryHandler.DeleteGalleryItem)

	admin := api.Group("/admin")
	admin.Use(middleware.RequireAdmin())
	admin.GET("/stats", adminHandler.Stats)
	admin.GET("/users", adminHandler.Users)

	return router
}

// setSwaggerHost points the Swagger docs at the public base URL.
func setSwaggerHost(baseURL string) {
	if baseURL == "" {
		return
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return
	}
	docs.SwaggerInfo.Host = u.Host
	if u.Scheme == "https" {
		docs.SwaggerInfo.Schemes = []string{"https", "http"}
	} else {
		docs.SwaggerInfo.Schemes = []string{"http", "https"}
	}
}
