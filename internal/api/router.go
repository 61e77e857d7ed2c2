package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/waveline-app/waveline/internal/app"
	iauth "github.com/waveline-app/waveline/internal/auth"
	"github.com/waveline-app/waveline/internal/cache"
	"github.com/waveline-app/waveline/internal/handlers"
	"github.com/waveline-app/waveline/internal/middleware"
	"github.com/waveline-app/waveline/internal/realtime"
	"github.com/waveline-app/waveline/internal/services"
)

// NewRouter builds the Gin engine, wires middleware and registers all routes.
// The hub receives the notification command handlers as part of wiring.
func NewRouter(db *gorm.DB, jwt *iauth.JWTService, cfg *app.Config, hub *realtime.Hub, unread cache.UnreadCounter) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if hub == nil {
		return nil, fmt.Errorf("realtime hub must be provided")
	}

	userService, err := services.NewUserService(db)
	if err != nil {
		return nil, err
	}
	notificationService, err := services.NewNotificationService(db, hub, unread, cfg.Notifications.DedupWindow)
	if err != nil {
		return nil, err
	}
	handlers.RegisterNotificationCommands(hub, notificationService)

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS())

	r.NoRoute(middleware.NotFoundHandler)

	if cfg.Monitoring.Health.Enabled {
		r.GET("/health", handlers.Health())
	}
	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	authHandler := handlers.NewAuthHandler(userService, jwt)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	realtimeHandler := handlers.NewRealtimeHandler(hub, jwt)

	registerAuthRoutes(r, authHandler, jwt, cfg)
	registerNotificationRoutes(r, notificationHandler, jwt)
	registerRealtimeRoutes(r, realtimeHandler)

	return r, nil
}

func loginRateLimit(cfg *app.Config) gin.HandlerFunc {
	maxRequests := cfg.Auth.RateLimit.MaxRequests
	window := cfg.Auth.RateLimit.Window
	if window <= 0 {
		window = time.Minute
	}
	return middleware.RateLimit(maxRequests, window)
}
