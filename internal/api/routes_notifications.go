package api

import (
	"github.com/gin-gonic/gin"

	iauth "github.com/waveline-app/waveline/internal/auth"
	"github.com/waveline-app/waveline/internal/handlers"
	"github.com/waveline-app/waveline/internal/middleware"
)

func registerNotificationRoutes(r *gin.Engine, handler *handlers.NotificationHandler, jwt *iauth.JWTService) {
	group := r.Group("/api/notifications")
	group.Use(middleware.Auth(jwt))
	{
		group.GET("", handler.List)
		group.GET("/unread-count", handler.UnreadCount)
		group.POST("", handler.Create)
		group.PATCH("/read-all", handler.MarkAllRead)
		group.PATCH("/:id/read", handler.MarkRead)
		group.DELETE("/:id", handler.Delete)
		group.DELETE("", handler.DeleteAll)
	}
}
