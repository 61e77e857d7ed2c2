package api

import (
	"github.com/gin-gonic/gin"

	"github.com/waveline-app/waveline/internal/handlers"
)

func registerRealtimeRoutes(r *gin.Engine, handler *handlers.RealtimeHandler) {
	// Token is validated inside the handler: browsers cannot attach headers
	// to a WebSocket dial, so the auth middleware does not apply here.
	r.GET("/ws/notifications", handler.Stream)
}
