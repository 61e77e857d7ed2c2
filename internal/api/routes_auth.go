package api

import (
	"github.com/gin-gonic/gin"

	"github.com/waveline-app/waveline/internal/app"
	iauth "github.com/waveline-app/waveline/internal/auth"
	"github.com/waveline-app/waveline/internal/handlers"
	"github.com/waveline-app/waveline/internal/middleware"
)

func registerAuthRoutes(r *gin.Engine, handler *handlers.AuthHandler, jwt *iauth.JWTService, cfg *app.Config) {
	limit := loginRateLimit(cfg)

	auth := r.Group("/api/auth")
	{
		auth.POST("/register", limit, handler.Register)
		auth.POST("/login", limit, handler.Login)
		auth.GET("/me", middleware.Auth(jwt), handler.Me)
	}
}
