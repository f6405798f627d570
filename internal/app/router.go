// internal/app/router.go
package app

import (
	authHandler "marketlens-service/internal/handlers/auth"
	marketHandler "marketlens-service/internal/handlers/market"
	"marketlens-service/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Handlers struct {
	AuthHandler    *authHandler.AuthHandler
	MarketHandler  *marketHandler.MarketHandler
	AuthMiddleware *middleware.AuthMiddleware
}

func SetupRouter(r *gin.Engine, logger *zap.Logger, h *Handlers) {
	api := r.Group("/api/v1")

	// ==================== Health Check ====================
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "version": "1.0.0"})
	})

	// ==================== Metrics ====================
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// ==================== Auth Routes ====================
	auth := r.Group("/auth")
	{
		auth.POST("/register", h.AuthHandler.Register)
		auth.POST("/login", h.AuthHandler.Login)
		auth.POST("/refresh", h.AuthHandler.Refresh)
		auth.POST("/logout", h.AuthHandler.Logout)
		auth.GET("/validate", h.AuthHandler.Validate)
	}

	// ==================== Market Routes ====================
	market := api.Group("/market")
	market.Use(h.AuthMiddleware.Auth())
	{
		market.GET("/sectors", h.MarketHandler.ListSectors)
		market.POST("/sectors", h.AuthMiddleware.RequireRole("Admin"), h.MarketHandler.UpsertSector)
	}
}
