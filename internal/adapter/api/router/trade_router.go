package router

import (
	"github.com/labstack/echo/v4"

	"tradeloop/internal/adapter/api/handler"
	"tradeloop/internal/adapter/api/middleware"
	"tradeloop/internal/infrastructure/ratelimit"
)

func SetupTradeRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, limiter *ratelimit.RateLimiter) {
	tradeHandler := handler.GetTradeHandler()
	reviewHandler := handler.GetReviewHandler()

	trades := e.Group("/v1/trades")
	trades.Use(authMiddleware.Authenticate)

	trades.GET("", tradeHandler.GetTrades, middleware.RateLimit(limiter, ratelimit.ActionRefresh))
	trades.POST("/:type/:tradeId/confirm", tradeHandler.ConfirmTrade, middleware.RateLimit(limiter, ratelimit.ActionConfirmTrade))
	trades.POST("/:type/:tradeId/proof", tradeHandler.AttachProof, middleware.RateLimit(limiter, ratelimit.ActionAttachProof))
	trades.GET("/:type/:tradeId/review", reviewHandler.GetReview, middleware.RateLimit(limiter, ratelimit.ActionRefresh))
	trades.POST("/:type/:tradeId/review", reviewHandler.SubmitReview, middleware.RateLimit(limiter, ratelimit.ActionSubmitReview))
}
