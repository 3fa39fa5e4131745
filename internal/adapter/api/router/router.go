package router

import (
	"github.com/labstack/echo/v4"

	"tradeloop/internal/adapter/api/handler"
	"tradeloop/internal/adapter/api/middleware"
	"tradeloop/internal/infrastructure/ratelimit"
)

func Setup(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, limiter *ratelimit.RateLimiter, wsHandler *handler.WebSocketHandler) {
	SetupHealthRouter(e)
	SetupListingRouter(e, authMiddleware, limiter)
	SetupTradeRouter(e, authMiddleware, limiter)
	SetupImpactRouter(e, authMiddleware)
	SetupWebSocketRouter(e, authMiddleware, wsHandler)
}
